package data

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/trendit-api/trendit/core"
	"github.com/trendit-api/trendit/modules/account"
	"github.com/trendit-api/trendit/pkg/billing"
	"github.com/trendit-api/trendit/pkg/metering"
	"github.com/trendit-api/trendit/pkg/plans"
)

// SubscriptionSource resolves the caller's subscription. Satisfied by the
// billing module's service.
type SubscriptionSource interface {
	SubscriptionFor(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error)
}

// Service serves the metered data endpoints.
type Service struct {
	provider Provider
	subs     SubscriptionSource
	gate     *metering.Gate
	log      *slog.Logger
}

// NewService wires the data module. Panics on nil dependencies.
func NewService(provider Provider, subs SubscriptionSource, gate *metering.Gate, log *slog.Logger) *Service {
	if provider == nil || subs == nil || gate == nil {
		panic("data: all dependencies are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{provider: provider, subs: subs, gate: gate, log: log}
}

// Router mounts the metered endpoints behind the API key middleware.
func Router(svc *Service, auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Get("/search", svc.handleSearch)
	r.Post("/sentiment", svc.handleSentiment)
	r.Get("/export", svc.handleExport)

	return r
}

// meter admits or rejects the request against the caller's quota. When the
// request is denied or the check fails, meter writes the response and
// returns a nil decision. Storage failures fail closed with 503: letting
// requests through unmetered means unbilled usage.
func (s *Service) meter(w http.ResponseWriter, r *http.Request, usageType plans.UsageType, cost int64) *metering.Decision {
	user := account.UserFromContext(r.Context())

	sub, err := s.subs.SubscriptionFor(r.Context(), user.ID)
	if err != nil {
		core.Error(w, r, core.ErrServiceUnavailable)
		return nil
	}

	decision, err := s.gate.CheckAndRecord(r.Context(), sub, usageType, cost, metering.RequestContext{
		Endpoint:  r.URL.Path,
		RequestID: middleware.GetReqID(r.Context()),
	})
	if err != nil {
		if errors.Is(err, metering.ErrLedgerFailed) {
			core.Error(w, r, core.ErrServiceUnavailable)
		} else {
			core.Error(w, r, err)
		}
		return nil
	}

	if !decision.Allowed {
		switch decision.Reason {
		case metering.DenySubscriptionRequired:
			core.Error(w, r, core.ErrPaymentRequired)
		case metering.DenyQuotaExceeded:
			w.Header().Set("X-Usage-Limit", strconv.FormatInt(decision.Limit, 10))
			w.Header().Set("X-Usage-Current", strconv.FormatInt(decision.Current, 10))
			core.ErrorWithDetails(w, r, core.ErrTooManyRequests, map[string]any{
				"usage_type": usageType,
				"current":    decision.Current,
				"limit":      decision.Limit,
				"period_end": decision.Period.End,
			})
		}
		return nil
	}

	if decision.Limit != plans.Unlimited {
		w.Header().Set("X-Usage-Limit", strconv.FormatInt(decision.Limit, 10))
		w.Header().Set("X-Usage-Remaining", strconv.FormatInt(decision.Remaining(), 10))
	}
	return &decision
}

func searchRequestFromQuery(r *http.Request) SearchRequest {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return SearchRequest{
		Query:     r.URL.Query().Get("q"),
		Subreddit: r.URL.Query().Get("subreddit"),
		Limit:     limit,
	}
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	req := searchRequestFromQuery(r)
	if req.Query == "" {
		core.Error(w, r, core.ErrBadRequest)
		return
	}

	if s.meter(w, r, plans.UsageAPICall, 1) == nil {
		return
	}

	posts, err := s.provider.Search(r.Context(), req)
	if err != nil {
		s.writeProviderError(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, posts)
}

type sentimentRequest struct {
	Texts []string `json:"texts"`
}

func (s *Service) handleSentiment(w http.ResponseWriter, r *http.Request) {
	var req sentimentRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if len(req.Texts) == 0 {
		core.Error(w, r, core.ErrUnprocessableEntity)
		return
	}
	if len(req.Texts) > maxSentimentBatch {
		core.Error(w, r, core.ErrUnprocessableEntity)
		return
	}

	// The whole batch is one admission decision: either every text is
	// charged and scored, or none are.
	if s.meter(w, r, plans.UsageSentimentAnalysis, int64(len(req.Texts))) == nil {
		return
	}

	results := make([]SentimentResult, len(req.Texts))
	for i, text := range req.Texts {
		results[i] = ScoreSentiment(text)
	}
	core.JSON(w, http.StatusOK, results)
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	req := searchRequestFromQuery(r)
	if req.Query == "" {
		core.Error(w, r, core.ErrBadRequest)
		return
	}

	if s.meter(w, r, plans.UsageExport, 1) == nil {
		return
	}

	posts, err := s.provider.Search(r.Context(), req)
	if err != nil {
		s.writeProviderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trendit-export.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "subreddit", "title", "author", "score", "comments", "url", "created_at"})
	for _, p := range posts {
		_ = cw.Write([]string{
			p.ID, p.Subreddit, p.Title, p.Author,
			strconv.Itoa(p.Score), strconv.Itoa(p.Comments),
			p.URL, p.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	cw.Flush()
}

func (s *Service) writeProviderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnknownSubreddit):
		core.Error(w, r, core.ErrNotFound)
	case errors.Is(err, ErrQueryRequired):
		core.Error(w, r, core.ErrBadRequest)
	case errors.Is(err, ErrUpstreamFailed):
		s.log.ErrorContext(r.Context(), "upstream provider failure", "error", err)
		core.Error(w, r, core.NewHTTPError(http.StatusBadGateway, "upstream_unavailable"))
	default:
		core.Error(w, r, err)
	}
}
