// Command server runs the Trendit API: accounts, billing, and the metered
// data endpoints, all behind one chi router.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/trendit-api/trendit/modules/account"
	billingapi "github.com/trendit-api/trendit/modules/billing"
	"github.com/trendit-api/trendit/modules/data"
	"github.com/trendit-api/trendit/pkg/billing"
	"github.com/trendit-api/trendit/pkg/config"
	"github.com/trendit-api/trendit/pkg/email"
	"github.com/trendit-api/trendit/pkg/httpserver"
	"github.com/trendit-api/trendit/pkg/jwt"
	"github.com/trendit-api/trendit/pkg/logger"
	"github.com/trendit-api/trendit/pkg/metering"
	"github.com/trendit-api/trendit/pkg/pg"
	"github.com/trendit-api/trendit/pkg/plans"
	"github.com/trendit-api/trendit/pkg/ratelimit"
	"github.com/trendit-api/trendit/pkg/redis"
)

type appConfig struct {
	JWTSecret string `env:"JWT_SECRET,required"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"trendit"`

	TierCatalogPath string `env:"TIER_CATALOG_PATH"`

	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`
}

const accessTokenTTL = 30 * time.Minute

func main() {
	ctx := context.Background()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.New(logCfg, logger.WithService("trendit-api"))
	logger.SetAsDefault(log)

	if err := run(ctx, log); err != nil {
		log.ErrorContext(ctx, "server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		appCfg    appConfig
		pgCfg     pg.Config
		redisCfg  redis.Config
		httpCfg   httpserver.Config
		paddleCfg billing.PaddleConfig
		emailCfg  email.Config
		billCfg   billingapi.Config
		redditCfg data.RedditConfig
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&paddleCfg)
	config.MustLoad(&emailCfg)
	config.MustLoad(&billCfg)
	config.MustLoad(&redditCfg)

	// Storage.
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Tier catalog: YAML when configured, built-in defaults otherwise.
	var tierSource plans.Source
	if appCfg.TierCatalogPath != "" {
		tierSource = plans.NewYAMLSource(appCfg.TierCatalogPath)
	} else {
		tierSource = plans.NewInMemSource(plans.DefaultTiers()...)
	}
	catalog, err := plans.NewCatalog(ctx, tierSource)
	if err != nil {
		return err
	}

	// Billing and metering core.
	subStore := billing.NewPGStore(pool)
	eventStore := billing.NewPGEventStore(pool)
	ledger := metering.NewPGLedger(pool)
	gate := metering.NewGate(ledger, metering.NewAdvisoryLocker(pool),
		metering.WithGateLogger(log))

	provider, err := billing.NewPaddleProvider(paddleCfg)
	if err != nil {
		return err
	}

	var sender email.Sender
	if emailCfg.PostmarkServerToken != "" {
		sender, err = email.NewPostmarkSender(emailCfg)
		if err != nil {
			return err
		}
	} else {
		sender = email.NewLogSender(log)
	}

	accountStore := account.NewPGStore(pool)

	lookupEmail := func(ctx context.Context, id uuid.UUID) (string, error) {
		user, err := accountStore.GetUserByID(ctx, id)
		if err != nil {
			return "", err
		}
		return user.Email, nil
	}

	reconciler := billing.NewReconciler(subStore, eventStore, catalog,
		billing.WithReconcilerLogger(log),
		billing.WithStatusChangeHook(billingapi.StatusChangeNotifier(lookupEmail, sender, log)))

	// Services.
	tokens, err := jwt.New(appCfg.JWTSecret, appCfg.JWTIssuer, accessTokenTTL)
	if err != nil {
		return err
	}
	accountSvc := account.NewService(accountStore, tokens,
		account.WithServiceLogger(log))

	billingSvc := billingapi.NewService(billCfg, subStore, catalog, provider,
		reconciler, gate, log)

	dataSvc := data.NewService(data.NewRedditProvider(redditCfg), billingSvc, gate, log)

	loginLimiter, err := ratelimit.New(
		ratelimit.NewRedisStore(redisClient),
		ratelimit.Config{Limit: appCfg.LoginRateLimit, Window: appCfg.LoginRateWindow})
	if err != nil {
		return err
	}

	// Router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", httpserver.HealthCheckHandler(log,
		pg.Healthcheck(pool), redis.Healthcheck(redisClient)))

	r.Mount("/account", account.Router(accountSvc,
		ratelimit.Middleware(loginLimiter, ratelimit.ByClientIP)))
	r.Mount("/billing", billingapi.Router(billingSvc, accountSvc.RequireJWT))
	r.Post("/webhooks/paddle", billingapi.WebhookHandler(billingSvc))
	r.Mount("/data", data.Router(dataSvc, accountSvc.RequireAPIKey))

	return httpserver.New(httpCfg, log).Run(ctx, r)
}
