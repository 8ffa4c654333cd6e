package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultSearchLimit = 25
	maxSearchLimit     = 100
)

// RedditConfig configures the public Reddit JSON API client.
type RedditConfig struct {
	BaseURL   string        `env:"REDDIT_BASE_URL" envDefault:"https://www.reddit.com"`
	UserAgent string        `env:"REDDIT_USER_AGENT" envDefault:"trendit/1.0"`
	Timeout   time.Duration `env:"REDDIT_TIMEOUT" envDefault:"10s"`
}

// RedditProvider fetches posts from Reddit's public JSON endpoints.
type RedditProvider struct {
	cfg    RedditConfig
	client *http.Client
}

// NewRedditProvider creates the live upstream client.
func NewRedditProvider(cfg RedditConfig) *RedditProvider {
	return &RedditProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *RedditProvider) Search(ctx context.Context, req SearchRequest) ([]Post, error) {
	if req.Query == "" {
		return nil, ErrQueryRequired
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	endpoint := p.cfg.BaseURL + "/search.json"
	if req.Subreddit != "" {
		endpoint = p.cfg.BaseURL + "/r/" + url.PathEscape(req.Subreddit) + "/search.json"
	}

	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("limit", strconv.Itoa(limit))
	if req.Subreddit != "" {
		q.Set("restrict_sr", "1")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	httpReq.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, errors.Join(ErrUpstreamFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrUnknownSubreddit
	default:
		return nil, fmt.Errorf("%w: upstream status %d", ErrUpstreamFailed, resp.StatusCode)
	}

	var listing struct {
		Data struct {
			Children []struct {
				Data struct {
					ID          string  `json:"id"`
					Subreddit   string  `json:"subreddit"`
					Title       string  `json:"title"`
					Author      string  `json:"author"`
					Score       int     `json:"score"`
					NumComments int     `json:"num_comments"`
					Permalink   string  `json:"permalink"`
					CreatedUTC  float64 `json:"created_utc"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, errors.Join(ErrUpstreamFailed, err)
	}

	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		posts = append(posts, Post{
			ID:        d.ID,
			Subreddit: d.Subreddit,
			Title:     d.Title,
			Author:    d.Author,
			Score:     d.Score,
			Comments:  d.NumComments,
			URL:       p.cfg.BaseURL + d.Permalink,
			CreatedAt: time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}
	return posts, nil
}
