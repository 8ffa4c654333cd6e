// Package data exposes the metered resource endpoints. Every handler runs
// through the usage gate before touching the upstream provider, so denied
// requests never consume upstream capacity.
package data

import (
	"context"
	"errors"
	"time"
)

var (
	ErrQueryRequired    = errors.New("search query is required")
	ErrNoTexts          = errors.New("at least one text is required")
	ErrTooManyTexts     = errors.New("too many texts in one request")
	ErrUpstreamFailed   = errors.New("upstream data provider failed")
	ErrUnknownSubreddit = errors.New("subreddit not found")
)

// Post is one item returned from the upstream source.
type Post struct {
	ID        string    `json:"id"`
	Subreddit string    `json:"subreddit"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Score     int       `json:"score"`
	Comments  int       `json:"comments"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchRequest describes one upstream search.
type SearchRequest struct {
	Query     string
	Subreddit string // empty means site-wide
	Limit     int
}

// Provider abstracts the upstream data source so handlers and tests do not
// depend on the live API.
type Provider interface {
	Search(ctx context.Context, req SearchRequest) ([]Post, error)
}
