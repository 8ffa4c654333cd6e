package data_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendit-api/trendit/modules/data"
)

const listingBody = `{
	"data": {
		"children": [
			{"data": {
				"id": "abc",
				"subreddit": "golang",
				"title": "pgx or database/sql",
				"author": "gopher",
				"score": 128,
				"num_comments": 42,
				"permalink": "/r/golang/comments/abc/",
				"created_utc": 1755000000
			}}
		]
	}
}`

func TestRedditProviderSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("site-wide search", func(t *testing.T) {
		t.Parallel()

		var gotPath, gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotUA = r.Header.Get("User-Agent")
			assert.Equal(t, "pgx", r.URL.Query().Get("q"))
			w.Write([]byte(listingBody))
		}))
		defer srv.Close()

		provider := data.NewRedditProvider(data.RedditConfig{
			BaseURL: srv.URL, UserAgent: "trendit-test/1.0", Timeout: 5 * time.Second,
		})

		posts, err := provider.Search(ctx, data.SearchRequest{Query: "pgx"})
		require.NoError(t, err)
		assert.Equal(t, "/search.json", gotPath)
		assert.Equal(t, "trendit-test/1.0", gotUA)

		require.Len(t, posts, 1)
		assert.Equal(t, "abc", posts[0].ID)
		assert.Equal(t, 128, posts[0].Score)
		assert.Equal(t, time.Unix(1755000000, 0).UTC(), posts[0].CreatedAt)
		assert.Equal(t, srv.URL+"/r/golang/comments/abc/", posts[0].URL)
	})

	t.Run("subreddit search restricts scope", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/r/golang/search.json", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("restrict_sr"))
			w.Write([]byte(listingBody))
		}))
		defer srv.Close()

		provider := data.NewRedditProvider(data.RedditConfig{
			BaseURL: srv.URL, UserAgent: "t", Timeout: 5 * time.Second,
		})

		_, err := provider.Search(ctx, data.SearchRequest{Query: "pgx", Subreddit: "golang"})
		require.NoError(t, err)
	})

	t.Run("unknown subreddit", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		provider := data.NewRedditProvider(data.RedditConfig{
			BaseURL: srv.URL, UserAgent: "t", Timeout: 5 * time.Second,
		})

		_, err := provider.Search(ctx, data.SearchRequest{Query: "x", Subreddit: "doesnotexist"})
		require.ErrorIs(t, err, data.ErrUnknownSubreddit)
	})

	t.Run("upstream error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		provider := data.NewRedditProvider(data.RedditConfig{
			BaseURL: srv.URL, UserAgent: "t", Timeout: 5 * time.Second,
		})

		_, err := provider.Search(ctx, data.SearchRequest{Query: "x"})
		require.ErrorIs(t, err, data.ErrUpstreamFailed)
	})

	t.Run("empty query rejected without a request", func(t *testing.T) {
		t.Parallel()

		provider := data.NewRedditProvider(data.RedditConfig{
			BaseURL: "http://127.0.0.1:1", UserAgent: "t", Timeout: time.Second,
		})

		_, err := provider.Search(ctx, data.SearchRequest{})
		require.ErrorIs(t, err, data.ErrQueryRequired)
	})
}

func TestScoreSentiment(t *testing.T) {
	t.Parallel()

	t.Run("negation flips polarity", func(t *testing.T) {
		t.Parallel()

		res := data.ScoreSentiment("not good at all")
		assert.Equal(t, data.SentimentNegative, res.Label)

		res = data.ScoreSentiment("this is good")
		assert.Equal(t, data.SentimentPositive, res.Label)
	})

	t.Run("punctuation stripped", func(t *testing.T) {
		t.Parallel()

		res := data.ScoreSentiment("Awesome!")
		assert.Equal(t, data.SentimentPositive, res.Label)
	})

	t.Run("empty text is neutral", func(t *testing.T) {
		t.Parallel()

		res := data.ScoreSentiment("")
		assert.Equal(t, data.SentimentNeutral, res.Label)
		assert.Zero(t, res.Score)
	})

	t.Run("score stays within bounds", func(t *testing.T) {
		t.Parallel()

		res := data.ScoreSentiment("awesome amazing excellent best love")
		assert.Equal(t, data.SentimentPositive, res.Label)
		assert.LessOrEqual(t, res.Score, 1.0)
	})
}
