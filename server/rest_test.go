package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/boonscroll/pkg/domain"
	"github.com/umputun/boonscroll/pkg/scroll"
	"github.com/umputun/boonscroll/server/mocks"
)

func testServer(feed FeedService) *Server {
	cfg := &mocks.ConfigProviderMock{
		GetServerConfigFunc: func() (string, time.Duration) {
			return ":8080", 30 * time.Second
		},
	}
	return New(cfg, feed, "test", false)
}

func TestServer_getScrollHandler(t *testing.T) {
	t.Run("returns batch", func(t *testing.T) {
		ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		feed := &mocks.FeedServiceMock{
			GetBatchFunc: func(ctx context.Context, req scroll.BatchRequest) (scroll.Batch, error) {
				return scroll.Batch{
					Items: []domain.FeedItem{
						{ID: "reddit:abc", Tier: domain.TierWire, Source: "reddit", Title: "first", Timestamp: &ts, QueryName: "subs"},
						{ID: "rss:def", Tier: domain.TierWire, Source: "rss", Title: "second", Timestamp: &ts, QueryName: "blogs"},
					},
					NextCursor: "cursor-2",
					HasMore:    true,
				}, nil
			},
		}
		srv := testServer(feed)

		req := httptest.NewRequest("GET", "/feed/scroll?limit=2&session=2026-08-01T12:00:00Z&filter=reddit&cursor=cursor-1&user=dev", http.NoBody)
		w := httptest.NewRecorder()
		srv.getScrollHandler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var batch scroll.Batch
		err := json.Unmarshal(w.Body.Bytes(), &batch)
		require.NoError(t, err)
		require.Len(t, batch.Items, 2)
		assert.Equal(t, "reddit:abc", batch.Items[0].ID)
		assert.Equal(t, "cursor-2", batch.NextCursor)
		assert.True(t, batch.HasMore)
		assert.Empty(t, batch.Warnings)

		// request params forwarded as-is
		calls := feed.GetBatchCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, "dev", calls[0].Req.User)
		assert.Equal(t, "2026-08-01T12:00:00Z", calls[0].Req.Session)
		assert.Equal(t, "cursor-1", calls[0].Req.Cursor)
		assert.Equal(t, 2, calls[0].Req.Limit)
		assert.Equal(t, "reddit", calls[0].Req.Filter)
	})

	t.Run("defaults when params omitted", func(t *testing.T) {
		feed := &mocks.FeedServiceMock{
			GetBatchFunc: func(ctx context.Context, req scroll.BatchRequest) (scroll.Batch, error) {
				return scroll.Batch{}, nil
			},
		}
		srv := testServer(feed)

		req := httptest.NewRequest("GET", "/feed/scroll", http.NoBody)
		w := httptest.NewRecorder()
		srv.getScrollHandler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		calls := feed.GetBatchCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, scroll.BatchRequest{}, calls[0].Req)
	})

	t.Run("warnings included when present", func(t *testing.T) {
		feed := &mocks.FeedServiceMock{
			GetBatchFunc: func(ctx context.Context, req scroll.BatchRequest) (scroll.Batch, error) {
				return scroll.Batch{Warnings: []string{"reddit: status 502"}}, nil
			},
		}
		srv := testServer(feed)

		req := httptest.NewRequest("GET", "/feed/scroll", http.NoBody)
		w := httptest.NewRecorder()
		srv.getScrollHandler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "reddit: status 502")
	})

	t.Run("warnings omitted when empty", func(t *testing.T) {
		feed := &mocks.FeedServiceMock{
			GetBatchFunc: func(ctx context.Context, req scroll.BatchRequest) (scroll.Batch, error) {
				return scroll.Batch{}, nil
			},
		}
		srv := testServer(feed)

		req := httptest.NewRequest("GET", "/feed/scroll", http.NoBody)
		w := httptest.NewRecorder()
		srv.getScrollHandler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "warnings")
	})

	t.Run("invalid limit", func(t *testing.T) {
		feed := &mocks.FeedServiceMock{}
		srv := testServer(feed)

		req := httptest.NewRequest("GET", "/feed/scroll?limit=abc", http.NoBody)
		w := httptest.NewRecorder()
		srv.getScrollHandler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid limit")
		assert.Empty(t, feed.GetBatchCalls())
	})

	t.Run("negative limit", func(t *testing.T) {
		feed := &mocks.FeedServiceMock{}
		srv := testServer(feed)

		req := httptest.NewRequest("GET", "/feed/scroll?limit=-5", http.NoBody)
		w := httptest.NewRecorder()
		srv.getScrollHandler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, feed.GetBatchCalls())
	})

	t.Run("bad cursor maps to 400", func(t *testing.T) {
		feed := &mocks.FeedServiceMock{
			GetBatchFunc: func(ctx context.Context, req scroll.BatchRequest) (scroll.Batch, error) {
				return scroll.Batch{}, fmt.Errorf("%w: %q", scroll.ErrBadCursor, req.Cursor)
			},
		}
		srv := testServer(feed)

		req := httptest.NewRequest("GET", "/feed/scroll?cursor=garbage", http.NoBody)
		w := httptest.NewRecorder()
		srv.getScrollHandler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "bad cursor")
	})

	t.Run("internal error maps to 500", func(t *testing.T) {
		feed := &mocks.FeedServiceMock{
			GetBatchFunc: func(ctx context.Context, req scroll.BatchRequest) (scroll.Batch, error) {
				return scroll.Batch{}, errors.New("recipe load failed")
			},
		}
		srv := testServer(feed)

		req := httptest.NewRequest("GET", "/feed/scroll", http.NoBody)
		w := httptest.NewRecorder()
		srv.getScrollHandler(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "recipe load failed")
	})
}

func TestServer_dismissHandler(t *testing.T) {
	t.Run("dismisses items", func(t *testing.T) {
		feed := &mocks.FeedServiceMock{
			DismissFunc: func(ctx context.Context, ids []string) int {
				return len(ids)
			},
		}
		srv := testServer(feed)

		req := httptest.NewRequest("POST", "/feed/scroll/dismiss", strings.NewReader(`{"itemIds":["reddit:a","rss:b"]}`))
		w := httptest.NewRecorder()
		srv.dismissHandler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var result map[string]int
		err := json.Unmarshal(w.Body.Bytes(), &result)
		require.NoError(t, err)
		assert.Equal(t, 2, result["dismissed"])

		calls := feed.DismissCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, []string{"reddit:a", "rss:b"}, calls[0].Ids)
	})

	t.Run("empty list is a no-op", func(t *testing.T) {
		feed := &mocks.FeedServiceMock{
			DismissFunc: func(ctx context.Context, ids []string) int {
				return len(ids)
			},
		}
		srv := testServer(feed)

		req := httptest.NewRequest("POST", "/feed/scroll/dismiss", strings.NewReader(`{"itemIds":[]}`))
		w := httptest.NewRecorder()
		srv.dismissHandler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var result map[string]int
		err := json.Unmarshal(w.Body.Bytes(), &result)
		require.NoError(t, err)
		assert.Equal(t, 0, result["dismissed"])
	})

	t.Run("invalid body", func(t *testing.T) {
		feed := &mocks.FeedServiceMock{}
		srv := testServer(feed)

		req := httptest.NewRequest("POST", "/feed/scroll/dismiss", strings.NewReader("not json"))
		w := httptest.NewRecorder()
		srv.dismissHandler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid request body")
		assert.Empty(t, feed.DismissCalls())
	})
}

func TestServer_statusHandler(t *testing.T) {
	feed := &mocks.FeedServiceMock{
		SessionsFunc: func() int { return 7 },
	}
	srv := testServer(feed)
	srv.version = "1.2.3"

	req := httptest.NewRequest("GET", "/status", http.NoBody)
	w := httptest.NewRecorder()
	srv.statusHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var status map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &status)
	require.NoError(t, err)

	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "1.2.3", status["version"])
	assert.NotEmpty(t, status["time"])
	assert.InDelta(t, 7, status["sessions"], 0.01)
}
