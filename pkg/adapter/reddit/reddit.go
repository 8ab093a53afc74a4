package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/boonscroll/pkg/domain"
)

// defaultBaseURL serves the public json listings without authentication
const defaultBaseURL = "https://www.reddit.com"

// maxParallelSubs bounds concurrent listing downloads within one query
const maxParallelSubs = 4

// maxListingLimit is the largest page reddit serves
const maxListingLimit = 100

// errPermanent marks failures retrying cannot fix
var errPermanent = errors.New("permanent failure")

// validListings are the public feeds reddit exposes per subreddit
var validListings = map[string]bool{"hot": true, "new": true, "top": true, "rising": true}

// Adapter fetches public subreddit listings as json, no API credentials
// needed. Each subreddit becomes a subsource.
type Adapter struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// Config holds the adapter knobs
type Config struct {
	BaseURL   string        // default https://www.reddit.com
	Timeout   time.Duration // per-listing budget, default 10s
	UserAgent string
}

// New creates a reddit adapter
func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "boonscroll/1.0 (personal feed reader)"
	}
	return &Adapter{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: cfg.UserAgent,
	}
}

// Supports reports adapter capabilities
func (a *Adapter) Supports(capability string) bool {
	return capability == domain.SubsourceFilterParam
}

// FetchItems pulls the configured listing for every subreddit in parallel.
// Single-subreddit failures are logged and skipped; the call fails only
// when every subreddit failed.
func (a *Adapter) FetchItems(ctx context.Context, q domain.QueryConfig) ([]domain.RawItem, error) {
	subs := normalizeSubs(q.StringsParam("subreddits"))
	if len(subs) == 0 {
		return nil, fmt.Errorf("query %s: subreddits param is required", q.Name)
	}
	listing := q.StringParam("listing")
	if listing == "" {
		listing = "hot"
	}
	if !validListings[listing] {
		return nil, fmt.Errorf("query %s: listing %q is not one of hot, new, top, rising", q.Name, listing)
	}
	if want := normalizeSubs(q.StringsParam(domain.SubsourceFilterParam)); len(want) > 0 {
		subs = filterSubs(subs, want)
	}
	if len(subs) == 0 {
		return nil, nil
	}

	limit := q.Limit
	if limit <= 0 || limit > maxListingLimit {
		limit = maxListingLimit
	}

	results := make([][]domain.RawItem, len(subs))
	failures := make([]error, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSubs)
	for i, sub := range subs {
		g.Go(func() error {
			items, ferr := a.fetchListing(gctx, sub, listing, limit)
			if ferr != nil {
				failures[i] = fmt.Errorf("r/%s: %w", sub, ferr)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait() // failures collected per slot, never propagated through the group

	var items []domain.RawItem
	failed := 0
	for i := range subs {
		if failures[i] != nil {
			failed++
			lgr.Printf("[WARN] %v", failures[i])
			continue
		}
		items = append(items, results[i]...)
	}
	if failed == len(subs) {
		return nil, errors.Join(failures...)
	}
	return items, nil
}

// listingResponse mirrors the slice of reddit's json we consume
type listingResponse struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Thumbnail   string  `json:"thumbnail"`
	Stickied    bool    `json:"stickied"`
}

// fetchListing downloads one subreddit listing, retrying transient failures
func (a *Adapter) fetchListing(ctx context.Context, sub, listing string, limit int) ([]domain.RawItem, error) {
	u := fmt.Sprintf("%s/r/%s/%s.json?limit=%d&raw_json=1", a.baseURL, url.PathEscape(sub), listing, limit)

	var decoded listingResponse
	retrier := repeater.NewBackoff(3, 100*time.Millisecond, repeater.WithMaxDelay(time.Second))
	err := retrier.Do(ctx, func() error {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if rerr != nil {
			return fmt.Errorf("%w: create request: %v", errPermanent, rerr)
		}
		req.Header.Set("User-Agent", a.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, derr := a.client.Do(req)
		if derr != nil {
			return fmt.Errorf("fetch %s: %w", u, derr)
		}
		defer resp.Body.Close() //nolint:errcheck // read-side close, nothing to handle

		if resp.StatusCode != http.StatusOK {
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return fmt.Errorf("%w: status %d from %s", errPermanent, resp.StatusCode, u)
			}
			return fmt.Errorf("status %d from %s", resp.StatusCode, u)
		}

		decoded = listingResponse{} // fresh target on every attempt
		if jerr := json.NewDecoder(resp.Body).Decode(&decoded); jerr != nil {
			return fmt.Errorf("%w: decode listing: %v", errPermanent, jerr)
		}
		return nil
	}, errPermanent)
	if err != nil {
		return nil, err
	}
	return a.convert(decoded, sub), nil
}

// convert maps listing posts to raw items, skipping pinned posts
func (a *Adapter) convert(resp listingResponse, sub string) []domain.RawItem {
	items := make([]domain.RawItem, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		p := child.Data
		if p.Stickied || p.ID == "" {
			continue
		}
		name := p.Subreddit
		if name == "" {
			name = sub
		}
		raw := domain.RawItem{
			LocalID:   p.ID,
			Title:     p.Title,
			Body:      p.SelfText,
			Link:      a.baseURL + p.Permalink,
			Subsource: name,
			Meta: map[string]any{
				"subreddit": name,
				"score":     p.Score,
				"comments":  p.NumComments,
			},
		}
		if p.CreatedUTC > 0 {
			ts := time.Unix(int64(p.CreatedUTC), 0).UTC()
			raw.Timestamp = &ts
		}
		// reddit uses markers like "self" and "default" when there is no real thumbnail
		if strings.HasPrefix(p.Thumbnail, "http") {
			raw.ImageURL = p.Thumbnail
		}
		items = append(items, raw)
	}
	return items
}

// normalizeSubs strips r/ prefixes and drops empties
func normalizeSubs(subs []string) []string {
	res := make([]string, 0, len(subs))
	for _, s := range subs {
		s = strings.TrimSpace(strings.TrimPrefix(s, "r/"))
		if s != "" {
			res = append(res, s)
		}
	}
	return res
}

// filterSubs keeps subreddits present in the wanted list, case-insensitive
func filterSubs(subs, want []string) []string {
	res := make([]string, 0, len(subs))
	for _, s := range subs {
		for _, w := range want {
			if strings.EqualFold(s, w) {
				res = append(res, s)
				break
			}
		}
	}
	return res
}
