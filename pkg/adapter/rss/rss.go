package rss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/boonscroll/pkg/domain"
)

// defaultUserAgent identifies the fetcher to feed servers
const defaultUserAgent = "boonscroll/1.0 (+https://github.com/umputun/boonscroll)"

// maxParallelFeeds bounds concurrent downloads within one query
const maxParallelFeeds = 4

// errPermanent marks failures retrying cannot fix
var errPermanent = errors.New("permanent failure")

// Adapter fetches RSS and Atom feeds. One query config may list several
// feeds; they download in parallel and merge, with the feed name as the
// item subsource.
type Adapter struct {
	client    *http.Client
	userAgent string
}

// Config holds the adapter knobs
type Config struct {
	Timeout   time.Duration // full request budget per feed, default 10s
	UserAgent string
}

// New creates an rss adapter
func New(cfg Config) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Adapter{
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

// Supports reports adapter capabilities; narrowing to specific feeds is
// handled here by skipping the download entirely
func (a *Adapter) Supports(capability string) bool {
	return capability == domain.SubsourceFilterParam
}

// feedRef is one entry of the feeds param
type feedRef struct {
	name string
	url  string
}

// FetchItems downloads every configured feed and converts entries to raw
// items. Individual feed failures are logged and skipped; the call fails
// only when no feed could be fetched at all.
func (a *Adapter) FetchItems(ctx context.Context, q domain.QueryConfig) ([]domain.RawItem, error) {
	feeds, err := feedRefs(q)
	if err != nil {
		return nil, err
	}
	if want := q.StringsParam(domain.SubsourceFilterParam); len(want) > 0 {
		feeds = filterRefs(feeds, want)
	}
	if len(feeds) == 0 {
		return nil, nil
	}

	results := make([][]domain.RawItem, len(feeds))
	failures := make([]error, len(feeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFeeds)
	for i, ref := range feeds {
		g.Go(func() error {
			items, ferr := a.fetchFeed(gctx, ref)
			if ferr != nil {
				failures[i] = fmt.Errorf("feed %s: %w", ref.name, ferr)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait() // failures collected per slot, never propagated through the group

	var items []domain.RawItem
	failed := 0
	for i := range feeds {
		if failures[i] != nil {
			failed++
			lgr.Printf("[WARN] %v", failures[i])
			continue
		}
		items = append(items, results[i]...)
	}
	if failed == len(feeds) {
		return nil, errors.Join(failures...)
	}
	return items, nil
}

// fetchFeed downloads and parses one feed, retrying transient failures
func (a *Adapter) fetchFeed(ctx context.Context, ref feedRef) ([]domain.RawItem, error) {
	var parsed *gofeed.Feed
	retrier := repeater.NewBackoff(3, 100*time.Millisecond, repeater.WithMaxDelay(time.Second))
	err := retrier.Do(ctx, func() error {
		body, gerr := a.get(ctx, ref.url)
		if gerr != nil {
			return gerr
		}
		defer body.Close() //nolint:errcheck // read-side close, nothing to handle

		feed, perr := gofeed.NewParser().Parse(body)
		if perr != nil {
			return fmt.Errorf("%w: parse %s: %v", errPermanent, ref.url, perr)
		}
		parsed = feed
		return nil
	}, errPermanent)
	if err != nil {
		return nil, err
	}
	return convert(parsed, ref), nil
}

// get retrieves feed content, classifying client errors as permanent so the
// retrier gives up on them right away
func (a *Adapter) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", errPermanent, err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	addBrowserHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d from %s", errPermanent, resp.StatusCode, url)
		}
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}

// convert maps gofeed entries to raw items
func convert(feed *gofeed.Feed, ref feedRef) []domain.RawItem {
	items := make([]domain.RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		raw := domain.RawItem{
			LocalID:   entryID(entry, ref),
			Title:     entry.Title,
			Body:      entry.Description,
			Link:      entry.Link,
			Subsource: ref.name,
			Meta:      map[string]any{"feedTitle": feed.Title},
		}
		if entry.Author != nil && entry.Author.Name != "" {
			raw.Meta["author"] = entry.Author.Name
		}
		if img := entryImage(entry); img != "" {
			raw.ImageURL = img
		}
		if entry.PublishedParsed != nil {
			raw.Timestamp = entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			raw.Timestamp = entry.UpdatedParsed
		}
		items = append(items, raw)
	}
	return items
}

// entryID picks a stable per-entry identity: guid, then link, then a
// name-title composite for feeds that provide neither
func entryID(entry *gofeed.Item, ref feedRef) string {
	switch {
	case entry.GUID != "":
		return entry.GUID
	case entry.Link != "":
		return entry.Link
	}
	return ref.name + "-" + entry.Title
}

// entryImage picks a thumbnail from the item image or an image enclosure
func entryImage(entry *gofeed.Item) string {
	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}
	for _, enc := range entry.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "image") {
			return enc.URL
		}
	}
	return ""
}

// feedRefs reads the feeds param, a list of {name, url} entries
func feedRefs(q domain.QueryConfig) ([]feedRef, error) {
	raw, ok := q.Params["feeds"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("query %s: feeds param is required", q.Name)
	}
	refs := make([]feedRef, 0, len(raw))
	for i, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("query %s: feeds[%d] is not a mapping", q.Name, i)
		}
		ref := feedRef{}
		if v, ok := m["name"].(string); ok {
			ref.name = v
		}
		if v, ok := m["url"].(string); ok {
			ref.url = v
		}
		if ref.url == "" {
			return nil, fmt.Errorf("query %s: feeds[%d] has no url", q.Name, i)
		}
		if ref.name == "" {
			ref.name = ref.url
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// filterRefs keeps feeds whose name is on the wanted list
func filterRefs(refs []feedRef, want []string) []feedRef {
	wanted := make(map[string]bool, len(want))
	for _, w := range want {
		wanted[w] = true
	}
	res := make([]feedRef, 0, len(refs))
	for _, ref := range refs {
		if wanted[ref.name] {
			res = append(res, ref)
		}
	}
	return res
}
