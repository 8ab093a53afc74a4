package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/boonscroll/pkg/domain"
)

// defaultBaseURL serves the public channel feeds, no API key required
const defaultBaseURL = "https://www.youtube.com"

// maxParallelChannels bounds concurrent feed downloads within one query
const maxParallelChannels = 4

// errPermanent marks failures retrying cannot fix
var errPermanent = errors.New("permanent failure")

// Adapter fetches channel upload feeds, the Atom documents youtube publishes
// per channel. Each channel becomes a subsource.
type Adapter struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// Config holds the adapter knobs
type Config struct {
	BaseURL   string        // default https://www.youtube.com
	Timeout   time.Duration // per-channel budget, default 10s
	UserAgent string
}

// New creates a youtube adapter
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

// Supports reports adapter capabilities; channel narrowing skips the
// download entirely
func (a *Adapter) Supports(capability string) bool {
	return capability == domain.SubsourceFilterParam
}

// channelRef is one entry of the channels param
type channelRef struct {
	id   string
	name string
}

// FetchItems downloads the upload feed for every configured channel in
// parallel. Single-channel failures are logged and skipped.
func (a *Adapter) FetchItems(ctx context.Context, q domain.QueryConfig) ([]domain.RawItem, error) {
	channels, err := channelRefs(q)
	if err != nil {
		return nil, err
	}
	if want := q.StringsParam(domain.SubsourceFilterParam); len(want) > 0 {
		channels = filterRefs(channels, want)
	}
	if len(channels) == 0 {
		return nil, nil
	}

	results := make([][]domain.RawItem, len(channels))
	failures := make([]error, len(channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChannels)
	for i, ref := range channels {
		g.Go(func() error {
			items, ferr := a.fetchChannel(gctx, ref)
			if ferr != nil {
				failures[i] = fmt.Errorf("channel %s: %w", ref.name, ferr)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait() // failures collected per slot, never propagated through the group

	var items []domain.RawItem
	failed := 0
	for i := range channels {
		if failures[i] != nil {
			failed++
			lgr.Printf("[WARN] %v", failures[i])
			continue
		}
		items = append(items, results[i]...)
	}
	if failed == len(channels) {
		return nil, errors.Join(failures...)
	}
	return items, nil
}

// fetchChannel downloads and parses one channel feed, retrying transient
// failures
func (a *Adapter) fetchChannel(ctx context.Context, ref channelRef) ([]domain.RawItem, error) {
	u := fmt.Sprintf("%s/feeds/videos.xml?channel_id=%s", a.baseURL, url.QueryEscape(ref.id))

	var parsed *gofeed.Feed
	retrier := repeater.NewBackoff(3, 100*time.Millisecond, repeater.WithMaxDelay(time.Second))
	err := retrier.Do(ctx, func() error {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if rerr != nil {
			return fmt.Errorf("%w: create request: %v", errPermanent, rerr)
		}
		req.Header.Set("User-Agent", a.userAgent)
		req.Header.Set("Accept", "application/atom+xml,application/xml;q=0.9,*/*;q=0.5")

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

		feed, perr := gofeed.NewParser().Parse(resp.Body)
		if perr != nil {
			return fmt.Errorf("%w: parse %s: %v", errPermanent, u, perr)
		}
		parsed = feed
		return nil
	}, errPermanent)
	if err != nil {
		return nil, err
	}
	return convert(parsed, ref), nil
}

// convert maps feed entries to raw items
func convert(feed *gofeed.Feed, ref channelRef) []domain.RawItem {
	name := ref.name
	if name == "" {
		name = feed.Title
	}
	items := make([]domain.RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		thumb, desc := mediaInfo(entry)
		body := entry.Description
		if body == "" {
			body = desc
		}
		raw := domain.RawItem{
			LocalID:   entryID(entry),
			Title:     entry.Title,
			Body:      body,
			ImageURL:  thumb,
			Link:      entry.Link,
			Subsource: name,
			Meta:      map[string]any{"channelId": ref.id},
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

// entryID picks a stable per-video identity; youtube sets the atom id to
// yt:video:VIDEOID
func entryID(entry *gofeed.Item) string {
	if entry.GUID != "" {
		return entry.GUID
	}
	return entry.Link
}

// mediaInfo extracts thumbnail and description from the media:group
// extension youtube attaches to every entry
func mediaInfo(entry *gofeed.Item) (thumb, desc string) {
	media, ok := entry.Extensions["media"]
	if !ok {
		return "", ""
	}
	groups := media["group"]
	if len(groups) == 0 {
		return "", ""
	}
	if th := groups[0].Children["thumbnail"]; len(th) > 0 {
		thumb = th[0].Attrs["url"]
	}
	if d := groups[0].Children["description"]; len(d) > 0 {
		desc = d[0].Value
	}
	return thumb, desc
}

// channelRefs reads the channels param, a list of {id, name} entries
func channelRefs(q domain.QueryConfig) ([]channelRef, error) {
	raw, ok := q.Params["channels"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("query %s: channels param is required", q.Name)
	}
	refs := make([]channelRef, 0, len(raw))
	for i, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("query %s: channels[%d] is not a mapping", q.Name, i)
		}
		ref := channelRef{}
		if v, ok := m["id"].(string); ok {
			ref.id = v
		}
		if v, ok := m["name"].(string); ok {
			ref.name = v
		}
		if ref.id == "" {
			return nil, fmt.Errorf("query %s: channels[%d] has no id", q.Name, i)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// filterRefs keeps channels whose name is on the wanted list
func filterRefs(refs []channelRef, want []string) []channelRef {
	wanted := make(map[string]bool, len(want))
	for _, w := range want {
		wanted[w] = true
	}
	res := make([]channelRef, 0, len(refs))
	for _, ref := range refs {
		if wanted[ref.name] {
			res = append(res, ref)
		}
	}
	return res
}
