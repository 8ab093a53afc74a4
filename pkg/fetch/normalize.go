package fetch

import (
	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/boonscroll/pkg/domain"
)

// Normalizer maps raw adapter output to canonical feed items. Pure
// transformation; invalid items are logged and dropped, never fail a fetch.
type Normalizer struct {
	sanitizer *bluemonday.Policy
}

// NewNormalizer creates a normalizer with a strict body sanitizer, source
// excerpts render as plain text
func NewNormalizer() *Normalizer {
	return &Normalizer{sanitizer: bluemonday.StrictPolicy()}
}

// Normalize converts one adapter's raw items produced for the given query.
// When subsources is non-empty the result is post-filtered to matching
// items, used for adapters that cannot restrict results themselves.
// Duplicate local ids keep the first occurrence.
func (n *Normalizer) Normalize(raw []domain.RawItem, q domain.QueryConfig, subsources []string) []domain.FeedItem {
	items := make([]domain.FeedItem, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		if r.LocalID == "" || r.Title == "" {
			lgr.Printf("[DEBUG] dropping item without id or title from query %s", q.Name)
			continue
		}

		item := domain.FeedItem{
			ID:        q.Type + ":" + r.LocalID,
			Tier:      q.Tier,
			Source:    q.Type,
			Subsource: r.Subsource,
			Title:     r.Title,
			Body:      n.sanitizer.Sanitize(r.Body),
			ImageURL:  r.ImageURL,
			Link:      r.Link,
			QueryName: q.Name,
			Priority:  q.Priority,
			Meta:      r.Meta,
		}
		if r.Priority != nil {
			item.Priority = *r.Priority
		}
		if r.Timestamp != nil {
			utc := r.Timestamp.UTC()
			item.Timestamp = &utc
		}

		if err := item.Validate(); err != nil {
			lgr.Printf("[DEBUG] dropping item from query %s: %v", q.Name, err)
			continue
		}

		if _, dup := seen[item.ID]; dup {
			continue
		}
		if !domain.MatchesSubsource(&item, subsources) {
			continue
		}

		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return items
}
