package domain

import (
	"fmt"
	"time"
)

// Tier classifies a feed item for interleaving
type Tier string

const (
	TierWire      Tier = "wire"      // high-volume external content, timestamp driven
	TierLibrary   Tier = "library"   // durable content sampled at random, read-tracked
	TierScrapbook Tier = "scrapbook" // personal memories, anniversary weighted
	TierCompass   Tier = "compass"   // operational cards ordered by priority
)

// AllTiers lists every valid tier in declaration order
var AllTiers = []Tier{TierWire, TierLibrary, TierScrapbook, TierCompass}

// Valid reports whether the tier is one of the four known tiers
func (t Tier) Valid() bool {
	switch t {
	case TierWire, TierLibrary, TierScrapbook, TierCompass:
		return true
	}
	return false
}

// Grounding reports whether the tier is a non-wire tier
func (t Tier) Grounding() bool {
	return t.Valid() && t != TierWire
}

// ParseTier converts a string to a Tier
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// FeedItem is the canonical unit crossing all tier and source boundaries
type FeedItem struct {
	ID        string         `json:"id"`                  // globally unique, "source:localId"
	Tier      Tier           `json:"tier"`                // matches the producing query's tier
	Source    string         `json:"source"`              // adapter identifier, e.g. "reddit"
	Subsource string         `json:"subsource,omitempty"` // secondary identity, e.g. subreddit
	Title     string         `json:"title"`
	Body      string         `json:"body,omitempty"`
	ImageURL  string         `json:"imageURL,omitempty"`
	Link      string         `json:"link,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"` // required for wire items
	Priority  int            `json:"priority,omitempty"`  // compass ordering, higher first
	QueryName string         `json:"queryName"`
	Meta      map[string]any `json:"meta,omitempty"` // source-specific render hints, opaque to the core
}

// Validate checks the item against tier invariants
func (i *FeedItem) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("item has no id")
	}
	if i.Source == "" {
		return fmt.Errorf("item %s has no source", i.ID)
	}
	if i.Title == "" {
		return fmt.Errorf("item %s has no title", i.ID)
	}
	if !i.Tier.Valid() {
		return fmt.Errorf("item %s has unknown tier %q", i.ID, i.Tier)
	}
	if i.Tier == TierWire && i.Timestamp == nil {
		return fmt.Errorf("wire item %s has no timestamp", i.ID)
	}
	if i.Tier == TierCompass && i.Priority < 0 {
		return fmt.Errorf("compass item %s has negative priority %d", i.ID, i.Priority)
	}
	return nil
}

// MetaString returns a string-valued meta field, empty when absent or not a string
func (i *FeedItem) MetaString(key string) string {
	if i.Meta == nil {
		return ""
	}
	if v, ok := i.Meta[key].(string); ok {
		return v
	}
	return ""
}

// RawItem is what an adapter returns before normalization. LocalID is unique
// within the adapter; the normalizer builds the global id from it.
type RawItem struct {
	LocalID   string
	Title     string
	Body      string
	ImageURL  string
	Link      string
	Subsource string
	Timestamp *time.Time
	Priority  *int // nil means "use the query default"
	Meta      map[string]any
}
