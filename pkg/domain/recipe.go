package domain

import (
	"fmt"
	"math"
	"time"
)

// Selection sort modes. Each tier has a natural default: wire sorts by
// timestamp, library and scrapbook sample randomly, compass by priority.
const (
	SortTimestampDesc = "timestamp_desc"
	SortRandom        = "random"
	SortPriority      = "priority"
)

// FilterUnread is the recognized selection filter name. Items whose meta
// carries read=true are excluded from tiers that list it.
const FilterUnread = "unread"

// ScrollRecipe holds a user's algorithm knobs for batch assembly
type ScrollRecipe struct {
	BatchSize int                 `yaml:"batchSize" json:"batchSize"`
	Tiers     map[Tier]TierRecipe `yaml:"tiers" json:"tiers,omitempty"`
	Spacing   SpacingConfig       `yaml:"spacing" json:"spacing"`
	Aliases   map[string]string   `yaml:"aliases" json:"aliases,omitempty"`
	Algorithm *DecayConfig        `yaml:"algorithm" json:"algorithm,omitempty"`

	// Revision changes when the underlying file changes; sessions seeded
	// under an older revision re-seed on their next request.
	Revision int64 `yaml:"-" json:"-"`
}

// TierRecipe configures one tier's share of the batch
type TierRecipe struct {
	Allocation int                   `yaml:"allocation" json:"allocation,omitempty"` // fixed slots for non-wire tiers
	Selection  SelectionConfig       `yaml:"selection" json:"selection"`
	Sources    map[string]SourceRule `yaml:"sources" json:"sources,omitempty"`
}

// SelectionConfig is the filter-sort-pick pipeline for a tier
type SelectionConfig struct {
	Sort      string        `yaml:"sort" json:"sort,omitempty"`
	Filters   []string      `yaml:"filters" json:"filters,omitempty"`
	Diversity bool          `yaml:"diversity" json:"diversity,omitempty"`
	Freshness time.Duration `yaml:"freshness" json:"freshness,omitempty"` // drop items older than this (compass)
}

// SourceRule caps and spaces items from a single source within a batch
type SourceRule struct {
	MaxPerBatch int            `yaml:"maxPerBatch" json:"maxPerBatch,omitempty"`
	MinSpacing  int            `yaml:"minSpacing" json:"minSpacing,omitempty"`
	Freshness   time.Duration  `yaml:"freshness" json:"freshness,omitempty"` // per-source override of selection freshness
	Subsources  *SubsourceRule `yaml:"subsources" json:"subsources,omitempty"`
}

// SubsourceRule applies the same caps at subsource granularity, e.g. per
// subreddit rather than per reddit
type SubsourceRule struct {
	MaxPerBatch int `yaml:"maxPerBatch" json:"maxPerBatch,omitempty"`
	MinSpacing  int `yaml:"minSpacing" json:"minSpacing,omitempty"`
}

// SpacingConfig holds global adjacency rules
type SpacingConfig struct {
	MaxConsecutive int `yaml:"maxConsecutive" json:"maxConsecutive"`
}

// DecayConfig enables the legacy decay mode: one grounding item every
// ratio wire items, with the ratio decaying over session time
type DecayConfig struct {
	GroundingRatio int     `yaml:"groundingRatio" json:"groundingRatio"`
	DecayRate      float64 `yaml:"decayRate" json:"decayRate"`
	MinRatio       int     `yaml:"minRatio" json:"minRatio"`
}

// Validate checks recipe fields after defaults are merged
func (r *ScrollRecipe) Validate() error {
	if r.BatchSize <= 0 {
		return fmt.Errorf("batchSize must be positive, got %d", r.BatchSize)
	}
	if r.BatchSize > 100 {
		return fmt.Errorf("batchSize must not exceed 100, got %d", r.BatchSize)
	}
	if r.Spacing.MaxConsecutive < 1 {
		return fmt.Errorf("spacing.maxConsecutive must be at least 1, got %d", r.Spacing.MaxConsecutive)
	}
	for tier, tr := range r.Tiers {
		if !tier.Valid() {
			return fmt.Errorf("unknown tier %q in recipe", tier)
		}
		if tr.Allocation < 0 {
			return fmt.Errorf("tier %s: allocation must be non-negative, got %d", tier, tr.Allocation)
		}
		if tier == TierWire && tr.Allocation > 0 {
			return fmt.Errorf("tier wire takes the remainder and cannot have an allocation")
		}
	}
	if a := r.Algorithm; a != nil {
		if a.GroundingRatio < 1 {
			return fmt.Errorf("algorithm.groundingRatio must be at least 1, got %d", a.GroundingRatio)
		}
		if a.DecayRate <= 0 || a.DecayRate > 1 {
			return fmt.Errorf("algorithm.decayRate must be in (0, 1], got %v", a.DecayRate)
		}
		if a.MinRatio < 1 {
			return fmt.Errorf("algorithm.minRatio must be at least 1, got %d", a.MinRatio)
		}
	}
	return nil
}

// GroundingSlots sums the non-wire allocations, clamped below batchSize
func (r *ScrollRecipe) GroundingSlots() int {
	total := 0
	for tier, tr := range r.Tiers {
		if tier.Grounding() {
			total += tr.Allocation
		}
	}
	if total >= r.BatchSize {
		total = r.BatchSize - 1
	}
	if total < 0 {
		total = 0
	}
	return total
}

// HasAllocations reports whether any grounding tier has explicit slots.
// When false and Algorithm is set, the legacy decay mode applies.
func (r *ScrollRecipe) HasAllocations() bool {
	for tier, tr := range r.Tiers {
		if tier.Grounding() && tr.Allocation > 0 {
			return true
		}
	}
	return false
}

// DecayMode reports whether legacy ratio-based interleaving is in effect
func (r *ScrollRecipe) DecayMode() bool {
	return r.Algorithm != nil && !r.HasAllocations()
}

// SourceEnabled reports whether a source type is listed under the given tier
func (r *ScrollRecipe) SourceEnabled(tier Tier, sourceType string) bool {
	tr, ok := r.Tiers[tier]
	if !ok {
		return false
	}
	_, ok = tr.Sources[sourceType]
	return ok
}

// Enabled reports whether a query should be fetched under this recipe. A
// recipe without a tiers section enables everything; a tier entry without a
// source list enables all of that tier's sources; a tier entry with sources
// enables only the listed ones.
func (r *ScrollRecipe) Enabled(q QueryConfig) bool {
	if len(r.Tiers) == 0 {
		return true
	}
	tr, ok := r.Tiers[q.Tier]
	if !ok {
		return true
	}
	if len(tr.Sources) == 0 {
		return true
	}
	_, ok = tr.Sources[q.Type]
	return ok
}

// SourceRuleFor returns the caps for a source within a tier, zero rule when unset
func (r *ScrollRecipe) SourceRuleFor(tier Tier, sourceType string) SourceRule {
	if tr, ok := r.Tiers[tier]; ok {
		if rule, ok := tr.Sources[sourceType]; ok {
			return rule
		}
	}
	return SourceRule{}
}

// SelectionFor returns the selection pipeline for a tier, with the tier's
// natural sort mode filled in when the recipe leaves it empty
func (r *ScrollRecipe) SelectionFor(tier Tier) SelectionConfig {
	sel := r.Tiers[tier].Selection
	if sel.Sort == "" {
		switch tier {
		case TierWire:
			sel.Sort = SortTimestampDesc
		case TierCompass:
			sel.Sort = SortPriority
		default:
			sel.Sort = SortRandom
		}
	}
	return sel
}

// EffectiveRatio computes the decay-mode interleave ratio for a session age:
// max(minRatio, floor(groundingRatio * decayRate^(sessionMinutes/5)))
func (d *DecayConfig) EffectiveRatio(sessionAge time.Duration) int {
	steps := sessionAge.Minutes() / 5
	ratio := int(math.Floor(float64(d.GroundingRatio) * math.Pow(d.DecayRate, steps)))
	if ratio < d.MinRatio {
		ratio = d.MinRatio
	}
	return ratio
}
