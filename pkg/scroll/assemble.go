package scroll

import (
	"encoding/binary"
	"hash/fnv"
	"sort"
	"time"

	"github.com/umputun/boonscroll/pkg/domain"
)

// anniversaryWindow is the randomization window within which scrapbook items
// carrying anniversary meta jump ahead
const anniversaryWindow = 5

// groundingOrder is the sequence grounding tiers contribute items in
var groundingOrder = []domain.Tier{domain.TierCompass, domain.TierScrapbook, domain.TierLibrary}

// TierPool groups unserved items by tier
type TierPool map[domain.Tier][]domain.FeedItem

// Size returns the total number of pooled items
func (p TierPool) Size() int {
	total := 0
	for _, items := range p {
		total += len(items)
	}
	return total
}

// groupByTier splits a flat item list into per-tier slices, arrival order kept
func groupByTier(items []domain.FeedItem) TierPool {
	pool := make(TierPool, len(domain.AllTiers))
	for _, it := range items {
		pool[it.Tier] = append(pool[it.Tier], it)
	}
	return pool
}

// Assembly produces interleaved batches from a tiered pool under one recipe.
// Output is deterministic for identical pool, recipe and seed.
type Assembly struct {
	Recipe     domain.ScrollRecipe
	BatchSize  int             // page size, Recipe.BatchSize when zero
	Seed       int64           // session seed for stable random ordering
	SessionAge time.Duration   // drives the decay-mode ratio
	Now        time.Time       // staleness reference
	Recent     map[string]bool // scrapbook ids shown within the recent window
}

// Build assembles one batch and returns it together with the pool minus the
// batched items. Items selected but removed by spacing go back to the pool.
func (a *Assembly) Build(pool TierPool) (batch []domain.FeedItem, remaining TierPool) {
	size := a.BatchSize
	if size <= 0 {
		size = a.Recipe.BatchSize
	}
	if size <= 0 {
		return nil, pool
	}

	pickers := make(map[domain.Tier]*picker, len(domain.AllTiers))
	for _, tier := range domain.AllTiers {
		pickers[tier] = a.pickerFor(tier, pool[tier])
	}

	var raw []domain.FeedItem
	if a.Recipe.DecayMode() {
		raw = a.buildDecay(size, pickers)
	} else {
		raw = a.buildAllocated(size, pickers)
	}
	batch = applySpacing(raw, a.Recipe)
	if len(batch) > size {
		batch = batch[:size]
	}

	used := make(map[string]struct{}, len(batch))
	for _, it := range batch {
		used[it.ID] = struct{}{}
	}
	remaining = make(TierPool, len(pool))
	for tier, items := range pool {
		keep := make([]domain.FeedItem, 0, len(items))
		for _, it := range items {
			if _, ok := used[it.ID]; !ok {
				keep = append(keep, it)
			}
		}
		if len(keep) > 0 {
			remaining[tier] = keep
		}
	}
	return batch, remaining
}

// buildAllocated interleaves wire with explicitly allocated grounding slots.
// Grounding items land on ideal positions floor((k+0.5)*size/(g+1)) computed
// from the count actually available, so under-delivery still spreads evenly.
func (a *Assembly) buildAllocated(size int, pickers map[domain.Tier]*picker) []domain.FeedItem {
	// one slot stays reserved for wire unless the recipe explicitly
	// allocates the whole batch to grounding
	limit := size - 1
	total := 0
	for _, tier := range groundingOrder {
		total += a.Recipe.Tiers[tier].Allocation
	}
	if total >= size {
		limit = size
	}

	var grounding []domain.FeedItem
	for _, tier := range groundingOrder {
		alloc := a.Recipe.Tiers[tier].Allocation
		for n := 0; n < alloc && len(grounding) < limit; n++ {
			it, ok := pickers[tier].pop()
			if !ok {
				break
			}
			grounding = append(grounding, it)
		}
	}

	ideal := make([]bool, size)
	for k := range grounding {
		pos := (2*k + 1) * size / (2 * (len(grounding) + 1))
		if pos >= size {
			pos = size - 1
		}
		ideal[pos] = true
	}

	wire := pickers[domain.TierWire]
	extra := groundingCycle(pickers)
	out := make([]domain.FeedItem, 0, size)
	gi := 0
	for len(out) < size {
		if gi < len(grounding) && ideal[len(out)] {
			out = append(out, grounding[gi])
			gi++
			continue
		}
		if it, ok := wire.pop(); ok {
			out = append(out, it)
			continue
		}
		// wire exhausted, grounding takes the rest
		if gi < len(grounding) {
			out = append(out, grounding[gi])
			gi++
			continue
		}
		it, ok := extra()
		if !ok {
			break
		}
		out = append(out, it)
	}
	return out
}

// buildDecay inserts one grounding item after every ratio wire items
func (a *Assembly) buildDecay(size int, pickers map[domain.Tier]*picker) []domain.FeedItem {
	ratio := a.Recipe.Algorithm.EffectiveRatio(a.SessionAge)
	wire := pickers[domain.TierWire]
	next := groundingCycle(pickers)
	out := make([]domain.FeedItem, 0, size)
	run := 0
	for len(out) < size {
		if run < ratio {
			if it, ok := wire.pop(); ok {
				out = append(out, it)
				run++
				continue
			}
			it, ok := next()
			if !ok {
				break
			}
			out = append(out, it)
			continue
		}
		if it, ok := next(); ok {
			out = append(out, it)
			run = 0
			continue
		}
		it, ok := wire.pop()
		if !ok {
			break
		}
		out = append(out, it)
		run++
	}
	return out
}

// groundingCycle round-robins over the grounding pickers
func groundingCycle(pickers map[domain.Tier]*picker) func() (domain.FeedItem, bool) {
	idx := 0
	return func() (domain.FeedItem, bool) {
		for n := 0; n < len(groundingOrder); n++ {
			p := pickers[groundingOrder[idx]]
			idx = (idx + 1) % len(groundingOrder)
			if it, ok := p.pop(); ok {
				return it, true
			}
		}
		return domain.FeedItem{}, false
	}
}

// pickerFor runs the tier's filter-sort pipeline and wraps the result in a
// cap-aware picker
func (a *Assembly) pickerFor(tier domain.Tier, items []domain.FeedItem) *picker {
	sel := a.Recipe.SelectionFor(tier)
	queue := make([]domain.FeedItem, 0, len(items))
	for _, it := range items {
		if a.excluded(tier, sel, it) {
			continue
		}
		queue = append(queue, it)
	}
	a.sortTier(sel, queue)
	if tier == domain.TierScrapbook {
		anniversaryFirst(queue, anniversaryWindow)
	}
	if sel.Diversity {
		queue = roundRobinBySource(queue)
	}
	return &picker{
		queue: queue,
		rule:  func(source string) domain.SourceRule { return a.Recipe.SourceRuleFor(tier, source) },
	}
}

// excluded applies the tier's filters: read state for wire and library,
// recently-shown for scrapbook, freshness windows everywhere configured
func (a *Assembly) excluded(tier domain.Tier, sel domain.SelectionConfig, it domain.FeedItem) bool {
	filterRead := tier == domain.TierWire || tier == domain.TierLibrary
	for _, f := range sel.Filters {
		if f == domain.FilterUnread {
			filterRead = true
		}
	}
	if filterRead && metaBool(it, "read") {
		return true
	}
	if tier == domain.TierScrapbook && a.Recent[it.ID] {
		return true
	}
	window := a.Recipe.SourceRuleFor(tier, it.Source).Freshness
	if window == 0 {
		window = sel.Freshness
	}
	if window > 0 && it.Timestamp != nil && a.Now.Sub(*it.Timestamp) > window {
		return true
	}
	return false
}

func (a *Assembly) sortTier(sel domain.SelectionConfig, items []domain.FeedItem) {
	switch sel.Sort {
	case domain.SortTimestampDesc:
		sort.Slice(items, func(i, j int) bool {
			ti, tj := items[i].Timestamp, items[j].Timestamp
			switch {
			case ti == nil && tj == nil:
				return items[i].ID < items[j].ID
			case ti == nil:
				return false
			case tj == nil:
				return true
			case !ti.Equal(*tj):
				return ti.After(*tj)
			}
			return items[i].ID < items[j].ID
		})
	case domain.SortPriority:
		sort.Slice(items, func(i, j int) bool {
			if items[i].Priority != items[j].Priority {
				return items[i].Priority > items[j].Priority
			}
			if items[i].Source != items[j].Source {
				return items[i].Source < items[j].Source
			}
			return items[i].ID < items[j].ID
		})
	case domain.SortRandom:
		sort.Slice(items, func(i, j int) bool {
			ri, rj := seededRank(a.Seed, items[i].ID), seededRank(a.Seed, items[j].ID)
			if ri != rj {
				return ri < rj
			}
			return items[i].ID < items[j].ID
		})
	}
}

// anniversaryFirst moves items carrying anniversary meta to the front of each
// window, keeping relative order otherwise
func anniversaryFirst(items []domain.FeedItem, window int) {
	for start := 0; start < len(items); start += window {
		end := start + window
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]
		res := make([]domain.FeedItem, 0, len(chunk))
		var rest []domain.FeedItem
		for _, it := range chunk {
			if isAnniversary(it) {
				res = append(res, it)
				continue
			}
			rest = append(rest, it)
		}
		copy(chunk, append(res, rest...))
	}
}

func isAnniversary(it domain.FeedItem) bool {
	if _, ok := metaInt(it, "yearsAgo"); ok {
		return true
	}
	return metaBool(it, "anniversary")
}

// roundRobinBySource reorders items cycling over sources in order of first
// appearance, each source's own order preserved
func roundRobinBySource(items []domain.FeedItem) []domain.FeedItem {
	var order []string
	groups := make(map[string][]domain.FeedItem)
	for _, it := range items {
		if _, ok := groups[it.Source]; !ok {
			order = append(order, it.Source)
		}
		groups[it.Source] = append(groups[it.Source], it)
	}
	out := make([]domain.FeedItem, 0, len(items))
	for len(out) < len(items) {
		for _, src := range order {
			if len(groups[src]) == 0 {
				continue
			}
			out = append(out, groups[src][0])
			groups[src] = groups[src][1:]
		}
	}
	return out
}

// picker serves a selected tier queue item by item, skipping items whose
// source or subsource already hit its per-batch cap. Skipped items are gone
// for the current build only; they stay in the session pool.
type picker struct {
	queue  []domain.FeedItem
	rule   func(source string) domain.SourceRule
	counts map[string]int
}

func (p *picker) pop() (domain.FeedItem, bool) {
	for len(p.queue) > 0 {
		it := p.queue[0]
		p.queue = p.queue[1:]
		if p.capped(it) {
			continue
		}
		p.count(it)
		return it, true
	}
	return domain.FeedItem{}, false
}

func (p *picker) capped(it domain.FeedItem) bool {
	rule := p.rule(it.Source)
	if rule.MaxPerBatch > 0 && p.counts[it.Source] >= rule.MaxPerBatch {
		return true
	}
	sub := domain.SubsourceOf(&it)
	if sub != "" && rule.Subsources != nil && rule.Subsources.MaxPerBatch > 0 &&
		p.counts[it.Source+"|"+sub] >= rule.Subsources.MaxPerBatch {
		return true
	}
	return false
}

func (p *picker) count(it domain.FeedItem) {
	if p.counts == nil {
		p.counts = make(map[string]int)
	}
	p.counts[it.Source]++
	if sub := domain.SubsourceOf(&it); sub != "" {
		p.counts[it.Source+"|"+sub]++
	}
}

// seededRank hashes the session seed with an item id into a stable order key
func seededRank(seed int64, id string) uint64 {
	h := fnv.New64a()
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(seed))
	h.Write(b[:]) //nolint:errcheck // fnv never fails
	h.Write([]byte(id))
	return h.Sum64()
}

func metaInt(it domain.FeedItem, key string) (int, bool) {
	switch v := it.Meta[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func metaBool(it domain.FeedItem, key string) bool {
	switch v := it.Meta[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
