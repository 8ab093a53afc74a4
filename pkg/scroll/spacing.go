package scroll

import (
	"sort"

	"github.com/umputun/boonscroll/pkg/domain"
)

// spacingWindow bounds how far ahead a conflicting item may be swapped
const spacingWindow = 5

// applySpacing runs the deterministic spacing passes over a freshly
// interleaved batch: global max-consecutive, per-source caps and spacing,
// then the same at subsource granularity. A final drop-only sweep guarantees
// every constraint holds even when an earlier swap re-introduced a conflict.
func applySpacing(batch []domain.FeedItem, recipe domain.ScrollRecipe) []domain.FeedItem {
	maxC := recipe.Spacing.MaxConsecutive
	if maxC < 1 {
		maxC = 1
	}

	out := fixScan(batch, func(prefix []domain.FeedItem, it domain.FeedItem) bool {
		return consecutiveOK(prefix, it, maxC) && tierOrderOK(prefix, it, recipe)
	})
	out = enforceSourceCaps(out, recipe)
	out = fixScan(out, func(prefix []domain.FeedItem, it domain.FeedItem) bool {
		return minSpacingOK(prefix, it, recipe) && tierOrderOK(prefix, it, recipe)
	})
	out = enforceSubsourceCaps(out, recipe)
	out = fixScan(out, func(prefix []domain.FeedItem, it domain.FeedItem) bool {
		return subSpacingOK(prefix, it, recipe) && tierOrderOK(prefix, it, recipe)
	})
	return validateSpacing(out, recipe, maxC)
}

// fixScan walks the batch left to right appending items that fit the prefix.
// A conflicting item is swapped with the nearest later item that fits, or
// dropped when no candidate exists within the window.
func fixScan(batch []domain.FeedItem, fits func(prefix []domain.FeedItem, it domain.FeedItem) bool) []domain.FeedItem {
	work := append([]domain.FeedItem(nil), batch...)
	res := make([]domain.FeedItem, 0, len(work))
	for i := 0; i < len(work); i++ {
		if fits(res, work[i]) {
			res = append(res, work[i])
			continue
		}
		idx := -1
		for j := i + 1; j < len(work) && j <= i+spacingWindow; j++ {
			if fits(res, work[j]) {
				idx = j
				break
			}
		}
		if idx < 0 {
			continue // no swap candidate, drop
		}
		work[i], work[idx] = work[idx], work[i]
		res = append(res, work[i])
	}
	return res
}

// consecutiveOK reports whether appending the item keeps same-source runs
// within the limit
func consecutiveOK(prefix []domain.FeedItem, it domain.FeedItem, maxConsecutive int) bool {
	run := 0
	for i := len(prefix) - 1; i >= 0 && prefix[i].Source == it.Source; i-- {
		run++
	}
	return run < maxConsecutive
}

// minSpacingOK checks the distance to the previous same-source item
func minSpacingOK(prefix []domain.FeedItem, it domain.FeedItem, recipe domain.ScrollRecipe) bool {
	need := effectiveRule(recipe, it.Source).MinSpacing
	if need <= 1 {
		return true
	}
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i].Source == it.Source {
			return len(prefix)-i >= need
		}
	}
	return true
}

// subSpacingOK checks the distance to the previous item of the same subsource
func subSpacingOK(prefix []domain.FeedItem, it domain.FeedItem, recipe domain.ScrollRecipe) bool {
	sub := domain.SubsourceOf(&it)
	if sub == "" {
		return true
	}
	rule := effectiveRule(recipe, it.Source).Subsources
	if rule == nil || rule.MinSpacing <= 1 {
		return true
	}
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i].Source == it.Source && domain.SubsourceOf(&prefix[i]) == sub {
			return len(prefix)-i >= rule.MinSpacing
		}
	}
	return true
}

// tierOrderOK keeps tier projections ordered: wire stays non-ascending by
// timestamp and compass non-ascending by priority, so a swap never reorders
// a sorted tier
func tierOrderOK(prefix []domain.FeedItem, it domain.FeedItem, recipe domain.ScrollRecipe) bool {
	var last *domain.FeedItem
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i].Tier == it.Tier {
			last = &prefix[i]
			break
		}
	}
	if last == nil {
		return true
	}
	switch recipe.SelectionFor(it.Tier).Sort {
	case domain.SortTimestampDesc:
		if last.Timestamp == nil || it.Timestamp == nil {
			return true
		}
		return !it.Timestamp.After(*last.Timestamp)
	case domain.SortPriority:
		return it.Priority <= last.Priority
	}
	return true
}

// enforceSourceCaps drops the least valuable excess items of any source over
// its per-batch cap, keeping the highest-priority and newest ones
func enforceSourceCaps(batch []domain.FeedItem, recipe domain.ScrollRecipe) []domain.FeedItem {
	drop := make(map[int]bool)
	for _, source := range ruledSources(recipe) {
		limit := effectiveRule(recipe, source).MaxPerBatch
		if limit <= 0 {
			continue
		}
		var idx []int
		for i, it := range batch {
			if it.Source == source {
				idx = append(idx, i)
			}
		}
		if len(idx) <= limit {
			continue
		}
		sort.Slice(idx, func(a, b int) bool { return keepBefore(batch[idx[a]], batch[idx[b]], idx[a], idx[b]) })
		for _, i := range idx[limit:] {
			drop[i] = true
		}
	}
	return without(batch, drop)
}

// enforceSubsourceCaps applies per-batch caps at subsource granularity
func enforceSubsourceCaps(batch []domain.FeedItem, recipe domain.ScrollRecipe) []domain.FeedItem {
	drop := make(map[int]bool)
	for _, source := range ruledSources(recipe) {
		rule := effectiveRule(recipe, source).Subsources
		if rule == nil || rule.MaxPerBatch <= 0 {
			continue
		}
		buckets := make(map[string][]int)
		for i, it := range batch {
			if it.Source != source {
				continue
			}
			if sub := domain.SubsourceOf(&it); sub != "" {
				buckets[sub] = append(buckets[sub], i)
			}
		}
		subs := make([]string, 0, len(buckets))
		for sub := range buckets {
			subs = append(subs, sub)
		}
		sort.Strings(subs)
		for _, sub := range subs {
			idx := buckets[sub]
			if len(idx) <= rule.MaxPerBatch {
				continue
			}
			sort.Slice(idx, func(a, b int) bool { return keepBefore(batch[idx[a]], batch[idx[b]], idx[a], idx[b]) })
			for _, i := range idx[rule.MaxPerBatch:] {
				drop[i] = true
			}
		}
	}
	return without(batch, drop)
}

// validateSpacing is the drop-only backstop: one sweep that admits an item
// only when every constraint still holds with it appended
func validateSpacing(batch []domain.FeedItem, recipe domain.ScrollRecipe, maxConsecutive int) []domain.FeedItem {
	res := make([]domain.FeedItem, 0, len(batch))
	counts := make(map[string]int)
	for _, it := range batch {
		if !consecutiveOK(res, it, maxConsecutive) || !tierOrderOK(res, it, recipe) {
			continue
		}
		if !minSpacingOK(res, it, recipe) || !subSpacingOK(res, it, recipe) {
			continue
		}
		rule := effectiveRule(recipe, it.Source)
		if rule.MaxPerBatch > 0 && counts[it.Source] >= rule.MaxPerBatch {
			continue
		}
		sub := domain.SubsourceOf(&it)
		if sub != "" && rule.Subsources != nil && rule.Subsources.MaxPerBatch > 0 &&
			counts[it.Source+"|"+sub] >= rule.Subsources.MaxPerBatch {
			continue
		}
		counts[it.Source]++
		if sub != "" {
			counts[it.Source+"|"+sub]++
		}
		res = append(res, it)
	}
	return res
}

// keepBefore orders cap survivors: higher priority first, then newer, then
// earlier batch position
func keepBefore(a, b domain.FeedItem, posA, posB int) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	ta, tb := a.Timestamp, b.Timestamp
	switch {
	case ta != nil && tb == nil:
		return true
	case ta == nil && tb != nil:
		return false
	case ta != nil && tb != nil && !ta.Equal(*tb):
		return ta.After(*tb)
	}
	return posA < posB
}

// effectiveRule merges a source's rules across tiers, strictest value wins.
// Batch-level enforcement counts a source across the whole batch regardless
// of which tier an item landed in.
func effectiveRule(recipe domain.ScrollRecipe, source string) domain.SourceRule {
	var out domain.SourceRule
	for _, tr := range recipe.Tiers {
		rule, ok := tr.Sources[source]
		if !ok {
			continue
		}
		if rule.MaxPerBatch > 0 && (out.MaxPerBatch == 0 || rule.MaxPerBatch < out.MaxPerBatch) {
			out.MaxPerBatch = rule.MaxPerBatch
		}
		if rule.MinSpacing > out.MinSpacing {
			out.MinSpacing = rule.MinSpacing
		}
		if rule.Subsources == nil {
			continue
		}
		if out.Subsources == nil {
			out.Subsources = &domain.SubsourceRule{}
		}
		if rule.Subsources.MaxPerBatch > 0 &&
			(out.Subsources.MaxPerBatch == 0 || rule.Subsources.MaxPerBatch < out.Subsources.MaxPerBatch) {
			out.Subsources.MaxPerBatch = rule.Subsources.MaxPerBatch
		}
		if rule.Subsources.MinSpacing > out.Subsources.MinSpacing {
			out.Subsources.MinSpacing = rule.Subsources.MinSpacing
		}
	}
	return out
}

// ruledSources lists every source that has a rule anywhere in the recipe
func ruledSources(recipe domain.ScrollRecipe) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tr := range recipe.Tiers {
		for source := range tr.Sources {
			if !seen[source] {
				seen[source] = true
				out = append(out, source)
			}
		}
	}
	sort.Strings(out)
	return out
}

func without(batch []domain.FeedItem, drop map[int]bool) []domain.FeedItem {
	if len(drop) == 0 {
		return batch
	}
	res := make([]domain.FeedItem, 0, len(batch)-len(drop))
	for i, it := range batch {
		if !drop[i] {
			res = append(res, it)
		}
	}
	return res
}
