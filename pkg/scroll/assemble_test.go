package scroll

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/boonscroll/pkg/domain"
)

var testBase = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// wireItem makes a wire item age minutes old, newest first at age 0
func wireItem(source, local string, age int) domain.FeedItem {
	ts := testBase.Add(-time.Duration(age) * time.Minute)
	return domain.FeedItem{
		ID: source + ":" + local, Tier: domain.TierWire, Source: source,
		Title: local, Timestamp: &ts, QueryName: source,
	}
}

func groundingItem(tier domain.Tier, source, local string) domain.FeedItem {
	return domain.FeedItem{
		ID: source + ":" + local, Tier: tier, Source: source,
		Title: local, QueryName: source,
	}
}

func compassItem(source, local string, priority int) domain.FeedItem {
	it := groundingItem(domain.TierCompass, source, local)
	it.Priority = priority
	return it
}

// alternatingWire produces count wire items cycling over sources with
// strictly decreasing timestamps, so the timestamp order interleaves sources
func alternatingWire(count int, sources ...string) []domain.FeedItem {
	items := make([]domain.FeedItem, 0, count)
	for i := 0; i < count; i++ {
		src := sources[i%len(sources)]
		items = append(items, wireItem(src, fmt.Sprintf("p%d", i), i))
	}
	return items
}

func plainRecipe(batchSize int) domain.ScrollRecipe {
	return domain.ScrollRecipe{
		BatchSize: batchSize,
		Spacing:   domain.SpacingConfig{MaxConsecutive: 1},
	}
}

func TestAssembly_WireOnlyWhenNoAllocations(t *testing.T) {
	pool := TierPool{
		domain.TierWire:    alternatingWire(30, "reddit", "rss", "news"),
		domain.TierCompass: {compassItem("tasks", "t1", 5), compassItem("tasks", "t2", 3)},
	}

	asm := &Assembly{Recipe: plainRecipe(10), Now: testBase}
	batch, _ := asm.Build(pool)

	require.Len(t, batch, 10)
	for i, it := range batch {
		assert.Equal(t, domain.TierWire, it.Tier, "position %d", i)
	}
	for i := 1; i < len(batch); i++ {
		assert.False(t, batch[i].Timestamp.After(*batch[i-1].Timestamp), "timestamps non-ascending at %d", i)
	}
}

func TestAssembly_TierAllocationPositions(t *testing.T) {
	recipe := plainRecipe(10)
	recipe.Tiers = map[domain.Tier]domain.TierRecipe{
		domain.TierCompass:   {Allocation: 2},
		domain.TierScrapbook: {Allocation: 1},
	}
	pool := TierPool{
		domain.TierWire: alternatingWire(12, "reddit", "rss"),
		domain.TierCompass: {
			compassItem("tasks", "t1", 5),
			compassItem("weather", "w1", 3),
			compassItem("tasks", "t2", 1),
		},
		domain.TierScrapbook: {
			groundingItem(domain.TierScrapbook, "photos", "ph1"),
			groundingItem(domain.TierScrapbook, "photos", "ph2"),
		},
	}

	asm := &Assembly{Recipe: recipe, Now: testBase}
	batch, _ := asm.Build(pool)

	require.Len(t, batch, 10)
	// ideal positions floor((k+0.5)*10/4) for three grounding items: 1, 3, 6
	assert.Equal(t, domain.TierCompass, batch[1].Tier)
	assert.Equal(t, domain.TierCompass, batch[3].Tier)
	assert.Equal(t, domain.TierScrapbook, batch[6].Tier)
	assert.Equal(t, 5, batch[1].Priority, "compass picked priority-first")
	assert.Equal(t, 3, batch[3].Priority)

	wireCount := 0
	for _, it := range batch {
		if it.Tier == domain.TierWire {
			wireCount++
		}
	}
	assert.Equal(t, 7, wireCount)
}

func TestAssembly_GroundingFillsWhenWireEmpty(t *testing.T) {
	pool := TierPool{
		domain.TierCompass: {compassItem("tasks", "t1", 2), compassItem("weather", "w1", 1)},
		domain.TierScrapbook: {
			groundingItem(domain.TierScrapbook, "photos", "ph1"),
			groundingItem(domain.TierScrapbook, "gratitude", "g1"),
		},
		domain.TierLibrary: {
			groundingItem(domain.TierLibrary, "komga", "k1"),
			groundingItem(domain.TierLibrary, "komga", "k2"),
		},
	}

	asm := &Assembly{Recipe: plainRecipe(6), Now: testBase}
	batch, _ := asm.Build(pool)

	require.Len(t, batch, 6)
	for _, it := range batch {
		assert.True(t, it.Tier.Grounding(), "only grounding tiers present")
	}
}

func TestAssembly_BatchSizeOne(t *testing.T) {
	recipe := plainRecipe(1)
	recipe.Tiers = map[domain.Tier]domain.TierRecipe{domain.TierScrapbook: {Allocation: 1}}

	t.Run("grounding serves the slot when wire is empty", func(t *testing.T) {
		pool := TierPool{domain.TierScrapbook: {groundingItem(domain.TierScrapbook, "photos", "ph1")}}
		asm := &Assembly{Recipe: recipe, Now: testBase}
		batch, _ := asm.Build(pool)
		require.Len(t, batch, 1)
		assert.Equal(t, domain.TierScrapbook, batch[0].Tier)
	})

	t.Run("allocation claims the slot over wire", func(t *testing.T) {
		pool := TierPool{
			domain.TierWire:      {wireItem("reddit", "r1", 0)},
			domain.TierScrapbook: {groundingItem(domain.TierScrapbook, "photos", "ph1")},
		}
		asm := &Assembly{Recipe: recipe, Now: testBase}
		batch, _ := asm.Build(pool)
		require.Len(t, batch, 1)
		assert.Equal(t, domain.TierScrapbook, batch[0].Tier,
			"an allocation covering the whole batch wins the only slot")
	})

	t.Run("wire keeps the slot without an allocation", func(t *testing.T) {
		pool := TierPool{
			domain.TierWire:      {wireItem("reddit", "r1", 0)},
			domain.TierScrapbook: {groundingItem(domain.TierScrapbook, "photos", "ph1")},
		}
		asm := &Assembly{Recipe: plainRecipe(1), Now: testBase}
		batch, _ := asm.Build(pool)
		require.Len(t, batch, 1)
		assert.Equal(t, domain.TierWire, batch[0].Tier)
	})
}

func TestAssembly_LibrarySeededOrder(t *testing.T) {
	recipe := plainRecipe(20)
	recipe.Tiers = map[domain.Tier]domain.TierRecipe{domain.TierLibrary: {Allocation: 19}}

	libraryPool := func() TierPool {
		items := make([]domain.FeedItem, 0, 20)
		for i := 0; i < 20; i++ {
			items = append(items, groundingItem(domain.TierLibrary, fmt.Sprintf("lib%d", i), fmt.Sprintf("b%d", i)))
		}
		return TierPool{domain.TierLibrary: items}
	}

	first, _ := (&Assembly{Recipe: recipe, Seed: 42, Now: testBase}).Build(libraryPool())
	second, _ := (&Assembly{Recipe: recipe, Seed: 42, Now: testBase}).Build(libraryPool())
	other, _ := (&Assembly{Recipe: recipe, Seed: 1042, Now: testBase}).Build(libraryPool())

	assert.Equal(t, first, second, "same seed gives the same order")
	assert.NotEqual(t, first, other, "different seed shuffles differently")
}

func TestAssembly_ScrapbookAnniversaryFirst(t *testing.T) {
	recipe := plainRecipe(4)
	recipe.Tiers = map[domain.Tier]domain.TierRecipe{domain.TierScrapbook: {Allocation: 1}}

	anniversary := groundingItem(domain.TierScrapbook, "photos", "ann")
	anniversary.Meta = map[string]any{"yearsAgo": 3}
	pool := TierPool{
		domain.TierWire: alternatingWire(6, "reddit", "rss"),
		domain.TierScrapbook: {
			groundingItem(domain.TierScrapbook, "photos", "ph1"),
			groundingItem(domain.TierScrapbook, "photos", "ph2"),
			anniversary,
			groundingItem(domain.TierScrapbook, "photos", "ph3"),
		},
	}

	asm := &Assembly{Recipe: recipe, Seed: 7, Now: testBase}
	batch, _ := asm.Build(pool)

	var scrapbook []domain.FeedItem
	for _, it := range batch {
		if it.Tier == domain.TierScrapbook {
			scrapbook = append(scrapbook, it)
		}
	}
	require.Len(t, scrapbook, 1)
	assert.Equal(t, "photos:ann", scrapbook[0].ID, "anniversary item preferred within the window")
}

func TestAssembly_ScrapbookRecentExcluded(t *testing.T) {
	recipe := plainRecipe(2)
	recipe.Tiers = map[domain.Tier]domain.TierRecipe{domain.TierScrapbook: {Allocation: 1}}
	pool := TierPool{
		domain.TierWire: alternatingWire(2, "reddit", "rss"),
		domain.TierScrapbook: {
			groundingItem(domain.TierScrapbook, "photos", "seen"),
			groundingItem(domain.TierScrapbook, "photos", "new"),
		},
	}

	asm := &Assembly{Recipe: recipe, Now: testBase, Recent: map[string]bool{"photos:seen": true}}
	batch, _ := asm.Build(pool)

	for _, it := range batch {
		assert.NotEqual(t, "photos:seen", it.ID, "recently shown scrapbook item stays out")
	}
}

func TestAssembly_ReadItemsExcluded(t *testing.T) {
	read := wireItem("rss", "old", 1)
	read.Meta = map[string]any{"read": true}
	pool := TierPool{domain.TierWire: {wireItem("rss", "fresh", 0), read}}

	asm := &Assembly{Recipe: plainRecipe(5), Now: testBase}
	batch, _ := asm.Build(pool)

	require.Len(t, batch, 1)
	assert.Equal(t, "rss:fresh", batch[0].ID)
}

func TestAssembly_CompassFreshness(t *testing.T) {
	recipe := plainRecipe(5)
	recipe.Tiers = map[domain.Tier]domain.TierRecipe{
		domain.TierCompass: {Allocation: 3, Selection: domain.SelectionConfig{Freshness: time.Hour}},
	}

	fresh := compassItem("weather", "now", 8)
	ts := testBase.Add(-30 * time.Minute)
	fresh.Timestamp = &ts

	stale := compassItem("weather", "old", 9)
	staleTS := testBase.Add(-2 * time.Hour)
	stale.Timestamp = &staleTS

	undated := compassItem("tasks", "todo", 5)

	pool := TierPool{domain.TierCompass: {fresh, stale, undated}}
	asm := &Assembly{Recipe: recipe, Now: testBase}
	batch, _ := asm.Build(pool)

	ids := make([]string, 0, len(batch))
	for _, it := range batch {
		ids = append(ids, it.ID)
	}
	assert.NotContains(t, ids, "weather:old", "stale compass item dropped")
	assert.Contains(t, ids, "weather:now")
	assert.Contains(t, ids, "tasks:todo", "undated items are kept")
}

func TestAssembly_CompassPriorityOrder(t *testing.T) {
	recipe := plainRecipe(8)
	recipe.Tiers = map[domain.Tier]domain.TierRecipe{domain.TierCompass: {Allocation: 3}}
	pool := TierPool{
		domain.TierWire: alternatingWire(8, "reddit", "rss"),
		domain.TierCompass: {
			compassItem("tasks", "low", 1),
			compassItem("weather", "high", 9),
			compassItem("entropy", "mid", 4),
		},
	}

	asm := &Assembly{Recipe: recipe, Now: testBase}
	batch, _ := asm.Build(pool)

	var priorities []int
	for _, it := range batch {
		if it.Tier == domain.TierCompass {
			priorities = append(priorities, it.Priority)
		}
	}
	require.Len(t, priorities, 3)
	assert.Equal(t, []int{9, 4, 1}, priorities, "compass appears in non-ascending priority order")
}

func TestAssembly_DecayMode(t *testing.T) {
	recipe := domain.ScrollRecipe{
		BatchSize: 10,
		Spacing:   domain.SpacingConfig{MaxConsecutive: 1},
		Algorithm: &domain.DecayConfig{GroundingRatio: 5, DecayRate: 0.85, MinRatio: 2},
	}
	pool := TierPool{
		domain.TierWire: alternatingWire(10, "reddit", "rss", "news"),
		domain.TierLibrary: {
			groundingItem(domain.TierLibrary, "komga", "k1"),
			groundingItem(domain.TierLibrary, "gratitude", "g1"),
			groundingItem(domain.TierLibrary, "komga", "k2"),
		},
	}

	// 20 minutes in: ratio = max(2, floor(5*0.85^4)) = 2
	asm := &Assembly{Recipe: recipe, SessionAge: 20 * time.Minute, Now: testBase}
	batch, _ := asm.Build(pool)

	require.Len(t, batch, 10)
	for i, it := range batch {
		if (i+1)%3 == 0 { // every third position holds a grounding item
			assert.True(t, it.Tier.Grounding(), "position %d", i)
			continue
		}
		assert.Equal(t, domain.TierWire, it.Tier, "position %d", i)
	}
}

func TestAssembly_UnderDelivery(t *testing.T) {
	pool := TierPool{domain.TierWire: alternatingWire(4, "reddit", "rss")}
	asm := &Assembly{Recipe: plainRecipe(10), Now: testBase}
	batch, remaining := asm.Build(pool)

	assert.Len(t, batch, 4, "short batch, nothing fabricated")
	assert.Equal(t, 0, remaining.Size())
}

func TestAssembly_EmptyPool(t *testing.T) {
	asm := &Assembly{Recipe: plainRecipe(10), Now: testBase}
	batch, remaining := asm.Build(TierPool{})
	assert.Empty(t, batch)
	assert.Equal(t, 0, remaining.Size())
}

func TestAssembly_CappedItemsStayPooled(t *testing.T) {
	recipe := plainRecipe(5)
	recipe.Spacing.MaxConsecutive = 2
	recipe.Tiers = map[domain.Tier]domain.TierRecipe{
		domain.TierWire: {Sources: map[string]domain.SourceRule{"reddit": {MaxPerBatch: 2}}},
	}
	pool := TierPool{domain.TierWire: alternatingWire(5, "reddit")}

	asm := &Assembly{Recipe: recipe, Now: testBase}
	batch, remaining := asm.Build(pool)

	assert.Len(t, batch, 2, "per-batch cap respected")
	assert.Len(t, remaining[domain.TierWire], 3, "capped items return to the pool")
}

func TestAssembly_Deterministic(t *testing.T) {
	makePool := func() TierPool {
		return TierPool{
			domain.TierWire:      alternatingWire(15, "reddit", "rss", "news"),
			domain.TierCompass:   {compassItem("tasks", "t1", 3), compassItem("weather", "w1", 7)},
			domain.TierScrapbook: {groundingItem(domain.TierScrapbook, "photos", "ph1")},
			domain.TierLibrary:   {groundingItem(domain.TierLibrary, "komga", "k1")},
		}
	}
	recipe := plainRecipe(10)
	recipe.Tiers = map[domain.Tier]domain.TierRecipe{
		domain.TierCompass:   {Allocation: 2},
		domain.TierScrapbook: {Allocation: 1},
		domain.TierLibrary:   {Allocation: 1},
	}

	first, firstRest := (&Assembly{Recipe: recipe, Seed: 99, Now: testBase}).Build(makePool())
	second, secondRest := (&Assembly{Recipe: recipe, Seed: 99, Now: testBase}).Build(makePool())

	assert.Equal(t, first, second, "identical pool, recipe and seed give identical batches")
	assert.Equal(t, firstRest, secondRest)
}

func TestRoundRobinBySource(t *testing.T) {
	items := []domain.FeedItem{
		wireItem("reddit", "r1", 0),
		wireItem("reddit", "r2", 1),
		wireItem("rss", "a1", 2),
		wireItem("news", "n1", 3),
	}
	out := roundRobinBySource(items)
	ids := make([]string, 0, len(out))
	for _, it := range out {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"reddit:r1", "rss:a1", "news:n1", "reddit:r2"}, ids)
}

func TestTierPool_Size(t *testing.T) {
	pool := TierPool{
		domain.TierWire:    alternatingWire(3, "reddit"),
		domain.TierCompass: {compassItem("tasks", "t1", 1)},
	}
	assert.Equal(t, 4, pool.Size())
	assert.Equal(t, 0, TierPool{}.Size())
}
