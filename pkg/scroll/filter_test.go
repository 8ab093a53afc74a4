package scroll

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/umputun/boonscroll/pkg/domain"
	"github.com/umputun/boonscroll/pkg/scroll/mocks"
)

func registeredTypes(types ...string) *mocks.SourceTypesMock {
	return &mocks.SourceTypesMock{HasFunc: func(sourceType string) bool {
		for _, t := range types {
			if t == sourceType {
				return true
			}
		}
		return false
	}}
}

func TestResolver_Resolve(t *testing.T) {
	queries := []domain.QueryConfig{
		{Name: "worldnews", Type: "reddit", Tier: domain.TierWire, Limit: 25},
		{Name: "compass", Type: "tasks", Tier: domain.TierCompass, Limit: 5},
		{Name: "reddit", Type: "rss", Tier: domain.TierWire, Limit: 10},
	}
	aliases := map[string]string{
		"frontpage": "reddit:golang,programming",
		"news":      "worldnews",
		"loop":      "loop2",
		"loop2":     "loop",
	}
	r := NewResolver(registeredTypes("reddit", "rss"))

	tbl := []struct {
		name string
		expr string
		want *domain.Filter
	}{
		{"empty means no filter", "", nil},
		{"whitespace means no filter", "   ", nil},
		{"tier name", "wire", &domain.Filter{Kind: domain.FilterTier, Tier: domain.TierWire}},
		{"tier wins over query of the same name", "compass", &domain.Filter{Kind: domain.FilterTier, Tier: domain.TierCompass}},
		{"tier prefix matches with a rest attached", "compass:anything", &domain.Filter{Kind: domain.FilterTier, Tier: domain.TierCompass}},
		{"source type", "rss", &domain.Filter{Kind: domain.FilterSource, SourceType: "rss"}},
		{"source wins over query of the same name", "reddit", &domain.Filter{Kind: domain.FilterSource, SourceType: "reddit"}},
		{"source with subsources", "reddit:golang, rust", &domain.Filter{Kind: domain.FilterSource, SourceType: "reddit", Subsources: []string{"golang", "rust"}}},
		{"query name", "worldnews", &domain.Filter{Kind: domain.FilterQuery, QueryName: "worldnews"}},
		{"alias expands to source", "frontpage", &domain.Filter{Kind: domain.FilterSource, SourceType: "reddit", Subsources: []string{"golang", "programming"}}},
		{"request subsources win over alias subsources", "frontpage:rust", &domain.Filter{Kind: domain.FilterSource, SourceType: "reddit", Subsources: []string{"rust"}}},
		{"alias expands to query", "news", &domain.Filter{Kind: domain.FilterQuery, QueryName: "worldnews"}},
		{"alias cycle degrades to no filter", "loop", nil},
		{"unknown expression degrades to no filter", "nonsense", nil},
	}
	for _, tc := range tbl {
		t.Run(tc.name, func(t *testing.T) {
			got := r.Resolve(tc.expr, queries, aliases)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolver_ResolveDeterministic(t *testing.T) {
	queries := []domain.QueryConfig{{Name: "worldnews", Type: "reddit", Tier: domain.TierWire, Limit: 25}}
	r := NewResolver(registeredTypes("reddit"))

	first := r.Resolve("reddit:golang", queries, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Resolve("reddit:golang", queries, nil))
	}
}

func TestResolver_NilSources(t *testing.T) {
	// a resolver without a registry still handles tiers and queries
	r := NewResolver(nil)
	queries := []domain.QueryConfig{{Name: "tech", Type: "rss", Tier: domain.TierWire, Limit: 10}}

	assert.Equal(t, &domain.Filter{Kind: domain.FilterTier, Tier: domain.TierLibrary}, r.Resolve("library", queries, nil))
	assert.Equal(t, &domain.Filter{Kind: domain.FilterQuery, QueryName: "tech"}, r.Resolve("tech", queries, nil))
	assert.Nil(t, r.Resolve("rss", queries, nil))
}

func TestSplitExpr(t *testing.T) {
	tbl := []struct {
		expr string
		head string
		rest []string
	}{
		{"reddit", "reddit", nil},
		{"reddit:golang", "reddit", []string{"golang"}},
		{"reddit:golang,rust", "reddit", []string{"golang", "rust"}},
		{"reddit: golang , rust ", "reddit", []string{"golang", "rust"}},
		{"reddit:", "reddit", nil},
		{"reddit:,,", "reddit", nil},
	}
	for _, tc := range tbl {
		head, rest := splitExpr(tc.expr)
		assert.Equal(t, tc.head, head, tc.expr)
		assert.Equal(t, tc.rest, rest, tc.expr)
	}
}
