package domain

// FilterKind says what a resolved filter expression narrows to
type FilterKind string

const (
	FilterTier   FilterKind = "tier"
	FilterSource FilterKind = "source"
	FilterQuery  FilterKind = "query"
)

// Filter is a resolved narrowing expression. A nil *Filter means no
// narrowing, full mixed assembly.
type Filter struct {
	Kind       FilterKind
	Tier       Tier     // for FilterTier
	SourceType string   // for FilterSource
	Subsources []string // optional subsource restriction for FilterSource
	QueryName  string   // for FilterQuery
}

// MatchesQuery reports whether a query should be fetched under this filter,
// nil filter matches everything
func (f *Filter) MatchesQuery(q QueryConfig) bool {
	if f == nil {
		return true
	}
	switch f.Kind {
	case FilterTier:
		return q.Tier == f.Tier
	case FilterSource:
		return q.Type == f.SourceType
	case FilterQuery:
		return q.Name == f.QueryName
	}
	return true
}

// MatchesItem reports whether an item belongs to the narrowed view
func (f *Filter) MatchesItem(item *FeedItem) bool {
	if f == nil {
		return true
	}
	switch f.Kind {
	case FilterTier:
		return item.Tier == f.Tier
	case FilterSource:
		if item.Source != f.SourceType {
			return false
		}
		return MatchesSubsource(item, f.Subsources)
	case FilterQuery:
		return item.QueryName == f.QueryName
	}
	return true
}

// subsourceMetaKeys are the meta fields consulted when an adapter reports
// secondary identity only through meta
var subsourceMetaKeys = []string{"subreddit", "sourceId", "feedTitle", "channelId"}

// SubsourceOf returns the item's effective subsource identity, falling back
// to the known meta keys when the field is empty
func SubsourceOf(item *FeedItem) string {
	if item.Subsource != "" {
		return item.Subsource
	}
	for _, key := range subsourceMetaKeys {
		if v := item.MetaString(key); v != "" {
			return v
		}
	}
	return ""
}

// MatchesSubsource reports whether the item matches any wanted subsource,
// compared verbatim against the subsource field and known meta keys. An
// empty want list matches everything.
func MatchesSubsource(item *FeedItem, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if item.Subsource == w {
			return true
		}
		for _, key := range subsourceMetaKeys {
			if item.MetaString(key) == w {
				return true
			}
		}
	}
	return false
}
