package recipe

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/boonscroll/pkg/domain"
)

func writeQuery(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestQueryStore_Load(t *testing.T) {
	dir := t.TempDir()
	writeQuery(t, dir, "worldnews.yml", `
type: reddit
tier: wire
limit: 25
params:
  subreddits: [worldnews, usnews]
`)
	writeQuery(t, dir, "forecast.yml", `
type: weather
tier: compass
priority: 80
limit: 1
params:
  lat: 51.5
  lon: -0.12
`)

	store := NewQueryStore(dir)
	queries, warnings, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, queries, 2)

	// sorted by name
	assert.Equal(t, "forecast", queries[0].Name)
	assert.Equal(t, "weather", queries[0].Type)
	assert.Equal(t, domain.TierCompass, queries[0].Tier)
	assert.Equal(t, 80, queries[0].Priority)

	assert.Equal(t, "worldnews", queries[1].Name)
	assert.Equal(t, []string{"worldnews", "usnews"}, queries[1].StringsParam("subreddits"))
}

func TestQueryStore_SkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeQuery(t, dir, "good.yml", "type: rss\ntier: wire\nlimit: 10\nparams: {url: https://example.com/rss}\n")
	writeQuery(t, dir, "no-limit.yml", "type: rss\ntier: wire\n")
	writeQuery(t, dir, "bad-tier.yml", "type: rss\ntier: shelf\nlimit: 5\n")
	writeQuery(t, dir, "broken.yml", "type: [unclosed\n")
	writeQuery(t, dir, "notes.txt", "not a query at all")

	store := NewQueryStore(dir)
	queries, warnings, err := store.Load()
	require.NoError(t, err, "malformed queries never fail the load")

	require.Len(t, queries, 1)
	assert.Equal(t, "good", queries[0].Name)

	require.Len(t, warnings, 3)
	for _, w := range warnings {
		assert.Contains(t, w, "skipped")
	}
}

func TestQueryStore_DuplicateBasename(t *testing.T) {
	dir := t.TempDir()
	writeQuery(t, dir, "news.yaml", "type: rss\ntier: wire\nlimit: 10\n")
	writeQuery(t, dir, "news.yml", "type: reddit\ntier: wire\nlimit: 10\n")

	store := NewQueryStore(dir)
	queries, warnings, err := store.Load()
	require.NoError(t, err)
	require.Len(t, queries, 1, "second file with same basename is skipped")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "duplicates")
}

func TestQueryStore_MissingDir(t *testing.T) {
	store := NewQueryStore(filepath.Join(t.TempDir(), "nope"))
	_, _, err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read query dir")
}

func TestQueryStore_CacheInvalidation(t *testing.T) {
	dir := t.TempDir()
	writeQuery(t, dir, "one.yml", "type: rss\ntier: wire\nlimit: 10\n")

	store := NewQueryStore(dir)
	queries, _, err := store.Load()
	require.NoError(t, err)
	require.Len(t, queries, 1)

	again, _, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, queries, again, "unchanged dir serves the cache")

	// adding a file invalidates the cache; mtime resolution can be coarse,
	// a new entry changes the signature regardless
	time.Sleep(10 * time.Millisecond)
	writeQuery(t, dir, "two.yml", "type: reddit\ntier: wire\nlimit: 10\n")

	updated, _, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, updated, 2)
}

func TestQueryStore_ExpandsEnv(t *testing.T) {
	t.Setenv("BOON_TEST_FEED_URL", "https://example.com/rss")

	dir := t.TempDir()
	writeQuery(t, dir, "envfeed.yml", "type: rss\ntier: wire\nlimit: 10\nparams: {url: $BOON_TEST_FEED_URL}\n")

	store := NewQueryStore(dir)
	queries, _, err := store.Load()
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "https://example.com/rss", queries[0].StringParam("url"))
}
