package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/umputun/boonscroll/pkg/domain"
)

// RecipeStore loads per-user scroll recipes from a directory, filling in
// baked-in defaults. A user without a recipe file gets the pure defaults.
// Loaded recipes are memoized per user until the file's mtime changes; the
// mtime also becomes the recipe revision so sessions can detect edits.
type RecipeStore struct {
	dir              string
	defaultBatchSize int

	mu     sync.Mutex
	cached map[string]*cachedRecipe
}

type cachedRecipe struct {
	recipe   domain.ScrollRecipe
	warnings []string
	mtime    time.Time
}

// NewRecipeStore creates a store reading recipes from dir; defaultBatchSize
// applies when a recipe omits batchSize (and to recipe-less users)
func NewRecipeStore(dir string, defaultBatchSize int) *RecipeStore {
	if defaultBatchSize <= 0 {
		defaultBatchSize = 30
	}
	return &RecipeStore{dir: dir, defaultBatchSize: defaultBatchSize, cached: map[string]*cachedRecipe{}}
}

// Default returns the baked-in recipe used when a user has no file
func (s *RecipeStore) Default() domain.ScrollRecipe {
	return domain.ScrollRecipe{
		BatchSize: s.defaultBatchSize,
		Spacing:   domain.SpacingConfig{MaxConsecutive: 1},
	}
}

// Load returns the recipe for a user plus config warnings. Recipe files are
// named <user>.yml under the store directory. A malformed recipe is a hard
// error; the engine cannot assemble without trustworthy rules.
func (s *RecipeStore) Load(user string) (domain.ScrollRecipe, []string, error) {
	if user == "" {
		user = "default"
	}
	if filepath.Base(user) != user {
		return domain.ScrollRecipe{}, nil, fmt.Errorf("invalid user %q", user)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, info := s.findFile(user)
	if path == "" {
		return s.Default(), nil, nil
	}

	if c, ok := s.cached[user]; ok && c.mtime.Equal(info.ModTime()) {
		return c.recipe, c.warnings, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is built from the configured recipe dir
	if err != nil {
		return domain.ScrollRecipe{}, nil, fmt.Errorf("read recipe %s: %w", path, err)
	}

	var r domain.ScrollRecipe
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &r); err != nil {
		return domain.ScrollRecipe{}, nil, fmt.Errorf("parse recipe %s: %w", path, err)
	}

	if r.BatchSize == 0 {
		r.BatchSize = s.defaultBatchSize
	}
	if r.Spacing.MaxConsecutive == 0 {
		r.Spacing.MaxConsecutive = 1
	}
	r.Revision = info.ModTime().UnixNano()

	if err := r.Validate(); err != nil {
		return domain.ScrollRecipe{}, nil, fmt.Errorf("recipe %s: %w", path, err)
	}

	warnings := dedupeSources(&r)

	s.cached[user] = &cachedRecipe{recipe: r, warnings: warnings, mtime: info.ModTime()}
	return r, warnings, nil
}

// findFile locates the user's recipe file, trying .yml then .yaml
func (s *RecipeStore) findFile(user string) (string, os.FileInfo) {
	for _, ext := range []string{".yml", ".yaml"} {
		path := filepath.Join(s.dir, user+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, info
		}
	}
	return "", nil
}

// dedupeSources drops sources listed under more than one tier, keeping the
// first tier in declaration order and warning about the rest
func dedupeSources(r *domain.ScrollRecipe) []string {
	var warnings []string
	seen := map[string]domain.Tier{}

	for _, tier := range domain.AllTiers {
		tr, ok := r.Tiers[tier]
		if !ok {
			continue
		}
		names := make([]string, 0, len(tr.Sources))
		for name := range tr.Sources {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if prev, dup := seen[name]; dup {
				delete(tr.Sources, name)
				warnings = append(warnings, fmt.Sprintf("source %q listed under both %s and %s tiers, keeping %s", name, prev, tier, prev))
				continue
			}
			seen[name] = tier
		}
	}
	return warnings
}
