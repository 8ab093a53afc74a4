package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/umputun/boonscroll/pkg/domain"
)

// QueryStore loads household query definitions from a directory, one yaml
// file per query. The query name is the filename without extension. Results
// are memoized until any file in the directory changes.
type QueryStore struct {
	dir string

	mu       sync.Mutex
	cached   []domain.QueryConfig
	warnings []string
	sig      string
}

// NewQueryStore creates a store for the given query directory
func NewQueryStore(dir string) *QueryStore {
	return &QueryStore{dir: dir}
}

// Load returns all valid query configs sorted by name, plus warnings for
// entries that were skipped. Malformed queries never fail the load; an
// unreadable directory does.
func (s *QueryStore) Load() ([]domain.QueryConfig, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read query dir %s: %w", s.dir, err)
	}

	sig := dirSignature(entries)
	if sig == s.sig && s.cached != nil {
		return s.cached, s.warnings, nil
	}

	var configs []domain.QueryConfig
	var warnings []string
	seen := map[string]string{} // query name -> filename

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if prev, ok := seen[name]; ok {
			warnings = append(warnings, fmt.Sprintf("query %q skipped: duplicates %s", entry.Name(), prev))
			continue
		}

		q, err := s.parseFile(filepath.Join(s.dir, entry.Name()), name)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("query %q skipped: %v", name, err))
			continue
		}
		seen[name] = entry.Name()
		configs = append(configs, q)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })

	s.cached, s.warnings, s.sig = configs, warnings, sig
	return configs, warnings, nil
}

func (s *QueryStore) parseFile(path, name string) (domain.QueryConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the configured query dir
	if err != nil {
		return domain.QueryConfig{}, fmt.Errorf("read: %w", err)
	}

	// expand environment variables, query params may carry keys
	expanded := os.ExpandEnv(string(data))

	var q domain.QueryConfig
	if err := yaml.Unmarshal([]byte(expanded), &q); err != nil {
		return domain.QueryConfig{}, fmt.Errorf("parse: %w", err)
	}
	q.Name = name

	if err := q.Validate(); err != nil {
		return domain.QueryConfig{}, err
	}
	return q, nil
}

// dirSignature fingerprints directory contents so unchanged dirs reuse the cache
func dirSignature(entries []os.DirEntry) string {
	var b strings.Builder
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%s|%d|%d;", e.Name(), info.Size(), info.ModTime().UnixNano())
	}
	return b.String()
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yml" || ext == ".yaml"
}
