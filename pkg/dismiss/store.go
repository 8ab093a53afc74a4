package dismiss

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/lgr"
)

// DefaultRetention is how long a dismissal suppresses an item
const DefaultRetention = 30 * 24 * time.Hour

// Set is an immutable snapshot of dismissed item ids
type Set map[string]struct{}

// Contains reports whether the id is dismissed
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Store persists dismissed item ids as a json map of id to epoch seconds.
// Entries older than the retention window are pruned on load. Writes replace
// the file atomically via temp file and rename; in-process writers serialize
// on a mutex, cross-process writers race with last-writer-wins.
type Store struct {
	path      string
	retention time.Duration

	mu          sync.Mutex // serializes load-modify-write cycles
	current     atomic.Pointer[Set]
	corruptOnce sync.Once

	now func() time.Time
}

// NewStore creates a store backed by the given file. Zero retention means
// the 30-day default.
func NewStore(path string, retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &Store{path: path, retention: retention, now: time.Now}
	empty := Set{}
	s.current.Store(&empty)
	return s
}

// Load reads the persisted map, prunes expired entries, writes the pruned
// form back when anything was removed and returns the resulting set. Missing
// or corrupt files read as empty.
func (s *Store) Load() Set {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.read()
	if s.prune(records) > 0 {
		if err := s.write(records); err != nil {
			lgr.Printf("[WARN] failed to persist pruned dismissals: %v", err)
		}
	}

	set := make(Set, len(records))
	for id := range records {
		set[id] = struct{}{}
	}
	s.current.Store(&set)
	return set
}

// Add records dismissals for the given ids with the current time. Repeating
// an id refreshes its timestamp.
func (s *Store) Add(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.read()
	s.prune(records)
	now := s.now().Unix()
	for _, id := range ids {
		if id == "" {
			continue
		}
		records[id] = now
	}
	if err := s.write(records); err != nil {
		return fmt.Errorf("persist dismissals: %w", err)
	}

	set := make(Set, len(records))
	for id := range records {
		set[id] = struct{}{}
	}
	s.current.Store(&set)
	return nil
}

// Snapshot returns the last loaded set without touching the file. Lock-free,
// safe for concurrent membership checks.
func (s *Store) Snapshot() Set {
	return *s.current.Load()
}

// read parses the store file into a mutable map, degrading to empty on any failure
func (s *Store) read() map[string]int64 {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.corruptOnce.Do(func() {
				lgr.Printf("[WARN] cannot read dismissed file %s, starting empty: %v", s.path, err)
			})
		}
		return map[string]int64{}
	}

	var records map[string]int64
	if err := json.Unmarshal(data, &records); err != nil {
		s.corruptOnce.Do(func() {
			lgr.Printf("[WARN] dismissed file %s is corrupt, starting empty: %v", s.path, err)
		})
		return map[string]int64{}
	}
	if records == nil {
		records = map[string]int64{}
	}
	return records
}

// prune drops entries older than the retention window, returns removed count
func (s *Store) prune(records map[string]int64) int {
	cutoff := s.now().Add(-s.retention).Unix()
	removed := 0
	for id, ts := range records {
		if ts < cutoff {
			delete(records, id)
			removed++
		}
	}
	return removed
}

// write replaces the store file atomically
func (s *Store) write(records map[string]int64) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal dismissed records: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create dismissed dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace dismissed file: %w", err)
	}
	return nil
}
