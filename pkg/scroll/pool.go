package scroll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/boonscroll/pkg/dismiss"
	"github.com/umputun/boonscroll/pkg/domain"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher
//go:generate moq -out mocks/query_source.go -pkg mocks -skip-ensure -fmt goimports . QuerySource
//go:generate moq -out mocks/recipe_source.go -pkg mocks -skip-ensure -fmt goimports . RecipeSource
//go:generate moq -out mocks/dismissals.go -pkg mocks -skip-ensure -fmt goimports . Dismissals
//go:generate moq -out mocks/marker.go -pkg mocks -skip-ensure -fmt goimports . Marker
//go:generate moq -out mocks/source_types.go -pkg mocks -skip-ensure -fmt goimports . SourceTypes

// ErrBadCursor marks an unparseable pagination cursor, surfaced as a client error
var ErrBadCursor = errors.New("bad cursor")

// defaultSessionTTL drops pools idle longer than this
const defaultSessionTTL = 2 * time.Hour

// recentFactor sizes the per-user recently-shown buffer in batch sizes
const recentFactor = 3

// Fetcher pulls normalized items for the queries matching a filter and
// reports per-source warnings
type Fetcher interface {
	Fetch(ctx context.Context, configs []domain.QueryConfig, filter *domain.Filter) ([]domain.FeedItem, []string)
}

// QuerySource loads the source definitions from the query directory
type QuerySource interface {
	Load() ([]domain.QueryConfig, []string, error)
}

// RecipeSource loads a user's scroll recipe, falling back to defaults
type RecipeSource interface {
	Load(user string) (domain.ScrollRecipe, []string, error)
}

// Dismissals persists dismissed item ids with expiry. Load re-reads the
// persisted set, pruning expired records on the way.
type Dismissals interface {
	Add(ids ...string) error
	Load() dismiss.Set
}

// Marker records read state upstream for sources that keep their own
type Marker interface {
	Supports(sourceType string) bool
	MarkRead(ctx context.Context, sourceType string, localIDs []string) error
}

// BatchRequest carries one scroll request
type BatchRequest struct {
	User    string
	Session string // client-chosen scrolling session key, ISO timestamp by convention
	Cursor  string
	Limit   int
	Filter  string // raw filter expression, empty for the mixed feed
}

// Batch is one page of the scroll
type Batch struct {
	Items      []domain.FeedItem `json:"items"`
	NextCursor string            `json:"nextCursor"`
	HasMore    bool              `json:"hasMore"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// ManagerConfig holds the pool manager knobs
type ManagerConfig struct {
	Marker     Marker        // optional upstream read marking
	SessionTTL time.Duration // idle session expiry, default 2h
}

// Manager owns per-session item pools and serves paginated batches out of
// them. Sessions are keyed by user and session string, re-seeded when the
// cursor is absent, the recipe file changed or the filter expression changed,
// and dropped after the idle TTL.
type Manager struct {
	fetcher   Fetcher
	queries   QuerySource
	recipes   RecipeSource
	dismissed Dismissals
	resolver  *Resolver
	marker    Marker
	ttl       time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	recent   map[string]*recentRing
}

// NewManager creates a pool manager over the given collaborators
func NewManager(fetcher Fetcher, queries QuerySource, recipes RecipeSource, dismissed Dismissals, sources SourceTypes, cfg ManagerConfig) *Manager {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	return &Manager{
		fetcher:   fetcher,
		queries:   queries,
		recipes:   recipes,
		dismissed: dismissed,
		resolver:  NewResolver(sources),
		marker:    cfg.Marker,
		ttl:       cfg.SessionTTL,
		now:       time.Now,
		sessions:  make(map[string]*session),
		recent:    make(map[string]*recentRing),
	}
}

// session holds one scrolling session's state. The served slice is append
// only; cursors are indexes into it, so replaying an old cursor re-serves
// the same items.
type session struct {
	user      string
	key       string
	seed      int64
	startedAt time.Time
	lastSeen  atomic.Int64 // unix nanos

	mu         sync.Mutex
	seeded     bool
	recipeRev  int64
	filterExpr string
	narrow     *domain.Filter
	served     []domain.FeedItem
	pool       TierPool          // unserved items for mixed assembly
	flat       []domain.FeedItem // unserved items for the narrowed view
}

// GetBatch serves one page. The first request of a session fetches and seeds
// the pool; subsequent requests page through assembled output, refilling from
// the sources when the pool drains.
func (m *Manager) GetBatch(ctx context.Context, req BatchRequest) (Batch, error) {
	recipe, recipeWarns, err := m.recipes.Load(req.User)
	if err != nil {
		return Batch{}, fmt.Errorf("load recipe for %s: %w", req.User, err)
	}
	queries, queryWarns, err := m.queries.Load()
	if err != nil {
		return Batch{}, fmt.Errorf("load queries: %w", err)
	}
	warnings := make([]string, 0, len(recipeWarns)+len(queryWarns))
	warnings = append(warnings, recipeWarns...)
	warnings = append(warnings, queryWarns...)

	limit := req.Limit
	if limit <= 0 {
		limit = recipe.BatchSize
	}
	if limit > 100 { // same ceiling recipe validation applies
		limit = 100
	}

	start, explicit := 0, false
	if req.Cursor != "" {
		n, convErr := strconv.Atoi(req.Cursor)
		if convErr != nil || n < 0 {
			return Batch{}, fmt.Errorf("%w: %q", ErrBadCursor, req.Cursor)
		}
		start, explicit = n, true
	}

	now := m.now()
	m.mu.Lock()
	m.pruneLocked(now)
	sess := m.sessionLocked(req.User, req.Session, now)
	ring := m.ringLocked(req.User, recipe.BatchSize)
	m.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// one dismissed-set load per request, so restarts pick up the
	// persisted file before anything is served
	snap := m.dismissed.Load()

	fetched := false
	if !sess.seeded || !explicit || sess.recipeRev != recipe.Revision || sess.filterExpr != req.Filter {
		filter := m.resolver.Resolve(req.Filter, queries, recipe.Aliases)
		items, fetchWarns := m.fetch(ctx, queries, recipe, filter)
		warnings = append(warnings, fetchWarns...)
		if ctx.Err() != nil { // cancelled requests leave no state behind
			return Batch{Items: []domain.FeedItem{}, NextCursor: req.Cursor, Warnings: warnings}, nil
		}
		sess.reset(recipe.Revision, req.Filter, filter)
		sess.absorb(items, snap)
		start = 0
		fetched = true
	}

	target := start + limit
	for len(sess.served) < target {
		page := m.nextPage(sess, recipe, ring, limit, now)
		if len(page) > 0 {
			sess.served = append(sess.served, page...)
			ring.add(page)
			continue
		}
		if fetched {
			break
		}
		items, fetchWarns := m.fetch(ctx, queries, recipe, sess.narrow)
		warnings = append(warnings, fetchWarns...)
		if ctx.Err() != nil {
			return Batch{Items: []domain.FeedItem{}, NextCursor: req.Cursor, Warnings: warnings}, nil
		}
		sess.absorb(items, snap)
		fetched = true
	}

	end := target
	if end > len(sess.served) {
		end = len(sess.served)
	}
	if start > end {
		start = end
	}
	items := make([]domain.FeedItem, 0, end-start)
	for _, it := range sess.served[start:end] {
		if snap.Contains(it.ID) {
			continue
		}
		items = append(items, it)
	}

	sess.lastSeen.Store(now.UnixNano())
	rest := len(sess.served) - end
	hasMore := rest > 0 || (sess.available() > 0 && end > start)
	return Batch{Items: items, NextCursor: strconv.Itoa(end), HasMore: hasMore, Warnings: warnings}, nil
}

// Dismiss records the given item ids so they stop appearing. Ids of sources
// with upstream read state go to the marker; the rest go to the local store.
// Both paths are best effort, the call always reports how many were taken.
func (m *Manager) Dismiss(ctx context.Context, ids []string) int {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return 0
	}

	var local []string
	upstream := make(map[string][]string)
	for _, id := range unique {
		source, localID, ok := strings.Cut(id, ":")
		if ok && m.marker != nil && m.marker.Supports(source) {
			upstream[source] = append(upstream[source], localID)
			continue
		}
		local = append(local, id)
	}

	sources := make([]string, 0, len(upstream))
	for source := range upstream {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		if err := m.marker.MarkRead(ctx, source, upstream[source]); err != nil {
			lgr.Printf("[WARN] mark read upstream failed for %s: %v", source, err)
			for _, localID := range upstream[source] { // fall back to the local store
				local = append(local, source+":"+localID)
			}
		}
	}
	if len(local) > 0 {
		if err := m.dismissed.Add(local...); err != nil {
			lgr.Printf("[WARN] persist dismissals: %v", err)
		}
	}

	m.forget(seen)
	return len(unique)
}

// Sessions reports the number of live scrolling sessions
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(m.now())
	return len(m.sessions)
}

// fetch selects the queries visible under the recipe and filter and pulls
// items. An explicit filter overrides the recipe's source enablement.
func (m *Manager) fetch(ctx context.Context, queries []domain.QueryConfig, recipe domain.ScrollRecipe, filter *domain.Filter) ([]domain.FeedItem, []string) {
	selected := queries
	if filter == nil {
		selected = make([]domain.QueryConfig, 0, len(queries))
		for _, q := range queries {
			if recipe.Enabled(q) {
				selected = append(selected, q)
			}
		}
	}
	return m.fetcher.Fetch(ctx, selected, filter)
}

// nextPage produces the next stretch of the served sequence, consuming the
// unserved pool. Narrowed sessions page the flat slice; mixed sessions run
// the assembly engine.
func (m *Manager) nextPage(sess *session, recipe domain.ScrollRecipe, ring *recentRing, limit int, now time.Time) []domain.FeedItem {
	if sess.narrow != nil {
		n := limit
		if n > len(sess.flat) {
			n = len(sess.flat)
		}
		page := sess.flat[:n:n]
		sess.flat = sess.flat[n:]
		return page
	}
	asm := &Assembly{
		Recipe:     recipe,
		BatchSize:  limit,
		Seed:       sess.seed,
		SessionAge: now.Sub(sess.startedAt),
		Now:        now,
		Recent:     ring.snapshot(),
	}
	batch, rest := asm.Build(sess.pool)
	sess.pool = rest
	return batch
}

// forget removes ids from every live session's unserved items
func (m *Manager) forget(ids map[string]bool) {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.mu.Lock()
		for tier, items := range s.pool {
			s.pool[tier] = dropIDs(items, ids)
		}
		s.flat = dropIDs(s.flat, ids)
		s.mu.Unlock()
	}
}

func (m *Manager) sessionLocked(user, key string, now time.Time) *session {
	id := user + "|" + key
	s, ok := m.sessions[id]
	if !ok {
		s = &session{
			user:      user,
			key:       key,
			seed:      int64(seededRank(0, id)),
			startedAt: parseSessionTime(key, now),
		}
		s.lastSeen.Store(now.UnixNano())
		m.sessions[id] = s
	}
	return s
}

func (m *Manager) ringLocked(user string, batchSize int) *recentRing {
	r, ok := m.recent[user]
	if !ok {
		r = newRecentRing(recentFactor * batchSize)
		m.recent[user] = r
	}
	return r
}

func (m *Manager) pruneLocked(now time.Time) {
	cutoff := now.Add(-m.ttl).UnixNano()
	for id, s := range m.sessions {
		if s.lastSeen.Load() < cutoff {
			delete(m.sessions, id)
		}
	}
}

// reset wipes the session for a fresh seeding pass
func (s *session) reset(rev int64, expr string, filter *domain.Filter) {
	s.seeded = true
	s.recipeRev = rev
	s.filterExpr = expr
	s.narrow = filter
	s.served = nil
	s.pool = nil
	s.flat = nil
}

// absorb merges fetched items into the unserved pool, skipping dismissed ids
// and ids the session already holds or has served
func (s *session) absorb(items []domain.FeedItem, snap dismiss.Set) {
	have := make(map[string]struct{}, len(s.served)+len(s.flat))
	for _, it := range s.served {
		have[it.ID] = struct{}{}
	}
	for _, it := range s.flat {
		have[it.ID] = struct{}{}
	}
	for _, tier := range s.pool {
		for _, it := range tier {
			have[it.ID] = struct{}{}
		}
	}

	fresh := make([]domain.FeedItem, 0, len(items))
	for _, it := range items {
		if snap.Contains(it.ID) {
			continue
		}
		if _, ok := have[it.ID]; ok {
			continue
		}
		if s.narrow != nil && !s.narrow.MatchesItem(&it) {
			continue
		}
		fresh = append(fresh, it)
	}

	if s.narrow != nil {
		s.flat = append(s.flat, fresh...)
		narrowSort(s.flat)
		return
	}
	if s.pool == nil {
		s.pool = groupByTier(fresh)
		return
	}
	for _, it := range fresh {
		s.pool[it.Tier] = append(s.pool[it.Tier], it)
	}
}

// available counts the unserved items still in the session
func (s *session) available() int {
	if s.narrow != nil {
		return len(s.flat)
	}
	return s.pool.Size()
}

// narrowSort orders a narrowed view: all-wire slices by timestamp descending,
// all-compass slices by priority descending, anything mixed keeps arrival
// order
func narrowSort(items []domain.FeedItem) {
	allWire, allCompass := len(items) > 0, len(items) > 0
	for _, it := range items {
		if it.Tier != domain.TierWire {
			allWire = false
		}
		if it.Tier != domain.TierCompass {
			allCompass = false
		}
	}
	switch {
	case allWire:
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
	case allCompass:
		sort.Slice(items, func(i, j int) bool {
			if items[i].Priority != items[j].Priority {
				return items[i].Priority > items[j].Priority
			}
			if items[i].Source != items[j].Source {
				return items[i].Source < items[j].Source
			}
			return items[i].ID < items[j].ID
		})
	}
}

func dropIDs(items []domain.FeedItem, ids map[string]bool) []domain.FeedItem {
	res := items[:0]
	for _, it := range items {
		if !ids[it.ID] {
			res = append(res, it)
		}
	}
	return res
}

// parseSessionTime reads the session key as the scrolling session's start
// time when it is a timestamp, which drives decay-mode aging
func parseSessionTime(key string, fallback time.Time) time.Time {
	if ts, err := time.Parse(time.RFC3339, key); err == nil {
		return ts
	}
	return fallback
}

// recentRing remembers the ids shown to a user most recently, bounding how
// soon a scrapbook item may repeat
type recentRing struct {
	mu    sync.Mutex
	limit int
	order []string
	seen  map[string]bool
}

func newRecentRing(limit int) *recentRing {
	if limit <= 0 {
		limit = 30
	}
	return &recentRing{limit: limit, seen: make(map[string]bool)}
}

func (r *recentRing) add(items []domain.FeedItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		if r.seen[it.ID] {
			continue
		}
		r.seen[it.ID] = true
		r.order = append(r.order, it.ID)
	}
	for len(r.order) > r.limit {
		delete(r.seen, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *recentRing) snapshot() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.seen))
	for id := range r.seen {
		out[id] = true
	}
	return out
}
