package fetch

import (
	"context"
	"sort"
	"sync"

	"github.com/umputun/boonscroll/pkg/domain"
)

//go:generate moq -out mocks/adapter.go -pkg mocks -skip-ensure -fmt goimports . Adapter
//go:generate moq -out mocks/read_marker.go -pkg mocks -skip-ensure -fmt goimports . ReadMarker

// CapSubsourceFilter is the capability an adapter declares when it can
// restrict results to requested subsources itself. Without it the
// normalizer post-filters. The value doubles as the params key carrying
// the requested subsources into the adapter.
const CapSubsourceFilter = domain.SubsourceFilterParam

// Adapter fetches raw items for one query config. Implementations own all
// network specifics; the orchestrator owns timeouts and isolation.
type Adapter interface {
	FetchItems(ctx context.Context, query domain.QueryConfig) ([]domain.RawItem, error)
	Supports(capability string) bool
}

// ReadMarker marks items read upstream, for sources that track read state
// on their side. Local ids are the part after "source:" in the item id.
type ReadMarker interface {
	MarkRead(ctx context.Context, localIDs []string) error
}

// Registry maps source types to adapters
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

// Register binds an adapter to a source type, replacing any previous binding
func (r *Registry) Register(sourceType string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[sourceType] = a
}

// Get returns the adapter for a source type
func (r *Registry) Get(sourceType string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[sourceType]
	return a, ok
}

// Has reports whether a source type is registered
func (r *Registry) Has(sourceType string) bool {
	_, ok := r.Get(sourceType)
	return ok
}

// ReadMarker returns the read-marking delegate for a source type when its
// adapter provides one
func (r *Registry) ReadMarker(sourceType string) (ReadMarker, bool) {
	a, ok := r.Get(sourceType)
	if !ok {
		return nil, false
	}
	rm, ok := a.(ReadMarker)
	return rm, ok
}

// Types returns all registered source types, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
