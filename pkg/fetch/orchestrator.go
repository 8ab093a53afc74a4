package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/boonscroll/pkg/domain"
)

// Orchestrator fans a batch of query configs out to their adapters in
// parallel. Failures, timeouts and panics inside a single adapter never fail
// the whole fetch; they turn into warnings and the rest of the results come
// back as usual.
type Orchestrator struct {
	registry       *Registry
	normalizer     *Normalizer
	maxConcurrency int
	defaultTimeout time.Duration
	timeouts       map[string]time.Duration
}

// OrchestratorConfig holds dependencies and limits for the orchestrator
type OrchestratorConfig struct {
	Registry       *Registry
	Normalizer     *Normalizer
	MaxConcurrency int                      // parallel source workers, default 16
	DefaultTimeout time.Duration            // per-source budget, default 5s
	Timeouts       map[string]time.Duration // per source type overrides
}

// NewOrchestrator creates an orchestrator with the provided configuration
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 16
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 5 * time.Second
	}
	normalizer := cfg.Normalizer
	if normalizer == nil {
		normalizer = NewNormalizer()
	}
	return &Orchestrator{
		registry:       cfg.Registry,
		normalizer:     normalizer,
		maxConcurrency: cfg.MaxConcurrency,
		defaultTimeout: cfg.DefaultTimeout,
		timeouts:       cfg.Timeouts,
	}
}

type fetchResult struct {
	items   []domain.FeedItem
	warning string
}

// Fetch runs one worker per config passing the filter, bounded by the
// concurrency ceiling. Items come back normalized and deduplicated by id in
// config order; warnings name each source that produced none. Cancelling
// the context stops in-flight adapters and returns whatever has arrived.
func (o *Orchestrator) Fetch(ctx context.Context, configs []domain.QueryConfig, filter *domain.Filter) ([]domain.FeedItem, []string) {
	selected := make([]domain.QueryConfig, 0, len(configs))
	for _, q := range configs {
		if filter.MatchesQuery(q) {
			selected = append(selected, q)
		}
	}
	if len(selected) == 0 {
		return nil, nil
	}

	results := make([]fetchResult, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrency)
	for i, q := range selected {
		g.Go(func() error {
			results[i] = o.fetchOne(gctx, q, filter)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, isolation happens per slot

	var items []domain.FeedItem
	var warnings []string
	seen := make(map[string]struct{})
	for _, res := range results {
		if res.warning != "" {
			warnings = append(warnings, res.warning)
		}
		for _, item := range res.items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			items = append(items, item)
		}
	}

	if ctx.Err() != nil {
		warnings = append(warnings, "cancelled")
	}

	lgr.Printf("[DEBUG] fetched %d items from %d sources, %d warnings", len(items), len(selected), len(warnings))
	return items, warnings
}

// fetchOne runs a single adapter under its own timeout, converting every
// failure mode into a warning
func (o *Orchestrator) fetchOne(ctx context.Context, q domain.QueryConfig, filter *domain.Filter) (res fetchResult) {
	adapter, ok := o.registry.Get(q.Type)
	if !ok {
		res.warning = fmt.Sprintf("source %s: no adapter for type %q", q.Name, q.Type)
		return res
	}

	// push subsource restrictions into capable adapters, post-filter the rest
	var postFilter []string
	if filter != nil && filter.Kind == domain.FilterSource && len(filter.Subsources) > 0 {
		if adapter.Supports(CapSubsourceFilter) {
			q = q.WithParam(domain.SubsourceFilterParam, filter.Subsources)
		} else {
			postFilter = filter.Subsources
		}
	}

	timeout := o.timeoutFor(q.Type)
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			res = fetchResult{warning: fmt.Sprintf("source %s: adapter panicked: %v", q.Name, p)}
		}
	}()

	raw, err := adapter.FetchItems(fctx, q)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(fctx.Err(), context.DeadlineExceeded) {
			res.warning = fmt.Sprintf("source %s: timed out after %s", q.Name, timeout)
			return res
		}
		res.warning = fmt.Sprintf("source %s: %v", q.Name, err)
		return res
	}

	items := o.normalizer.Normalize(raw, q, postFilter)
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	res.items = items
	return res
}

func (o *Orchestrator) timeoutFor(sourceType string) time.Duration {
	if t, ok := o.timeouts[sourceType]; ok && t > 0 {
		return t
	}
	return o.defaultTimeout
}
