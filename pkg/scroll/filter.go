package scroll

import (
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/boonscroll/pkg/domain"
)

// SourceTypes reports which adapter types are registered
type SourceTypes interface {
	Has(sourceType string) bool
}

// Resolver turns filter expressions like "reddit", "reddit:golang,rust" or
// "frontpage" into concrete filters. An expression that resolves to nothing
// degrades to the unfiltered view.
type Resolver struct {
	sources SourceTypes
}

// NewResolver makes a resolver backed by the registered source types
func NewResolver(sources SourceTypes) *Resolver {
	return &Resolver{sources: sources}
}

// Resolve walks the expression through tier name, source type, query name and
// recipe alias, in that order. Aliases expand and re-enter the chain at the
// source step; a visited set breaks alias cycles. Unresolvable expressions
// return nil, which callers treat as no filter.
func (r *Resolver) Resolve(expr string, queries []domain.QueryConfig, aliases map[string]string) *domain.Filter {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}

	head, rest := splitExpr(expr)
	if tier, err := domain.ParseTier(head); err == nil {
		return &domain.Filter{Kind: domain.FilterTier, Tier: tier}
	}

	visited := map[string]bool{}
	for {
		if r.sources != nil && r.sources.Has(head) {
			return &domain.Filter{Kind: domain.FilterSource, SourceType: head, Subsources: rest}
		}
		if len(rest) == 0 {
			for _, q := range queries {
				if q.Name == head {
					return &domain.Filter{Kind: domain.FilterQuery, QueryName: head}
				}
			}
		}
		target, ok := aliases[head]
		if !ok || visited[head] {
			lgr.Printf("[WARN] filter expression %q did not resolve, serving unfiltered", expr)
			return nil
		}
		visited[head] = true
		aliasHead, aliasRest := splitExpr(target)
		head = aliasHead
		if len(rest) == 0 { // explicit subsources on the request win over the alias's own
			rest = aliasRest
		}
	}
}

// splitExpr cuts an expression at the first colon into a head token and a
// comma-separated subsource list
func splitExpr(expr string) (head string, rest []string) {
	head, tail, found := strings.Cut(expr, ":")
	head = strings.TrimSpace(head)
	if !found {
		return head, nil
	}
	for _, part := range strings.Split(tail, ",") {
		if part = strings.TrimSpace(part); part != "" {
			rest = append(rest, part)
		}
	}
	return head, rest
}
