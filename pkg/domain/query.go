package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SubsourceFilterParam is the params key the orchestrator injects when the
// request narrows a source to specific subsources. Adapters that support
// subsource filtering honor it; for the rest the normalizer post-filters.
const SubsourceFilterParam = "subsourceFilter"

// QueryConfig describes one household source definition, loaded from a file
// in the query directory. Params stay opaque to the core; adapters validate
// their own.
type QueryConfig struct {
	Name     string         `yaml:"-" json:"name"` // derived from the filename
	Type     string         `yaml:"type" json:"type"`
	Tier     Tier           `yaml:"tier" json:"tier"`
	Priority int            `yaml:"priority" json:"priority,omitempty"`
	Limit    int            `yaml:"limit" json:"limit"`
	Params   map[string]any `yaml:"params" json:"params,omitempty"`
}

// Validate checks the fields the core consumes
func (q *QueryConfig) Validate() error {
	if q.Type == "" {
		return fmt.Errorf("query %s: type is required", q.Name)
	}
	if !q.Tier.Valid() {
		return fmt.Errorf("query %s: tier %q is not one of wire, library, scrapbook, compass", q.Name, q.Tier)
	}
	if q.Limit <= 0 {
		return fmt.Errorf("query %s: limit must be positive, got %d", q.Name, q.Limit)
	}
	if q.Priority < 0 {
		return fmt.Errorf("query %s: priority must be non-negative, got %d", q.Name, q.Priority)
	}
	return nil
}

// WithParam returns a copy of the config with one extra param set. The
// original params map is not mutated.
func (q QueryConfig) WithParam(key string, value any) QueryConfig {
	params := make(map[string]any, len(q.Params)+1)
	for k, v := range q.Params {
		params[k] = v
	}
	params[key] = value
	q.Params = params
	return q
}

// StringParam returns a string param, empty when absent
func (q *QueryConfig) StringParam(key string) string {
	if v, ok := q.Params[key].(string); ok {
		return v
	}
	return ""
}

// IntParam returns an integer param, def when absent or malformed
func (q *QueryConfig) IntParam(key string, def int) int {
	switch v := q.Params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// FloatParam returns a float param, def when absent or malformed
func (q *QueryConfig) FloatParam(key string, def float64) float64 {
	switch v := q.Params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// StringsParam returns a list-valued param. Accepts a YAML sequence or a
// comma-separated string; returns nil when absent.
func (q *QueryConfig) StringsParam(key string) []string {
	switch v := q.Params[key].(type) {
	case []string:
		return v
	case []any:
		res := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok && s != "" {
				res = append(res, s)
			}
		}
		return res
	case string:
		if v == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		res := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				res = append(res, p)
			}
		}
		return res
	}
	return nil
}
