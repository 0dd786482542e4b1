// Package alias resolves raw manufacturer strings to canonical manufacturer
// identities. Resolution never fails: unknown manufacturers degrade to their
// own normalized form rather than an error.
package alias

import (
	"sort"
	"sync"

	"github.com/productgraph/resolver/internal/normalize"
	"github.com/productgraph/resolver/internal/similarity"
)

// DefaultThreshold is the Jaro-Winkler acceptance bar for fuzzy matches
// against known canonical identities. Set high so near-misses like typos
// resolve but genuinely distinct names never collapse.
const DefaultThreshold = 0.93

// Resolver maps raw manufacturer strings to canonical identities. Lookup
// order: exact table hit on the normalized form, then fuzzy match against
// known canonicals, then self-identity. Safe for concurrent use.
type Resolver struct {
	threshold float64
	table     map[string]string
	known     []string

	mu    sync.RWMutex
	cache map[string]string
}

// NewResolver builds a resolver from an alias table. Both canonical names
// and aliases are canonicalized on construction, so callers can supply them
// in any raw form. A nil or empty table is valid: every string then resolves
// to its own normalized identity. A non-positive threshold selects
// DefaultThreshold.
func NewResolver(table Table, threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	r := &Resolver{
		threshold: threshold,
		table:     make(map[string]string),
		cache:     make(map[string]string),
	}

	// Deterministic construction: canonical names in sorted order, first
	// mapping for a contested alias wins.
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		canonical := normalize.Manufacturer(name)
		if canonical == "" {
			continue
		}
		if _, ok := r.table[canonical]; !ok {
			r.table[canonical] = canonical
			r.known = append(r.known, canonical)
		}
		for _, a := range table[name] {
			key := normalize.Manufacturer(a)
			if key == "" {
				continue
			}
			if _, ok := r.table[key]; !ok {
				r.table[key] = canonical
			}
		}
	}
	sort.Strings(r.known)

	return r
}

// Resolve returns the canonical identity for a raw manufacturer string.
// Results are cached for the lifetime of the resolver; concurrent misses for
// the same raw string compute the same value, so racing writers are benign.
func (r *Resolver) Resolve(raw string) string {
	r.mu.RLock()
	cached, ok := r.cache[raw]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	canonical := r.resolve(raw)

	r.mu.Lock()
	r.cache[raw] = canonical
	r.mu.Unlock()
	return canonical
}

// Entries returns the number of alias mappings the resolver holds, counting
// canonical self-mappings.
func (r *Resolver) Entries() int {
	return len(r.table)
}

func (r *Resolver) resolve(raw string) string {
	norm := normalize.Manufacturer(raw)
	if norm == "" {
		return ""
	}

	if canonical, ok := r.table[norm]; ok {
		return canonical
	}

	// Fuzzy stage: best Jaro-Winkler against known canonicals, accepted only
	// at or above the threshold. Ties resolve to the lexicographically first
	// canonical because the scan order is sorted.
	if len(r.known) > 0 {
		best, bestScore := "", 0.0
		for _, c := range r.known {
			if s := similarity.JaroWinkler(norm, c); s > bestScore {
				best, bestScore = c, s
			}
		}
		if bestScore >= r.threshold {
			return best
		}
	}

	return norm
}
