// Package cluster builds golden records from scored pairs. Records connected
// by any chain of edges at or above the threshold merge into one cluster;
// transitive closure is deliberate, so a-b and b-c above threshold place all
// three together even when a-c alone would not qualify.
package cluster

import (
	"slices"
	"strings"
	"time"

	"github.com/productgraph/resolver/internal/alias"
	"github.com/productgraph/resolver/internal/domain"
	"github.com/productgraph/resolver/internal/id"
	"github.com/productgraph/resolver/internal/normalize"
)

// DefaultThreshold is the overall score at or above which a pair becomes a
// cluster edge.
const DefaultThreshold = 0.60

// Clusterer turns records plus pair scores into golden records.
type Clusterer struct {
	threshold float64
	resolver  *alias.Resolver
}

// New builds a clusterer. A non-positive threshold selects DefaultThreshold;
// a nil resolver gets a self-identity resolver for representative fields.
func New(threshold float64, resolver *alias.Resolver) *Clusterer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if resolver == nil {
		resolver = alias.NewResolver(nil, 0)
	}
	return &Clusterer{threshold: threshold, resolver: resolver}
}

// Threshold returns the active cluster threshold.
func (c *Clusterer) Threshold() float64 {
	return c.threshold
}

// Cluster computes the connected components of the threshold graph and
// returns one golden record per component, sorted by golden id. Every input
// record appears in exactly one golden record; records without a qualifying
// edge form singletons. Identical input always produces identical ids,
// membership, and representatives.
func (c *Clusterer) Cluster(records []*domain.Record, scores []*domain.PairScore) []*domain.GoldenRecord {
	if len(records) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Record, len(records))
	uf := newUnionFind(len(records))
	for _, rec := range records {
		if _, ok := byID[rec.ID]; ok {
			continue
		}
		byID[rec.ID] = rec
		uf.add(rec.ID)
	}

	for _, score := range scores {
		if score.OverallScore < c.threshold {
			continue
		}
		// Edges referencing records outside this run carry no information.
		if _, ok := byID[score.IDA]; !ok {
			continue
		}
		if _, ok := byID[score.IDB]; !ok {
			continue
		}
		uf.union(score.IDA, score.IDB)
	}

	components := make(map[string][]*domain.Record)
	for recID, rec := range byID {
		root := uf.find(recID)
		components[root] = append(components[root], rec)
	}

	now := time.Now().UTC()
	golden := make([]*domain.GoldenRecord, 0, len(components))
	for _, members := range components {
		slices.SortFunc(members, func(a, b *domain.Record) int {
			return strings.Compare(a.ID, b.ID)
		})

		memberIDs := make([]string, len(members))
		for i, m := range members {
			memberIDs[i] = m.ID
		}

		golden = append(golden, &domain.GoldenRecord{
			ID:             id.Golden(memberIDs),
			Representative: c.representative(members),
			MemberIDs:      memberIDs,
			SourceKeys:     sourceKeys(members),
			Size:           len(members),
			CreatedAt:      now,
		})
	}

	slices.SortFunc(golden, func(a, b *domain.GoldenRecord) int {
		return strings.Compare(a.ID, b.ID)
	})
	return golden
}

// representative selects one value per field. Title and description take the
// longest non-empty value, identifier-like fields the most frequent
// non-empty value; all ties resolve toward the lowest member id because
// members arrive sorted.
func (c *Clusterer) representative(members []*domain.Record) domain.Representative {
	return domain.Representative{
		Manufacturer: frequentValue(members, func(r *domain.Record) string {
			return c.resolver.Resolve(r.ManufacturerRaw)
		}),
		PartNumber: frequentValue(members, func(r *domain.Record) string {
			return normalize.Normalize(r.PartNumberRaw)
		}),
		Title: longestValue(members, func(r *domain.Record) string {
			return strings.TrimSpace(r.Title)
		}),
		Description: longestValue(members, func(r *domain.Record) string {
			return strings.TrimSpace(r.Description)
		}),
		UNSPSC: frequentValue(members, func(r *domain.Record) string {
			code, _ := normalize.CleanUNSPSC(r.UNSPSC)
			return code
		}),
		GTIN: frequentValue(members, func(r *domain.Record) string {
			g, _ := normalize.CleanGTIN(r.GTIN)
			return g
		}),
	}
}

func longestValue(members []*domain.Record, field func(*domain.Record) string) string {
	best := ""
	for _, m := range members {
		if v := field(m); len(v) > len(best) {
			best = v
		}
	}
	return best
}

func frequentValue(members []*domain.Record, field func(*domain.Record) string) string {
	type tally struct {
		count int
		first int
	}
	counts := make(map[string]*tally)
	for i, m := range members {
		v := field(m)
		if v == "" {
			continue
		}
		if e, ok := counts[v]; ok {
			e.count++
		} else {
			counts[v] = &tally{count: 1, first: i}
		}
	}

	best := ""
	var bestTally *tally
	for v, e := range counts {
		switch {
		case bestTally == nil,
			e.count > bestTally.count,
			e.count == bestTally.count && e.first < bestTally.first:
			best, bestTally = v, e
		}
	}
	return best
}

func sourceKeys(members []*domain.Record) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, m := range members {
		key := strings.TrimSpace(m.SourceKey)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// unionFind is a union-by-rank disjoint set with path compression over
// record ids.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind(capacity int) *unionFind {
	return &unionFind{
		parent: make(map[string]string, capacity),
		rank:   make(map[string]int, capacity),
	}
}

func (u *unionFind) add(x string) {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
}

func (u *unionFind) find(x string) string {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
