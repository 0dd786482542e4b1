// Package blocking partitions records into candidate buckets so pairwise
// scoring stays far below the full O(n²) cross product. Records sharing a
// blocking key are scored against each other; records in different buckets
// are never compared.
package blocking

import (
	"slices"
	"strings"

	"github.com/productgraph/resolver/internal/alias"
	"github.com/productgraph/resolver/internal/domain"
	"github.com/productgraph/resolver/internal/normalize"
)

// OverflowKey designates the bucket for records carrying neither a usable
// manufacturer nor a usable UNSPSC code.
const OverflowKey = "__overflow__"

// Policy selects how the overflow bucket degrades once it exceeds the cap.
type Policy string

const (
	// PolicySample keeps a deterministic stride sample of the overflow
	// bucket's pairs.
	PolicySample Policy = "sample"
	// PolicySkip generates no pairs from an oversized overflow bucket.
	PolicySkip Policy = "skip"
)

// Config controls key construction and overflow degradation.
type Config struct {
	// UNSPSCPrefixLen is the number of UNSPSC digits in the composite key.
	// The default of 4 blocks at family granularity.
	UNSPSCPrefixLen int
	// OverflowCap is the overflow bucket size above which degradation kicks in.
	OverflowCap int
	// OverflowMaxPairs bounds the sampled pair count under PolicySample.
	OverflowMaxPairs int
	// OverflowPolicy picks the degradation behavior.
	OverflowPolicy Policy
}

// DefaultConfig returns the standard blocking configuration.
func DefaultConfig() Config {
	return Config{
		UNSPSCPrefixLen:  4,
		OverflowCap:      200,
		OverflowMaxPairs: 10000,
		OverflowPolicy:   PolicySample,
	}
}

// Bucket is one blocking partition: all records sharing a key, ordered by id.
type Bucket struct {
	Key     string
	Records []*domain.Record
}

// Stats describes one partitioning pass.
type Stats struct {
	Buckets       int    `json:"buckets"`
	Records       int    `json:"records"`
	LargestBucket int    `json:"largest_bucket"`
	LargestKey    string `json:"largest_key,omitempty"`
	OverflowSize  int    `json:"overflow_size"`
	Degraded      bool   `json:"degraded"`
}

// Blocker assigns records to buckets and enumerates candidate pairs.
type Blocker struct {
	cfg      Config
	resolver *alias.Resolver
}

// New builds a blocker. Zero-valued config fields fall back to the defaults.
func New(cfg Config, resolver *alias.Resolver) *Blocker {
	def := DefaultConfig()
	if cfg.UNSPSCPrefixLen <= 0 {
		cfg.UNSPSCPrefixLen = def.UNSPSCPrefixLen
	}
	if cfg.OverflowCap <= 0 {
		cfg.OverflowCap = def.OverflowCap
	}
	if cfg.OverflowMaxPairs <= 0 {
		cfg.OverflowMaxPairs = def.OverflowMaxPairs
	}
	if cfg.OverflowPolicy == "" {
		cfg.OverflowPolicy = def.OverflowPolicy
	}
	if resolver == nil {
		resolver = alias.NewResolver(nil, 0)
	}
	return &Blocker{cfg: cfg, resolver: resolver}
}

// Key returns the blocking key for a record: canonical manufacturer plus
// UNSPSC prefix when both are present, either one alone otherwise, and the
// overflow key when the record carries neither signal. Canonical
// manufacturers never contain "|", so the three key shapes cannot collide.
func (b *Blocker) Key(rec *domain.Record) string {
	mfr := b.resolver.Resolve(rec.ManufacturerRaw)

	var prefix string
	if code, ok := normalize.CleanUNSPSC(rec.UNSPSC); ok {
		prefix = normalize.UNSPSCPrefix(code, b.cfg.UNSPSCPrefixLen)
	}

	switch {
	case mfr != "" && prefix != "":
		return mfr + "|" + prefix
	case mfr != "":
		return mfr
	case prefix != "":
		return "|" + prefix
	default:
		return OverflowKey
	}
}

// Partition groups records into buckets. Buckets come back sorted by key and
// each bucket's records sorted by id, so the same input always produces the
// same partitioning.
func (b *Blocker) Partition(records []*domain.Record) ([]Bucket, Stats) {
	grouped := make(map[string][]*domain.Record)
	for _, rec := range records {
		key := b.Key(rec)
		grouped[key] = append(grouped[key], rec)
	}

	buckets := make([]Bucket, 0, len(grouped))
	for key, recs := range grouped {
		slices.SortFunc(recs, func(a, b *domain.Record) int {
			return strings.Compare(a.ID, b.ID)
		})
		buckets = append(buckets, Bucket{Key: key, Records: recs})
	}
	slices.SortFunc(buckets, func(a, b Bucket) int {
		return strings.Compare(a.Key, b.Key)
	})

	stats := Stats{Buckets: len(buckets), Records: len(records)}
	for _, bucket := range buckets {
		if len(bucket.Records) > stats.LargestBucket {
			stats.LargestBucket = len(bucket.Records)
			stats.LargestKey = bucket.Key
		}
		if bucket.Key == OverflowKey {
			stats.OverflowSize = len(bucket.Records)
		}
	}
	stats.Degraded = stats.OverflowSize > b.cfg.OverflowCap

	return buckets, stats
}

// Pairs enumerates the candidate pairs of one bucket, each ordered IDA < IDB.
// An overflow bucket past the cap degrades per the configured policy; every
// other bucket is exhaustive.
func (b *Blocker) Pairs(bucket Bucket) []domain.CandidatePair {
	n := len(bucket.Records)
	if n < 2 {
		return nil
	}

	if bucket.Key == OverflowKey && n > b.cfg.OverflowCap {
		if b.cfg.OverflowPolicy == PolicySkip {
			return nil
		}
		return b.samplePairs(bucket.Records)
	}

	return allPairs(bucket.Records)
}

func allPairs(records []*domain.Record) []domain.CandidatePair {
	n := len(records)
	pairs := make([]domain.CandidatePair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if records[i].ID == records[j].ID {
				continue
			}
			pairs = append(pairs, domain.NewCandidatePair(records[i].ID, records[j].ID))
		}
	}
	return pairs
}

// samplePairs walks the full pair sequence in canonical order and keeps every
// stride-th pair, landing at or under OverflowMaxPairs. Sorted input makes
// the sample reproducible across runs.
func (b *Blocker) samplePairs(records []*domain.Record) []domain.CandidatePair {
	n := len(records)
	total := n * (n - 1) / 2
	if total <= b.cfg.OverflowMaxPairs {
		return allPairs(records)
	}

	stride := (total + b.cfg.OverflowMaxPairs - 1) / b.cfg.OverflowMaxPairs
	pairs := make([]domain.CandidatePair, 0, b.cfg.OverflowMaxPairs)
	idx := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if idx%stride == 0 && records[i].ID != records[j].ID {
				pairs = append(pairs, domain.NewCandidatePair(records[i].ID, records[j].ID))
			}
			idx++
		}
	}
	return pairs
}
