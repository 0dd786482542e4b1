package store

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
)

// FieldCount is one value with its occurrence count.
type FieldCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Stats summarizes the published generation.
type Stats struct {
	Generation          uint64       `json:"generation"`
	GoldenRecords       int          `json:"golden_records"`
	MemberRecords       int          `json:"member_records"`
	PairScores          int          `json:"pair_scores"`
	Singletons          int          `json:"singletons"`
	MultiSourceClusters int          `json:"multi_source_clusters"`
	LargestClusterSize  int          `json:"largest_cluster_size"`
	SizeDistribution    map[int]int  `json:"size_distribution"`
	TopManufacturers    []FieldCount `json:"top_manufacturers,omitempty"`
}

// topManufacturerCount bounds the manufacturer leaderboard in Stats.
const topManufacturerCount = 10

// Stats scans the published generation and aggregates cluster shape metrics.
// An empty store reports generation 0 and all-zero counts.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	gen, err := s.CurrentGeneration()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Generation:       gen,
		SizeDistribution: make(map[int]int),
	}
	if gen == 0 {
		return stats, nil
	}

	manufacturers := make(map[string]int)
	goldPrefix := []byte(genPrefix(gen) + "gold:")

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = goldPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(goldPrefix); it.ValidForPrefix(goldPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var golden domain.GoldenRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &golden)
			})
			if err != nil {
				return err
			}

			stats.GoldenRecords++
			stats.MemberRecords += golden.Size
			stats.SizeDistribution[golden.Size]++
			if golden.Size == 1 {
				stats.Singletons++
			}
			if golden.Size > stats.LargestClusterSize {
				stats.LargestClusterSize = golden.Size
			}
			if len(golden.SourceKeys) > 1 {
				stats.MultiSourceClusters++
			}
			if golden.Representative.Manufacturer != "" {
				manufacturers[golden.Representative.Manufacturer]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "scan golden records")
	}

	stats.PairScores, err = s.countPrefix(ctx, genPrefix(gen)+"pair:")
	if err != nil {
		return nil, err
	}

	stats.TopManufacturers = topCounts(manufacturers, topManufacturerCount)
	return stats, nil
}

// countPrefix counts keys under a prefix without loading values.
func (s *Store) countPrefix(ctx context.Context, prefix string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "count %s", prefix)
	}
	return count, nil
}

// topCounts returns the n most frequent values, count descending with ties
// in value order.
func topCounts(counts map[string]int, n int) []FieldCount {
	out := make([]FieldCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, FieldCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
