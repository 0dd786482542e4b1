package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
)

// GetGoldenRecord returns one golden record from the published generation.
func (s *Store) GetGoldenRecord(ctx context.Context, goldenID string) (*domain.GoldenRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gen, err := s.CurrentGeneration()
	if err != nil {
		return nil, err
	}
	if gen == 0 {
		return nil, domainerrors.NotFound("no published run")
	}

	var golden domain.GoldenRecord
	if err := s.get(goldKey(gen, goldenID), &golden, "golden record "+goldenID+" not found"); err != nil {
		return nil, err
	}
	return &golden, nil
}

// GoldenForRecord returns the golden record a source record belongs to.
func (s *Store) GoldenForRecord(ctx context.Context, recordID string) (*domain.GoldenRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gen, err := s.CurrentGeneration()
	if err != nil {
		return nil, err
	}
	if gen == 0 {
		return nil, domainerrors.NotFound("no published run")
	}

	goldenID, err := s.getString(memberKey(gen, recordID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domainerrors.NotFoundf("record %s is not in any cluster", recordID)
	}
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "resolve member %s", recordID)
	}

	var golden domain.GoldenRecord
	if err := s.get(goldKey(gen, goldenID), &golden, "golden record "+goldenID+" not found"); err != nil {
		return nil, err
	}
	return &golden, nil
}

// GetPairScore returns the cached score for a pair from the published
// generation. The two ids may arrive in either order.
func (s *Store) GetPairScore(ctx context.Context, idA, idB string) (*domain.PairScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gen, err := s.CurrentGeneration()
	if err != nil {
		return nil, err
	}
	if gen == 0 {
		return nil, domainerrors.NotFound("no published run")
	}

	pair := domain.NewCandidatePair(idA, idB)
	var score domain.PairScore
	if err := s.get(pairKey(gen, pair.Key()), &score, "no cached score for pair "+pair.Key()); err != nil {
		return nil, err
	}
	return &score, nil
}

// AllGoldenRecords returns every golden record in the published generation in
// id order. Used by the search indexer, which needs the complete set; paging
// callers use ListGoldenRecords.
func (s *Store) AllGoldenRecords(ctx context.Context) ([]*domain.GoldenRecord, error) {
	gen, err := s.CurrentGeneration()
	if err != nil {
		return nil, err
	}
	if gen == 0 {
		return nil, nil
	}

	var all []*domain.GoldenRecord
	prefix := []byte(genPrefix(gen) + "gold:")

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
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
			all = append(all, &golden)
		}
		return nil
	})
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "scan golden records")
	}
	return all, nil
}

// ListGoldenRecords pages through the published generation's golden records
// in id order. The returned cursor continues from the last item.
func (s *Store) ListGoldenRecords(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.GoldenRecord], error) {
	params.Validate()

	after, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, domainerrors.InvalidArgument("invalid cursor")
	}

	gen, err := s.CurrentGeneration()
	if err != nil {
		return nil, err
	}

	result := &PaginatedResult[*domain.GoldenRecord]{Items: []*domain.GoldenRecord{}}
	if gen == 0 {
		return result, nil
	}

	prefix := []byte(genPrefix(gen) + "gold:")
	var lastKey string

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		start := prefix
		if after != "" {
			start = []byte(after)
		}

		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			key := string(it.Item().Key())
			// The cursor names the last key already returned.
			if after != "" && key == after {
				continue
			}

			if len(result.Items) == params.Limit {
				result.HasMore = true
				return nil
			}

			var golden domain.GoldenRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &golden)
			})
			if err != nil {
				return err
			}
			result.Items = append(result.Items, &golden)
			lastKey = key
		}
		return nil
	})
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "list golden records")
	}

	if result.HasMore {
		result.NextCursor = EncodeCursor(lastKey)
	}
	return result, nil
}
