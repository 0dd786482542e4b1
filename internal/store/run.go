package store

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
)

// SaveRunSummary records the most recent run. Called after a successful
// commit; not part of the staged generation.
func (s *Store) SaveRunSummary(ctx context.Context, summary *domain.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "encode run summary")
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(metaLastRunKey), data)
	})
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "save run summary")
	}
	return nil
}

// LastRunSummary returns the most recently saved run, or not_found when no
// run has completed.
func (s *Store) LastRunSummary(ctx context.Context) (*domain.RunSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var summary domain.RunSummary
	if err := s.get([]byte(metaLastRunKey), &summary, "no completed runs"); err != nil {
		return nil, err
	}
	return &summary, nil
}
