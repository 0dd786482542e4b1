package store

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
)

// The store is a staging sink: WritePairScores and WriteGoldenRecords land
// under the next generation's prefix, invisible to readers until Commit
// flips the published pointer. A run that never commits leaves the published
// generation untouched.

// begin opens staging for a run if not already open. Stale keys under the
// staging prefix (from a previously aborted run) are cleared first.
func (s *Store) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staged {
		return nil
	}

	current, err := s.CurrentGeneration()
	if err != nil {
		return err
	}
	s.staging = current + 1

	if err := s.deletePrefix(genPrefix(s.staging)); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "clear staging generation")
	}
	s.staged = true
	return nil
}

// stagingGen returns the active staging generation.
func (s *Store) stagingGen() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staging, s.staged
}

// WritePairScores stages the scored pairs for the run being built.
func (s *Store) WritePairScores(ctx context.Context, scores []*domain.PairScore) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.begin(); err != nil {
		return err
	}
	gen, _ := s.stagingGen()

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, score := range scores {
		data, err := json.Marshal(score)
		if err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeInternal, "encode pair %s", score.Pair().Key())
		}
		if err := wb.Set(pairKey(gen, score.Pair().Key()), data); err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "stage pair %s", score.Pair().Key())
		}
	}
	if err := wb.Flush(); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "flush staged pairs")
	}
	return nil
}

// WriteGoldenRecords stages the golden records and the member reverse
// mapping for the run being built.
func (s *Store) WriteGoldenRecords(ctx context.Context, golden []*domain.GoldenRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.begin(); err != nil {
		return err
	}
	gen, _ := s.stagingGen()

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, g := range golden {
		// Stamp the stored copy with its generation; the caller's record
		// stays untouched because other sinks see it too.
		stamped := *g
		stamped.Generation = gen

		data, err := json.Marshal(&stamped)
		if err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeInternal, "encode golden %s", g.ID)
		}
		if err := wb.Set(goldKey(gen, g.ID), data); err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "stage golden %s", g.ID)
		}
		for _, member := range g.MemberIDs {
			if err := wb.Set(memberKey(gen, member), []byte(g.ID)); err != nil {
				return domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "stage member %s", member)
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "flush staged golden records")
	}
	return nil
}

// Commit publishes the staged generation by flipping the meta pointer in one
// transaction, then drops the previous generation. A failure before the flip
// leaves the previous generation published.
func (s *Store) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.staged {
		return nil
	}

	previous := s.staging - 1
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(metaGenerationKey), []byte(strconv.FormatUint(s.staging, 10)))
	})
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "flip generation pointer")
	}
	s.staged = false

	if s.logger != nil {
		s.logger.Info("generation published", "generation", s.staging)
	}

	// The old generation is unreachable once the pointer flipped; deletion
	// failures only cost space and the startup sweep retries them.
	if previous > 0 {
		if err := s.deletePrefix(genPrefix(previous)); err != nil && s.logger != nil {
			s.logger.Warn("failed to drop previous generation", "generation", previous, "error", err)
		}
	}
	return nil
}

// Abort discards the staged generation.
func (s *Store) Abort(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.staged {
		return nil
	}
	s.staged = false

	if err := s.deletePrefix(genPrefix(s.staging)); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "discard staged generation")
	}
	if s.logger != nil {
		s.logger.Info("staged generation discarded", "generation", s.staging)
	}
	return nil
}
