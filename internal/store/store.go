// Package store persists resolved output in Badger. All run output lives
// under generation-prefixed keys; a meta pointer names the published
// generation and is flipped in a single transaction, so readers always see a
// complete run or the previous one, never a mix.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"

	domainerrors "github.com/productgraph/resolver/internal/errors"
)

// Key layout. Golden records, the record-to-cluster member mapping, and pair
// scores are all scoped to a generation; only meta keys live outside one.
//
//	gen:<n>:gold:<goldenID>   -> domain.GoldenRecord (JSON)
//	gen:<n>:member:<recordID> -> golden id (raw)
//	gen:<n>:pair:<a>|<b>      -> domain.PairScore (JSON)
//	meta:generation           -> published generation (decimal)
//	meta:last_run             -> domain.RunSummary (JSON)
const (
	metaGenerationKey = "meta:generation"
	metaLastRunKey    = "meta:last_run"
)

func genPrefix(gen uint64) string {
	return "gen:" + strconv.FormatUint(gen, 10) + ":"
}

func goldKey(gen uint64, goldenID string) []byte {
	return []byte(genPrefix(gen) + "gold:" + goldenID)
}

func memberKey(gen uint64, recordID string) []byte {
	return []byte(genPrefix(gen) + "member:" + recordID)
}

func pairKey(gen uint64, pair string) []byte {
	return []byte(genPrefix(gen) + "pair:" + pair)
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Staging state for the run being written. Guarded by mu; reads never
	// touch it because they resolve the published generation per call.
	mu      sync.Mutex
	staged  bool
	staging uint64
}

// New opens the store at the given path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{db: db, logger: logger}

	// A crash between staging and commit leaves orphaned generations above
	// the published pointer; sweep them before accepting new runs.
	if err := s.sweepOrphans(); err != nil {
		db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("store opened", "path", path)
	}
	return s, nil
}

// NewReadOnly opens the store without write access: no orphan sweep, no
// staging. Inspection tooling uses this so it can never disturb a run.
func NewReadOnly(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.ReadOnly = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db read-only: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing store")
	}
	return s.db.Close()
}

// CurrentGeneration returns the published generation, 0 when no run has ever
// committed.
func (s *Store) CurrentGeneration() (uint64, error) {
	var gen uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaGenerationKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, err := strconv.ParseUint(string(val), 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt generation pointer %q: %w", val, err)
			}
			gen = parsed
			return nil
		})
	})
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "read generation pointer")
	}
	return gen, nil
}

// get unmarshals the value at key into dest, mapping a missing key to a
// not_found error with the given message.
func (s *Store) get(key []byte, dest any, notFound string) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domainerrors.NotFound(notFound)
	}
	if err != nil {
		return domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "get %s", key)
	}
	return nil
}

// getString returns the raw value at key, passing badger.ErrKeyNotFound
// through to the caller.
func (s *Store) getString(key []byte) (string, error) {
	var out string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	return out, err
}

// deletePrefix removes every key under the prefix.
func (s *Store) deletePrefix(prefix string) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// sweepOrphans deletes generations other than the published one, left behind
// by a crash mid-run.
func (s *Store) sweepOrphans() error {
	current, err := s.CurrentGeneration()
	if err != nil {
		return err
	}

	orphans := make(map[uint64]struct{})
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("gen:")
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte("gen:")); it.ValidForPrefix([]byte("gen:")); it.Next() {
			key := string(it.Item().Key())
			rest := key[len("gen:"):]
			for i := 0; i < len(rest); i++ {
				if rest[i] == ':' {
					gen, err := strconv.ParseUint(rest[:i], 10, 64)
					if err == nil && gen != current {
						orphans[gen] = struct{}{}
					}
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for gen := range orphans {
		if s.logger != nil {
			s.logger.Warn("sweeping orphaned generation", "generation", gen)
		}
		if err := s.deletePrefix(genPrefix(gen)); err != nil {
			return err
		}
	}
	return nil
}
