// Package source provides read access to vendor catalog records. A source is
// the system of record for product rows; the engine and query layer never
// mutate what it yields.
package source

import (
	"context"
	"iter"
	"strings"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
)

// Source yields vendor catalog records. Implementations must return the same
// records in the same order on every IterateAll call over unchanged input;
// the resolution pipeline's idempotence depends on it.
type Source interface {
	// IterateAll yields every record in the catalog. Iteration stops early
	// when the context is cancelled, yielding the context error.
	IterateAll(ctx context.Context) iter.Seq2[*domain.Record, error]

	// Get returns the record with the given id, or a not_found error.
	Get(ctx context.Context, id string) (*domain.Record, error)
}

// Backend types accepted by Open.
const (
	TypeCSV    = "csv"
	TypeXLSX   = "xlsx"
	TypeSQL    = "sql"
	TypeMemory = "memory"
)

// Config selects and parameterizes a catalog backend.
type Config struct {
	// Type is one of csv, xlsx, or sql.
	Type string
	// Path locates the catalog file for csv and xlsx backends.
	Path string
	// DSN is the connection string for the sql backend.
	DSN string
	// Driver selects the sql driver: sqlite (default) or pgx.
	Driver string
	// Table is the catalog table for the sql backend, default "records".
	Table string
	// Sheet names the worksheet for the xlsx backend, default first sheet.
	Sheet string
}

// Open constructs the backend the config names. Callers that need to release
// resources should type-assert the result against io.Closer; file-backed
// sources load eagerly and hold nothing open.
func Open(cfg Config) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case TypeCSV:
		return OpenCSV(cfg.Path)
	case TypeXLSX:
		return OpenXLSX(cfg.Path, cfg.Sheet)
	case TypeSQL:
		return OpenSQL(cfg.Driver, cfg.DSN, cfg.Table)
	case "":
		return nil, domainerrors.InvalidArgument("source type is required")
	default:
		return nil, domainerrors.InvalidArgumentf("unknown source type %q", cfg.Type)
	}
}

// Memory is an in-memory source. File-backed sources load into one of these;
// tests and tooling construct them directly.
type Memory struct {
	records []*domain.Record
	byID    map[string]*domain.Record
}

// NewMemory builds a source over the given records. Iteration order follows
// the slice. Records with duplicate ids are rejected because downstream
// stages key on the id.
func NewMemory(records []*domain.Record) (*Memory, error) {
	m := &Memory{
		records: make([]*domain.Record, 0, len(records)),
		byID:    make(map[string]*domain.Record, len(records)),
	}
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if rec.ID == "" {
			return nil, domainerrors.InvalidArgument("record with empty id")
		}
		if _, ok := m.byID[rec.ID]; ok {
			return nil, domainerrors.Conflictf("duplicate record id %q", rec.ID)
		}
		m.records = append(m.records, rec)
		m.byID[rec.ID] = rec
	}
	return m, nil
}

// Len returns the number of records in the source.
func (m *Memory) Len() int {
	return len(m.records)
}

// IterateAll yields records in their load order.
func (m *Memory) IterateAll(ctx context.Context) iter.Seq2[*domain.Record, error] {
	return func(yield func(*domain.Record, error) bool) {
		for _, rec := range m.records {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Get returns the record with the given id.
func (m *Memory) Get(_ context.Context, id string) (*domain.Record, error) {
	rec, ok := m.byID[id]
	if !ok {
		return nil, domainerrors.NotFoundf("record %s not found", id)
	}
	return rec, nil
}
