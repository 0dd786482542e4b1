package source

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
)

// SQL driver names accepted by OpenSQL.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// DefaultTable is the catalog table queried when none is configured.
const DefaultTable = "records"

// Table names are interpolated into queries, so they are restricted to plain
// identifiers.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQL reads catalog records from a relational table with the fixed columns
// id, source_key, manufacturer, part_number, title, description, unspsc,
// gtin. The optional columns may be NULL.
type SQL struct {
	db       *sql.DB
	driver   string
	table    string
	queryAll string
	queryOne string
}

// OpenSQL connects to a catalog database. The driver is sqlite (default) or
// pgx; the table defaults to DefaultTable.
func OpenSQL(driver, dsn, table string) (*SQL, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, domainerrors.InvalidArgumentf("unknown sql driver %q", driver)
	}
	if dsn == "" {
		return nil, domainerrors.InvalidArgument("sql source requires a dsn")
	}
	if table == "" {
		table = DefaultTable
	}
	if !identPattern.MatchString(table) {
		return nil, domainerrors.InvalidArgumentf("invalid table name %q", table)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "open %s source", driver)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "configure sqlite source")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "ping %s source", driver)
	}

	columns := "id, source_key, manufacturer, part_number, title, description, unspsc, gtin"
	return &SQL{
		db:       db,
		driver:   driver,
		table:    table,
		queryAll: fmt.Sprintf("SELECT %s FROM %s ORDER BY id", columns, table),
		queryOne: fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", columns, table, placeholder(driver, 1)),
	}, nil
}

// Close releases the database connection pool.
func (s *SQL) Close() error {
	return s.db.Close()
}

// IterateAll streams the catalog ordered by id.
func (s *SQL) IterateAll(ctx context.Context) iter.Seq2[*domain.Record, error] {
	return func(yield func(*domain.Record, error) bool) {
		rows, err := s.db.QueryContext(ctx, s.queryAll)
		if err != nil {
			yield(nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "query catalog"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				yield(nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "scan catalog row"))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "read catalog"))
		}
	}
}

// Get returns one record by id.
func (s *SQL) Get(ctx context.Context, id string) (*domain.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, s.queryOne, id))
	if err == sql.ErrNoRows {
		return nil, domainerrors.NotFoundf("record %s not found", id)
	}
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "get record %s", id)
	}
	return rec, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.Record, error) {
	var rec domain.Record
	var skey, title, description, unspsc, gtin sql.NullString
	if err := row.Scan(&rec.ID, &skey, &rec.ManufacturerRaw, &rec.PartNumberRaw, &title, &description, &unspsc, &gtin); err != nil {
		return nil, err
	}
	rec.SourceKey = skey.String
	rec.Title = title.String
	rec.Description = description.String
	rec.UNSPSC = unspsc.String
	rec.GTIN = gtin.String
	return &rec, nil
}

// placeholder renders the n-th query parameter for the driver's dialect.
func placeholder(driver string, n int) string {
	if driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
