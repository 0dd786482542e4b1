package sink

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
)

//go:embed schema.sql
var schemaSQL string

// SQL driver names accepted by NewSQL.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// SQL replaces the previous run's output inside one transaction per run:
// the first write begins the transaction and clears the tables, Commit
// publishes, Abort rolls back. The golden_members table carries the
// record-to-cluster reverse mapping for direct SQL consumers.
type SQL struct {
	db     *sql.DB
	driver string
	tx     *sql.Tx
}

// NewSQL connects to the output database and ensures the schema exists. The
// driver is sqlite (default) or pgx.
func NewSQL(driver, dsn string) (*SQL, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, domainerrors.InvalidArgumentf("unknown sql driver %q", driver)
	}
	if dsn == "" {
		return nil, domainerrors.InvalidArgument("sql sink requires a dsn")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "open %s sink", driver)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA busy_timeout=5000",
		}
		for _, pragma := range pragmas {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "exec %q", pragma)
			}
		}
	}

	// Statements run one at a time; the pgx driver rejects multi-statement
	// Exec calls.
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "apply sink schema")
		}
	}

	return &SQL{db: db, driver: driver}, nil
}

// Close rolls back any uncommitted run and releases the connection pool.
func (s *SQL) Close() error {
	if s.tx != nil {
		s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}

// WritePairScores stages the scored pairs, replacing the previous run's rows.
func (s *SQL) WritePairScores(ctx context.Context, scores []*domain.PairScore) error {
	if err := s.begin(ctx); err != nil {
		return err
	}

	stmt, err := s.tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO pair_scores (id_a, id_b, overall_score, breakdown) VALUES (%s)",
		s.params(4),
	))
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "prepare pair insert")
	}
	defer stmt.Close()

	for _, score := range scores {
		breakdown, err := json.Marshal(score)
		if err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeInternal, "encode pair %s", score.Pair().Key())
		}
		if _, err := stmt.ExecContext(ctx, score.IDA, score.IDB, score.OverallScore, string(breakdown)); err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "insert pair %s", score.Pair().Key())
		}
	}
	return nil
}

// WriteGoldenRecords stages the golden records and their member mapping.
func (s *SQL) WriteGoldenRecords(ctx context.Context, golden []*domain.GoldenRecord) error {
	if err := s.begin(ctx); err != nil {
		return err
	}

	goldenStmt, err := s.tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO golden_records
			(id, manufacturer, part_number, title, description, unspsc, gtin, size, member_ids, source_keys, created_at)
		VALUES (%s)`,
		s.params(11),
	))
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "prepare golden insert")
	}
	defer goldenStmt.Close()

	memberStmt, err := s.tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO golden_members (record_id, golden_id) VALUES (%s)",
		s.params(2),
	))
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "prepare member insert")
	}
	defer memberStmt.Close()

	for _, g := range golden {
		memberIDs, err := json.Marshal(g.MemberIDs)
		if err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeInternal, "encode members of %s", g.ID)
		}
		sourceKeys, err := json.Marshal(g.SourceKeys)
		if err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeInternal, "encode source keys of %s", g.ID)
		}

		rep := g.Representative
		_, err = goldenStmt.ExecContext(ctx,
			g.ID, rep.Manufacturer, rep.PartNumber, rep.Title, rep.Description,
			rep.UNSPSC, rep.GTIN, g.Size, string(memberIDs), string(sourceKeys),
			g.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "insert golden %s", g.ID)
		}

		for _, member := range g.MemberIDs {
			if _, err := memberStmt.ExecContext(ctx, member, g.ID); err != nil {
				return domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "insert member %s", member)
			}
		}
	}
	return nil
}

// Commit publishes the staged run.
func (s *SQL) Commit(_ context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "commit run")
	}
	return nil
}

// Abort discards the staged run, restoring the previous run's rows.
func (s *SQL) Abort(_ context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "abort run")
	}
	return nil
}

// begin opens the run transaction and clears the previous run's rows.
func (s *SQL) begin(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "begin run")
	}
	for _, table := range []string{"pair_scores", "golden_members", "golden_records"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			tx.Rollback()
			return domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "clear %s", table)
		}
	}
	s.tx = tx
	return nil
}

// params renders an n-ary placeholder list for the driver's dialect.
func (s *SQL) params(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if s.driver == DriverPostgres {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}
