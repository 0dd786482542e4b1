package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
)

// Output file names inside the sink directory.
const (
	PairScoresFile    = "pair_scores.csv"
	GoldenRecordsFile = "golden_records.csv"
)

// CSV writes run output as two CSV files. Writes go to temp files in the
// same directory; Commit renames them over the previous run's files, so
// readers only ever see a complete run.
type CSV struct {
	dir       string
	pairsTmp  string
	goldenTmp string
}

// NewCSV builds a CSV sink rooted at dir, creating it if needed.
func NewCSV(dir string) (*CSV, error) {
	if dir == "" {
		return nil, domainerrors.InvalidArgument("csv sink requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "create sink directory %s", dir)
	}
	return &CSV{dir: dir}, nil
}

// WritePairScores stages the per-pair score table.
func (c *CSV) WritePairScores(_ context.Context, scores []*domain.PairScore) error {
	header := []string{
		"id_a", "id_b",
		"part_number_score", "manufacturer_score", "text_score",
		"unspsc_score", "gtin_score", "synergy_bonus", "overall_score",
	}

	rows := make([][]string, 0, len(scores))
	for _, s := range scores {
		unspsc, gtin, synergy := "", "", ""
		if s.UNSPSC != nil {
			unspsc = formatScore(s.UNSPSC.Score)
		}
		if s.GTIN != nil {
			gtin = formatScore(s.GTIN.Score)
		}
		if s.Synergy != nil {
			synergy = formatScore(s.Synergy.Bonus)
		}
		rows = append(rows, []string{
			s.IDA, s.IDB,
			formatScore(s.PartNumber.Score),
			formatScore(s.Manufacturer.Score),
			formatScore(s.Text.Score),
			unspsc, gtin, synergy,
			formatScore(s.OverallScore),
		})
	}

	tmp, err := c.stage("pair_scores", header, rows)
	if err != nil {
		return err
	}
	if c.pairsTmp != "" {
		os.Remove(c.pairsTmp)
	}
	c.pairsTmp = tmp
	return nil
}

// WriteGoldenRecords stages the golden record table. Member ids and source
// keys are pipe-joined inside their cells.
func (c *CSV) WriteGoldenRecords(_ context.Context, golden []*domain.GoldenRecord) error {
	header := []string{
		"id", "manufacturer", "part_number", "title", "description",
		"unspsc", "gtin", "size", "member_ids", "source_keys", "created_at",
	}

	rows := make([][]string, 0, len(golden))
	for _, g := range golden {
		rows = append(rows, []string{
			g.ID,
			g.Representative.Manufacturer,
			g.Representative.PartNumber,
			g.Representative.Title,
			g.Representative.Description,
			g.Representative.UNSPSC,
			g.Representative.GTIN,
			strconv.Itoa(g.Size),
			strings.Join(g.MemberIDs, "|"),
			strings.Join(g.SourceKeys, "|"),
			g.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	tmp, err := c.stage("golden_records", header, rows)
	if err != nil {
		return err
	}
	if c.goldenTmp != "" {
		os.Remove(c.goldenTmp)
	}
	c.goldenTmp = tmp
	return nil
}

// Commit renames the staged files into place.
func (c *CSV) Commit(_ context.Context) error {
	if c.pairsTmp != "" {
		if err := os.Rename(c.pairsTmp, filepath.Join(c.dir, PairScoresFile)); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "publish pair scores")
		}
		c.pairsTmp = ""
	}
	if c.goldenTmp != "" {
		if err := os.Rename(c.goldenTmp, filepath.Join(c.dir, GoldenRecordsFile)); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeUnavailable, "publish golden records")
		}
		c.goldenTmp = ""
	}
	return nil
}

// Abort discards staged files, leaving the previous run's output untouched.
func (c *CSV) Abort(_ context.Context) error {
	if c.pairsTmp != "" {
		os.Remove(c.pairsTmp)
		c.pairsTmp = ""
	}
	if c.goldenTmp != "" {
		os.Remove(c.goldenTmp)
		c.goldenTmp = ""
	}
	return nil
}

// stage writes one CSV table to a temp file in the sink directory and
// returns its path.
func (c *CSV) stage(name string, header []string, rows [][]string) (string, error) {
	f, err := os.CreateTemp(c.dir, "."+name+"-*.tmp")
	if err != nil {
		return "", domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "stage %s", name)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "write %s header", name)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "write %s rows", name)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "flush %s", name)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "close %s", name)
	}
	return f.Name(), nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
