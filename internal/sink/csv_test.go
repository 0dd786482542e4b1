package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productgraph/resolver/internal/domain"
)

func testScores() []*domain.PairScore {
	return []*domain.PairScore{
		{
			IDA:          "rec-1",
			IDB:          "rec-2",
			PartNumber:   domain.PartNumberScore{Score: 1, Contribution: 0.35},
			Manufacturer: domain.ManufacturerScore{Score: 1, Contribution: 0.25},
			Text:         domain.TextScore{Score: 0.5, Contribution: 0.1},
			UNSPSC:       &domain.UNSPSCScore{MatchTier: domain.UNSPSCMatchExact, Score: 1, Contribution: 0.1},
			GTIN:         &domain.GTINScore{Equal: true, Score: 1, Contribution: 0.1},
			Synergy:      &domain.SynergyBreakdown{StrongSignals: 4, Bonus: 0.1},
			OverallScore: 1,
		},
		{
			IDA:          "rec-1",
			IDB:          "rec-3",
			OverallScore: 0.42,
		},
	}
}

func testGolden() []*domain.GoldenRecord {
	return []*domain.GoldenRecord{
		{
			ID: "gold-0011aabbccdd",
			Representative: domain.Representative{
				Manufacturer: "3M",
				PartNumber:   "1080G12",
				Title:        "Wrap film",
			},
			MemberIDs:  []string{"rec-1", "rec-2"},
			SourceKeys: []string{"acme", "zoro"},
			Size:       2,
			CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:             "gold-eeff00112233",
			Representative: domain.Representative{Manufacturer: "BOSCH", PartNumber: "GSB18"},
			MemberIDs:      []string{"rec-3"},
			SourceKeys:     []string{"acme"},
			Size:           1,
			CreatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSV_WriteAndCommit(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewCSV(dir)
	require.NoError(t, err)

	require.NoError(t, s.WritePairScores(ctx, testScores()))
	require.NoError(t, s.WriteGoldenRecords(ctx, testGolden()))

	// Nothing published before commit.
	_, err = os.Stat(filepath.Join(dir, PairScoresFile))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Commit(ctx))

	pairs := readCSVFile(t, filepath.Join(dir, PairScoresFile))
	require.Len(t, pairs, 3)
	assert.Equal(t, "id_a", pairs[0][0])
	assert.Equal(t, []string{"rec-1", "rec-2", "1", "1", "0.5", "1", "1", "0.1", "1"}, pairs[1])
	// Missing components leave their cells empty.
	assert.Equal(t, "", pairs[2][5])
	assert.Equal(t, "", pairs[2][6])
	assert.Equal(t, "0.42", pairs[2][8])

	golden := readCSVFile(t, filepath.Join(dir, GoldenRecordsFile))
	require.Len(t, golden, 3)
	assert.Equal(t, "gold-0011aabbccdd", golden[1][0])
	assert.Equal(t, "rec-1|rec-2", golden[1][8])
	assert.Equal(t, "acme|zoro", golden[1][9])
	assert.Equal(t, "2025-06-01T12:00:00Z", golden[1][10])
}

func TestCSV_AbortKeepsPreviousRun(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewCSV(dir)
	require.NoError(t, err)

	require.NoError(t, s.WritePairScores(ctx, testScores()))
	require.NoError(t, s.WriteGoldenRecords(ctx, testGolden()))
	require.NoError(t, s.Commit(ctx))

	// Second run aborts; the first run's files must survive untouched.
	require.NoError(t, s.WritePairScores(ctx, nil))
	require.NoError(t, s.WriteGoldenRecords(ctx, nil))
	require.NoError(t, s.Abort(ctx))

	pairs := readCSVFile(t, filepath.Join(dir, PairScoresFile))
	assert.Len(t, pairs, 3)

	// No temp litter after abort.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCSV_CommitReplacesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewCSV(dir)
	require.NoError(t, err)

	require.NoError(t, s.WritePairScores(ctx, testScores()))
	require.NoError(t, s.WriteGoldenRecords(ctx, testGolden()))
	require.NoError(t, s.Commit(ctx))

	require.NoError(t, s.WritePairScores(ctx, testScores()[:1]))
	require.NoError(t, s.WriteGoldenRecords(ctx, testGolden()[:1]))
	require.NoError(t, s.Commit(ctx))

	assert.Len(t, readCSVFile(t, filepath.Join(dir, PairScoresFile)), 2)
	assert.Len(t, readCSVFile(t, filepath.Join(dir, GoldenRecordsFile)), 2)
}

func TestNewCSV_RequiresDir(t *testing.T) {
	_, err := NewCSV("")
	require.Error(t, err)
}
