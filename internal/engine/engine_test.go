package engine

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productgraph/resolver/internal/blocking"
	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
	"github.com/productgraph/resolver/internal/sink"
	"github.com/productgraph/resolver/internal/source"
)

// captureSink records everything the engine hands it and can be told to fail.
type captureSink struct {
	scores    []*domain.PairScore
	golden    []*domain.GoldenRecord
	committed bool
	aborted   bool
	writeErr  error
	commitErr error
}

var (
	_ sink.Sink      = (*captureSink)(nil)
	_ sink.Committer = (*captureSink)(nil)
)

func (c *captureSink) WritePairScores(_ context.Context, scores []*domain.PairScore) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.scores = scores
	return nil
}

func (c *captureSink) WriteGoldenRecords(_ context.Context, golden []*domain.GoldenRecord) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.golden = golden
	return nil
}

func (c *captureSink) Commit(context.Context) error {
	if c.commitErr != nil {
		return c.commitErr
	}
	c.committed = true
	return nil
}

func (c *captureSink) Abort(context.Context) error {
	c.aborted = true
	return nil
}

// dupSource yields the same record twice. Memory sources reject duplicates at
// construction, so the engine's own check needs a source that misbehaves.
type dupSource struct{}

func (dupSource) IterateAll(context.Context) iter.Seq2[*domain.Record, error] {
	return func(yield func(*domain.Record, error) bool) {
		rec := &domain.Record{ID: "dup-1", ManufacturerRaw: "Acme", PartNumberRaw: "A-100"}
		if !yield(rec, nil) {
			return
		}
		yield(rec, nil)
	}
}

func (dupSource) Get(context.Context, string) (*domain.Record, error) {
	return nil, domainerrors.NotFound("record not found")
}

func testRecords() []*domain.Record {
	return []*domain.Record{
		{
			ID:              "acme-1",
			SourceKey:       "acme-supply",
			ManufacturerRaw: "3M Company",
			PartNumberRaw:   "17206",
			Title:           "Command Large Picture Hanging Strips",
			UNSPSC:          "31201600",
			GTIN:            "00051141358573",
		},
		{
			ID:              "mro-1",
			SourceKey:       "mro-direct",
			ManufacturerRaw: "3M",
			PartNumberRaw:   "17-206",
			Title:           "Command Picture Hanging Strips, Large",
			UNSPSC:          "31201600",
			GTIN:            "00051141358573",
		},
		{
			ID:              "tool-1",
			SourceKey:       "tooltown",
			ManufacturerRaw: "Bosch",
			PartNumberRaw:   "GBH2-26",
			Title:           "Bosch Rotary Hammer Drill",
			UNSPSC:          "27112700",
		},
	}
}

func newTestEngine(t *testing.T, records []*domain.Record, sinks ...sink.Sink) *Engine {
	t.Helper()
	src, err := source.NewMemory(records)
	require.NoError(t, err)
	eng, err := New(Config{Source: src, Sinks: sinks, Workers: 2})
	require.NoError(t, err)
	return eng
}

func TestNew_RequiresSource(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidArgument))
}

func TestEngine_Run(t *testing.T) {
	capture := &captureSink{}
	eng := newTestEngine(t, testRecords(), capture)

	summary, err := eng.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, 2, summary.Buckets)
	assert.Equal(t, 1, summary.CandidatePairs)
	assert.Equal(t, 1, summary.Edges)
	assert.Equal(t, 2, summary.GoldenRecords)
	assert.Equal(t, 1, summary.MergedClusters)
	assert.Equal(t, 1, summary.Singletons)
	assert.False(t, summary.Degraded)
	assert.NotEmpty(t, summary.RunID)

	require.Len(t, capture.scores, 1)
	assert.GreaterOrEqual(t, capture.scores[0].OverallScore, 0.60)
	require.Len(t, capture.golden, 2)
	assert.True(t, capture.committed)
	assert.False(t, capture.aborted)
}

func TestEngine_Run_MatchingRecordsShareGolden(t *testing.T) {
	capture := &captureSink{}
	eng := newTestEngine(t, testRecords(), capture)

	_, err := eng.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	var merged, singleton *domain.GoldenRecord
	for _, g := range capture.golden {
		if g.IsSingleton() {
			singleton = g
		} else {
			merged = g
		}
	}
	require.NotNil(t, merged)
	require.NotNil(t, singleton)

	assert.True(t, merged.HasMember("acme-1"))
	assert.True(t, merged.HasMember("mro-1"))
	assert.True(t, singleton.HasMember("tool-1"))
}

func TestEngine_Run_Deterministic(t *testing.T) {
	first := &captureSink{}
	second := &captureSink{}

	_, err := newTestEngine(t, testRecords(), first).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	_, err = newTestEngine(t, testRecords(), second).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.Equal(t, len(first.golden), len(second.golden))
	for i := range first.golden {
		assert.Equal(t, first.golden[i].ID, second.golden[i].ID)
		assert.Equal(t, first.golden[i].MemberIDs, second.golden[i].MemberIDs)
	}

	require.Equal(t, len(first.scores), len(second.scores))
	for i := range first.scores {
		assert.Equal(t, first.scores[i].Pair(), second.scores[i].Pair())
		assert.InDelta(t, first.scores[i].OverallScore, second.scores[i].OverallScore, 1e-12)
	}
}

func TestEngine_Run_ScoresSortedByPairKey(t *testing.T) {
	records := []*domain.Record{
		{ID: "a-1", ManufacturerRaw: "Acme", PartNumberRaw: "X1", UNSPSC: "43211503"},
		{ID: "a-2", ManufacturerRaw: "Acme", PartNumberRaw: "X2", UNSPSC: "43211503"},
		{ID: "a-3", ManufacturerRaw: "Acme", PartNumberRaw: "X3", UNSPSC: "43211503"},
		{ID: "b-1", ManufacturerRaw: "Beta", PartNumberRaw: "Y1", UNSPSC: "27112700"},
		{ID: "b-2", ManufacturerRaw: "Beta", PartNumberRaw: "Y2", UNSPSC: "27112700"},
	}
	capture := &captureSink{}
	eng := newTestEngine(t, records, capture)

	summary, err := eng.Run(context.Background(), RunOptions{Workers: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.CandidatePairs)

	require.Len(t, capture.scores, 4)
	for i := 1; i < len(capture.scores); i++ {
		assert.Less(t, capture.scores[i-1].Pair().Key(), capture.scores[i].Pair().Key())
	}
}

func TestEngine_Run_WriteFailureAbortsAllSinks(t *testing.T) {
	healthy := &captureSink{}
	failing := &captureSink{writeErr: errors.New("disk full")}
	eng := newTestEngine(t, testRecords(), healthy, failing)

	_, err := eng.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")

	assert.False(t, healthy.committed)
	assert.True(t, healthy.aborted)
	assert.True(t, failing.aborted)
}

func TestEngine_Run_CommitFailureAbortsAllSinks(t *testing.T) {
	healthy := &captureSink{}
	failing := &captureSink{commitErr: errors.New("commit refused")}
	eng := newTestEngine(t, testRecords(), failing, healthy)

	_, err := eng.Run(context.Background(), RunOptions{})
	require.Error(t, err)

	assert.False(t, healthy.committed)
	assert.True(t, healthy.aborted)
	assert.True(t, failing.aborted)
}

func TestEngine_Run_DuplicateIDConflict(t *testing.T) {
	eng, err := New(Config{Source: dupSource{}})
	require.NoError(t, err)

	_, err = eng.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))
}

func TestEngine_Run_DegradedOverflow(t *testing.T) {
	var records []*domain.Record
	for i := range 6 {
		records = append(records, &domain.Record{
			ID:    string(rune('a'+i)) + "-blank",
			Title: "unclassified item",
		})
	}
	src, err := source.NewMemory(records)
	require.NoError(t, err)

	blocker := blocking.New(blocking.Config{OverflowCap: 3}, nil)
	eng, err := New(Config{Source: src, Blocker: blocker})
	require.NoError(t, err)

	summary, err := eng.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.True(t, summary.Degraded)
	assert.Equal(t, 6, summary.OverflowSize)
}

func TestEngine_Run_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := newTestEngine(t, testRecords())
	_, err := eng.Run(ctx, RunOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Run_ReportsProgress(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[Phase]bool)
	eng := newTestEngine(t, testRecords())

	_, err := eng.Run(context.Background(), RunOptions{
		OnProgress: func(p *Progress) {
			mu.Lock()
			seen[p.Phase] = true
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	// Callbacks run on their own goroutines; give stragglers a beat.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[PhaseLoading] && seen[PhaseScoring] && seen[PhaseComplete]
	}, time.Second, 10*time.Millisecond)
}

func TestEngine_Run_PhaseTimings(t *testing.T) {
	eng := newTestEngine(t, testRecords())

	summary, err := eng.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.Len(t, summary.Phases, 5)
	names := make([]string, 0, len(summary.Phases))
	for _, p := range summary.Phases {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"load", "block", "score", "cluster", "publish"}, names)
}
