// Package engine runs the resolution pipeline end to end: load records,
// partition them into blocking buckets, score candidate pairs, cluster the
// threshold graph, and publish the output to every configured sink.
package engine

import (
	"context"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/productgraph/resolver/internal/blocking"
	"github.com/productgraph/resolver/internal/cluster"
	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
	"github.com/productgraph/resolver/internal/id"
	"github.com/productgraph/resolver/internal/scoring"
	"github.com/productgraph/resolver/internal/sink"
	"github.com/productgraph/resolver/internal/source"
)

// Engine orchestrates resolution runs. Safe to reuse: each Run call is
// independent, and the engine holds no state between runs.
type Engine struct {
	source    source.Source
	blocker   *blocking.Blocker
	scorer    *scoring.Scorer
	clusterer *cluster.Clusterer
	sinks     []sink.Sink
	logger    *slog.Logger
	workers   int
}

// Config assembles an engine. Source is required; nil components fall back
// to their package defaults, and a non-positive worker count uses NumCPU.
type Config struct {
	Source    source.Source
	Blocker   *blocking.Blocker
	Scorer    *scoring.Scorer
	Clusterer *cluster.Clusterer
	Sinks     []sink.Sink
	Logger    *slog.Logger
	Workers   int
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, domainerrors.InvalidArgument("engine requires a source")
	}
	if cfg.Blocker == nil {
		cfg.Blocker = blocking.New(blocking.DefaultConfig(), nil)
	}
	if cfg.Scorer == nil {
		cfg.Scorer = scoring.New(scoring.DefaultWeights(), nil, 0)
	}
	if cfg.Clusterer == nil {
		cfg.Clusterer = cluster.New(0, nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		source:    cfg.Source,
		blocker:   cfg.Blocker,
		scorer:    cfg.Scorer,
		clusterer: cfg.Clusterer,
		sinks:     cfg.Sinks,
		logger:    cfg.Logger,
		workers:   cfg.Workers,
	}, nil
}

// RunOptions configures a single run.
type RunOptions struct {
	OnProgress func(*Progress)
	Workers    int
}

// Run executes one resolution run. Scores go to every sink before golden
// records do; staged sinks commit only after every write succeeded, and any
// failure aborts them all, so a failed run never becomes authoritative.
// The same source content always produces the same summary counts, pair
// scores, and golden records.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*domain.RunSummary, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = e.workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	summary := &domain.RunSummary{
		RunID:     id.MustGenerate("run"),
		StartedAt: time.Now().UTC(),
	}
	log := e.logger.With("run_id", summary.RunID)

	tracker := NewProgressTracker(opts.OnProgress)
	started := time.Now()
	phaseStart := started
	endPhase := func(phase Phase) {
		summary.Phases = append(summary.Phases, domain.PhaseTiming{
			Name:       string(phase),
			DurationMS: time.Since(phaseStart).Milliseconds(),
		})
		phaseStart = time.Now()
	}

	log.Info("run started", "workers", workers)

	// Load.
	records, byID, err := e.loadRecords(ctx, tracker)
	if err != nil {
		return nil, err
	}
	summary.Records = len(records)
	endPhase(PhaseLoading)
	log.Info("records loaded", "count", len(records))

	// Block.
	tracker.SetPhase(PhaseBlocking)
	buckets, stats := e.blocker.Partition(records)
	summary.Buckets = stats.Buckets
	summary.LargestBucket = stats.LargestBucket
	summary.OverflowSize = stats.OverflowSize
	summary.Degraded = stats.Degraded
	endPhase(PhaseBlocking)
	log.Info("records partitioned",
		"buckets", stats.Buckets,
		"largest_bucket", stats.LargestBucket,
		"largest_key", stats.LargestKey,
	)
	if stats.Degraded {
		log.Warn("overflow bucket exceeds cap, pair coverage degraded",
			"overflow_size", stats.OverflowSize,
		)
	}

	// Score. Clustering waits for every bucket: the collection below is the
	// barrier.
	scores, err := e.scoreBuckets(ctx, buckets, byID, workers, tracker)
	if err != nil {
		return nil, err
	}
	summary.CandidatePairs = len(scores)
	for _, score := range scores {
		if score.OverallScore >= e.clusterer.Threshold() {
			summary.Edges++
		}
	}
	endPhase(PhaseScoring)
	log.Info("pairs scored", "pairs", len(scores), "edges", summary.Edges)

	// Cluster.
	tracker.SetPhase(PhaseClustering)
	golden := e.clusterer.Cluster(records, scores)
	summary.GoldenRecords = len(golden)
	for _, g := range golden {
		if g.IsSingleton() {
			summary.Singletons++
		} else {
			summary.MergedClusters++
		}
	}
	endPhase(PhaseClustering)
	log.Info("clusters built",
		"golden_records", len(golden),
		"merged", summary.MergedClusters,
		"singletons", summary.Singletons,
	)

	// Publish.
	tracker.SetPhase(PhasePublishing)
	if err := e.publish(ctx, scores, golden); err != nil {
		return nil, err
	}
	endPhase(PhasePublishing)

	tracker.SetPhase(PhaseComplete)
	summary.DurationMS = time.Since(started).Milliseconds()
	log.Info("run complete",
		"duration", time.Since(started),
		"records", summary.Records,
		"pairs", summary.CandidatePairs,
		"golden_records", summary.GoldenRecords,
		"degraded", summary.Degraded,
	)

	return summary, nil
}

// loadRecords drains the source. Duplicate ids are a conflict: downstream
// stages key on the id, so continuing would silently drop rows.
func (e *Engine) loadRecords(ctx context.Context, tracker *ProgressTracker) ([]*domain.Record, map[string]*domain.Record, error) {
	tracker.SetPhase(PhaseLoading)

	var records []*domain.Record
	byID := make(map[string]*domain.Record)

	for rec, err := range e.source.IterateAll(ctx) {
		if err != nil {
			return nil, nil, err
		}
		if _, ok := byID[rec.ID]; ok {
			return nil, nil, domainerrors.Conflictf("duplicate record id %q in source", rec.ID)
		}
		records = append(records, rec)
		byID[rec.ID] = rec
		tracker.Increment(rec.ID)
	}

	return records, byID, nil
}

// scoreBuckets fans buckets out to a worker pool and collects every bucket's
// scores. Buckets partition the records, so no pair can appear twice; the
// final sort makes the output order independent of worker scheduling.
func (e *Engine) scoreBuckets(ctx context.Context, buckets []blocking.Bucket, byID map[string]*domain.Record, workers int, tracker *ProgressTracker) ([]*domain.PairScore, error) {
	if len(buckets) == 0 {
		return nil, nil
	}

	tracker.SetPhase(PhaseScoring)
	tracker.SetTotal(len(buckets))

	type result struct {
		key    string
		scores []*domain.PairScore
		err    error
	}

	jobs := make(chan blocking.Bucket, len(buckets))
	results := make(chan result, len(buckets))

	for range workers {
		go func() {
			for bucket := range jobs {
				select {
				case <-ctx.Done():
					results <- result{key: bucket.Key, err: ctx.Err()}
					return
				default:
				}
				results <- result{key: bucket.Key, scores: e.scoreBucket(bucket, byID)}
			}
		}()
	}

	for _, bucket := range buckets {
		select {
		case jobs <- bucket:
		case <-ctx.Done():
			close(jobs)
			return nil, ctx.Err()
		}
	}
	close(jobs)

	var all []*domain.PairScore
	for range len(buckets) {
		select {
		case r := <-results:
			if r.err != nil {
				return nil, r.err
			}
			all = append(all, r.scores...)
			tracker.Increment(r.key)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	slices.SortFunc(all, func(a, b *domain.PairScore) int {
		return strings.Compare(a.Pair().Key(), b.Pair().Key())
	})
	return all, nil
}

// scoreBucket scores every candidate pair of one bucket.
func (e *Engine) scoreBucket(bucket blocking.Bucket, byID map[string]*domain.Record) []*domain.PairScore {
	pairs := e.blocker.Pairs(bucket)
	if len(pairs) == 0 {
		return nil
	}

	scores := make([]*domain.PairScore, 0, len(pairs))
	for _, pair := range pairs {
		a, b := byID[pair.IDA], byID[pair.IDB]
		if a == nil || b == nil {
			continue
		}
		scores = append(scores, e.scorer.Score(a, b))
	}
	return scores
}

// publish writes the run to every sink, then commits the staged ones. The
// first failure aborts every staged sink and surfaces the error.
func (e *Engine) publish(ctx context.Context, scores []*domain.PairScore, golden []*domain.GoldenRecord) error {
	for _, snk := range e.sinks {
		if err := snk.WritePairScores(ctx, scores); err != nil {
			e.abortSinks(ctx)
			return err
		}
		if err := snk.WriteGoldenRecords(ctx, golden); err != nil {
			e.abortSinks(ctx)
			return err
		}
	}

	for _, snk := range e.sinks {
		committer, ok := snk.(sink.Committer)
		if !ok {
			continue
		}
		if err := committer.Commit(ctx); err != nil {
			e.abortSinks(ctx)
			return err
		}
	}
	return nil
}

// abortSinks discards staged output on every committing sink. Runs with a
// detached context so cleanup still happens when the run's context is the
// reason for the abort.
func (e *Engine) abortSinks(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for _, snk := range e.sinks {
		committer, ok := snk.(sink.Committer)
		if !ok {
			continue
		}
		if err := committer.Abort(ctx); err != nil {
			e.logger.Error("failed to abort sink", "error", err)
		}
	}
}
