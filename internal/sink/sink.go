// Package sink persists resolution output. The engine writes pair scores
// first, then golden records, to every configured sink; sinks that stage
// their writes additionally implement Committer and are committed only after
// every sink has accepted both write calls.
package sink

import (
	"context"

	"github.com/productgraph/resolver/internal/domain"
)

// Sink receives the output of one resolution run. Implementations need not
// be safe for concurrent use; the engine drives writes sequentially.
type Sink interface {
	WritePairScores(ctx context.Context, scores []*domain.PairScore) error
	WriteGoldenRecords(ctx context.Context, golden []*domain.GoldenRecord) error
}

// Committer is implemented by sinks whose writes stage until committed.
// Commit publishes the staged run; Abort discards it. After either call the
// sink is ready for the next run.
type Committer interface {
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}
