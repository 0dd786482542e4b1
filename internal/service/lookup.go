package service

import (
	"context"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
	"github.com/productgraph/resolver/internal/store"
)

// GetRecord returns one source record by id.
func (s *ResolverService) GetRecord(ctx context.Context, id string) (*domain.Record, error) {
	id, err := cleanID(id, "record")
	if err != nil {
		return nil, err
	}
	return s.source.Get(ctx, id)
}

// GetGoldenRecord returns one golden record from the published generation.
func (s *ResolverService) GetGoldenRecord(ctx context.Context, id string) (*domain.GoldenRecord, error) {
	id, err := cleanID(id, "golden record")
	if err != nil {
		return nil, err
	}
	return s.store.GetGoldenRecord(ctx, id)
}

// GoldenForRecord returns the cluster a source record was resolved into.
func (s *ResolverService) GoldenForRecord(ctx context.Context, recordID string) (*domain.GoldenRecord, error) {
	recordID, err := cleanID(recordID, "record")
	if err != nil {
		return nil, err
	}
	return s.store.GoldenForRecord(ctx, recordID)
}

// Compare scores two source records against each other and returns the full
// breakdown. The cached score from the published generation is used when the
// pair was scored during the run; otherwise the score is computed on demand
// with the run's scorer, whether or not the records share a cluster.
func (s *ResolverService) Compare(ctx context.Context, idA, idB string) (*domain.Comparison, error) {
	idA, err := cleanID(idA, "record")
	if err != nil {
		return nil, err
	}
	idB, err = cleanID(idB, "record")
	if err != nil {
		return nil, err
	}
	if idA == idB {
		return nil, domainerrors.InvalidArgument("comparison requires two distinct record ids")
	}

	recA, err := s.source.Get(ctx, idA)
	if err != nil {
		return nil, err
	}
	recB, err := s.source.Get(ctx, idB)
	if err != nil {
		return nil, err
	}

	score, cached, err := s.pairScore(ctx, recA, recB)
	if err != nil {
		return nil, err
	}

	// product_a always describes the lower id; the score is normalized the
	// same way, so the two stay aligned no matter the argument order.
	if recB.ID < recA.ID {
		recA, recB = recB, recA
	}

	return &domain.Comparison{
		ProductA:     recA.Summarize(),
		ProductB:     recB.Summarize(),
		Score:        score,
		OverallScore: score.OverallScore,
		Cached:       cached,
	}, nil
}

// pairScore fetches the cached score for the pair, falling back to an
// on-demand computation when the pair never shared a blocking bucket or no
// run has published yet.
func (s *ResolverService) pairScore(ctx context.Context, a, b *domain.Record) (*domain.PairScore, bool, error) {
	if s.store != nil {
		score, err := s.store.GetPairScore(ctx, a.ID, b.ID)
		if err == nil {
			return score, true, nil
		}
		if !domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, false, err
		}
	}
	return s.scorer.Score(a, b), false, nil
}

// Stats aggregates cluster shape metrics for the published generation.
func (s *ResolverService) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.Stats(ctx)
}

// LastRun returns the most recent run summary.
func (s *ResolverService) LastRun(ctx context.Context) (*domain.RunSummary, error) {
	return s.store.LastRunSummary(ctx)
}
