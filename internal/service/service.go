// Package service exposes the resolver's read API: record and golden-record
// lookups, filtered listing, and pairwise comparison with the full score
// breakdown. Any presentation layer consumes the engine through this package
// and never reaches into the store or the source directly.
package service

import (
	"log/slog"
	"strings"

	domainerrors "github.com/productgraph/resolver/internal/errors"
	"github.com/productgraph/resolver/internal/scoring"
	"github.com/productgraph/resolver/internal/search"
	"github.com/productgraph/resolver/internal/source"
	"github.com/productgraph/resolver/internal/store"
	"github.com/productgraph/resolver/internal/validation"
)

// ResolverService orchestrates reads over a published resolution run. Reads
// are safe to run concurrently with a background rebuild: the store publishes
// each generation atomically and the search index swaps wholesale after the
// flip, so a caller sees a complete run or the previous one, never a mix.
type ResolverService struct {
	source   source.Source
	store    *store.Store
	search   *search.SearchIndex
	scorer   *scoring.Scorer
	validate *validation.Validator
	logger   *slog.Logger
}

// NewResolverService creates the read API service. The scorer must carry the
// same configuration the pipeline ran with, so on-demand comparisons agree
// with cached pair scores.
func NewResolverService(src source.Source, st *store.Store, idx *search.SearchIndex, scorer *scoring.Scorer, logger *slog.Logger) *ResolverService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolverService{
		source:   src,
		store:    st,
		search:   idx,
		scorer:   scorer,
		validate: validation.New(),
		logger:   logger,
	}
}

// cleanID trims an id argument and rejects blank or oversized values before
// any storage work happens.
func cleanID(id, what string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", domainerrors.InvalidArgumentf("%s id is required", what)
	}
	if len(id) > 256 {
		return "", domainerrors.InvalidArgumentf("%s id exceeds 256 characters", what)
	}
	return id, nil
}
