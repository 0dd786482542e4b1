package service

import (
	"context"
	"fmt"
	"time"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
	"github.com/productgraph/resolver/internal/search"
	"github.com/productgraph/resolver/internal/store"
)

// ListParams filters and pages a golden-record listing. The zero value lists
// everything in golden-record id order.
type ListParams struct {
	// Query is a free-text match over representative title, description,
	// part number, and manufacturer.
	Query string `json:"query" validate:"omitempty,max=256"`

	// Manufacturer filters to one canonical manufacturer identity.
	Manufacturer string `json:"manufacturer" validate:"omitempty,max=128"`
	// UNSPSCPrefix filters by classification hierarchy prefix; 2, 4, 6, or 8
	// digits walk segment, family, class, and exact code.
	UNSPSCPrefix string `json:"unspsc_prefix" validate:"omitempty,numeric,min=2,max=8"`
	// SourceKey filters to clusters containing a record from one catalog.
	SourceKey string `json:"source_key" validate:"omitempty,max=128"`
	// MinSize and MaxSize bound the cluster size; zero means unbounded.
	MinSize int `json:"min_size" validate:"omitempty,min=1"`
	MaxSize int `json:"max_size" validate:"omitempty,min=1"`

	// SortBy overrides the default id ordering. Free-text queries default to
	// relevance instead.
	SortBy    string `json:"sort_by" validate:"omitempty,oneof=id title size recent relevance"`
	SortOrder string `json:"sort_order" validate:"omitempty,oneof=asc desc"`

	Limit  int    `json:"limit" validate:"omitempty,min=1,max=1000"`
	Cursor string `json:"cursor"`
}

// filtered reports whether the listing needs the search index. Unfiltered
// id-ordered listings walk the store directly.
func (p ListParams) filtered() bool {
	return p.Query != "" ||
		p.Manufacturer != "" ||
		p.UNSPSCPrefix != "" ||
		p.SourceKey != "" ||
		p.MinSize > 0 ||
		p.MaxSize > 0 ||
		(p.SortBy != "" && p.SortBy != "id")
}

// sortBy resolves the effective sort: the explicit request, relevance for
// free-text queries, id order otherwise.
func (p ListParams) sortBy() string {
	if p.SortBy != "" {
		return p.SortBy
	}
	if p.Query != "" {
		return "relevance"
	}
	return "id"
}

// ListGoldenRecords returns one page of golden records. The sequence is
// finite and restartable: a cursor resumes exactly where the previous page
// stopped, and the order is stable by golden-record id unless an explicit
// sort was requested.
func (s *ResolverService) ListGoldenRecords(ctx context.Context, params ListParams) (*store.PaginatedResult[*domain.GoldenRecord], error) {
	if err := s.validate.Validate(params); err != nil {
		return nil, err
	}
	if params.MaxSize > 0 && params.MinSize > params.MaxSize {
		return nil, domainerrors.InvalidArgumentf("min_size %d exceeds max_size %d", params.MinSize, params.MaxSize)
	}
	if params.Limit <= 0 {
		params.Limit = store.DefaultPaginationParams().Limit
	}

	if !params.filtered() {
		return s.store.ListGoldenRecords(ctx, store.PaginationParams{
			Limit:  params.Limit,
			Cursor: params.Cursor,
		})
	}
	return s.listFiltered(ctx, params)
}

// listFiltered serves filtered or re-sorted listings from the search index,
// hydrating each hit from the store. The cursor encodes the hit offset.
func (s *ResolverService) listFiltered(ctx context.Context, params ListParams) (*store.PaginatedResult[*domain.GoldenRecord], error) {
	offset := 0
	if params.Cursor != "" {
		decoded, err := store.DecodeCursor(params.Cursor)
		if err != nil {
			return nil, domainerrors.InvalidArgument("invalid cursor")
		}
		if _, err := fmt.Sscanf(decoded, "%d", &offset); err != nil || offset < 0 {
			return nil, domainerrors.InvalidArgument("invalid cursor")
		}
	}

	res, err := s.search.Search(ctx, search.SearchParams{
		Query:        params.Query,
		Manufacturer: params.Manufacturer,
		UNSPSCPrefix: params.UNSPSCPrefix,
		SourceKey:    params.SourceKey,
		MinSize:      params.MinSize,
		MaxSize:      params.MaxSize,
		Limit:        params.Limit,
		Offset:       offset,
		SortBy:       params.sortBy(),
		SortOrder:    params.SortOrder,
	})
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "search golden records")
	}

	items := make([]*domain.GoldenRecord, 0, len(res.Hits))
	for _, hit := range res.Hits {
		golden, err := s.store.GetGoldenRecord(ctx, hit.ID)
		if err != nil {
			// The index trails the store briefly between a generation flip
			// and its reindex; a stale hit is dropped, not an error.
			if domainerrors.Is(err, domainerrors.ErrNotFound) {
				s.logger.Warn("search hit missing from store, skipping", "golden_id", hit.ID)
				continue
			}
			return nil, err
		}
		items = append(items, golden)
	}

	result := &store.PaginatedResult[*domain.GoldenRecord]{
		Items:   items,
		Total:   int(res.Total),
		HasMore: offset+len(res.Hits) < int(res.Total),
	}
	if result.HasMore {
		result.NextCursor = store.EncodeCursor(fmt.Sprintf("%d", offset+len(res.Hits)))
	}
	return result, nil
}

// SearchGoldenRecords runs a raw index query: hits with relevance scores,
// highlights, and facets. Inspection tooling uses this; ListGoldenRecords is
// the hydrated listing.
func (s *ResolverService) SearchGoldenRecords(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = search.DefaultSearchParams().Limit
	}
	res, err := s.search.Search(ctx, params)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "search golden records")
	}
	return res, nil
}

// RebuildSearchIndex replaces the index contents with the published
// generation's golden records. Called after every committed run; cluster
// membership can change arbitrarily between runs, so replacement is the only
// correct update.
func (s *ResolverService) RebuildSearchIndex(ctx context.Context) error {
	started := time.Now()

	golden, err := s.store.AllGoldenRecords(ctx)
	if err != nil {
		return err
	}

	docs := make([]*search.SearchDocument, 0, len(golden))
	for _, g := range golden {
		docs = append(docs, search.GoldenToSearchDocument(g))
	}
	if err := s.search.ReplaceAll(docs); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "rebuild search index")
	}

	s.logger.Info("search index rebuilt",
		"documents", len(docs),
		"duration", time.Since(started),
	)
	return nil
}

// IndexedDocuments returns the number of clusters in the search index.
func (s *ResolverService) IndexedDocuments() (uint64, error) {
	return s.search.DocumentCount()
}
