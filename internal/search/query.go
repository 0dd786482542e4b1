package search

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/productgraph/resolver/internal/normalize"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string // Free-text query over representative fields

	// Filters
	Manufacturer string // Exact canonical manufacturer
	UNSPSCPrefix string // UNSPSC hierarchy prefix (segment/family/class)
	SourceKey    string // Clusters containing a record from this vendor
	MinSize      int    // Minimum cluster size
	MaxSize      int    // Maximum cluster size (0 = unbounded)

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "title", "size", "recent"
	SortOrder string // "asc", "desc"

	// Options
	IncludeFacets bool     // Include facet counts in results
	FacetFields   []string // Which fields to facet on
	Highlight     bool     // Include match highlighting
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         20,
		Offset:        0,
		SortBy:        "relevance",
		SortOrder:     "desc",
		IncludeFacets: true,
		FacetFields:   []string{"manufacturer", "source_keys"},
		Highlight:     true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Facets SearchFacets `json:"facets,omitempty"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	ID           string            `json:"id"`
	Score        float64           `json:"score"`
	Title        string            `json:"title,omitempty"`
	Manufacturer string            `json:"manufacturer,omitempty"`
	PartNumber   string            `json:"part_number,omitempty"`
	UNSPSC       string            `json:"unspsc,omitempty"`
	GTIN         string            `json:"gtin,omitempty"`
	Size         int               `json:"size,omitempty"`
	Highlights   map[string]string `json:"highlights,omitempty"`
}

// SearchFacets contains facet counts.
type SearchFacets struct {
	Manufacturers []FacetCount `json:"manufacturers,omitempty"`
	SourceKeys    []FacetCount `json:"source_keys,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	addSorting(searchRequest, params)

	if params.IncludeFacets {
		addFacets(searchRequest, params)
	}

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("title")
	}

	searchRequest.Fields = []string{
		"id", "title", "manufacturer", "part_number", "unspsc", "gtin", "size",
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if t, ok := hit.Fields["title"].(string); ok {
			searchHit.Title = t
		}
		if m, ok := hit.Fields["manufacturer"].(string); ok {
			searchHit.Manufacturer = m
		}
		if pn, ok := hit.Fields["part_number"].(string); ok {
			searchHit.PartNumber = pn
		}
		if u, ok := hit.Fields["unspsc"].(string); ok {
			searchHit.UNSPSC = u
		}
		if g, ok := hit.Fields["gtin"].(string); ok {
			searchHit.GTIN = g
		}
		if sz, ok := hit.Fields["size"].(float64); ok {
			searchHit.Size = int(sz)
		}

		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(searchResult)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	// Main text query
	// Search strategy:
	// - Match on title with the highest boost; descriptions carry less weight.
	// - Part numbers are indexed in normalized form, so the query text is
	//   normalized the same way before the exact and prefix probes.
	if params.Query != "" {
		textQueries := []query.Query{}

		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		descMatch := bleve.NewMatchQuery(params.Query)
		descMatch.SetField("description")
		descMatch.SetBoost(1.0)
		textQueries = append(textQueries, descMatch)

		if pn := normalize.Normalize(params.Query); pn != "" {
			pnTerm := bleve.NewTermQuery(pn)
			pnTerm.SetField("part_number")
			pnTerm.SetBoost(4.0)
			textQueries = append(textQueries, pnTerm)

			// Prefix probe for partial part numbers (minimum 3 chars)
			if len(pn) >= 3 {
				pnPrefix := bleve.NewPrefixQuery(pn)
				pnPrefix.SetField("part_number")
				pnPrefix.SetBoost(1.5)
				textQueries = append(textQueries, pnPrefix)
			}
		}

		if mfr := normalize.Manufacturer(params.Query); mfr != "" {
			mfrTerm := bleve.NewTermQuery(mfr)
			mfrTerm.SetField("manufacturer")
			mfrTerm.SetBoost(2.0)
			textQueries = append(textQueries, mfrTerm)
		}

		// Fuzzy matching for typo tolerance on title
		fuzzyQuery := bleve.NewFuzzyQuery(strings.ToLower(params.Query))
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Combine with OR (match any field)
		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Canonical manufacturer filter (exact match)
	if params.Manufacturer != "" {
		mq := bleve.NewTermQuery(normalize.Manufacturer(params.Manufacturer))
		mq.SetField("manufacturer")
		queries = append(queries, mq)
	}

	// UNSPSC hierarchy filter (prefix match walks segment/family/class)
	if params.UNSPSCPrefix != "" {
		prefixQuery := bleve.NewPrefixQuery(params.UNSPSCPrefix)
		prefixQuery.SetField("unspsc")
		queries = append(queries, prefixQuery)
	}

	// Contributing vendor filter
	if params.SourceKey != "" {
		sq := bleve.NewTermQuery(params.SourceKey)
		sq.SetField("source_keys")
		queries = append(queries, sq)
	}

	// Cluster size range filter, inclusive on both ends
	if params.MinSize > 0 || params.MaxSize > 0 {
		min := float64(params.MinSize)
		max := float64(params.MaxSize)
		if params.MaxSize == 0 {
			max = math.MaxFloat64
		}
		inclusive := true
		rangeQuery := bleve.NewNumericRangeInclusiveQuery(&min, &max, &inclusive, &inclusive)
		rangeQuery.SetField("size")
		queries = append(queries, rangeQuery)
	}

	// Combine all queries with AND
	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case "id":
		// Golden-record id order: the listing contract's stable default.
		req.SortBy([]string{"_id"})
	case "title":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-title", "_id"})
		} else {
			req.SortBy([]string{"title", "_id"})
		}
	case "size":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"size", "_id"})
		} else {
			req.SortBy([]string{"-size", "_id"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at", "_id"})
		} else {
			req.SortBy([]string{"-created_at", "_id"})
		}
	default:
		// Relevance (score) is default; ties break on id for stable paging
		req.SortBy([]string{"-_score", "_id"})
	}
}

// addFacets configures facet requests.
func addFacets(req *bleve.SearchRequest, params SearchParams) {
	for _, field := range params.FacetFields {
		facetReq := bleve.NewFacetRequest(field, 20) // Top 20 values
		req.AddFacet(field, facetReq)
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(result *bleve.SearchResult) SearchFacets {
	facets := SearchFacets{}

	if mfrFacet, ok := result.Facets["manufacturer"]; ok {
		for _, term := range mfrFacet.Terms.Terms() {
			facets.Manufacturers = append(facets.Manufacturers, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	if srcFacet, ok := result.Facets["source_keys"]; ok {
		for _, term := range srcFacet.Terms.Terms() {
			facets.SourceKeys = append(facets.SourceKeys, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	return facets
}
