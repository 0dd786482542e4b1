package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for golden record
// documents.
//
// The mapping is designed with these priorities:
//  1. Full-text search on titles and descriptions with English stemming
//  2. Exact keyword matching on identifier fields (manufacturer,
//     part_number, unspsc, gtin, source_keys); these are normalized
//     upstream and must never be stemmed or tokenized
//  3. Numeric range queries on cluster size
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Title - primary search target
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	// Description - searchable but not stored (can be large)
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	// --- Keyword fields (exact match, facetable) ---

	// ID - stored but not analyzed
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Canonical manufacturer - exact filtering and faceting
	manufacturerFieldMapping := bleve.NewTextFieldMapping()
	manufacturerFieldMapping.Analyzer = keyword.Name
	manufacturerFieldMapping.Store = true
	manufacturerFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("manufacturer", manufacturerFieldMapping)

	// Normalized part number - exact and prefix matching
	partNumberFieldMapping := bleve.NewTextFieldMapping()
	partNumberFieldMapping.Analyzer = keyword.Name
	partNumberFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("part_number", partNumberFieldMapping)

	// UNSPSC code - prefix queries walk the hierarchy (segment, family,
	// class) without needing separate fields
	unspscFieldMapping := bleve.NewTextFieldMapping()
	unspscFieldMapping.Analyzer = keyword.Name
	unspscFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("unspsc", unspscFieldMapping)

	// GTIN - exact matching
	gtinFieldMapping := bleve.NewTextFieldMapping()
	gtinFieldMapping.Analyzer = keyword.Name
	gtinFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("gtin", gtinFieldMapping)

	// Source keys - which vendors contributed to the cluster
	sourceKeysFieldMapping := bleve.NewTextFieldMapping()
	sourceKeysFieldMapping.Analyzer = keyword.Name
	sourceKeysFieldMapping.Store = true
	sourceKeysFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("source_keys", sourceKeysFieldMapping)

	// --- Numeric fields (range queries, sorting) ---

	// Cluster size - for range filtering (e.g. multi-member clusters only)
	sizeFieldMapping := bleve.NewNumericFieldMapping()
	sizeFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("size", sizeFieldMapping)

	// Timestamp - for sorting by recency
	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
