// Package search provides full-text search over golden records using Bleve.
// Each published cluster is indexed by its representative fields, so queries
// hit one document per resolved product rather than one per vendor row.
package search

import (
	"github.com/productgraph/resolver/internal/domain"
)

// SearchDocument is the indexed view of one golden record.
type SearchDocument struct {
	ID           string   `json:"id"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	PartNumber   string   `json:"part_number,omitempty"`
	Title        string   `json:"title,omitempty"`
	Description  string   `json:"description,omitempty"`
	UNSPSC       string   `json:"unspsc,omitempty"`
	GTIN         string   `json:"gtin,omitempty"`
	SourceKeys   []string `json:"source_keys,omitempty"`
	Size         int      `json:"size"`
	CreatedAt    int64    `json:"created_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but the index
// mapping uses lowercase names, so we convert explicitly.
func (d *SearchDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"size":       d.Size,
		"created_at": d.CreatedAt,
	}

	if d.Manufacturer != "" {
		m["manufacturer"] = d.Manufacturer
	}
	if d.PartNumber != "" {
		m["part_number"] = d.PartNumber
	}
	if d.Title != "" {
		m["title"] = d.Title
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.UNSPSC != "" {
		m["unspsc"] = d.UNSPSC
	}
	if d.GTIN != "" {
		m["gtin"] = d.GTIN
	}
	if len(d.SourceKeys) > 0 {
		m["source_keys"] = d.SourceKeys
	}

	return m
}

// GoldenToSearchDocument converts a golden record to its indexed view.
func GoldenToSearchDocument(g *domain.GoldenRecord) *SearchDocument {
	rep := g.Representative
	return &SearchDocument{
		ID:           g.ID,
		Manufacturer: rep.Manufacturer,
		PartNumber:   rep.PartNumber,
		Title:        rep.Title,
		Description:  rep.Description,
		UNSPSC:       rep.UNSPSC,
		GTIN:         rep.GTIN,
		SourceKeys:   g.SourceKeys,
		Size:         g.Size,
		CreatedAt:    g.CreatedAt.UnixMilli(),
	}
}
