package source

import (
	"strings"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
)

// columnIndex holds the resolved column position for each record field, -1
// when the catalog does not carry the column.
type columnIndex struct {
	id           int
	sourceKey    int
	manufacturer int
	partNumber   int
	title        int
	description  int
	unspsc       int
	gtin         int
}

// Vendor catalogs disagree on header spelling, so each field accepts a small
// set of synonyms. The first header matching a synonym wins.
var columnSynonyms = map[string][]string{
	"id":           {"id", "record_id", "product_id", "row_id"},
	"source_key":   {"source_key", "vendor", "vendor_key", "source", "supplier"},
	"manufacturer": {"manufacturer", "manufacturer_name", "mfr", "mfg", "brand"},
	"part_number":  {"part_number", "mpn", "part_no", "partnumber", "manufacturer_part_number", "sku"},
	"title":        {"title", "name", "product_name", "short_description"},
	"description":  {"description", "long_description", "desc", "product_description"},
	"unspsc":       {"unspsc", "unspsc_code", "commodity_code"},
	"gtin":         {"gtin", "upc", "ean", "barcode", "gtin14"},
}

// normalizeHeader folds a raw header cell to the synonym key space:
// lowercase with non-alphanumeric runs collapsed to single underscores.
func normalizeHeader(h string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// mapColumns resolves the header row into field positions. The id,
// source_key, manufacturer, and part_number columns are required; the rest
// are optional.
func mapColumns(headers []string) (columnIndex, error) {
	positions := make(map[string]int, len(headers))
	for i, h := range headers {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, ok := positions[key]; !ok {
			positions[key] = i
		}
	}

	find := func(field string) int {
		for _, syn := range columnSynonyms[field] {
			if i, ok := positions[syn]; ok {
				return i
			}
		}
		return -1
	}

	ci := columnIndex{
		id:           find("id"),
		sourceKey:    find("source_key"),
		manufacturer: find("manufacturer"),
		partNumber:   find("part_number"),
		title:        find("title"),
		description:  find("description"),
		unspsc:       find("unspsc"),
		gtin:         find("gtin"),
	}

	var missing []string
	if ci.id < 0 {
		missing = append(missing, "id")
	}
	if ci.sourceKey < 0 {
		missing = append(missing, "source_key")
	}
	if ci.manufacturer < 0 {
		missing = append(missing, "manufacturer")
	}
	if ci.partNumber < 0 {
		missing = append(missing, "part_number")
	}
	if len(missing) > 0 {
		return ci, domainerrors.InvalidArgumentf("catalog is missing required columns: %s", strings.Join(missing, ", "))
	}
	return ci, nil
}

// cell returns the trimmed value at position i, tolerating short rows.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// recordFromRow builds a record from one data row. Rows without an id are
// catalog corruption and rejected by the caller.
func recordFromRow(ci columnIndex, row []string) *domain.Record {
	return &domain.Record{
		ID:              cell(row, ci.id),
		SourceKey:       cell(row, ci.sourceKey),
		ManufacturerRaw: cell(row, ci.manufacturer),
		PartNumberRaw:   cell(row, ci.partNumber),
		Title:           cell(row, ci.title),
		Description:     cell(row, ci.description),
		UNSPSC:          cell(row, ci.unspsc),
		GTIN:            cell(row, ci.gtin),
	}
}

// emptyRow reports whether every cell in the row is blank.
func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
