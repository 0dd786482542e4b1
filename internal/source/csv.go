package source

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
)

// OpenCSV loads a CSV catalog into memory. The first row must be a header
// row carrying at least id, source_key, manufacturer, and part_number
// columns (synonyms accepted).
func OpenCSV(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "open catalog %s", path)
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeInvalidArgument, "catalog %s", path)
	}
	return NewMemory(records)
}

// ReadCSV parses catalog records from CSV data. Fully blank rows are
// skipped; a data row with an empty id is an error because every downstream
// stage keys on it.
func ReadCSV(r io.Reader) ([]*domain.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, domainerrors.InvalidArgument("catalog is empty")
	}
	if err != nil {
		return nil, err
	}

	ci, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var records []*domain.Record
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if emptyRow(row) {
			continue
		}

		rec := recordFromRow(ci, row)
		if rec.ID == "" {
			return nil, domainerrors.InvalidArgumentf("row %d has no id", line)
		}
		records = append(records, rec)
	}
	return records, nil
}
