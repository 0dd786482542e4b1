package source

import (
	"github.com/xuri/excelize/v2"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
)

// OpenXLSX loads an Excel catalog into memory. An empty sheet name selects
// the workbook's first sheet. Header requirements match the CSV backend.
func OpenXLSX(path, sheet string) (*Memory, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "open catalog %s", path)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, domainerrors.InvalidArgumentf("catalog %s has no sheets", path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeInvalidArgument, "read sheet %q of %s", sheet, path)
	}
	if len(rows) == 0 {
		return nil, domainerrors.InvalidArgumentf("catalog %s: sheet %q is empty", path, sheet)
	}

	ci, err := mapColumns(rows[0])
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeInvalidArgument, "catalog %s", path)
	}

	var records []*domain.Record
	for i, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		rec := recordFromRow(ci, row)
		if rec.ID == "" {
			return nil, domainerrors.InvalidArgumentf("catalog %s: row %d has no id", path, i+2)
		}
		records = append(records, rec)
	}
	return NewMemory(records)
}
