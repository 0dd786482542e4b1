package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	domainerrors "github.com/productgraph/resolver/internal/errors"
)

func writeTestWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestOpenXLSX(t *testing.T) {
	path := writeTestWorkbook(t, [][]any{
		{"id", "source_key", "manufacturer", "part_number", "title", "unspsc", "gtin"},
		{"rec-1", "acme", "3M", "1080-G12", "Wrap film", "31201512", "00638060623466"},
		{"rec-2", "zoro", "Bosch", "GSB18", "", "", ""},
	})

	src, err := OpenXLSX(path, "")
	require.NoError(t, err)
	assert.Equal(t, 2, src.Len())

	records := collectAll(t, src)
	assert.Equal(t, "rec-1", records[0].ID)
	assert.Equal(t, "acme", records[0].SourceKey)
	assert.Equal(t, "3M", records[0].ManufacturerRaw)
	assert.Equal(t, "1080-G12", records[0].PartNumberRaw)
	assert.Equal(t, "Wrap film", records[0].Title)
	assert.Equal(t, "31201512", records[0].UNSPSC)
	assert.Equal(t, "00638060623466", records[0].GTIN)
	assert.Empty(t, records[1].Title)
}

func TestOpenXLSX_NamedSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Catalog")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Catalog", "A1", &[]any{"id", "vendor", "brand", "mpn"}))
	require.NoError(t, f.SetSheetRow("Catalog", "A2", &[]any{"rec-1", "acme", "3M", "1080-G12"}))

	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	require.NoError(t, f.SaveAs(path))

	src, err := OpenXLSX(path, "Catalog")
	require.NoError(t, err)
	assert.Equal(t, 1, src.Len())
}

func TestOpenXLSX_MissingColumns(t *testing.T) {
	path := writeTestWorkbook(t, [][]any{
		{"id", "title"},
		{"rec-1", "Wrap film"},
	})

	_, err := OpenXLSX(path, "")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidArgument))
}

func TestOpenXLSX_MissingFile(t *testing.T) {
	_, err := OpenXLSX(filepath.Join(t.TempDir(), "nope.xlsx"), "")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnavailable))
}
