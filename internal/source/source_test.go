package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productgraph/resolver/internal/domain"
	domainerrors "github.com/productgraph/resolver/internal/errors"
)

func collectAll(t *testing.T, src Source) []*domain.Record {
	t.Helper()
	var out []*domain.Record
	for rec, err := range src.IterateAll(context.Background()) {
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestNewMemory(t *testing.T) {
	records := []*domain.Record{
		{ID: "rec-1", SourceKey: "acme", ManufacturerRaw: "3M", PartNumberRaw: "1080-G12"},
		{ID: "rec-2", SourceKey: "zoro", ManufacturerRaw: "Bosch", PartNumberRaw: "GSB18"},
	}

	m, err := NewMemory(records)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	got := collectAll(t, m)
	require.Len(t, got, 2)
	assert.Equal(t, "rec-1", got[0].ID)
	assert.Equal(t, "rec-2", got[1].ID)
}

func TestNewMemory_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewMemory([]*domain.Record{
		{ID: "rec-1", SourceKey: "acme"},
		{ID: "rec-1", SourceKey: "zoro"},
	})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))
}

func TestNewMemory_RejectsEmptyID(t *testing.T) {
	_, err := NewMemory([]*domain.Record{{SourceKey: "acme"}})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidArgument))
}

func TestMemory_Get(t *testing.T) {
	m, err := NewMemory([]*domain.Record{{ID: "rec-1", SourceKey: "acme"}})
	require.NoError(t, err)

	rec, err := m.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "acme", rec.SourceKey)

	_, err = m.Get(context.Background(), "rec-404")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestMemory_IterateAllHonorsCancellation(t *testing.T) {
	m, err := NewMemory([]*domain.Record{
		{ID: "rec-1"}, {ID: "rec-2"}, {ID: "rec-3"},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var count int
	var lastErr error
	for rec, err := range m.IterateAll(ctx) {
		if err != nil {
			lastErr = err
			break
		}
		_ = rec
		count++
	}
	assert.Zero(t, count)
	assert.ErrorIs(t, lastErr, context.Canceled)
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Part Number", "part_number"},
		{"  MANUFACTURER NAME ", "manufacturer_name"},
		{"GTIN-14", "gtin_14"},
		{"unspsc", "unspsc"},
		{"Source / Key", "source_key"},
		{"", ""},
		{"___", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeHeader(tt.in), "header %q", tt.in)
	}
}

func TestMapColumns_Synonyms(t *testing.T) {
	ci, err := mapColumns([]string{"Product ID", "Vendor", "Brand", "MPN", "Name", "Long Description", "Commodity Code", "UPC"})
	require.NoError(t, err)

	assert.Equal(t, 0, ci.id)
	assert.Equal(t, 1, ci.sourceKey)
	assert.Equal(t, 2, ci.manufacturer)
	assert.Equal(t, 3, ci.partNumber)
	assert.Equal(t, 4, ci.title)
	assert.Equal(t, 5, ci.description)
	assert.Equal(t, 6, ci.unspsc)
	assert.Equal(t, 7, ci.gtin)
}

func TestMapColumns_MissingRequired(t *testing.T) {
	_, err := mapColumns([]string{"id", "title"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source_key")
	assert.Contains(t, err.Error(), "manufacturer")
	assert.Contains(t, err.Error(), "part_number")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidArgument))
}

func TestReadCSV(t *testing.T) {
	data := strings.Join([]string{
		"id,source_key,manufacturer,part_number,title,description,unspsc,gtin",
		"rec-1,acme,3M,1080-G12,Wrap film,Gloss black,31201512,00638060623466",
		"", // blank line is skipped
		"rec-2,zoro,Bosch,GSB18,,,,",
	}, "\n")

	records, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, &domain.Record{
		ID:              "rec-1",
		SourceKey:       "acme",
		ManufacturerRaw: "3M",
		PartNumberRaw:   "1080-G12",
		Title:           "Wrap film",
		Description:     "Gloss black",
		UNSPSC:          "31201512",
		GTIN:            "00638060623466",
	}, records[0])
	assert.Equal(t, "rec-2", records[1].ID)
	assert.Empty(t, records[1].Title)
}

func TestReadCSV_SynonymHeaders(t *testing.T) {
	data := "Product ID,Vendor,Brand,MPN\nrec-1,acme,3M,1080-G12\n"

	records, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "acme", records[0].SourceKey)
	assert.Equal(t, "3M", records[0].ManufacturerRaw)
}

func TestReadCSV_ShortRowsTolerated(t *testing.T) {
	data := "id,source_key,manufacturer,part_number,title\nrec-1,acme,3M,1080-G12\n"

	records, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Title)
}

func TestReadCSV_RowWithoutID(t *testing.T) {
	data := "id,source_key,manufacturer,part_number\n,acme,3M,1080-G12\n"

	_, err := ReadCSV(strings.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidArgument))
}

func TestOpenCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	data := "id,source_key,manufacturer,part_number\nrec-1,acme,3M,1080-G12\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	src, err := OpenCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 1, src.Len())

	rec, err := src.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "3M", rec.ManufacturerRaw)
}

func TestOpenCSV_MissingFile(t *testing.T) {
	_, err := OpenCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnavailable))
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open(Config{Type: "ftp"})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidArgument))

	_, err = Open(Config{})
	require.Error(t, err)
}
