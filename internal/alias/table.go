package alias

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	domainerrors "github.com/productgraph/resolver/internal/errors"
)

// Table maps canonical manufacturer names to their known aliases. Keys and
// values may be in any raw form; the resolver canonicalizes both.
type Table map[string][]string

// LoadCSV reads an alias table from a CSV file laid out as
// `canonical,aliases` with pipe-separated aliases:
//
//	canonical,aliases
//	3M,3M Company|Minnesota Mining and Manufacturing|MMM
//	Eaton,Eaton Corp|Cutler-Hammer
func LoadCSV(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeUnavailable, "opening alias table %s", path)
	}
	defer f.Close()

	table, err := ReadCSV(f)
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeInvalidArgument, "reading alias table %s", path)
	}
	return table, nil
}

// ReadCSV parses alias rows from a reader. A leading `canonical,...` header
// row is skipped; rows without a canonical name are ignored.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, domainerrors.InvalidArgument("malformed alias CSV").WithCause(err)
	}

	table := make(Table, len(records))
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		canonical := strings.TrimSpace(rec[0])
		if canonical == "" {
			continue
		}
		if i == 0 && strings.EqualFold(canonical, "canonical") {
			continue
		}

		var aliases []string
		if len(rec) > 1 {
			for _, a := range strings.Split(rec[1], "|") {
				if a = strings.TrimSpace(a); a != "" {
					aliases = append(aliases, a)
				}
			}
		}
		table[canonical] = append(table[canonical], aliases...)
	}
	return table, nil
}
