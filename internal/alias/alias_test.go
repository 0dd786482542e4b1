package alias

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/productgraph/resolver/internal/errors"
)

func testTable() Table {
	return Table{
		"3M":        {"Minnesota Mining and Manufacturing", "MMM"},
		"Microsoft": {"MSFT"},
		"Eaton":     {"Cutler-Hammer", "Eaton Corp"},
	}
}

func TestResolver_ExactAlias(t *testing.T) {
	r := NewResolver(testTable(), 0)

	assert.Equal(t, "3M", r.Resolve("Minnesota Mining and Manufacturing"))
	assert.Equal(t, "3M", r.Resolve("MMM"))
	assert.Equal(t, "EATON", r.Resolve("Cutler-Hammer"))
}

func TestResolver_AmpersandMeetsTable(t *testing.T) {
	r := NewResolver(testTable(), 0)

	// "&" expands to "AND" during normalization, landing on the alias entry.
	assert.Equal(t, "3M", r.Resolve("Minnesota Mining & Manufacturing"))
}

func TestResolver_CanonicalSelfHit(t *testing.T) {
	r := NewResolver(testTable(), 0)

	assert.Equal(t, "3M", r.Resolve("3M"))
	assert.Equal(t, "MICROSOFT", r.Resolve("Microsoft"))
}

func TestResolver_CorporateSuffixAlone(t *testing.T) {
	r := NewResolver(testTable(), 0)

	// Suffix stripping alone unifies these, no table entry needed.
	assert.Equal(t, r.Resolve("3M"), r.Resolve("3M Company"))
	assert.Equal(t, "EATON", r.Resolve("Eaton Corp"))
	assert.Equal(t, "EATON", r.Resolve("eaton corporation"))
}

func TestResolver_FuzzyMatch(t *testing.T) {
	r := NewResolver(testTable(), 0)

	// One substitution away from MICROSOFT, above the acceptance bar.
	assert.Equal(t, "MICROSOFT", r.Resolve("Mikrosoft"))
}

func TestResolver_FuzzyBelowThreshold(t *testing.T) {
	r := NewResolver(Table{"Acme": nil}, 0)

	// ACNE vs ACME scores ~0.87, under the default bar: self-identity.
	assert.Equal(t, "ACNE", r.Resolve("Acne"))
}

func TestResolver_SelfIdentityWithoutTable(t *testing.T) {
	r := NewResolver(nil, 0)

	assert.Equal(t, "ACME", r.Resolve("Acme Corp"))
	assert.Equal(t, "BOSCH", r.Resolve("Bosch GmbH"))
	assert.Equal(t, "", r.Resolve(""))
	assert.Equal(t, "", r.Resolve("Inc"))
}

func TestResolver_Deterministic(t *testing.T) {
	inputs := []string{"Mikrosoft", "Acme Corp", "MMM", "unknown vendor"}

	a := NewResolver(testTable(), 0)
	b := NewResolver(testTable(), 0)
	for _, in := range inputs {
		assert.Equal(t, a.Resolve(in), b.Resolve(in), "input %q", in)
	}
}

func TestResolver_ConcurrentResolve(t *testing.T) {
	r := NewResolver(testTable(), 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "3M", r.Resolve("Minnesota Mining and Manufacturing"))
				assert.Equal(t, "EATON", r.Resolve("Cutler-Hammer"))
				assert.Equal(t, "UNKNOWN VENDOR", r.Resolve("Unknown Vendor"))
			}
		}()
	}
	wg.Wait()
}

func TestResolver_Entries(t *testing.T) {
	r := NewResolver(testTable(), 0)

	// 3 canonicals + 4 distinct aliases; "Eaton Corp" collapses onto EATON.
	assert.Equal(t, 7, r.Entries())
	assert.Equal(t, 0, NewResolver(nil, 0).Entries())
}

func TestReadCSV(t *testing.T) {
	input := strings.Join([]string{
		"canonical,aliases",
		"3M,3M Company|Minnesota Mining and Manufacturing|MMM",
		"Eaton,Cutler-Hammer",
		"Initech,",
		"",
	}, "\n")

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, table, 3)
	assert.Equal(t, []string{"3M Company", "Minnesota Mining and Manufacturing", "MMM"}, table["3M"])
	assert.Equal(t, []string{"Cutler-Hammer"}, table["Eaton"])
	assert.Empty(t, table["Initech"])
}

func TestReadCSV_NoHeader(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("Eaton,Cutler-Hammer\n"))
	require.NoError(t, err)

	assert.Len(t, table, 1)
	assert.Equal(t, []string{"Cutler-Hammer"}, table["Eaton"])
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV("/nonexistent/aliases.csv")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnavailable))
}
