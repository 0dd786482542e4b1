// Package main generates synthetic vendor catalogs for resolver testing.
//
// A pool of distinct products is generated first; vendors then list
// overlapping subsets of that pool with vendor-specific formatting: part
// numbers are reformatted or pick up packaging suffixes, manufacturers appear
// under alias spellings, titles are reworded, and multi-vendor listings often
// share the product GTIN. Listings that trace to the same pool product are
// the duplicates a resolution run should merge; the expected clustering is
// written alongside the catalog.
//
// Usage:
//
//	go run ./cmd/seed -out ./seed-data
//	go run ./cmd/seed -out ./seed-data -products 500 -vendors 4 -format xlsx
//	go run ./cmd/seed -out ./seed-data -format sqlite
package main

import (
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"
)

var (
	outDir   = flag.String("out", "./seed-data", "Output directory")
	products = flag.Int("products", 200, "Distinct products in the pool")
	vendors  = flag.Int("vendors", 3, "Vendor catalogs to simulate")
	overlap  = flag.Float64("overlap", 0.6, "Fraction of products listed by more than one vendor")
	format   = flag.String("format", "csv", "Catalog output format: csv, xlsx, sqlite")
	seed     = flag.Int64("seed", 1, "Random seed (same seed, same catalog)")
)

// catalogHeader matches the canonical column names the resolver's source
// backends map first.
var catalogHeader = []string{"id", "source_key", "manufacturer", "part_number", "title", "description", "unspsc", "gtin"}

// manufacturerPool pairs each canonical manufacturer with the alias
// spellings vendors use for it. The display name is the first alias.
var manufacturerPool = []struct {
	canonical string
	aliases   []string
}{
	{"3M", []string{"3M", "3M Company", "3M Co.", "Minnesota Mining and Manufacturing"}},
	{"BOSCH", []string{"Bosch", "Robert Bosch GmbH", "Bosch Professional", "BOSCH"}},
	{"DEWALT", []string{"DeWalt", "DEWALT Industrial Tool Co", "De Walt"}},
	{"MAKITA", []string{"Makita", "Makita Corporation", "Makita USA Inc"}},
	{"SIEMENS", []string{"Siemens", "Siemens AG", "Siemens Industry"}},
	{"HONEYWELL", []string{"Honeywell", "Honeywell International Inc.", "Honeywell Safety"}},
	{"STANLEY", []string{"Stanley", "Stanley Black and Decker", "Stanley Works"}},
	{"PARKER", []string{"Parker", "Parker Hannifin Corp", "Parker-Hannifin"}},
}

// itemPool drives titles and classification: each entry is a product kind
// with its UNSPSC commodity code.
var itemPool = []struct {
	noun   string
	unspsc string
}{
	{"Impact Driver", "27112004"},
	{"Angle Grinder", "27112042"},
	{"Torque Wrench", "27111701"},
	{"Hammer Drill", "27112003"},
	{"Circular Saw", "27112005"},
	{"Nitrile Gloves", "46181504"},
	{"Safety Glasses", "46181802"},
	{"Ear Muffs", "46181902"},
	{"Ball Valve", "40141607"},
	{"Hydraulic Hose", "40142007"},
	{"Hex Bolt", "31161501"},
	{"Lock Washer", "31161807"},
	{"Deep Groove Bearing", "31171504"},
	{"V-Belt", "26111703"},
	{"Air Filter", "40161505"},
	{"Proximity Sensor", "41112205"},
	{"Circuit Breaker", "39121601"},
	{"Wire Connector", "39121409"},
	{"Cut-Off Wheel", "31191505"},
	{"Grease Cartridge", "15121902"},
}

var adjectivePool = []string{
	"Heavy-Duty", "Industrial", "Professional", "Compact", "High-Torque",
	"Insulated", "Stainless Steel", "Cordless", "Reinforced", "Precision",
}

var specPool = []string{
	"1/2 in", "3/8 in", "M8 x 40", "18V", "230V", "Size L", "Size XL",
	"10 mm", "25 mm", "DN15", "Class 150", "Grade 8.8", "2000 RPM", "IP67",
}

var fragmentPool = []string{
	"For continuous industrial use.",
	"Meets ANSI and CE requirements.",
	"Corrosion resistant finish.",
	"Supplied with manufacturer warranty.",
	"Suitable for confined spaces.",
	"Vibration damped housing.",
	"Temperature rated to 120 C.",
	"Packaged for automated dispensing.",
}

// vendorPool provides source keys; extra vendors beyond the pool get
// numbered keys.
var vendorPool = []string{
	"northline", "acme-supply", "vulcan-industrial", "pioneer-mro", "crescent-tools",
}

// product is one distinct pool entry; listings are derived from it.
type product struct {
	mfr         int
	partNumber  string
	title       string
	description string
	unspsc      string
	gtin        string
}

// listing is one catalog row.
type listing struct {
	id           string
	sourceKey    string
	manufacturer string
	partNumber   string
	title        string
	description  string
	unspsc       string
	gtin         string
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *products < 1 || *vendors < 1 {
		log.Fatal("products and vendors must be at least 1")
	}
	if *overlap < 0 || *overlap > 1 {
		log.Fatal("overlap must be in [0,1]")
	}

	f := gofakeit.New(*seed)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	pool := generateProducts(f, *products)
	listings, clusters := generateListings(f, pool, *vendors, *overlap)

	rows := make([][]string, 0, len(listings)+1)
	rows = append(rows, catalogHeader)
	for _, l := range listings {
		rows = append(rows, []string{l.id, l.sourceKey, l.manufacturer, l.partNumber, l.title, l.description, l.unspsc, l.gtin})
	}

	var catalogPath string
	var err error
	switch *format {
	case "csv":
		catalogPath = filepath.Join(*outDir, "catalog.csv")
		err = writeCSV(catalogPath, rows)
	case "xlsx":
		catalogPath = filepath.Join(*outDir, "catalog.xlsx")
		err = writeXLSX(catalogPath, rows)
	case "sqlite":
		catalogPath = filepath.Join(*outDir, "catalog.db")
		err = writeSQLite(catalogPath, listings)
	default:
		log.Fatalf("Unknown format %q (must be csv, xlsx, or sqlite)", *format)
	}
	if err != nil {
		log.Fatalf("Failed to write catalog: %v", err)
	}

	aliasPath := filepath.Join(*outDir, "aliases.csv")
	if err := writeAliases(aliasPath); err != nil {
		log.Fatalf("Failed to write alias table: %v", err)
	}

	truthPath := filepath.Join(*outDir, "expected_clusters.csv")
	if err := writeExpectedClusters(truthPath, clusters); err != nil {
		log.Fatalf("Failed to write expected clusters: %v", err)
	}

	duplicates := len(listings) - len(pool)
	fmt.Printf("Generated %d listings across %d vendors (%d products, %d injected duplicates)\n",
		len(listings), *vendors, len(pool), duplicates)
	fmt.Printf("  catalog:           %s\n", catalogPath)
	fmt.Printf("  alias table:       %s\n", aliasPath)
	fmt.Printf("  expected clusters: %s\n", truthPath)
	fmt.Println()
	fmt.Println("Run the resolver against it:")
	switch *format {
	case "sqlite":
		fmt.Printf("  resolve --source-type sql --source-dsn %s --alias-path %s\n", catalogPath, aliasPath)
	default:
		fmt.Printf("  resolve --source-type %s --source-path %s --alias-path %s\n", *format, catalogPath, aliasPath)
	}
}

// generateProducts builds the distinct product pool.
func generateProducts(f *gofakeit.Faker, n int) []product {
	pool := make([]product, 0, n)
	seen := make(map[string]struct{}, n)

	for len(pool) < n {
		item := itemPool[f.Number(0, len(itemPool)-1)]
		mfr := f.Number(0, len(manufacturerPool)-1)
		pn := generatePartNumber(f)
		if _, dup := seen[pn]; dup {
			continue
		}
		seen[pn] = struct{}{}

		adjective := adjectivePool[f.Number(0, len(adjectivePool)-1)]
		spec := specPool[f.Number(0, len(specPool)-1)]
		title := fmt.Sprintf("%s %s, %s", adjective, item.noun, spec)

		description := fmt.Sprintf("%s %s rated %s. %s %s",
			adjective, strings.ToLower(item.noun), spec,
			fragmentPool[f.Number(0, len(fragmentPool)-1)],
			fragmentPool[f.Number(0, len(fragmentPool)-1)],
		)

		gtin := ""
		if f.Number(0, 99) < 70 {
			gtin = f.Numerify("00############")
		}

		pool = append(pool, product{
			mfr:         mfr,
			partNumber:  pn,
			title:       title,
			description: description,
			unspsc:      item.unspsc,
			gtin:        gtin,
		})
	}
	return pool
}

// generatePartNumber produces a canonical manufacturer part number such as
// "TK382-4471". Letters avoid O, I, and L so the OCR-fold perturbation stays
// reversible.
func generatePartNumber(f *gofakeit.Faker) string {
	const letters = "ABCDEFGHJKMNPQRSTUVWXYZ"
	prefixLen := f.Number(2, 3)
	var b strings.Builder
	for range prefixLen {
		b.WriteByte(letters[f.Number(0, len(letters)-1)])
	}
	return fmt.Sprintf("%s%s-%s", b.String(), f.Numerify("###"), f.Numerify("####"))
}

// generateListings turns the pool into vendor rows and returns the expected
// clustering keyed by pool index.
func generateListings(f *gofakeit.Faker, pool []product, vendorCount int, overlap float64) ([]listing, [][]string) {
	keys := vendorKeys(vendorCount)
	counters := make([]int, vendorCount)
	listings := make([]listing, 0, len(pool)*2)
	clusters := make([][]string, len(pool))

	overlapPct := int(overlap * 100)

	for pi, p := range pool {
		owner := f.Number(0, vendorCount-1)
		assigned := []int{owner}

		if vendorCount > 1 && f.Number(0, 99) < overlapPct {
			extras := f.Number(1, min(2, vendorCount-1))
			for range extras {
				v := f.Number(0, vendorCount-1)
				if !slices.Contains(assigned, v) {
					assigned = append(assigned, v)
				}
			}
		}

		for ord, v := range assigned {
			counters[v]++
			id := fmt.Sprintf("%s-%05d", keys[v], counters[v])
			listings = append(listings, makeListing(f, p, id, keys[v], ord == 0))
			clusters[pi] = append(clusters[pi], id)
		}
	}

	return listings, clusters
}

// makeListing renders one vendor's row for a product. The owning vendor's
// row stays close to the canonical product; later rows are perturbed.
func makeListing(f *gofakeit.Faker, p product, id, sourceKey string, owner bool) listing {
	mfr := manufacturerPool[p.mfr]

	l := listing{
		id:           id,
		sourceKey:    sourceKey,
		manufacturer: mfr.aliases[0],
		partNumber:   p.partNumber,
		title:        p.title,
		description:  p.description,
		unspsc:       p.unspsc,
		gtin:         p.gtin,
	}
	if owner {
		return l
	}

	l.manufacturer = mfr.aliases[f.Number(0, len(mfr.aliases)-1)]
	l.partNumber = perturbPartNumber(f, p.partNumber)
	l.title = perturbTitle(f, p.title, mfr.aliases[0])
	l.description = perturbDescription(f, p.description)

	// Class-level classification slip: same family, commodity digits zeroed.
	if f.Number(0, 99) < 10 {
		l.unspsc = p.unspsc[:6] + "00"
	}

	// Most duplicate listings repeat the trade identifier; some omit it or
	// carry a placeholder the resolver must ignore.
	switch {
	case p.gtin == "":
	case f.Number(0, 99) < 70:
		l.gtin = p.gtin
	case f.Number(0, 99) < 50:
		l.gtin = ""
	default:
		l.gtin = "N/A"
	}

	return l
}

// perturbPartNumber applies one formatting change a vendor plausibly makes.
func perturbPartNumber(f *gofakeit.Faker, pn string) string {
	switch f.Number(0, 5) {
	case 0: // drop separators
		return strings.ReplaceAll(pn, "-", "")
	case 1: // lowercase
		return strings.ToLower(pn)
	case 2: // glued catalog prefix
		return "MFG" + strings.ReplaceAll(pn, "-", "")
	case 3: // packaging suffix
		return pn + " EA"
	case 4: // zero read as letter O
		return strings.ReplaceAll(pn, "0", "O")
	default: // separator swap
		return strings.ReplaceAll(pn, "-", ".")
	}
}

// perturbTitle rewords a title the way vendor catalogs do.
func perturbTitle(f *gofakeit.Faker, title, brand string) string {
	switch f.Number(0, 3) {
	case 0:
		return brand + " " + title
	case 1:
		return strings.ToUpper(title)
	case 2:
		return strings.ReplaceAll(title, ", ", " ")
	default:
		return title + " - " + f.RandomString([]string{"Pack of 10", "Single", "Bulk", "Retail Pack"})
	}
}

// perturbDescription shortens, drops, or keeps the description.
func perturbDescription(f *gofakeit.Faker, desc string) string {
	switch f.Number(0, 3) {
	case 0:
		return ""
	case 1:
		if i := strings.Index(desc, ". "); i > 0 {
			return desc[:i+1]
		}
		return desc
	default:
		return desc
	}
}

func vendorKeys(n int) []string {
	keys := make([]string, n)
	for i := range n {
		if i < len(vendorPool) {
			keys[i] = vendorPool[i]
		} else {
			keys[i] = fmt.Sprintf("vendor-%02d", i+1)
		}
	}
	return keys
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return file.Close()
}

func writeXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeSQLite(path string, listings []listing) error {
	// Start from a fresh file so reruns do not accumulate rows.
	_ = os.Remove(path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	const schema = `CREATE TABLE records (
		id TEXT PRIMARY KEY,
		source_key TEXT NOT NULL,
		manufacturer TEXT NOT NULL,
		part_number TEXT NOT NULL,
		title TEXT,
		description TEXT,
		unspsc TEXT,
		gtin TEXT
	)`
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO records (id, source_key, manufacturer, part_number, title, description, unspsc, gtin) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, l := range listings {
		if _, err := stmt.Exec(l.id, l.sourceKey, l.manufacturer, l.partNumber, l.title, l.description, l.unspsc, l.gtin); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// writeAliases emits the manufacturer alias table in the resolver's
// canonical,aliases format with pipe-separated aliases.
func writeAliases(path string) error {
	rows := [][]string{{"canonical", "aliases"}}
	for _, m := range manufacturerPool {
		rows = append(rows, []string{m.canonical, strings.Join(m.aliases, "|")})
	}
	return writeCSV(path, rows)
}

// writeExpectedClusters emits the ground truth: one row per pool product
// with the listing ids that should end up in the same golden record.
func writeExpectedClusters(path string, clusters [][]string) error {
	rows := [][]string{{"product", "listing_ids"}}
	for i, ids := range clusters {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), strings.Join(ids, "|")})
	}
	return writeCSV(path, rows)
}
