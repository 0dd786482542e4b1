// Package main provides a terminal inspector for a resolver data directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/productgraph/resolver/internal/alias"
	"github.com/productgraph/resolver/internal/domain"
	"github.com/productgraph/resolver/internal/scoring"
	"github.com/productgraph/resolver/internal/search"
	"github.com/productgraph/resolver/internal/service"
	"github.com/productgraph/resolver/internal/source"
	"github.com/productgraph/resolver/internal/store"
)

const usageText = `Usage: dbinspect <command> [arguments]

Inspect a resolver data directory. The store is opened read-only; run this
against a data directory no resolve process is using.

Commands:
  stats                      published generation statistics
  run                        last run summary with phase timings
  golden <golden-id>         one golden record with its members
  member <record-id>         the golden record containing a source record
  record <record-id>         one catalog record (needs SOURCE_* env)
  list [flags]               filtered golden record listing
  search <query> [flags]     free-text search over golden records
  compare <id-a> <id-b>      pairwise score breakdown (needs SOURCE_* env)

Environment:
  DATA_PATH      resolver data directory (default $HOME/ProductGraph/data)
  SOURCE_TYPE    catalog backend for record/compare: csv, xlsx, sql
  SOURCE_PATH    catalog file (csv, xlsx)
  SOURCE_DSN     catalog connection string (sql)
  SOURCE_DRIVER  sql driver (default sqlite)
  SOURCE_TABLE   catalog table (default records)
  SOURCE_SHEET   xlsx worksheet (default first sheet)
  ALIAS_PATH     manufacturer alias csv, used by compare
`

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	ctx := context.Background()

	switch cmd {
	case "stats":
		cmdStats(ctx)
	case "run":
		cmdRun(ctx)
	case "golden":
		cmdGolden(ctx, args)
	case "member":
		cmdMember(ctx, args)
	case "record":
		cmdRecord(ctx, args)
	case "list":
		cmdList(ctx, args)
	case "search":
		cmdSearch(ctx, args)
	case "compare":
		cmdCompare(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", cmd, usageText)
		os.Exit(2)
	}
}

// dataPath resolves the data directory the same way the resolver does.
func dataPath() string {
	if p := os.Getenv("DATA_PATH"); p != "" {
		return p
	}
	return os.ExpandEnv("$HOME/ProductGraph/data")
}

// quietLogger keeps informational store and index chatter out of the command
// output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// openStore opens the badger store read-only.
func openStore() *store.Store {
	st, err := store.NewReadOnly(filepath.Join(dataPath(), "db"), nil)
	if err != nil {
		log.Fatalf("Failed to open store at %s: %v", dataPath(), err)
	}
	return st
}

// openIndex opens the bleve index alongside the store.
func openIndex() *search.SearchIndex {
	idx, err := search.NewSearchIndex(search.Options{
		DataPath: dataPath(),
		Logger:   quietLogger(),
	})
	if err != nil {
		log.Fatalf("Failed to open search index at %s: %v", dataPath(), err)
	}
	return idx
}

// openSource opens the catalog named by the SOURCE_* environment, or fails
// with a hint when none is configured.
func openSource() source.Source {
	cfg := source.Config{
		Type:   envOr("SOURCE_TYPE", "csv"),
		Path:   os.Getenv("SOURCE_PATH"),
		DSN:    os.Getenv("SOURCE_DSN"),
		Driver: envOr("SOURCE_DRIVER", "sqlite"),
		Table:  envOr("SOURCE_TABLE", "records"),
		Sheet:  os.Getenv("SOURCE_SHEET"),
	}
	if cfg.Path == "" && cfg.DSN == "" {
		log.Fatal("This command reads the catalog: set SOURCE_PATH (csv, xlsx) or SOURCE_DSN (sql)")
	}

	src, err := source.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	return src
}

// newScorer builds a scorer with default weights and the ALIAS_PATH table,
// matching what a run with default configuration uses.
func newScorer() *scoring.Scorer {
	var table alias.Table
	if path := os.Getenv("ALIAS_PATH"); path != "" {
		var err error
		table, err = alias.LoadCSV(path)
		if err != nil {
			log.Fatalf("Failed to load alias table: %v", err)
		}
	}
	return scoring.New(scoring.DefaultWeights(), alias.NewResolver(table, 0.93), 0)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func cmdStats(ctx context.Context) {
	st := openStore()
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}

	fmt.Println("=== Store Statistics ===")
	fmt.Printf("Data path:             %s\n", dataPath())
	fmt.Printf("Generation:            %d\n", stats.Generation)
	fmt.Printf("Golden records:        %d\n", stats.GoldenRecords)
	fmt.Printf("Member records:        %d\n", stats.MemberRecords)
	fmt.Printf("Pair scores:           %d\n", stats.PairScores)
	fmt.Printf("Singletons:            %d\n", stats.Singletons)
	fmt.Printf("Multi-source clusters: %d\n", stats.MultiSourceClusters)
	fmt.Printf("Largest cluster:       %d\n", stats.LargestClusterSize)

	if len(stats.SizeDistribution) > 0 {
		fmt.Println()
		fmt.Println("Cluster size distribution:")
		sizes := make([]int, 0, len(stats.SizeDistribution))
		for size := range stats.SizeDistribution {
			sizes = append(sizes, size)
		}
		sort.Ints(sizes)
		for _, size := range sizes {
			fmt.Printf("  %4d members: %d\n", size, stats.SizeDistribution[size])
		}
	}

	if len(stats.TopManufacturers) > 0 {
		fmt.Println()
		fmt.Println("Top manufacturers:")
		for _, fc := range stats.TopManufacturers {
			fmt.Printf("  %-32s %d\n", fc.Value, fc.Count)
		}
	}
}

func cmdRun(ctx context.Context) {
	st := openStore()
	defer st.Close()

	summary, err := st.LastRunSummary(ctx)
	if err != nil {
		log.Fatalf("Failed to read last run: %v", err)
	}

	fmt.Println("=== Last Run ===")
	fmt.Printf("Run ID:          %s\n", summary.RunID)
	fmt.Printf("Generation:      %d\n", summary.Generation)
	fmt.Printf("Started:         %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Duration:        %d ms\n", summary.DurationMS)
	fmt.Printf("Records:         %d\n", summary.Records)
	fmt.Printf("Buckets:         %d (largest %d)\n", summary.Buckets, summary.LargestBucket)
	fmt.Printf("Overflow size:   %d\n", summary.OverflowSize)
	fmt.Printf("Candidate pairs: %d\n", summary.CandidatePairs)
	fmt.Printf("Edges:           %d\n", summary.Edges)
	fmt.Printf("Golden records:  %d (%d merged, %d singletons)\n",
		summary.GoldenRecords, summary.MergedClusters, summary.Singletons)
	fmt.Printf("Degraded:        %v\n", summary.Degraded)

	if len(summary.Phases) > 0 {
		fmt.Println()
		fmt.Println("Phases:")
		for _, phase := range summary.Phases {
			fmt.Printf("  %-12s %6d ms\n", phase.Name, phase.DurationMS)
		}
	}
}

func cmdGolden(ctx context.Context, args []string) {
	if len(args) != 1 {
		log.Fatal("Usage: dbinspect golden <golden-id>")
	}

	st := openStore()
	defer st.Close()

	golden, err := st.GetGoldenRecord(ctx, args[0])
	if err != nil {
		log.Fatalf("Failed to get golden record: %v", err)
	}
	printGolden(golden)
}

func cmdMember(ctx context.Context, args []string) {
	if len(args) != 1 {
		log.Fatal("Usage: dbinspect member <record-id>")
	}

	st := openStore()
	defer st.Close()

	golden, err := st.GoldenForRecord(ctx, args[0])
	if err != nil {
		log.Fatalf("Failed to find cluster for record: %v", err)
	}
	printGolden(golden)
}

func cmdRecord(ctx context.Context, args []string) {
	if len(args) != 1 {
		log.Fatal("Usage: dbinspect record <record-id>")
	}

	src := openSource()
	defer closeSource(src)

	rec, err := src.Get(ctx, args[0])
	if err != nil {
		log.Fatalf("Failed to get record: %v", err)
	}
	printRecord(rec)
}

func cmdList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	manufacturer := fs.String("manufacturer", "", "canonical manufacturer filter")
	unspsc := fs.String("unspsc", "", "UNSPSC prefix filter (2, 4, 6, or 8 digits)")
	sourceKey := fs.String("source", "", "source key filter")
	minSize := fs.Int("min-size", 0, "minimum cluster size")
	maxSize := fs.Int("max-size", 0, "maximum cluster size")
	sortBy := fs.String("sort", "", "sort: id, title, size, recent")
	sortOrder := fs.String("order", "", "sort order: asc, desc")
	limit := fs.Int("limit", 20, "page size")
	cursor := fs.String("cursor", "", "resume cursor from a previous page")
	_ = fs.Parse(args)

	svc, cleanup := newReadService(true, false)
	defer cleanup()

	page, err := svc.ListGoldenRecords(ctx, service.ListParams{
		Manufacturer: *manufacturer,
		UNSPSCPrefix: *unspsc,
		SourceKey:    *sourceKey,
		MinSize:      *minSize,
		MaxSize:      *maxSize,
		SortBy:       *sortBy,
		SortOrder:    *sortOrder,
		Limit:        *limit,
		Cursor:       *cursor,
	})
	if err != nil {
		log.Fatalf("Failed to list golden records: %v", err)
	}

	for _, golden := range page.Items {
		printGoldenLine(golden)
	}
	fmt.Printf("\n%d golden records", len(page.Items))
	if page.Total > 0 {
		fmt.Printf(" of %d", page.Total)
	}
	fmt.Println()
	if page.HasMore {
		fmt.Printf("Next page: dbinspect list -cursor %s\n", page.NextCursor)
	}
}

func cmdSearch(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	manufacturer := fs.String("manufacturer", "", "canonical manufacturer filter")
	unspsc := fs.String("unspsc", "", "UNSPSC prefix filter")
	limit := fs.Int("limit", 10, "result count")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("Usage: dbinspect search <query> [flags]")
	}

	svc, cleanup := newReadService(true, false)
	defer cleanup()

	result, err := svc.SearchGoldenRecords(ctx, search.SearchParams{
		Query:        fs.Arg(0),
		Manufacturer: *manufacturer,
		UNSPSCPrefix: *unspsc,
		Limit:        *limit,
	})
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	fmt.Printf("%d hits for %q (%d ms)\n\n", result.Total, result.Query, result.TookMs)
	for _, hit := range result.Hits {
		fmt.Printf("%.3f  %s\n", hit.Score, hit.ID)
		fmt.Printf("       %s | %s | %s\n", hit.Manufacturer, hit.PartNumber, hit.Title)
		if hit.Size > 1 {
			fmt.Printf("       %d members\n", hit.Size)
		}
	}
}

func cmdCompare(ctx context.Context, args []string) {
	if len(args) != 2 {
		log.Fatal("Usage: dbinspect compare <id-a> <id-b>")
	}

	svc, cleanup := newReadService(false, true)
	defer cleanup()

	cmp, err := svc.Compare(ctx, args[0], args[1])
	if err != nil {
		log.Fatalf("Compare failed: %v", err)
	}
	printComparison(cmp)
}

// newReadService wires a read-only service with just the dependencies the
// command needs: the store always, the index for listing and search, the
// catalog and scorer for compare.
func newReadService(needIndex, needCatalog bool) (*service.ResolverService, func()) {
	st := openStore()
	cleanups := []func(){func() { _ = st.Close() }}

	var idx *search.SearchIndex
	if needIndex {
		idx = openIndex()
		cleanups = append(cleanups, func() { _ = idx.Close() })
	}

	var src source.Source
	var scorer *scoring.Scorer
	if needCatalog {
		src = openSource()
		cleanups = append(cleanups, func() { closeSource(src) })
		scorer = newScorer()
	}

	svc := service.NewResolverService(src, st, idx, scorer, quietLogger())
	return svc, func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
}

func closeSource(src source.Source) {
	if closer, ok := src.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

func printGolden(g *domain.GoldenRecord) {
	fmt.Printf("Golden record: %s\n", g.ID)
	fmt.Printf("  Generation:   %d\n", g.Generation)
	fmt.Printf("  Created:      %s\n", g.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Manufacturer: %s\n", g.Representative.Manufacturer)
	fmt.Printf("  Part number:  %s\n", g.Representative.PartNumber)
	if g.Representative.Title != "" {
		fmt.Printf("  Title:        %s\n", g.Representative.Title)
	}
	if g.Representative.Description != "" {
		fmt.Printf("  Description:  %s\n", truncate(g.Representative.Description, 120))
	}
	if g.Representative.UNSPSC != "" {
		fmt.Printf("  UNSPSC:       %s\n", g.Representative.UNSPSC)
	}
	if g.Representative.GTIN != "" {
		fmt.Printf("  GTIN:         %s\n", g.Representative.GTIN)
	}
	fmt.Printf("  Members (%d):\n", g.Size)
	for _, id := range g.MemberIDs {
		fmt.Printf("    %s\n", id)
	}
	if len(g.SourceKeys) > 0 {
		fmt.Printf("  Sources:      %s\n", strings.Join(g.SourceKeys, ", "))
	}
}

func printGoldenLine(g *domain.GoldenRecord) {
	title := g.Representative.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Printf("%s  size=%d  %s | %s | %s\n",
		g.ID, g.Size, g.Representative.Manufacturer, g.Representative.PartNumber, truncate(title, 60))
}

func printRecord(r *domain.Record) {
	fmt.Printf("Record: %s\n", r.ID)
	fmt.Printf("  Source:       %s\n", r.SourceKey)
	fmt.Printf("  Manufacturer: %s\n", r.ManufacturerRaw)
	fmt.Printf("  Part number:  %s\n", r.PartNumberRaw)
	if r.Title != "" {
		fmt.Printf("  Title:        %s\n", r.Title)
	}
	if r.Description != "" {
		fmt.Printf("  Description:  %s\n", truncate(r.Description, 120))
	}
	if r.UNSPSC != "" {
		fmt.Printf("  UNSPSC:       %s\n", r.UNSPSC)
	}
	if r.GTIN != "" {
		fmt.Printf("  GTIN:         %s\n", r.GTIN)
	}
}

func printComparison(c *domain.Comparison) {
	fmt.Println("=== Comparison ===")
	fmt.Printf("A: %s  %s | %s (%s)\n", c.ProductA.ID, c.ProductA.Manufacturer, c.ProductA.PartNumber, c.ProductA.SourceKey)
	fmt.Printf("B: %s  %s | %s (%s)\n", c.ProductB.ID, c.ProductB.Manufacturer, c.ProductB.PartNumber, c.ProductB.SourceKey)
	fmt.Printf("Overall: %.4f", c.OverallScore)
	if c.Cached {
		fmt.Print("  (cached from last run)")
	}
	fmt.Println()
	fmt.Println()

	ps := c.Score
	fmt.Println("Component breakdown:")

	pn := ps.PartNumber
	fmt.Printf("  part_number   %.4f  (contribution %.4f)\n", pn.Score, pn.Contribution)
	if pn.Applicable {
		fmt.Printf("    exact=%v jaro_winkler=%.4f levenshtein=%.4f\n", pn.ExactMatch, pn.BestJaroWinkler, pn.BestLevenshtein)
		if len(pn.MatchingVariants) > 0 {
			fmt.Printf("    matching variants: %s\n", strings.Join(pn.MatchingVariants, ", "))
		}
	} else {
		fmt.Println("    not applicable")
	}

	mf := ps.Manufacturer
	fmt.Printf("  manufacturer  %.4f  (contribution %.4f)\n", mf.Score, mf.Contribution)
	if mf.Applicable {
		fmt.Printf("    %q vs %q -> %q vs %q exact=%v\n", mf.RawA, mf.RawB, mf.CanonicalA, mf.CanonicalB, mf.ExactMatch)
	} else {
		fmt.Println("    not applicable")
	}

	tx := ps.Text
	fmt.Printf("  text          %.4f  (contribution %.4f)\n", tx.Score, tx.Contribution)
	if tx.Applicable {
		fmt.Printf("    title_jaccard=%.4f desc_jaccard=%.4f tfidf=%.4f\n", tx.TitleJaccard, tx.DescriptionJaccard, tx.TFIDFCosine)
	} else {
		fmt.Println("    not applicable")
	}

	if ps.UNSPSC != nil {
		fmt.Printf("  unspsc        %.4f  (contribution %.4f)\n", ps.UNSPSC.Score, ps.UNSPSC.Contribution)
		fmt.Printf("    %s vs %s tier=%s\n", ps.UNSPSC.CodeA, ps.UNSPSC.CodeB, ps.UNSPSC.MatchTier)
	} else {
		fmt.Println("  unspsc        not applicable")
	}

	if ps.GTIN != nil {
		fmt.Printf("  gtin          %.4f  (contribution %.4f)\n", ps.GTIN.Score, ps.GTIN.Contribution)
		fmt.Printf("    %s vs %s equal=%v\n", ps.GTIN.GTINA, ps.GTIN.GTINB, ps.GTIN.Equal)
	} else {
		fmt.Println("  gtin          not applicable")
	}

	if ps.Synergy != nil {
		fmt.Printf("  synergy       +%.4f (%d strong signals)\n", ps.Synergy.Bonus, ps.Synergy.StrongSignals)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
