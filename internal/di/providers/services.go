package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/productgraph/resolver/internal/logger"
	"github.com/productgraph/resolver/internal/scoring"
	"github.com/productgraph/resolver/internal/service"
)

// ProvideResolverService provides the read-side resolver service.
func ProvideResolverService(i do.Injector) (*service.ResolverService, error) {
	srcHandle := do.MustInvoke[*SourceHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	scorer := do.MustInvoke[*scoring.Scorer](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewResolverService(srcHandle.Source, storeHandle.Store, indexHandle.SearchIndex, scorer, log.Logger), nil
}

// TriggerSearchReindexIfNeeded rebuilds the search index when it is empty but
// a published generation exists, e.g. after the index directory was wiped or
// the mapping version changed. Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	svc := do.MustInvoke[*service.ResolverService](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	golden, err := storeHandle.AllGoldenRecords(ctx)
	if err != nil || len(golden) == 0 {
		return
	}

	log.Info("Search index is empty but golden records exist, triggering reindex",
		"golden_records", len(golden),
	)

	go func() {
		if err := svc.RebuildSearchIndex(context.Background()); err != nil {
			log.Error("Search reindex failed", "error", err)
		} else {
			count, _ := indexHandle.DocumentCount()
			log.Info("Search reindex completed", "documents", count)
		}
	}()
}
