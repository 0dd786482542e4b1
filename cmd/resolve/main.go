// Package main provides the entry point for the product resolution pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"golang.org/x/sync/errgroup"

	"github.com/productgraph/resolver/internal/config"
	"github.com/productgraph/resolver/internal/di"
	"github.com/productgraph/resolver/internal/di/providers"
	"github.com/productgraph/resolver/internal/engine"
	domainerrors "github.com/productgraph/resolver/internal/errors"
	"github.com/productgraph/resolver/internal/logger"
	"github.com/productgraph/resolver/internal/service"
	"github.com/productgraph/resolver/internal/trigger"
	"github.com/productgraph/resolver/internal/watcher"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap resolver: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	cfg := do.MustInvoke[*config.Config](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	if cfg.Watch.Enabled {
		runErr = watchAndResolve(ctx, injector, cfg, log)
	} else {
		runErr = resolveOnce(ctx, injector, log)
	}

	log.Info("Shutting down gracefully...")

	// The DI container shuts services down in reverse dependency order:
	// source, sinks, search index, store.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Exit("Resolution failed", runErr)
	}
}

// resolveOnce executes a single resolution run with the engine built at
// startup.
func resolveOnce(ctx context.Context, injector *do.RootScope, log *logger.Logger) error {
	eng := do.MustInvoke[*engine.Engine](injector)
	return runAndPublish(ctx, injector, eng, log)
}

// runAndPublish drives one run end to end: resolve, record the run summary,
// and refresh the search index from the newly committed generation.
func runAndPublish(ctx context.Context, injector *do.RootScope, eng *engine.Engine, log *logger.Logger) error {
	storeHandle := do.MustInvoke[*providers.StoreHandle](injector)
	svc := do.MustInvoke[*service.ResolverService](injector)

	summary, err := eng.Run(ctx, engine.RunOptions{})
	if err != nil {
		return err
	}

	if gen, err := storeHandle.CurrentGeneration(); err == nil {
		summary.Generation = gen
	}
	if err := storeHandle.SaveRunSummary(ctx, summary); err != nil {
		return err
	}

	if err := svc.RebuildSearchIndex(ctx); err != nil {
		return err
	}

	log.Info("Run published",
		"run_id", summary.RunID,
		"generation", summary.Generation,
		"records", summary.Records,
		"candidate_pairs", summary.CandidatePairs,
		"edges", summary.Edges,
		"golden_records", summary.GoldenRecords,
		"singletons", summary.Singletons,
		"degraded", summary.Degraded,
		"duration_ms", summary.DurationMS,
	)
	return nil
}

// watchAndResolve runs once, then rebuilds whenever the catalog or alias
// files change. Events are debounced so rename-swapped exports settle into a
// single rebuild, and rebuild starts are spaced by the configured minimum
// interval.
func watchAndResolve(ctx context.Context, injector *do.RootScope, cfg *config.Config, log *logger.Logger) error {
	if cfg.Source.Path == "" {
		return domainerrors.InvalidArgument("watch mode requires a file-backed catalog source")
	}

	w, err := watcher.New(log.Logger, 0)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	if err := w.Watch(cfg.Source.Path); err != nil {
		return err
	}
	if cfg.Alias.Path != "" {
		if err := w.Watch(cfg.Alias.Path); err != nil {
			return err
		}
	}

	trig := trigger.New(trigger.Config{
		Quiet:       cfg.Watch.Debounce,
		MinInterval: cfg.Watch.MinInterval,
	}, log.Logger)

	// Initial run before watching; the startup engine already holds the
	// current file content. Watch mode survives a failed run, the next
	// change retries.
	if err := resolveOnce(ctx, injector, log); err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.Error("Initial run failed", "error", err)
	}

	log.Info("Watching for catalog changes",
		"catalog", cfg.Source.Path,
		"alias", cfg.Alias.Path,
		"debounce", cfg.Watch.Debounce,
		"min_interval", cfg.Watch.MinInterval,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Start(ctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-w.Events():
				if !ok {
					return nil
				}
				trig.Notify(ev.Type.String() + " " + ev.Path)
			case werr, ok := <-w.Errors():
				if !ok {
					return nil
				}
				log.Warn("Watcher error", "error", werr)
			}
		}
	})

	g.Go(func() error {
		return trig.Run(ctx, func(ctx context.Context, reasons []string) error {
			eng, closeSource, err := providers.NewRunPipeline(injector)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := closeSource(); cerr != nil {
					log.Warn("Closing catalog source failed", "error", cerr)
				}
			}()
			return runAndPublish(ctx, injector, eng, log)
		})
	})

	return g.Wait()
}
