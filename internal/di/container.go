// Package di provides dependency injection configuration for the resolver.
package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/productgraph/resolver/internal/alias"
	"github.com/productgraph/resolver/internal/blocking"
	"github.com/productgraph/resolver/internal/cluster"
	"github.com/productgraph/resolver/internal/config"
	"github.com/productgraph/resolver/internal/di/providers"
	"github.com/productgraph/resolver/internal/engine"
	"github.com/productgraph/resolver/internal/logger"
	"github.com/productgraph/resolver/internal/scoring"
	"github.com/productgraph/resolver/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// State layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Catalog layer
	do.Provide(injector, providers.ProvideSource)
	do.Provide(injector, providers.ProvideAliasResolver)

	// Pipeline layer
	do.Provide(injector, providers.ProvideScorer)
	do.Provide(injector, providers.ProvideBlocker)
	do.Provide(injector, providers.ProvideClusterer)
	do.Provide(injector, providers.ProvideSinks)
	do.Provide(injector, providers.ProvideEngine)

	// Services
	do.Provide(injector, providers.ProvideResolverService)

	return injector
}

// Bootstrap initializes all services and returns the first construction error.
// This triggers lazy initialization of the full dependency graph.
func Bootstrap(injector *do.RootScope) error {
	// Core infrastructure
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	// State layer
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return fmt.Errorf("search index: %w", err)
	}

	// Catalog layer
	if _, err := do.Invoke[*providers.SourceHandle](injector); err != nil {
		return fmt.Errorf("catalog source: %w", err)
	}
	if _, err := do.Invoke[*alias.Resolver](injector); err != nil {
		return fmt.Errorf("alias resolver: %w", err)
	}

	// Pipeline layer
	if _, err := do.Invoke[*scoring.Scorer](injector); err != nil {
		return fmt.Errorf("scorer: %w", err)
	}
	if _, err := do.Invoke[*blocking.Blocker](injector); err != nil {
		return fmt.Errorf("blocker: %w", err)
	}
	if _, err := do.Invoke[*cluster.Clusterer](injector); err != nil {
		return fmt.Errorf("clusterer: %w", err)
	}
	if _, err := do.Invoke[*providers.SinkSet](injector); err != nil {
		return fmt.Errorf("sinks: %w", err)
	}
	if _, err := do.Invoke[*engine.Engine](injector); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	// Services
	if _, err := do.Invoke[*service.ResolverService](injector); err != nil {
		return fmt.Errorf("resolver service: %w", err)
	}

	// Rebuild the search index if it is empty but state exists.
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
