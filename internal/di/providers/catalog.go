package providers

import (
	"io"

	"github.com/samber/do/v2"

	"github.com/productgraph/resolver/internal/alias"
	"github.com/productgraph/resolver/internal/config"
	"github.com/productgraph/resolver/internal/logger"
	"github.com/productgraph/resolver/internal/source"
)

// SourceHandle wraps the catalog source with shutdown capability. File-backed
// sources load eagerly and have nothing to release; the sql backend holds a
// connection pool until shutdown.
type SourceHandle struct {
	source.Source
}

// Shutdown implements do.Shutdownable.
func (h *SourceHandle) Shutdown() error {
	if closer, ok := h.Source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// sourceConfig maps the application config onto a source config.
func sourceConfig(cfg *config.Config) source.Config {
	return source.Config{
		Type:   cfg.Source.Type,
		Path:   cfg.Source.Path,
		DSN:    cfg.Source.DSN,
		Driver: cfg.Source.Driver,
		Table:  cfg.Source.Table,
		Sheet:  cfg.Source.Sheet,
	}
}

// ProvideSource provides the product catalog source.
func ProvideSource(i do.Injector) (*SourceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	src, err := source.Open(sourceConfig(cfg))
	if err != nil {
		return nil, err
	}

	location := cfg.Source.Path
	if location == "" {
		location = cfg.Source.Driver + " catalog"
	}
	log.Info("Catalog source opened", "type", cfg.Source.Type, "location", location)

	return &SourceHandle{Source: src}, nil
}

// loadAliasResolver builds the alias resolver from the configured table, if
// any.
func loadAliasResolver(cfg *config.Config) (*alias.Resolver, int, error) {
	if cfg.Alias.Path == "" {
		return alias.NewResolver(nil, cfg.Alias.Threshold), 0, nil
	}
	table, err := alias.LoadCSV(cfg.Alias.Path)
	if err != nil {
		return nil, 0, err
	}
	return alias.NewResolver(table, cfg.Alias.Threshold), len(table), nil
}

// ProvideAliasResolver provides the manufacturer alias resolver. Without a
// configured table, exact and fuzzy alias matching degrade to canonical-form
// identity.
func ProvideAliasResolver(i do.Injector) (*alias.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	resolver, manufacturers, err := loadAliasResolver(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Alias.Path == "" {
		log.Info("No alias table configured, manufacturer matching uses canonical forms only")
	} else {
		log.Info("Alias table loaded",
			"path", cfg.Alias.Path,
			"manufacturers", manufacturers,
			"fuzzy_threshold", cfg.Alias.Threshold,
		)
	}

	return resolver, nil
}
