package providers

import (
	"errors"
	"io"

	"github.com/samber/do/v2"

	"github.com/productgraph/resolver/internal/alias"
	"github.com/productgraph/resolver/internal/blocking"
	"github.com/productgraph/resolver/internal/cluster"
	"github.com/productgraph/resolver/internal/config"
	"github.com/productgraph/resolver/internal/engine"
	"github.com/productgraph/resolver/internal/logger"
	"github.com/productgraph/resolver/internal/scoring"
	"github.com/productgraph/resolver/internal/sink"
	"github.com/productgraph/resolver/internal/source"
)

// scoringWeights maps the application config onto scoring weights.
func scoringWeights(cfg *config.Config) scoring.Weights {
	return scoring.Weights{
		PartNumber:        cfg.Scoring.WeightPartNumber,
		Manufacturer:      cfg.Scoring.WeightManufacturer,
		Text:              cfg.Scoring.WeightText,
		UNSPSC:            cfg.Scoring.WeightUNSPSC,
		GTIN:              cfg.Scoring.WeightGTIN,
		StrongSignal:      cfg.Scoring.StrongSignal,
		SynergyMinSignals: cfg.Scoring.SynergyMinSignals,
		SynergyBonus:      cfg.Scoring.SynergyBonus,
	}
}

// blockerConfig maps the application config onto a blocking config.
func blockerConfig(cfg *config.Config) blocking.Config {
	return blocking.Config{
		UNSPSCPrefixLen:  cfg.Blocking.UNSPSCPrefixLen,
		OverflowCap:      cfg.Blocking.OverflowCap,
		OverflowMaxPairs: cfg.Blocking.OverflowMaxPairs,
		OverflowPolicy:   blocking.Policy(cfg.Blocking.OverflowPolicy),
	}
}

// ProvideScorer provides the pairwise scorer.
func ProvideScorer(i do.Injector) (*scoring.Scorer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	resolver := do.MustInvoke[*alias.Resolver](i)

	weights := scoringWeights(cfg)
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	return scoring.New(weights, resolver, cfg.Scoring.MaxVariants), nil
}

// ProvideBlocker provides the candidate pair blocker.
func ProvideBlocker(i do.Injector) (*blocking.Blocker, error) {
	cfg := do.MustInvoke[*config.Config](i)
	resolver := do.MustInvoke[*alias.Resolver](i)

	return blocking.New(blockerConfig(cfg), resolver), nil
}

// ProvideClusterer provides the connected-components clusterer.
func ProvideClusterer(i do.Injector) (*cluster.Clusterer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	resolver := do.MustInvoke[*alias.Resolver](i)

	return cluster.New(cfg.Cluster.Threshold, resolver), nil
}

// SinkSet aggregates the run output sinks. The store sink is always present;
// CSV and SQL sinks join it when configured.
type SinkSet struct {
	Sinks []sink.Sink

	closers []io.Closer
}

// Shutdown implements do.Shutdownable.
func (s *SinkSet) Shutdown() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ProvideSinks provides the configured output sinks.
func ProvideSinks(i do.Injector) (*SinkSet, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	set := &SinkSet{Sinks: []sink.Sink{storeHandle.Store}}

	if cfg.Output.CSVDir != "" {
		csvSink, err := sink.NewCSV(cfg.Output.CSVDir)
		if err != nil {
			return nil, err
		}
		set.Sinks = append(set.Sinks, csvSink)
		log.Info("CSV output enabled", "dir", cfg.Output.CSVDir)
	}

	if cfg.Output.SQLDSN != "" {
		sqlSink, err := sink.NewSQL(cfg.Output.SQLDriver, cfg.Output.SQLDSN)
		if err != nil {
			return nil, err
		}
		set.Sinks = append(set.Sinks, sqlSink)
		set.closers = append(set.closers, sqlSink)
		log.Info("SQL output enabled", "driver", cfg.Output.SQLDriver)
	}

	return set, nil
}

// ProvideEngine provides the resolution pipeline engine.
func ProvideEngine(i do.Injector) (*engine.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	srcHandle := do.MustInvoke[*SourceHandle](i)
	blocker := do.MustInvoke[*blocking.Blocker](i)
	scorer := do.MustInvoke[*scoring.Scorer](i)
	clusterer := do.MustInvoke[*cluster.Clusterer](i)
	sinks := do.MustInvoke[*SinkSet](i)

	return engine.New(engine.Config{
		Source:    srcHandle.Source,
		Blocker:   blocker,
		Scorer:    scorer,
		Clusterer: clusterer,
		Sinks:     sinks.Sinks,
		Logger:    log.Logger,
		Workers:   cfg.Engine.Workers,
	})
}

// NewRunPipeline assembles an engine from the catalog and alias files as they
// are right now. File-backed sources load eagerly, so the singleton engine
// keeps resolving whatever the files held at startup; watch mode calls this
// before every rebuild instead. The returned closer releases the fresh
// source.
func NewRunPipeline(i do.Injector) (*engine.Engine, func() error, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sinks := do.MustInvoke[*SinkSet](i)

	src, err := source.Open(sourceConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	closeSource := func() error {
		if closer, ok := src.(io.Closer); ok {
			return closer.Close()
		}
		return nil
	}

	resolver, _, err := loadAliasResolver(cfg)
	if err != nil {
		_ = closeSource()
		return nil, nil, err
	}

	weights := scoringWeights(cfg)
	if err := weights.Validate(); err != nil {
		_ = closeSource()
		return nil, nil, err
	}

	eng, err := engine.New(engine.Config{
		Source:    src,
		Blocker:   blocking.New(blockerConfig(cfg), resolver),
		Scorer:    scoring.New(weights, resolver, cfg.Scoring.MaxVariants),
		Clusterer: cluster.New(cfg.Cluster.Threshold, resolver),
		Sinks:     sinks.Sinks,
		Logger:    log.Logger,
		Workers:   cfg.Engine.Workers,
	})
	if err != nil {
		_ = closeSource()
		return nil, nil, err
	}

	return eng, closeSource, nil
}
