package main

import (
	"fmt"

	"github.com/newthinker/lunar/internal/backtest"
	"github.com/newthinker/lunar/internal/config"
	"github.com/newthinker/lunar/internal/pipeline"
	"github.com/newthinker/lunar/internal/provider/csvdir"
	"github.com/newthinker/lunar/internal/provider/yahoo"
	"github.com/newthinker/lunar/internal/storage/archive"
	"github.com/newthinker/lunar/internal/strategy"
	"github.com/newthinker/lunar/internal/strategy/maband"
	"github.com/newthinker/lunar/internal/strategy/momentum"
	"go.uber.org/zap"
)

// loadConfig reads the config file or falls back to defaults.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// buildProvider constructs the configured panel provider.
func buildProvider(cfg *config.Config) (backtest.PanelProvider, error) {
	switch cfg.Provider.Type {
	case "csvdir":
		return csvdir.New(cfg.Provider.Path)
	case "yahoo":
		return yahoo.New(cfg.Provider.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Provider.Type)
	}
}

// buildRegistry creates the per-run strategy registry from config.
func buildRegistry(cfg *config.Config, log *zap.Logger) (*strategy.Registry, error) {
	reg := strategy.NewRegistry(log)

	for name, sc := range cfg.Strategies {
		if !sc.Enabled {
			continue
		}
		strat, err := buildStrategy(name, sc)
		if err != nil {
			return nil, fmt.Errorf("building strategy %s: %w", name, err)
		}
		reg.Register(strat)
	}

	return reg, nil
}

func buildStrategy(name string, sc config.StrategyConfig) (pipeline.Strategy, error) {
	switch name {
	case "maband":
		return maband.FromParams(sc.Params)
	case "momentum":
		return momentum.FromParams(sc.Params)
	default:
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
}

// buildArchive constructs the configured result store, or nil when
// archiving is disabled.
func buildArchive(cfg *config.Config) (archive.Storage, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	switch cfg.Archive.Type {
	case "localfs":
		return archive.NewLocalFS(cfg.Archive.Path)
	case "s3":
		return archive.NewS3(cfg.Archive.S3)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Archive.Type)
	}
}
