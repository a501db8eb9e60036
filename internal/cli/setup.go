package cli

import (
	"fmt"

	"github.com/dshills/copyedit/internal/cache"
	"github.com/dshills/copyedit/internal/config"
	"github.com/dshills/copyedit/internal/history"
	"github.com/dshills/copyedit/internal/logging"
	"github.com/dshills/copyedit/internal/rules"
)

// loadConfig loads the effective config with the persistent flags applied.
func loadConfig(overrides map[string]any) (config.Config, error) {
	if overrides == nil {
		overrides = make(map[string]any)
	}
	if flagVerbose {
		overrides["log.verbose"] = true
	}
	return config.Load(flagConfig, overrides)
}

func newLogger(cfg config.Config) (logging.Logger, error) {
	logger, err := logging.New(logging.Options{Verbose: cfg.Log.Verbose, JSON: cfg.Log.JSON})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

// buildTable derives the effective rule table: the built-in rules minus
// disabled ones, plus the configured pack, with the match timeout applied.
func buildTable(cfg config.Config) (*rules.Table, error) {
	table, err := rules.Default().Without(cfg.Rules.Disable...)
	if err != nil {
		return nil, fmt.Errorf("disabling rules: %w", err)
	}
	pack, err := rules.LoadPack(cfg.Rules.Pack)
	if err != nil {
		return nil, err
	}
	table, err = table.With(pack)
	if err != nil {
		return nil, fmt.Errorf("applying rule pack: %w", err)
	}
	return table.WithMatchTimeout(cfg.Rules.MatchTimeout), nil
}

func openCache(cfg config.Config) (*cache.Cache, error) {
	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

func openHistory(cfg config.Config) (*history.Store, error) {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return store, nil
}
