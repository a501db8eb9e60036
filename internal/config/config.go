package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

// EnvPrefix prefixes environment overrides: rules.matchTimeout is read from
// COPYEDIT_RULES_MATCHTIMEOUT.
const EnvPrefix = "COPYEDIT"

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "markdown", "sarif", "post"}

// Config represents the copyedit configuration.
type Config struct {
	Format  string        `mapstructure:"format" yaml:"format"`
	Color   bool          `mapstructure:"color" yaml:"color"`
	Workers int           `mapstructure:"workers" yaml:"workers"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Rules   RulesConfig   `mapstructure:"rules" yaml:"rules"`
	Summary SummaryConfig `mapstructure:"summary" yaml:"summary"`
	Diff    DiffConfig    `mapstructure:"diff" yaml:"diff"`
	Input   InputConfig   `mapstructure:"input" yaml:"input"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
	JSON    bool `mapstructure:"json" yaml:"json"`
}

// RulesConfig selects the rule table.
type RulesConfig struct {
	Pack         string        `mapstructure:"pack" yaml:"pack,omitempty"`
	Disable      []string      `mapstructure:"disable" yaml:"disable,omitempty"`
	MatchTimeout time.Duration `mapstructure:"matchTimeout" yaml:"matchTimeout"`
}

// SummaryConfig controls edit summary composition.
type SummaryConfig struct {
	TrimTerminalOnly bool `mapstructure:"trimTerminalOnly" yaml:"trimTerminalOnly"`
}

// DiffConfig bounds diff computation.
type DiffConfig struct {
	MaxCells int `mapstructure:"maxCells" yaml:"maxCells"`
}

// InputConfig controls input normalization.
type InputConfig struct {
	Normalize bool `mapstructure:"normalize" yaml:"normalize"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir        string `mapstructure:"dir" yaml:"dir,omitempty"`
	TTLSeconds int    `mapstructure:"ttlSeconds" yaml:"ttlSeconds"`
}

// HistoryConfig controls the edit history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Format:  "text",
		Workers: runtime.NumCPU(),
		Rules: RulesConfig{
			MatchTimeout: 2 * time.Second,
		},
		Diff: DiffConfig{
			MaxCells: 4_000_000,
		},
		Input: InputConfig{
			Normalize: true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		History: HistoryConfig{
			Enabled: false,
		},
	}
}

// Keys lists every settable key in dotted form.
func Keys() []string {
	return []string{
		"format",
		"color",
		"workers",
		"log.verbose",
		"log.json",
		"rules.pack",
		"rules.disable",
		"rules.matchTimeout",
		"summary.trimTerminalOnly",
		"diff.maxCells",
		"input.normalize",
		"cache.enabled",
		"cache.dir",
		"cache.ttlSeconds",
		"history.enabled",
		"history.path",
	}
}

// values flattens cfg into dotted keys.
func values(cfg Config) map[string]any {
	return map[string]any{
		"format":                   cfg.Format,
		"color":                    cfg.Color,
		"workers":                  cfg.Workers,
		"log.verbose":              cfg.Log.Verbose,
		"log.json":                 cfg.Log.JSON,
		"rules.pack":               cfg.Rules.Pack,
		"rules.disable":            cfg.Rules.Disable,
		"rules.matchTimeout":       cfg.Rules.MatchTimeout,
		"summary.trimTerminalOnly": cfg.Summary.TrimTerminalOnly,
		"diff.maxCells":            cfg.Diff.MaxCells,
		"input.normalize":          cfg.Input.Normalize,
		"cache.enabled":            cfg.Cache.Enabled,
		"cache.dir":                cfg.Cache.Dir,
		"cache.ttlSeconds":         cfg.Cache.TTLSeconds,
		"history.enabled":          cfg.History.Enabled,
		"history.path":             cfg.History.Path,
	}
}

// ConfigDir returns the platform-appropriate config directory for copyedit.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "copyedit"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "copyedit"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "copyedit"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "copyedit"), nil
	default:
		return filepath.Join(home, ".config", "copyedit"), nil
	}
}

// ConfigPath returns the full path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range values(Default()) {
		v.SetDefault(k, val)
	}
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// An empty path means the default config file, which may be absent. The
// overrides map comes from CLI flags and is keyed like Keys.
func Load(path string, overrides map[string]any) (Config, error) {
	v := newViper()
	if err := readFile(v, path); err != nil {
		return Config{}, err
	}
	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Validate checks values that cannot be caught by decoding.
func Validate(cfg Config) error {
	if !slices.Contains(Formats, cfg.Format) {
		return fmt.Errorf("unknown format %q (want one of %s)", cfg.Format, strings.Join(Formats, ", "))
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if cfg.Diff.MaxCells < 0 {
		return fmt.Errorf("diff.maxCells must not be negative")
	}
	if cfg.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttlSeconds must not be negative")
	}
	return nil
}

// Save writes the config as YAML.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// Init writes a default config file at path unless one exists and force is
// false.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}
	return Save(path, Default())
}

// Set updates one key in the config file at path, creating the file from
// defaults if needed. Environment variables do not leak into the file.
func Set(path, key, value string) error {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := SetField(&cfg, key, value); err != nil {
		return err
	}
	if err := Validate(cfg); err != nil {
		return err
	}
	return Save(path, cfg)
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "format":
		cfg.Format = value
	case "color":
		cfg.Color, err = parseBool(key, value)
	case "workers":
		cfg.Workers, err = parseInt(key, value)
	case "log.verbose":
		cfg.Log.Verbose, err = parseBool(key, value)
	case "log.json":
		cfg.Log.JSON, err = parseBool(key, value)
	case "rules.pack":
		cfg.Rules.Pack = value
	case "rules.disable":
		cfg.Rules.Disable = SplitList(value)
	case "rules.matchTimeout":
		var d time.Duration
		d, err = time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s must be a duration: %w", key, err)
		}
		cfg.Rules.MatchTimeout = d
	case "summary.trimTerminalOnly":
		cfg.Summary.TrimTerminalOnly, err = parseBool(key, value)
	case "diff.maxCells":
		cfg.Diff.MaxCells, err = parseInt(key, value)
	case "input.normalize":
		cfg.Input.Normalize, err = parseBool(key, value)
	case "cache.enabled":
		cfg.Cache.Enabled, err = parseBool(key, value)
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttlSeconds":
		cfg.Cache.TTLSeconds, err = parseInt(key, value)
	case "history.enabled":
		cfg.History.Enabled, err = parseBool(key, value)
	case "history.path":
		cfg.History.Path = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return err
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return b, nil
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

// SplitList splits a comma-separated list, dropping empty items.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
