// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Data     DataConfig
	Source   SourceConfig
	Alias    AliasConfig
	Scoring  ScoringConfig
	Blocking BlockingConfig
	Cluster  ClusterConfig
	Engine   EngineConfig
	Output   OutputConfig
	Watch    WatchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds resolver state storage configuration. The badger store
// and the search index both live under BasePath.
type DataConfig struct {
	BasePath string
}

// SourceConfig holds catalog source configuration.
type SourceConfig struct {
	// Type is the catalog backend: csv, xlsx, or sql.
	Type string
	// Path locates the catalog file for csv and xlsx backends.
	Path string
	// Sheet names the worksheet for the xlsx backend (default: first sheet).
	Sheet string
	// Driver selects the sql driver: sqlite or pgx (default: sqlite).
	Driver string
	// DSN is the connection string for the sql backend.
	DSN string
	// Table is the catalog table for the sql backend (default: records).
	Table string
}

// AliasConfig holds manufacturer alias table configuration.
type AliasConfig struct {
	// Path locates the alias CSV; empty disables the table (exact and fuzzy
	// canonicalization degrade to self-identity).
	Path string
	// Threshold is the Jaro-Winkler acceptance bar for fuzzy alias matches
	// (default: 0.93).
	Threshold float64
}

// ScoringConfig holds pairwise scoring configuration.
type ScoringConfig struct {
	WeightPartNumber   float64 // default: 0.35
	WeightManufacturer float64 // default: 0.25
	WeightText         float64 // default: 0.20
	WeightUNSPSC       float64 // default: 0.10
	WeightGTIN         float64 // default: 0.10
	StrongSignal       float64 // Component score that counts as strong (default: 0.80)
	SynergyMinSignals  int     // Strong signals required for the bonus (default: 3)
	SynergyBonus       float64 // Bonus added once the count is reached (default: 0.10)
	MaxVariants        int     // Part-number variant cap (default: 24)
}

// BlockingConfig holds candidate blocking configuration.
type BlockingConfig struct {
	UNSPSCPrefixLen  int    // UNSPSC digits in the composite key (default: 4)
	OverflowCap      int    // Overflow bucket size before degradation (default: 200)
	OverflowMaxPairs int    // Sampled pair bound under the sample policy (default: 10000)
	OverflowPolicy   string // "sample" or "skip" (default: sample)
}

// ClusterConfig holds clustering configuration.
type ClusterConfig struct {
	// Threshold is the overall score at or above which a pair links its
	// records into one cluster (default: 0.60).
	Threshold float64
}

// EngineConfig holds pipeline execution configuration.
type EngineConfig struct {
	// Workers is the scoring worker pool size (default: 4).
	Workers int
}

// OutputConfig holds optional secondary sink configuration. The badger store
// is always written; these add CSV files or a SQL database alongside it.
type OutputConfig struct {
	CSVDir    string // Directory for pair_scores.csv / golden_records.csv (empty: disabled)
	SQLDriver string // sqlite or pgx
	SQLDSN    string // Connection string (empty: disabled)
}

// WatchConfig holds watch-mode configuration.
type WatchConfig struct {
	Enabled     bool
	Debounce    time.Duration // Quiet period after the last file event (default: 2s)
	MinInterval time.Duration // Minimum spacing between rebuild starts (default: 30s)
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for resolver state (store and search index)")

	// Source flags
	sourceType := flag.String("source-type", "", "Catalog backend (csv, xlsx, sql)")
	sourcePath := flag.String("source-path", "", "Path to the catalog file (csv, xlsx)")
	sourceSheet := flag.String("source-sheet", "", "Worksheet name (xlsx, default: first sheet)")
	sourceDriver := flag.String("source-driver", "", "SQL driver (sqlite, pgx)")
	sourceDSN := flag.String("source-dsn", "", "SQL connection string")
	sourceTable := flag.String("source-table", "", "Catalog table name (default: records)")

	// Alias flags
	aliasPath := flag.String("alias-path", "", "Path to the manufacturer alias CSV")
	aliasThreshold := flag.String("alias-threshold", "", "Fuzzy alias acceptance threshold (default: 0.93)")

	// Scoring flags
	weightPartNumber := flag.String("weight-part-number", "", "Part number component weight (default: 0.35)")
	weightManufacturer := flag.String("weight-manufacturer", "", "Manufacturer component weight (default: 0.25)")
	weightText := flag.String("weight-text", "", "Text component weight (default: 0.20)")
	weightUNSPSC := flag.String("weight-unspsc", "", "UNSPSC component weight (default: 0.10)")
	weightGTIN := flag.String("weight-gtin", "", "GTIN component weight (default: 0.10)")
	strongSignal := flag.String("strong-signal", "", "Strong signal threshold (default: 0.80)")
	synergyMinSignals := flag.String("synergy-min-signals", "", "Strong signals required for the synergy bonus (default: 3)")
	synergyBonus := flag.String("synergy-bonus", "", "Synergy bonus (default: 0.10)")
	maxVariants := flag.String("max-variants", "", "Part number variant cap (default: 24)")

	// Blocking flags
	unspscPrefixLen := flag.String("unspsc-prefix-len", "", "UNSPSC digits in the blocking key (default: 4)")
	overflowCap := flag.String("overflow-cap", "", "Overflow bucket cap (default: 200)")
	overflowMaxPairs := flag.String("overflow-max-pairs", "", "Sampled overflow pair bound (default: 10000)")
	overflowPolicy := flag.String("overflow-policy", "", "Overflow degradation policy (sample, skip)")

	// Cluster and engine flags
	clusterThreshold := flag.String("cluster-threshold", "", "Cluster linking threshold (default: 0.60)")
	workers := flag.String("workers", "", "Scoring worker count (default: 4)")

	// Output flags
	csvOut := flag.String("csv-out", "", "Directory for CSV output files (empty: disabled)")
	sqlOutDriver := flag.String("sql-out-driver", "", "SQL output driver (sqlite, pgx)")
	sqlOutDSN := flag.String("sql-out-dsn", "", "SQL output connection string (empty: disabled)")

	// Watch flags
	watch := flag.Bool("watch", false, "Watch catalog and alias files and rebuild on change")
	watchDebounce := flag.String("watch-debounce", "", "Quiet period after the last file event (default: 2s)")
	watchMinInterval := flag.String("watch-min-interval", "", "Minimum spacing between rebuilds (default: 30s)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},

		Source: SourceConfig{
			Type:   getConfigValue(*sourceType, "SOURCE_TYPE", "csv"),
			Path:   getConfigValue(*sourcePath, "SOURCE_PATH", ""),
			Sheet:  getConfigValue(*sourceSheet, "SOURCE_SHEET", ""),
			Driver: getConfigValue(*sourceDriver, "SOURCE_DRIVER", "sqlite"),
			DSN:    getConfigValue(*sourceDSN, "SOURCE_DSN", ""),
			Table:  getConfigValue(*sourceTable, "SOURCE_TABLE", "records"),
		},

		Alias: AliasConfig{
			Path:      getConfigValue(*aliasPath, "ALIAS_PATH", ""),
			Threshold: getFloatConfigValue(*aliasThreshold, "ALIAS_THRESHOLD", 0.93),
		},

		Scoring: ScoringConfig{
			WeightPartNumber:   getFloatConfigValue(*weightPartNumber, "WEIGHT_PART_NUMBER", 0.35),
			WeightManufacturer: getFloatConfigValue(*weightManufacturer, "WEIGHT_MANUFACTURER", 0.25),
			WeightText:         getFloatConfigValue(*weightText, "WEIGHT_TEXT", 0.20),
			WeightUNSPSC:       getFloatConfigValue(*weightUNSPSC, "WEIGHT_UNSPSC", 0.10),
			WeightGTIN:         getFloatConfigValue(*weightGTIN, "WEIGHT_GTIN", 0.10),
			StrongSignal:       getFloatConfigValue(*strongSignal, "STRONG_SIGNAL", 0.80),
			SynergyMinSignals:  getIntConfigValue(*synergyMinSignals, "SYNERGY_MIN_SIGNALS", 3),
			SynergyBonus:       getFloatConfigValue(*synergyBonus, "SYNERGY_BONUS", 0.10),
			MaxVariants:        getIntConfigValue(*maxVariants, "MAX_VARIANTS", 24),
		},

		Blocking: BlockingConfig{
			UNSPSCPrefixLen:  getIntConfigValue(*unspscPrefixLen, "UNSPSC_PREFIX_LEN", 4),
			OverflowCap:      getIntConfigValue(*overflowCap, "OVERFLOW_CAP", 200),
			OverflowMaxPairs: getIntConfigValue(*overflowMaxPairs, "OVERFLOW_MAX_PAIRS", 10000),
			OverflowPolicy:   getConfigValue(*overflowPolicy, "OVERFLOW_POLICY", "sample"),
		},

		Cluster: ClusterConfig{
			Threshold: getFloatConfigValue(*clusterThreshold, "CLUSTER_THRESHOLD", 0.60),
		},

		Engine: EngineConfig{
			Workers: getIntConfigValue(*workers, "WORKERS", 4),
		},

		Output: OutputConfig{
			CSVDir:    getConfigValue(*csvOut, "CSV_OUT", ""),
			SQLDriver: getConfigValue(*sqlOutDriver, "SQL_OUT_DRIVER", "sqlite"),
			SQLDSN:    getConfigValue(*sqlOutDSN, "SQL_OUT_DSN", ""),
		},

		Watch: WatchConfig{
			Enabled: *watch || getBoolConfigValue("", "WATCH", false),
		},
	}

	// Parse watch durations.
	debounceStr := getConfigValue(*watchDebounce, "WATCH_DEBOUNCE", "2s")
	debounce, err := time.ParseDuration(debounceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid watch debounce %q: %w", debounceStr, err)
	}
	cfg.Watch.Debounce = debounce

	minIntervalStr := getConfigValue(*watchMinInterval, "WATCH_MIN_INTERVAL", "30s")
	minInterval, err := time.ParseDuration(minIntervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid watch min interval %q: %w", minIntervalStr, err)
	}
	cfg.Watch.MinInterval = minInterval

	// Expand and validate the data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Expand the source, alias, and output paths.
	if err := cfg.expandFilePaths(); err != nil {
		return nil, err
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	validSourceTypes := map[string]bool{
		"csv":  true,
		"xlsx": true,
		"sql":  true,
	}
	if !validSourceTypes[strings.ToLower(c.Source.Type)] {
		return fmt.Errorf("invalid source type: %s (must be csv, xlsx, or sql)", c.Source.Type)
	}
	switch strings.ToLower(c.Source.Type) {
	case "csv", "xlsx":
		if c.Source.Path == "" {
			return fmt.Errorf("source path is required for %s catalogs", c.Source.Type)
		}
	case "sql":
		if c.Source.DSN == "" {
			return errors.New("source dsn is required for sql catalogs")
		}
	}

	if c.Alias.Threshold < 0 || c.Alias.Threshold > 1 {
		return fmt.Errorf("alias threshold must be in [0,1], got %v", c.Alias.Threshold)
	}

	if c.Cluster.Threshold <= 0 || c.Cluster.Threshold > 1 {
		return fmt.Errorf("cluster threshold must be in (0,1], got %v", c.Cluster.Threshold)
	}

	if c.Blocking.OverflowPolicy != "sample" && c.Blocking.OverflowPolicy != "skip" {
		return fmt.Errorf("invalid overflow policy: %s (must be sample or skip)", c.Blocking.OverflowPolicy)
	}

	if c.Engine.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Engine.Workers)
	}

	// Component weight ranges and the sum bound are enforced again when the
	// scoring weights struct is assembled; this catches gross mistakes early.
	weights := []struct {
		name  string
		value float64
	}{
		{"part number", c.Scoring.WeightPartNumber},
		{"manufacturer", c.Scoring.WeightManufacturer},
		{"text", c.Scoring.WeightText},
		{"unspsc", c.Scoring.WeightUNSPSC},
		{"gtin", c.Scoring.WeightGTIN},
	}
	for _, w := range weights {
		if w.value < 0 || w.value > 1 {
			return fmt.Errorf("%s weight must be in [0,1], got %v", w.name, w.value)
		}
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "ProductGraph", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandFilePaths expands the optional file paths; empty values stay empty.
func (c *Config) expandFilePaths() error {
	if c.Source.Path != "" {
		expanded, err := expandPath(c.Source.Path, "")
		if err != nil {
			return fmt.Errorf("invalid source path: %w", err)
		}
		c.Source.Path = expanded
	}

	if c.Alias.Path != "" {
		expanded, err := expandPath(c.Alias.Path, "")
		if err != nil {
			return fmt.Errorf("invalid alias path: %w", err)
		}
		c.Alias.Path = expanded
	}

	if c.Output.CSVDir != "" {
		expanded, err := expandPath(c.Output.CSVDir, "")
		if err != nil {
			return fmt.Errorf("invalid csv output path: %w", err)
		}
		c.Output.CSVDir = expanded
	}

	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Allow shell-style "export KEY=value" lines.
		line = strings.TrimPrefix(line, "export ")

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
