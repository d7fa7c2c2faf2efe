package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CODESCOPE_*)
// 2. Config file (.codescope/config.yml or .codescope/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".codescope")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("CODESCOPE")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., CODESCOPE_INDEXING_WORKERS)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("indexing.workers")
	v.BindEnv("indexing.max_file_size_kb")
	v.BindEnv("search.max_results")
	v.BindEnv("search.context_lines")
	v.BindEnv("duplicates.min_lines")
	v.BindEnv("duplicates.threshold")
	v.BindEnv("storage.database_path")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults seeds viper with the Default() values so partial config files
// only override what they mention.
func setDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("paths.code", def.Paths.Code)
	v.SetDefault("paths.ignore", def.Paths.Ignore)
	v.SetDefault("indexing.workers", def.Indexing.Workers)
	v.SetDefault("indexing.max_file_size_kb", def.Indexing.MaxFileSizeKB)
	v.SetDefault("search.max_results", def.Search.MaxResults)
	v.SetDefault("search.context_lines", def.Search.ContextLines)
	v.SetDefault("duplicates.min_lines", def.Duplicates.MinLines)
	v.SetDefault("duplicates.threshold", def.Duplicates.Threshold)
	v.SetDefault("storage.database_path", def.Storage.DatabasePath)
}

// DatabasePath resolves the index database location for a codebase root.
func (c *Config) DatabasePath(rootDir string) string {
	if c.Storage.DatabasePath != "" {
		return c.Storage.DatabasePath
	}
	return filepath.Join(rootDir, ".codescope", "index.db")
}
