package config

// Config represents the complete codescope configuration.
// It can be loaded from .codescope/config.yml with environment variable overrides.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Indexing   IndexingConfig   `yaml:"indexing" mapstructure:"indexing"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Duplicates DuplicatesConfig `yaml:"duplicates" mapstructure:"duplicates"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
}

// PathsConfig defines which files to index and which to ignore.
type PathsConfig struct {
	Code   []string `yaml:"code" mapstructure:"code"`     // glob patterns for code files
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns to ignore
}

// IndexingConfig controls the indexing pipeline.
type IndexingConfig struct {
	Workers       int `yaml:"workers" mapstructure:"workers"`                   // parallel file workers, 0 = GOMAXPROCS
	MaxFileSizeKB int `yaml:"max_file_size_kb" mapstructure:"max_file_size_kb"` // files above this are skipped
}

// SearchConfig sets query engine defaults.
type SearchConfig struct {
	MaxResults   int `yaml:"max_results" mapstructure:"max_results"`     // default result cap per query
	ContextLines int `yaml:"context_lines" mapstructure:"context_lines"` // source lines around each reference
}

// DuplicatesConfig sets duplicate detection defaults.
type DuplicatesConfig struct {
	MinLines  int     `yaml:"min_lines" mapstructure:"min_lines"` // smallest block considered
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"` // minimum similarity reported
}

// StorageConfig defines where the index database lives.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"` // override default .codescope/index.db
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Code: []string{
				"**/*.go",
				"**/*.py",
				"**/*.ts",
				"**/*.tsx",
				"**/*.js",
				"**/*.jsx",
				"**/*.mjs",
				"**/*.java",
				"**/*.rs",
				"**/*.rb",
				"**/*.php",
				"**/*.c",
				"**/*.h",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
				".codescope/**",
				"*.min.js",
			},
		},
		Indexing: IndexingConfig{
			Workers:       0,
			MaxFileSizeKB: 1024,
		},
		Search: SearchConfig{
			MaxResults:   20,
			ContextLines: 2,
		},
		Duplicates: DuplicatesConfig{
			MinLines:  5,
			Threshold: 0.7,
		},
		Storage: StorageConfig{
			DatabasePath: "", // empty means .codescope/index.db under the root
		},
	}
}
