// Package config provides configuration loading and structs for the crec tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Download DownloadConfig `yaml:"download"`
	Parse    ParseConfig    `yaml:"parse"`
	Compare  CompareConfig  `yaml:"compare"`
	Search   SearchConfig   `yaml:"search"`
}

// DownloadConfig holds remote endpoint and HTTP client settings.
type DownloadConfig struct {
	BaseURL      string        `yaml:"base_url"`
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	RetryCount   int           `yaml:"retry_count"`
	RetryWait    time.Duration `yaml:"retry_wait"`
	RetryMaxWait time.Duration `yaml:"retry_max_wait"`
	SkipWeekends bool          `yaml:"skip_weekends"`
}

// ParseConfig holds parser settings.
type ParseConfig struct {
	SpellCheck SpellCheckConfig `yaml:"spellcheck"`
}

// SpellCheckConfig holds OCR spelling correction settings.
type SpellCheckConfig struct {
	Enabled            bool              `yaml:"enabled"`
	DictionaryPath     string            `yaml:"dictionary_path"`
	PersonalDictionary []string          `yaml:"personal_dictionary"`
	Substitutions      map[string]string `yaml:"substitutions"`
	MaxDistance        int               `yaml:"max_distance"`

	// FrequencySort ranks suggestions by word frequency; defaults to true when unset.
	FrequencySort *bool `yaml:"frequency_sort"`
}

// FrequencySortOrDefault returns whether suggestions are ranked by frequency; defaults to true when unset.
func (s *SpellCheckConfig) FrequencySortOrDefault() bool {
	if s.FrequencySort != nil {
		return *s.FrequencySort
	}
	return true
}

// CompareConfig holds comparator settings.
type CompareConfig struct {
	Unit        string `yaml:"unit"`
	Diff        string `yaml:"diff"`
	ChangedOnly bool   `yaml:"changed_only"`
}

// SearchConfig holds full-text index settings.
type SearchConfig struct {
	IndexPath    string `yaml:"index_path"`
	DefaultLimit int    `yaml:"default_limit"`
}

// Default returns a config with every default applied, used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Search.IndexPath = expandPath(cfg.Search.IndexPath, configDir)
	if cfg.Parse.SpellCheck.DictionaryPath != "" {
		cfg.Parse.SpellCheck.DictionaryPath = expandPath(cfg.Parse.SpellCheck.DictionaryPath, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects enum values the comparator does not understand.
func Validate(cfg *Config) error {
	switch cfg.Compare.Unit {
	case UnitTokens, UnitChars:
	default:
		return fmt.Errorf("invalid compare.unit %q: use %s or %s", cfg.Compare.Unit, UnitTokens, UnitChars)
	}
	switch cfg.Compare.Diff {
	case DiffNone, DiffWords, DiffUnified:
	default:
		return fmt.Errorf("invalid compare.diff %q: use %s, %s or %s", cfg.Compare.Diff, DiffNone, DiffWords, DiffUnified)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
