package config

import "time"

// Comparison units and diff renderings accepted in the compare section.
const (
	UnitTokens = "tokens"
	UnitChars  = "chars"

	DiffNone    = "none"
	DiffWords   = "words"
	DiffUnified = "unified"
)

// DefaultBaseURL is the record endpoint used when download.base_url is unset.
const DefaultBaseURL = "https://crec.example.org/api/v1/records"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Download.BaseURL == "" {
		cfg.Download.BaseURL = DefaultBaseURL
	}
	if cfg.Download.UserAgent == "" {
		cfg.Download.UserAgent = "crec/1.0"
	}
	if cfg.Download.Timeout == 0 {
		cfg.Download.Timeout = 30 * time.Second
	}
	if cfg.Download.RetryCount == 0 {
		cfg.Download.RetryCount = 3
	}
	if cfg.Download.RetryWait == 0 {
		cfg.Download.RetryWait = 500 * time.Millisecond
	}
	if cfg.Download.RetryMaxWait == 0 {
		cfg.Download.RetryMaxWait = 5 * time.Second
	}
	if cfg.Parse.SpellCheck.MaxDistance == 0 {
		cfg.Parse.SpellCheck.MaxDistance = 3
	}
	if cfg.Compare.Unit == "" {
		cfg.Compare.Unit = UnitTokens
	}
	if cfg.Compare.Diff == "" {
		cfg.Compare.Diff = DiffNone
	}
	if cfg.Search.IndexPath == "" {
		cfg.Search.IndexPath = "./crec-index.bleve"
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
}
