// Package config provides configuration loading and structs for the Inquest server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Corpus  CorpusConfig  `yaml:"corpus"`
	Search  SearchConfig  `yaml:"search"`
	Agent   AgentConfig   `yaml:"agent"`
	Model   ModelConfig   `yaml:"model"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the document store and the keyword index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// CorpusConfig describes the production set being investigated.
type CorpusConfig struct {
	// BatesPrefix and BatesDigits define the numbering convention of the
	// production set (e.g. EFTA + 8 digits).
	BatesPrefix string `yaml:"bates_prefix"`
	BatesDigits int    `yaml:"bates_digits"`
	// LinkBaseURL, when set, is used to build human-followable links to the
	// original document rendering (<base>/f/<doc-id>).
	LinkBaseURL string `yaml:"link_base_url"`
}

// SearchConfig holds search and highlight settings for the corpus adapter.
type SearchConfig struct {
	DefaultLimit     int `yaml:"default_limit"`
	MaxLimit         int `yaml:"max_limit"`
	FragmentSize     int `yaml:"fragment_size"`
	MinFragmentSize  int `yaml:"min_fragment_size"`
	MaxFragmentSize  int `yaml:"max_fragment_size"`
	Fragments        int `yaml:"fragments"`
	MaxFragments     int `yaml:"max_fragments"`
	ReadMinChars     int `yaml:"read_min_chars"`
	ReadMaxChars     int `yaml:"read_max_chars"`
	BatchBudgetChars int `yaml:"batch_budget_chars"`
	ListPageSize     int `yaml:"list_page_size"`
}

// AgentConfig bounds the investigation loop and its enforcement rounds.
type AgentConfig struct {
	MaxRounds          int         `yaml:"max_rounds"`
	MinFullReads       int         `yaml:"min_full_reads"`
	MaxIntentChars     int         `yaml:"max_intent_chars"`
	MaxQuoteFailures   int         `yaml:"max_quote_failures"`
	MaxToolOutputChars int         `yaml:"max_tool_output_chars"`
	DeepSweep          SweepConfig `yaml:"deep_sweep"`
}

// SweepConfig tunes the deep-sweep escalation policy: once a count or search
// reports more matches than CountThreshold, the session must either sweep
// (expanded search plus batch read) or record an explicit rationale.
type SweepConfig struct {
	CountThreshold int     `yaml:"count_threshold"`
	LimitMin       int     `yaml:"limit_min"`
	TargetFraction float64 `yaml:"target_fraction"`
	MinBatchDocs   int     `yaml:"min_batch_docs"`
	MaxBatchDocs   int     `yaml:"max_batch_docs"`
	MaxRetries     int     `yaml:"max_retries"`
}

// ModelConfig holds language-model client settings. The API key is read from
// the environment variable named by APIKeyEnv, never from the config file.
type ModelConfig struct {
	Name              string  `yaml:"name"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// WatchConfig holds corpus directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
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

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used by `inquest init` to write a starter
// config file.
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
