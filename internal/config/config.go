// Package config handles configuration loading for filingscope.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Registry  RegistryConfig  `mapstructure:"registry"  yaml:"registry"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	Extractor ExtractorConfig `mapstructure:"extractor" yaml:"extractor"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"  yaml:"pipeline"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// RegistryConfig holds the EDGAR endpoint layout. Exact URLs are
// configuration, not logic, so tests can point them at local servers.
type RegistryConfig struct {
	SiteURL        string `mapstructure:"site_url"         yaml:"site_url"` // host used for root-relative links
	ArchiveBaseURL string `mapstructure:"archive_base_url" yaml:"archive_base_url"`
	SubmissionsURL string `mapstructure:"submissions_url"  yaml:"submissions_url"` // templated by 10-digit CIK
	TickerMapURL   string `mapstructure:"ticker_map_url"   yaml:"ticker_map_url"`
	FeedURL        string `mapstructure:"feed_url"         yaml:"feed_url"`
	UserAgent      string `mapstructure:"user_agent"       yaml:"user_agent"`
}

// FetcherConfig holds download politeness and selection settings.
type FetcherConfig struct {
	FilingsDir          string   `mapstructure:"filings_dir"          yaml:"filings_dir"`
	SupportedExtensions []string `mapstructure:"supported_extensions" yaml:"supported_extensions"`
	IgnoredKeywords     []string `mapstructure:"ignored_keywords"     yaml:"ignored_keywords"`
	RatePerSecond       int      `mapstructure:"rate_per_second"      yaml:"rate_per_second"`
	RateBurst           int      `mapstructure:"rate_burst"           yaml:"rate_burst"`
	MaxRetries          int      `mapstructure:"max_retries"          yaml:"max_retries"`
	RetryDelayMS        int      `mapstructure:"retry_delay_ms"       yaml:"retry_delay_ms"`
	TimeoutSec          int      `mapstructure:"timeout_sec"          yaml:"timeout_sec"`
	NumFilings          int      `mapstructure:"num_filings"          yaml:"num_filings"`
	SnapshotTTLSec      int      `mapstructure:"snapshot_ttl_sec"     yaml:"snapshot_ttl_sec"`
}

// ExtractorConfig holds fact-table output settings.
type ExtractorConfig struct {
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// PipelineConfig holds orchestration settings.
type PipelineConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.filingscope/config.yaml (home directory)
//  3. /etc/filingscope/config.yaml (system)
//
// Environment variables override config file values.
// Format: FILINGSCOPE_<SECTION>_<KEY>, e.g., FILINGSCOPE_REGISTRY_USER_AGENT
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".filingscope"))
	v.AddConfigPath("/etc/filingscope")

	v.SetEnvPrefix("FILINGSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("FILINGSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// Default returns a Config populated with defaults only, for library use
// and tests that must not depend on a config file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Registry defaults. The user agent must identify the client per the
	// registry's fair-access policy; override it with your contact details.
	v.SetDefault("registry.site_url", "https://www.sec.gov")
	v.SetDefault("registry.archive_base_url", "https://www.sec.gov/Archives/edgar/data")
	v.SetDefault("registry.submissions_url", "https://data.sec.gov/submissions/CIK%s.json")
	v.SetDefault("registry.ticker_map_url", "https://www.sec.gov/files/company_tickers.json")
	v.SetDefault("registry.feed_url", "https://www.sec.gov/cgi-bin/browse-edgar")
	v.SetDefault("registry.user_agent", "filingscope/1.0 (github.com/filingscope/filingscope)")

	// Fetcher defaults (politeness-first: EDGAR allows ~10 req/s).
	v.SetDefault("fetcher.filings_dir", "./filings")
	v.SetDefault("fetcher.supported_extensions", []string{".htm", ".html", ".xml", ".xsd", ".txt"})
	v.SetDefault("fetcher.ignored_keywords", []string{"companysearch", "-index.htm", "xslForm", "form.xsd"})
	v.SetDefault("fetcher.rate_per_second", 8)
	v.SetDefault("fetcher.rate_burst", 8)
	v.SetDefault("fetcher.max_retries", 3)
	v.SetDefault("fetcher.retry_delay_ms", 1500)
	v.SetDefault("fetcher.timeout_sec", 30)
	v.SetDefault("fetcher.num_filings", 4)
	v.SetDefault("fetcher.snapshot_ttl_sec", 600)

	// Extractor defaults
	v.SetDefault("extractor.output_dir", "./output")

	// Pipeline defaults
	v.SetDefault("pipeline.workers", 4)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads operator-identity keys from environment
// variables so they win even when viper key binding misses them.
func overrideFromEnv(cfg *Config) {
	if ua := os.Getenv("FILINGSCOPE_REGISTRY_USER_AGENT"); ua != "" {
		cfg.Registry.UserAgent = ua
	}
	if dir := os.Getenv("FILINGSCOPE_FETCHER_FILINGS_DIR"); dir != "" {
		cfg.Fetcher.FilingsDir = dir
	}
	if dir := os.Getenv("FILINGSCOPE_EXTRACTOR_OUTPUT_DIR"); dir != "" {
		cfg.Extractor.OutputDir = dir
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
