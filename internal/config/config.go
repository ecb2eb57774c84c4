package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fundnav/internal/coordinator"
	"fundnav/internal/eastmoney"
)

const (
	// MaxPageSize is the largest page size the source is asked for
	MaxPageSize = 200

	defaultOutputDir         = "./data"
	defaultPageSize          = 20
	defaultRetryCount        = 2
	defaultRequestsPerSecond = 2.0
)

// Config holds all configuration for one download run.
type Config struct {
	// Fund to download
	FundCode string `mapstructure:"code"`

	// Output
	OutputDir string `mapstructure:"output_dir"`
	WriteXLSX bool   `mapstructure:"xlsx"`
	Force     bool   `mapstructure:"force"`

	// Pagination
	PageSize int `mapstructure:"page_size"`
	MaxPages int `mapstructure:"max_pages"`

	// Remote source
	BaseURL           string        `mapstructure:"base_url"`
	Referer           string        `mapstructure:"referer"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryCount        int           `mapstructure:"retry_count"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`

	Verbose bool `mapstructure:"verbose"`
}

// flagKeys maps command-line flag names to configuration keys
var flagKeys = map[string]string{
	"code":                "code",
	"output-dir":          "output_dir",
	"xlsx":                "xlsx",
	"force":               "force",
	"page-size":           "page_size",
	"max-pages":           "max_pages",
	"base-url":            "base_url",
	"timeout":             "timeout",
	"retry-count":         "retry_count",
	"requests-per-second": "requests_per_second",
	"verbose":             "verbose",
}

// NewFlagSet defines the command-line flags understood by Load
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("code", "c", "", "fund code to download (e.g. 210014)")
	fs.StringP("output-dir", "o", defaultOutputDir, "directory for the output files")
	fs.Bool("xlsx", true, "also write an .xlsx spreadsheet")
	fs.Bool("force", false, "download even if a CSV for the fund already exists")
	fs.Int("page-size", defaultPageSize, fmt.Sprintf("rows requested per page (max %d)", MaxPageSize))
	fs.Int("max-pages", coordinator.DefaultMaxPages, "upper bound on page requests")
	fs.String("base-url", eastmoney.DefaultBaseURL, "fund history endpoint")
	fs.Duration("timeout", eastmoney.DefaultTimeout, "per-request timeout")
	fs.Int("retry-count", defaultRetryCount, "extra attempts for a failed request")
	fs.Float64("requests-per-second", defaultRequestsPerSecond, "request rate limit (0 disables)")
	fs.BoolP("verbose", "v", false, "enable debug logging")
	fs.String("config", "", "path to a YAML config file")
	return fs
}

// Load reads configuration from flags, environment variables and an
// optional config file, in that order of precedence, over the defaults.
//
// Environment variables:
//   - FUNDNAV_CODE
//   - FUNDNAV_OUTPUT_DIR
//   - FUNDNAV_XLSX
//   - FUNDNAV_PAGE_SIZE
//   - FUNDNAV_MAX_PAGES
//   - FUNDNAV_BASE_URL
//   - FUNDNAV_REFERER
//   - FUNDNAV_USER_AGENT
//   - FUNDNAV_TIMEOUT
//   - FUNDNAV_RETRY_COUNT
//   - FUNDNAV_REQUESTS_PER_SECOND
//
// flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("output_dir", defaultOutputDir)
	v.SetDefault("xlsx", true)
	v.SetDefault("force", false)
	v.SetDefault("page_size", defaultPageSize)
	v.SetDefault("max_pages", coordinator.DefaultMaxPages)
	v.SetDefault("base_url", eastmoney.DefaultBaseURL)
	v.SetDefault("referer", eastmoney.DefaultReferer)
	v.SetDefault("user_agent", eastmoney.DefaultUserAgent)
	v.SetDefault("timeout", eastmoney.DefaultTimeout)
	v.SetDefault("retry_count", defaultRetryCount)
	v.SetDefault("requests_per_second", defaultRequestsPerSecond)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("FUNDNAV")
	v.AutomaticEnv()
	for _, key := range []string{
		"code", "output_dir", "xlsx", "page_size", "max_pages", "base_url",
		"referer", "user_agent", "timeout", "retry_count", "requests_per_second",
	} {
		if err := v.BindEnv(key, "FUNDNAV_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	v.SetConfigType("yaml")
	configFile := ""
	if flags != nil {
		configFile, _ = flags.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("fundnav")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.fundnav")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.FundCode = strings.TrimSpace(config.FundCode)

	if config.FundCode == "" {
		return nil, fmt.Errorf("missing required configuration: code")
	}

	var invalid []string
	if config.PageSize < 1 {
		invalid = append(invalid, "page_size must be positive")
	}
	if config.PageSize > MaxPageSize {
		config.PageSize = MaxPageSize
	}
	if config.MaxPages < 1 {
		invalid = append(invalid, "max_pages must be positive")
	}
	if config.MaxPages > coordinator.DefaultMaxPages {
		config.MaxPages = coordinator.DefaultMaxPages
	}
	if config.Timeout <= 0 {
		invalid = append(invalid, "timeout must be positive")
	}
	if config.RetryCount < 0 {
		invalid = append(invalid, "retry_count must not be negative")
	}
	if config.OutputDir == "" {
		invalid = append(invalid, "output_dir must not be empty")
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
	}

	return config, nil
}

// FetcherOptions returns the settings the history fetcher is built from
func (c *Config) FetcherOptions() eastmoney.Options {
	return eastmoney.Options{
		BaseURL:    c.BaseURL,
		Referer:    c.Referer,
		UserAgent:  c.UserAgent,
		Timeout:    c.Timeout,
		RetryCount: c.RetryCount,
	}
}
