// Package config provides configuration loading from an optional YAML file
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/usestring/assemblyline-mcp/pkg/client"
)

// Tool output limit defaults
const (
	DefaultSearchLimitValue  = 25
	DefaultStreamLimitValue  = 200
	MaxStreamResultsValue    = 10000
	DefaultPollIntervalValue = 2000
)

// ConfigFileEnv names the environment variable holding the YAML file path.
const ConfigFileEnv = "AL_CONFIG_FILE"

// Config holds all configuration for the MCP server.
type Config struct {
	Server     string `yaml:"server"`      // AL_SERVER, required
	User       string `yaml:"user"`        // AL_USER
	Password   string `yaml:"password"`    // AL_PASSWORD
	APIKey     string `yaml:"apikey"`      // AL_APIKEY, wins over AL_PASSWORD
	Verify     bool   `yaml:"verify"`      // AL_VERIFY, default true
	CAFile     string `yaml:"ca_file"`     // AL_CA_FILE
	CertFile   string `yaml:"cert_file"`   // AL_CERT_FILE
	KeyFile    string `yaml:"key_file"`    // AL_KEY_FILE
	Retries    int    `yaml:"retries"`     // AL_RETRIES, default 5, 0 retries forever
	TimeoutMs  int    `yaml:"timeout_ms"`  // AL_TIMEOUT_MS, default 60000
	SilenceTLS bool   `yaml:"silence_tls"` // AL_SILENCE_WARNINGS, default false

	// Search streaming
	StreamPageSize    int `yaml:"stream_page_size"`    // STREAM_PAGE_SIZE, default 100
	StreamMaxBuffered int `yaml:"stream_max_buffered"` // STREAM_MAX_BUFFERED, default 100
	MaxStreamResults  int `yaml:"max_stream_results"`  // STREAM_MAX_RESULTS, default 10000

	// Tool output limits
	DefaultSearchLimit int `yaml:"default_search_limit"` // DEFAULT_SEARCH_LIMIT
	DefaultStreamLimit int `yaml:"default_stream_limit"` // DEFAULT_STREAM_LIMIT

	FetchWorkers            int `yaml:"fetch_workers"`              // FETCH_WORKERS, default 8
	SubmissionCacheMaxItems int `yaml:"submission_cache_max_items"` // SUBMISSION_CACHE_MAX_ITEMS, default 512
	PollIntervalMs          int `yaml:"poll_interval_ms"`           // POLL_INTERVAL_MS, default 2000

	// Logging configuration
	LogLevel      string `yaml:"log_level"`        // LOG_LEVEL, default "info"
	LogFormat     string `yaml:"log_format"`       // LOG_FORMAT, "text" or "json"
	LogFile       string `yaml:"log_file"`         // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`  // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    `yaml:"log_max_backups"`  // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    `yaml:"log_max_age_days"` // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   `yaml:"log_compress"`     // LOG_COMPRESS, default true
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Verify:    true,
		Retries:   5,
		TimeoutMs: 60000,

		StreamPageSize:    client.DefaultStreamPageSize,
		StreamMaxBuffered: client.DefaultStreamMaxBuffered,
		MaxStreamResults:  MaxStreamResultsValue,

		DefaultSearchLimit: DefaultSearchLimitValue,
		DefaultStreamLimit: DefaultStreamLimitValue,

		FetchWorkers:            8,
		SubmissionCacheMaxItems: 512,
		PollIntervalMs:          DefaultPollIntervalValue,

		LogLevel:      "info",
		LogFormat:     "text",
		LogMaxSizeMB:  10,
		LogMaxBackups: 5,
		LogMaxAgeDays: 28,
		LogCompress:   true,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// AL_CONFIG_FILE, then environment variables, and validates the result.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// mergeFile decodes the YAML file at path over the current values. Keys
// missing from the file keep their value.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server = getEnvString("AL_SERVER", c.Server)
	c.User = getEnvString("AL_USER", c.User)
	c.Password = getEnvString("AL_PASSWORD", c.Password)
	c.APIKey = getEnvString("AL_APIKEY", c.APIKey)
	c.Verify = getEnvBool("AL_VERIFY", c.Verify)
	c.CAFile = getEnvString("AL_CA_FILE", c.CAFile)
	c.CertFile = getEnvString("AL_CERT_FILE", c.CertFile)
	c.KeyFile = getEnvString("AL_KEY_FILE", c.KeyFile)
	c.Retries = getEnvInt("AL_RETRIES", c.Retries)
	c.TimeoutMs = getEnvInt("AL_TIMEOUT_MS", c.TimeoutMs)
	c.SilenceTLS = getEnvBool("AL_SILENCE_WARNINGS", c.SilenceTLS)

	c.StreamPageSize = getEnvInt("STREAM_PAGE_SIZE", c.StreamPageSize)
	c.StreamMaxBuffered = getEnvInt("STREAM_MAX_BUFFERED", c.StreamMaxBuffered)
	c.MaxStreamResults = getEnvInt("STREAM_MAX_RESULTS", c.MaxStreamResults)

	c.DefaultSearchLimit = getEnvInt("DEFAULT_SEARCH_LIMIT", c.DefaultSearchLimit)
	c.DefaultStreamLimit = getEnvInt("DEFAULT_STREAM_LIMIT", c.DefaultStreamLimit)

	c.FetchWorkers = getEnvInt("FETCH_WORKERS", c.FetchWorkers)
	c.SubmissionCacheMaxItems = getEnvInt("SUBMISSION_CACHE_MAX_ITEMS", c.SubmissionCacheMaxItems)
	c.PollIntervalMs = getEnvInt("POLL_INTERVAL_MS", c.PollIntervalMs)

	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvString("LOG_FORMAT", c.LogFormat)
	c.LogFile = getEnvString("LOG_FILE", c.LogFile)
	c.LogMaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", c.LogMaxSizeMB)
	c.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", c.LogMaxBackups)
	c.LogMaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", c.LogMaxAgeDays)
	c.LogCompress = getEnvBool("LOG_COMPRESS", c.LogCompress)
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server == "" {
		errs = append(errs, errors.New("AL_SERVER is required"))
	} else if u, err := url.Parse(c.Server); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("AL_SERVER %q is not an http(s) URL", c.Server))
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		errs = append(errs, errors.New("AL_CERT_FILE and AL_KEY_FILE must be set together"))
	}
	if c.Retries < 0 {
		errs = append(errs, errors.New("AL_RETRIES must not be negative"))
	}
	if c.TimeoutMs < 0 {
		errs = append(errs, errors.New("AL_TIMEOUT_MS must not be negative"))
	}
	if c.StreamPageSize <= 0 || c.StreamMaxBuffered <= 0 {
		errs = append(errs, errors.New("stream page size and buffer must be positive"))
	}
	if c.FetchWorkers <= 0 {
		errs = append(errs, errors.New("FETCH_WORKERS must be positive"))
	}
	if c.SubmissionCacheMaxItems <= 0 {
		errs = append(errs, errors.New("SUBMISSION_CACHE_MAX_ITEMS must be positive"))
	}
	if c.PollIntervalMs <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL_MS must be positive"))
	}
	if c.DefaultSearchLimit < 0 || c.DefaultStreamLimit < 0 || c.MaxStreamResults < 0 {
		errs = append(errs, errors.New("search and stream limits must not be negative"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be text or json", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Timeout is the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// PollInterval is the delay between completion checks of a submission.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// ClientOptions converts the configuration into client options.
func (c *Config) ClientOptions() []client.Option {
	opts := []client.Option{
		client.WithVerify(c.Verify),
		client.WithSilenceWarnings(c.SilenceTLS),
		client.WithRetries(c.Retries),
		client.WithTimeout(c.Timeout()),
		client.WithStreamOptions(
			client.WithPageSize(c.StreamPageSize),
			client.WithMaxBuffered(c.StreamMaxBuffered),
		),
	}
	switch {
	case c.APIKey != "":
		opts = append(opts, client.WithAPIKey(c.User, c.APIKey))
	case c.Password != "":
		opts = append(opts, client.WithPassword(c.User, c.Password))
	}
	if c.CAFile != "" {
		opts = append(opts, client.WithCAFile(c.CAFile))
	}
	if c.CertFile != "" {
		opts = append(opts, client.WithClientCertificateFile(c.CertFile, c.KeyFile))
	}
	return opts
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
