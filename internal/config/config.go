// Package config provides configuration management for the data-download tool.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/vpremier/data-download/internal/scene"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	CDSE     CDSEConfig     `envPrefix:"CDSE_"`
	M2M      M2MConfig      `envPrefix:"M2M_"`
	Download DownloadConfig `envPrefix:"DOWNLOAD_"`
	Dedup    DedupConfig    `envPrefix:"DEDUP_"`
	STAC     STACConfig     `envPrefix:"STAC_"`
	Features FeatureConfig  `envPrefix:"FEATURE_"`
	Logging  LoggingConfig  `envPrefix:"LOG_"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// CDSEConfig contains Copernicus Data Space Ecosystem client configuration.
type CDSEConfig struct {
	CatalogueURL string        `env:"CATALOGUE_URL" envDefault:"https://catalogue.dataspace.copernicus.eu/odata/v1"`
	DownloadURL  string        `env:"DOWNLOAD_URL" envDefault:"https://zipper.dataspace.copernicus.eu/odata/v1"`
	TokenURL     string        `env:"TOKEN_URL" envDefault:"https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"`
	ClientID     string        `env:"CLIENT_ID" envDefault:"cdse-public"`
	Username     string        `env:"USERNAME" envDefault:""`
	Password     string        `env:"PASSWORD,unset" envDefault:""`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"60s"`
	// TokenRefresh is how long an access token is reused before a new one is requested.
	TokenRefresh time.Duration `env:"TOKEN_REFRESH" envDefault:"10m"`
	PageSize     int           `env:"PAGE_SIZE" envDefault:"1000"`
}

// M2MConfig contains USGS Machine-to-Machine API configuration.
type M2MConfig struct {
	BaseURL           string        `env:"BASE_URL" envDefault:"https://m2m.cr.usgs.gov/api/api/json/stable/"`
	Username          string        `env:"USERNAME" envDefault:""`
	Token             string        `env:"TOKEN,unset" envDefault:""`
	Timeout           time.Duration `env:"TIMEOUT" envDefault:"120s"`
	RequestsPerSecond float64       `env:"REQUESTS_PER_SECOND" envDefault:"5"`
	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
	MaxResults        int           `env:"MAX_RESULTS" envDefault:"10000"`
}

// DownloadConfig controls where and how archives are fetched.
type DownloadConfig struct {
	OutDir      string        `env:"OUTDIR" envDefault:"."`
	Retries     int           `env:"RETRIES" envDefault:"5"`
	Backoff     time.Duration `env:"BACKOFF" envDefault:"1s"`
	Concurrency int           `env:"CONCURRENCY" envDefault:"2"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

// DedupConfig holds the default Sentinel-2 duplicate filters.
type DedupConfig struct {
	Baseline       bool     `env:"BASELINE" envDefault:"true"`
	Footprint      bool     `env:"FOOTPRINT" envDefault:"true"`
	RelativeOrbits []string `env:"ORBITS" envSeparator:"," envDefault:""`
	Tolerance      float64  `env:"TOLERANCE" envDefault:"0.999"`
}

// Options converts the configured filters into dedup pipeline options.
func (d DedupConfig) Options() scene.Options {
	return scene.Options{
		FilterBaseline:  d.Baseline,
		FilterFootprint: d.Footprint,
		RelativeOrbits:  d.RelativeOrbits,
		Tolerance:       d.Tolerance,
	}
}

// STACConfig contains STAC API metadata configuration.
type STACConfig struct {
	Version     string `env:"VERSION" envDefault:"1.0.0"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	Title       string `env:"TITLE" envDefault:"Landsat and Sentinel-2 search"`
	Description string `env:"DESCRIPTION" envDefault:"Deduplicated scene search over CDSE and USGS M2M"`
}

// FeatureConfig contains paging limits of the search API.
type FeatureConfig struct {
	DefaultLimit int `env:"DEFAULT_LIMIT" envDefault:"10"`
	MaxLimit     int `env:"MAX_LIMIT" envDefault:"250"`
	// ResultTTL is how long a search result set stays available for paging.
	ResultTTL time.Duration `env:"RESULT_TTL" envDefault:"15m"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Defaults returns the configuration with every default applied, without
// reading the process environment.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}}); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	if c.CDSE.CatalogueURL == "" {
		return fmt.Errorf("CDSE catalogue URL is required")
	}

	if c.CDSE.Timeout <= 0 {
		return fmt.Errorf("CDSE timeout must be positive, got %s", c.CDSE.Timeout)
	}

	if c.CDSE.TokenRefresh <= 0 {
		return fmt.Errorf("CDSE token refresh must be positive, got %s", c.CDSE.TokenRefresh)
	}

	if c.CDSE.PageSize < 1 || c.CDSE.PageSize > 1000 {
		return fmt.Errorf("CDSE page size must be between 1 and 1000, got %d", c.CDSE.PageSize)
	}

	if c.M2M.BaseURL == "" {
		return fmt.Errorf("M2M base URL is required")
	}

	if c.M2M.Timeout <= 0 {
		return fmt.Errorf("M2M timeout must be positive, got %s", c.M2M.Timeout)
	}

	if c.M2M.RequestsPerSecond <= 0 {
		return fmt.Errorf("M2M requests per second must be positive, got %g", c.M2M.RequestsPerSecond)
	}

	if c.M2M.PollInterval <= 0 {
		return fmt.Errorf("M2M poll interval must be positive, got %s", c.M2M.PollInterval)
	}

	if c.Download.Retries < 0 {
		return fmt.Errorf("download retries must not be negative, got %d", c.Download.Retries)
	}

	if c.Download.Concurrency < 1 {
		return fmt.Errorf("download concurrency must be at least 1, got %d", c.Download.Concurrency)
	}

	if c.Dedup.Tolerance <= 0 || c.Dedup.Tolerance > 1 {
		return fmt.Errorf("dedup tolerance must be in (0, 1], got %g", c.Dedup.Tolerance)
	}

	if c.STAC.Version == "" {
		return fmt.Errorf("STAC version is required")
	}

	if c.Features.DefaultLimit < 1 {
		return fmt.Errorf("default limit must be at least 1, got %d", c.Features.DefaultLimit)
	}

	if c.Features.MaxLimit < c.Features.DefaultLimit {
		return fmt.Errorf("max limit (%d) must be >= default limit (%d)", c.Features.MaxLimit, c.Features.DefaultLimit)
	}

	if c.Features.ResultTTL <= 0 {
		return fmt.Errorf("result TTL must be positive, got %s", c.Features.ResultTTL)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// HasCredentials reports whether both CDSE username and password are set.
func (c *CDSEConfig) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// HasCredentials reports whether both M2M username and token are set.
func (c *M2MConfig) HasCredentials() bool {
	return c.Username != "" && c.Token != ""
}
