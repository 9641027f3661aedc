package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"

	"github.com/TanyaEleventhGoddess/ipfilter/internal/fetch"
	"github.com/TanyaEleventhGoddess/ipfilter/internal/iprange"
	"github.com/TanyaEleventhGoddess/ipfilter/internal/output"
)

// Config is the root runtime configuration. It is resolved once at startup
// and threaded through the pipeline unchanged.
type Config struct {
	Output      string           `json:"output" yaml:"output"`
	Compression string           `json:"compression" yaml:"compression"`
	KeepTemp    bool             `json:"keep_temp" yaml:"keep_temp"`
	Download    DownloadConfig   `json:"download" yaml:"download"`
	Sources     []SourceConfig   `json:"sources" yaml:"sources"`
	GeoLite     GeoLiteConfig    `json:"geolite" yaml:"geolite"`
	Log         logger.LogConfig `json:"log" yaml:"log"`
	Pprof       PprofConfig      `json:"pprof" yaml:"pprof"`
}

type DownloadConfig struct {
	Attempts    int `json:"attempts" yaml:"attempts"`
	TimeoutSec  int `json:"timeout_sec" yaml:"timeout_sec"`
	BackoffSec  int `json:"backoff_sec" yaml:"backoff_sec"`
	Concurrency int `json:"concurrency" yaml:"concurrency"`
	CacheSize   int `json:"cache_size" yaml:"cache_size"`
}

// RetryPolicy converts the configured values into the downloader policy,
// leaving zero fields to its defaults.
func (d DownloadConfig) RetryPolicy() fetch.RetryPolicy {
	return fetch.RetryPolicy{
		Attempts: d.Attempts,
		Timeout:  time.Duration(d.TimeoutSec) * time.Second,
		Backoff:  time.Duration(d.BackoffSec) * time.Second,
	}
}

type SourceConfig struct {
	Name string      `json:"name" yaml:"name"`
	Type string      `json:"type" yaml:"type"`
	Data interface{} `json:"data" yaml:"data"`
}

type GeoLiteConfig struct {
	LicenseKey string   `json:"license_key" yaml:"license_key"`
	Countries  []string `json:"countries" yaml:"countries"`
	Versions   []string `json:"versions" yaml:"versions"`
	// Endpoint overrides the MaxMind download host, mainly for tests.
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// Enabled reports whether the GeoLite2 stage should run at all.
func (g GeoLiteConfig) Enabled() bool {
	return g.LicenseKey != "" && len(g.Countries) > 0
}

// ParsedVersions returns the requested IP versions; both families when the
// list is empty. Load has already rejected unknown values.
func (g GeoLiteConfig) ParsedVersions() []iprange.Version {
	if len(g.Versions) == 0 {
		return []iprange.Version{iprange.IPv4, iprange.IPv6}
	}
	out := make([]iprange.Version, 0, len(g.Versions))
	for _, s := range g.Versions {
		v, err := iprange.ParseVersion(s)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

type PprofConfig struct {
	Enable bool   `json:"enable" yaml:"enable"`
	Bind   string `json:"bind" yaml:"bind"`
}

// Load reads and validates the configuration file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if len(c.Sources) == 0 && !c.GeoLite.Enabled() {
		return fmt.Errorf("no blocklist sources configured")
	}
	if _, err := output.ParseCompression(c.Compression); err != nil {
		return err
	}
	for i, s := range c.Sources {
		if s.Type == "" {
			return fmt.Errorf("source %d has no type", i)
		}
	}
	// Unknown versions are a configuration error, rejected before the
	// pipeline starts rather than warn-skipped mid-run.
	for _, v := range c.GeoLite.Versions {
		if _, err := iprange.ParseVersion(v); err != nil {
			return err
		}
	}
	return nil
}
