// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package config loads service configuration from environment
// variables (with sane defaults), following the teacher pack's use of
// spf13/viper for layered config resolution.
package config

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the service reads from the environment.
type Config struct {
	Port int `mapstructure:"port"`

	LogLevel     string `mapstructure:"log_level"`
	RemoteLogURL string `mapstructure:"remote_log_url"`

	CaptchaEnabled   bool   `mapstructure:"captcha_enabled"`
	CaptchaSiteKey   string `mapstructure:"captcha_site_key"`
	CaptchaSecretKey string `mapstructure:"captcha_secret_key"`

	KEVRefreshIntervalHours float64 `mapstructure:"kev_refresh_interval_hours"`
	KEVSchedulerDisabled    bool    `mapstructure:"kev_scheduler_disabled"`
	KEVCacheDir             string  `mapstructure:"kev_cache_dir"`
	KEVFeedURL              string  `mapstructure:"kev_feed_url"`

	InternalRefreshSecret string `mapstructure:"internal_refresh_secret"`

	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	CacheCapacity int           `mapstructure:"cache_capacity"`

	RateLimitPerHour int `mapstructure:"rate_limit_per_hour"`

	ExploitDBIndexPath string `mapstructure:"exploitdb_index_path"`
	ALParamsPath       string `mapstructure:"al_params_path"`
	KEVFallbackPath    string `mapstructure:"kev_fallback_path"`

	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`
	UpstreamRetries int           `mapstructure:"upstream_retries"`

	ModelVersion string `mapstructure:"model_version"`
}

const (
	DefaultKEVRefreshIntervalHours = 6
	DefaultCacheTTL                = 24 * time.Hour
	DefaultCacheCapacity           = 2000
	DefaultRateLimitPerHour        = 120
	DefaultUpstreamTimeout         = 5 * time.Second
	DefaultUpstreamRetries         = 2
	DefaultModelVersion            = "secscore-2026.1"
)

// Load reads configuration from environment variables (prefixed
// SECSCORE_) with defaults applied for anything unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("secscore")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("remote_log_url", "")
	v.SetDefault("captcha_enabled", false)
	v.SetDefault("captcha_site_key", "")
	v.SetDefault("captcha_secret_key", "")
	v.SetDefault("kev_refresh_interval_hours", DefaultKEVRefreshIntervalHours)
	v.SetDefault("kev_scheduler_disabled", false)
	v.SetDefault("kev_cache_dir", "data/cache")
	v.SetDefault("kev_feed_url", "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json")
	v.SetDefault("internal_refresh_secret", "")
	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("cache_capacity", DefaultCacheCapacity)
	v.SetDefault("rate_limit_per_hour", DefaultRateLimitPerHour)
	v.SetDefault("exploitdb_index_path", "data/exploitdb_index.json")
	v.SetDefault("al_params_path", "data/al_params.json")
	v.SetDefault("kev_fallback_path", "data/kev_fallback.json")
	v.SetDefault("upstream_timeout", DefaultUpstreamTimeout)
	v.SetDefault("upstream_retries", DefaultUpstreamRetries)
	v.SetDefault("model_version", DefaultModelVersion)

	// A non-numeric interval would make Unmarshal fail; replace it with
	// the default so normalize's silent-fallback rule holds.
	if _, err := strconv.ParseFloat(v.GetString("kev_refresh_interval_hours"), 64); err != nil {
		v.Set("kev_refresh_interval_hours", DefaultKEVRefreshIntervalHours)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	normalize(&cfg)
	return &cfg, nil
}

// normalize applies the "non-numeric or non-positive env var falls
// back to the default silently" rule from spec.md §4.3.
func normalize(cfg *Config) {
	if cfg.KEVRefreshIntervalHours <= 0 || math.IsNaN(cfg.KEVRefreshIntervalHours) || math.IsInf(cfg.KEVRefreshIntervalHours, 0) {
		cfg.KEVRefreshIntervalHours = DefaultKEVRefreshIntervalHours
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = DefaultCacheCapacity
	}
	if cfg.RateLimitPerHour <= 0 {
		cfg.RateLimitPerHour = DefaultRateLimitPerHour
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if cfg.UpstreamRetries < 0 {
		cfg.UpstreamRetries = DefaultUpstreamRetries
	}
}
