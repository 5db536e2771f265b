// Package config loads application configuration from an optional YAML
// file layered over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application settings.
type Config struct {
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Scraper struct {
		UserAgent       string        `mapstructure:"user_agent"`
		Timeout         time.Duration `mapstructure:"timeout"`
		WaitTimeout     time.Duration `mapstructure:"wait_timeout"`
		SettleDelay     time.Duration `mapstructure:"settle_delay"`
		RequestInterval time.Duration `mapstructure:"request_interval"`
	} `mapstructure:"scraper"`

	Pool struct {
		Workers   int `mapstructure:"workers"`
		QueueSize int `mapstructure:"queue_size"`
	} `mapstructure:"pool"`

	Scheduler struct {
		TickInterval time.Duration `mapstructure:"tick_interval"`
	} `mapstructure:"scheduler"`

	Retry struct {
		MaxAttempts int           `mapstructure:"max_attempts"`
		BaseDelay   time.Duration `mapstructure:"base_delay"`
		MaxDelay    time.Duration `mapstructure:"max_delay"`
		Multiplier  float64       `mapstructure:"multiplier"`
	} `mapstructure:"retry"`

	Export struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"export"`

	Monitor struct {
		Enabled  bool          `mapstructure:"enabled"`
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"monitor"`
}

// Load reads configuration from path, or from ./config.yaml when path
// is empty. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("database.path", "scraper_data.db")
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("scraper.timeout", 30*time.Second)
	v.SetDefault("scraper.wait_timeout", 5*time.Second)
	v.SetDefault("scraper.settle_delay", 2*time.Second)
	v.SetDefault("scraper.request_interval", time.Second)
	v.SetDefault("pool.workers", 3)
	v.SetDefault("pool.queue_size", 64)
	v.SetDefault("scheduler.tick_interval", 30*time.Second)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", time.Minute)
	v.SetDefault("retry.max_delay", 30*time.Minute)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("export.dir", "exports")
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.interval", time.Minute)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
