// Package config loads the process configuration from environment variables
// and an optional .env file.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string `mapstructure:"CARECORE_ENV"`
	LogLevel        string `mapstructure:"CARECORE_LOG_LEVEL"`
	StorageDriver   string `mapstructure:"CARECORE_STORAGE_DRIVER"`
	SQLitePath      string `mapstructure:"CARECORE_SQLITE_PATH"`
	PostgresDSN     string `mapstructure:"CARECORE_POSTGRES_DSN"`
	ArchiveDriver   string `mapstructure:"CARECORE_ARCHIVE_DRIVER"`
	ArchiveRoot     string `mapstructure:"CARECORE_ARCHIVE_ROOT"`
	ArchiveBucket   string `mapstructure:"CARECORE_ARCHIVE_S3_BUCKET"`
	ArchiveRegion   string `mapstructure:"CARECORE_ARCHIVE_S3_REGION"`
	ArchiveEndpoint string `mapstructure:"CARECORE_ARCHIVE_S3_ENDPOINT"`
	MetricsEnabled  bool   `mapstructure:"CARECORE_METRICS_ENABLED"`
}

var keys = []string{
	"CARECORE_ENV",
	"CARECORE_LOG_LEVEL",
	"CARECORE_STORAGE_DRIVER",
	"CARECORE_SQLITE_PATH",
	"CARECORE_POSTGRES_DSN",
	"CARECORE_ARCHIVE_DRIVER",
	"CARECORE_ARCHIVE_ROOT",
	"CARECORE_ARCHIVE_S3_BUCKET",
	"CARECORE_ARCHIVE_S3_REGION",
	"CARECORE_ARCHIVE_S3_ENDPOINT",
	"CARECORE_METRICS_ENABLED",
}

// Load reads configuration from the environment and an optional .env file in
// the working directory. The file is a convenience for development; the
// environment always wins.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("CARECORE_ENV", "development")
	v.SetDefault("CARECORE_LOG_LEVEL", "info")
	v.SetDefault("CARECORE_STORAGE_DRIVER", "sqlite")
	v.SetDefault("CARECORE_SQLITE_PATH", "carecore.db")
	v.SetDefault("CARECORE_ARCHIVE_DRIVER", "fs")
	v.SetDefault("CARECORE_ARCHIVE_ROOT", "./archive")

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	// Missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks driver names and their required parameters.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "memory", "sqlite":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("CARECORE_POSTGRES_DSN is required when CARECORE_STORAGE_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("CARECORE_STORAGE_DRIVER must be memory, sqlite, or postgres, got %q", c.StorageDriver)
	}
	switch c.ArchiveDriver {
	case "fs", "memory":
	case "s3":
		if c.ArchiveBucket == "" {
			return fmt.Errorf("CARECORE_ARCHIVE_S3_BUCKET is required when CARECORE_ARCHIVE_DRIVER is s3")
		}
	default:
		return fmt.Errorf("CARECORE_ARCHIVE_DRIVER must be fs, s3, or memory, got %q", c.ArchiveDriver)
	}
	return nil
}

func (c *Config) IsDev() bool { return c.Env == "development" }
