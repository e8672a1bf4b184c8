// Package config loads application settings from an optional YAML file and
// DORMDUTY_-prefixed environment variables, env taking precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"port"`
	DBPath   string `mapstructure:"db_path"`
	LogLevel string `mapstructure:"log_level"`

	// SecureCookie marks session cookies Secure; enable behind TLS.
	SecureCookie bool `mapstructure:"secure_cookie"`

	Push   PushConfig   `mapstructure:"push"`
	Backup BackupConfig `mapstructure:"backup"`
}

// PushConfig holds the VAPID key pair for Web Push. Push notifications are
// disabled when either key is empty.
type PushConfig struct {
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
}

// BackupConfig holds S3 backup settings. Backups are disabled unless bucket
// and credentials are set.
type BackupConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Prefix        string        `mapstructure:"prefix"`
	Interval      time.Duration `mapstructure:"interval"`
	RetentionDays int           `mapstructure:"retention_days"`
}

// Load reads configuration from path (may be empty) and the environment.
// A missing config file is not an error; env vars alone are enough.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DORMDUTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults also register the keys so AutomaticEnv can resolve them
	// during Unmarshal.
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "dormduty.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("secure_cookie", false)
	v.SetDefault("push.vapid_public_key", "")
	v.SetDefault("push.vapid_private_key", "")
	v.SetDefault("backup.endpoint", "")
	v.SetDefault("backup.bucket", "")
	v.SetDefault("backup.region", "us-east-1")
	v.SetDefault("backup.access_key", "")
	v.SetDefault("backup.secret_key", "")
	v.SetDefault("backup.prefix", "dormduty")
	v.SetDefault("backup.interval", 24*time.Hour)
	v.SetDefault("backup.retention_days", 30)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			// A missing file falls back to env and defaults.
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
