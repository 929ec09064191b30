package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Config holds settings for the bfs tool.
type Config struct {
	Image         string `mapstructure:"image"`
	ReadOnly      bool   `mapstructure:"read_only"`
	DefaultBlocks uint64 `mapstructure:"default_blocks"`
	LogLevel      string `mapstructure:"log_level"`
}

// Load reads configuration from configFile, or from bfs-config.yaml on the
// usual search path when configFile is empty. A missing config file is not
// an error; defaults and BFS_* environment variables still apply.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("bfs-config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.bfs")
		v.AddConfigPath("/etc/bfs")
	}

	v.SetDefault("image", "")
	v.SetDefault("read_only", false)
	v.SetDefault("default_blocks", 2048)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("BFS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.DefaultBlocks == 0 {
		return errors.New("default_blocks must be greater than zero")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level. Validate has already rejected
// unknown names.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}
