package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/consolr/internal/store"
)

// Config is the top-level TOML structure for the daemon.
type Config struct {
	Listen   string        `mapstructure:"listen"`
	BasePath string        `mapstructure:"base_path"`
	Log      LogConfig     `mapstructure:"log"`
	Store    store.Config  `mapstructure:"store"`
	Stop     StopConfig    `mapstructure:"stop"`
	History  HistoryConfig `mapstructure:"history"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	Files    FilesConfig   `mapstructure:"files"`
	Shell    ShellConfig   `mapstructure:"shell"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type StopConfig struct {
	GracePeriod  time.Duration `mapstructure:"grace_period"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Command      string        `mapstructure:"command"`
}

type HistoryConfig struct {
	Lines int `mapstructure:"lines"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type FilesConfig struct {
	Root string `mapstructure:"root"`
}

type ShellConfig struct {
	Command string `mapstructure:"command"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:   "0.0.0.0:5000",
		BasePath: "/api",
		Log:      LogConfig{Level: "info"},
		Store:    store.Config{Type: "sqlite", Path: "consolr.db"},
		Stop:     StopConfig{GracePeriod: 30 * time.Second, PollInterval: 500 * time.Millisecond, Command: "stop"},
		History:  HistoryConfig{Lines: 5000},
		Metrics:  MetricsConfig{Enabled: true},
		Files:    FilesConfig{Root: "/"},
	}
}

// Load reads a TOML config file and overlays it on the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
