package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meigma/unwrap/core/cache"
)

const (
	backendDisk   = "disk"
	backendBadger = "badger"
	backendHTTP   = "http"
)

type config struct {
	Store       storeConfig `yaml:"store"`
	MetricsAddr string      `yaml:"metrics_addr"`
	LogLevel    string      `yaml:"log_level"`
}

type storeConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	MaxBytes    int64  `yaml:"max_bytes"`
	Compression string `yaml:"compression"`
}

func defaultConfig() config {
	return config{
		Store: storeConfig{
			Backend:     backendDisk,
			Path:        "unwrap-cache",
			Compression: "zstd",
		},
		LogLevel: "info",
	}
}

// loadConfig reads path over the defaults. A missing file is not an error
// when path is the default location.
func loadConfig(path string, required bool) (config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c config) validate() error {
	switch c.Store.Backend {
	case backendDisk, backendBadger, backendHTTP:
	default:
		return fmt.Errorf("store.backend %q: must be disk, badger or http", c.Store.Backend)
	}
	if c.Store.Path == "" {
		return errors.New("store.path is empty")
	}
	if c.Store.MaxBytes < 0 {
		return errors.New("store.max_bytes must be >= 0")
	}
	if c.Store.MaxBytes > 0 && c.Store.Backend != backendDisk {
		return errors.New("store.max_bytes is only supported by the disk backend")
	}
	if _, err := c.compression(); err != nil {
		return err
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c config) compression() (cache.Compression, error) {
	switch c.Store.Compression {
	case "", "zstd":
		return cache.CompressionZstd, nil
	case "none":
		return cache.CompressionNone, nil
	default:
		return 0, fmt.Errorf("store.compression %q: must be none or zstd", c.Store.Compression)
	}
}

func (c config) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
