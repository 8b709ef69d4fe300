// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads studio service configuration from an optional
// YAML file with environment variable overrides. A .env file in the
// working directory is loaded first, so local development secrets
// stay out of the shell profile.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level studio service configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after
// creation.
type Config struct {
	// Server contains HTTP listener settings.
	Server ServerConfig `yaml:"server"`

	// Scheduler contains worker pool settings.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Store contains status persistence settings.
	Store StoreConfig `yaml:"store"`

	// Git contains source control settings.
	Git GitConfig `yaml:"git"`

	// Observability contains logging and tracing settings.
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SchedulerConfig contains worker pool settings.
type SchedulerConfig struct {
	Workers int `yaml:"workers"`
}

// StoreConfig contains status persistence settings.
type StoreConfig struct {
	// Backend is "memory" or "badger".
	Backend string `yaml:"backend"`

	// Path is the BadgerDB directory when Backend is "badger".
	Path string `yaml:"path"`
}

// GitConfig contains source control settings.
type GitConfig struct {
	// ArenaRoot is where per-task working copies are created.
	ArenaRoot string `yaml:"arena_root"`

	// DefaultRepoURL is used when a project submission omits
	// repository coordinates.
	DefaultRepoURL string `yaml:"default_repo_url"`

	// DefaultRepoName names the default repository.
	DefaultRepoName string `yaml:"default_repo_name"`
}

// ObservabilityConfig contains logging and tracing settings.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogDir         string `yaml:"log_dir"`
	TracingEnabled bool   `yaml:"tracing_enabled"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		Scheduler: SchedulerConfig{Workers: 4},
		Store:     StoreConfig{Backend: "memory", Path: "data/studio"},
		Git:       GitConfig{ArenaRoot: ""},
		Observability: ObservabilityConfig{
			LogLevel:     "info",
			OTLPEndpoint: "localhost:4317",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML
// file at path (skipped when path is empty or absent), then
// environment variables.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("invalid worker count %d", c.Scheduler.Workers)
	}
	switch c.Store.Backend {
	case "memory", "badger":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "badger" && c.Store.Path == "" {
		return fmt.Errorf("badger backend requires a store path")
	}
	return nil
}

// applyEnv overlays STUDIO_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("STUDIO_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("STUDIO_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("STUDIO_WORKERS"); v != "" {
		if workers, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.Workers = workers
		}
	}
	if v := os.Getenv("STUDIO_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("STUDIO_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("STUDIO_ARENA_ROOT"); v != "" {
		cfg.Git.ArenaRoot = v
	}
	if v := os.Getenv("GITHUB_REPO_URL"); v != "" {
		cfg.Git.DefaultRepoURL = v
	}
	if v := os.Getenv("GITHUB_REPO_NAME"); v != "" {
		cfg.Git.DefaultRepoName = v
	}
	if v := os.Getenv("STUDIO_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("STUDIO_LOG_DIR"); v != "" {
		cfg.Observability.LogDir = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Observability.OTLPEndpoint = v
		cfg.Observability.TracingEnabled = true
	}
}
