// Copyright (c) 2025 Duet Chat Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for duet-tui.
//
// Configuration lives in a single TOML file at ~/.duet/config.toml, with
// sensible defaults and environment variable overrides. A missing or broken
// config file never prevents startup; the defaults apply.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/duetchat/duet-tui/internal/model"
	"github.com/duetchat/duet-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete duet-tui configuration.
type Config struct {
	// Identity partitions stored sessions; "guest" when unauthenticated.
	Identity string `toml:"identity"`

	// Server settings for the Duet backend.
	Server ServerConfig `toml:"server"`

	// Models holds per-persona sub-model preferences.
	Models ModelsConfig `toml:"models"`

	// Reveal tunes the reply typewriter pacing.
	Reveal RevealConfig `toml:"reveal"`
}

// ServerConfig contains backend connection settings.
type ServerConfig struct {
	// URL is the backend base URL.
	URL string `toml:"url"`
	// Token is the bearer token for authenticated endpoints.
	Token string `toml:"token"`
}

// ModelsConfig maps each persona to its preferred backend sub-model.
type ModelsConfig struct {
	Diszi string `toml:"diszi"`
	Zily  string `toml:"zily"`
}

// RevealConfig tunes reply reveal pacing. Zero values mean defaults; a
// negative delay disables pacing entirely.
type RevealConfig struct {
	// DelayMs is the base delay between revealed units, in milliseconds.
	DelayMs int `toml:"delay_ms"`
	// JitterMs is the upper bound of the random extra delay per unit.
	JitterMs int `toml:"jitter_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Identity: "guest",
		Server: ServerConfig{
			URL: "http://localhost:8080",
		},
		Models: ModelsConfig{},
		Reveal: RevealConfig{
			DelayMs:  10,
			JitterMs: 15,
		},
	}
}

// SetDefaults fills empty fields after a load.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Identity == "" {
		c.Identity = d.Identity
	}
	if c.Server.URL == "" {
		c.Server.URL = d.Server.URL
	}
	if c.Reveal.DelayMs == 0 {
		c.Reveal.DelayMs = d.Reveal.DelayMs
	}
	if c.Reveal.JitterMs == 0 {
		c.Reveal.JitterMs = d.Reveal.JitterMs
	}
}

// ApplyEnvOverrides applies environment variables over file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DUET_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("DUET_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("DUET_IDENTITY"); v != "" {
		c.Identity = v
	}
}

// SubModel returns the preferred sub-model for a persona, or "" when the
// persona's built-in default should apply.
func (c *Config) SubModel(kind model.Kind) string {
	switch kind {
	case model.KindDiszi:
		return c.Models.Diszi
	case model.KindZily:
		return c.Models.Zily
	}
	return ""
}

// SetSubModel records a sub-model preference for a persona.
func (c *Config) SetSubModel(kind model.Kind, name string) {
	switch kind {
	case model.KindDiszi:
		c.Models.Diszi = name
	case model.KindZily:
		c.Models.Zily = name
	}
}

// RevealDelays returns the reveal pacing as durations. A negative configured
// delay returns zeros, which the revealer treats as instant.
func (c *Config) RevealDelays() (base, jitter time.Duration) {
	if c.Reveal.DelayMs < 0 {
		return 0, 0
	}
	return time.Duration(c.Reveal.DelayMs) * time.Millisecond,
		time.Duration(c.Reveal.JitterMs) * time.Millisecond
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the duet-tui configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".duet"), nil
}

// ConfigPath returns the path of the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// SessionDBPath returns the path of the session store database.
func SessionDBPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.db"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD AND SAVE
// =============================================================================

// Load reads the config file, falling back to defaults when the file is
// missing or unreadable. The error, when non-nil, is informational; the
// returned config is always usable.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads a config file from an explicit location.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var loadErr error
	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			loadErr = fmt.Errorf("failed to decode config: %w", err)
			cfg = Default()
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	return cfg, loadErr
}

// Save writes the configuration to the default TOML file. The write is
// atomic, with 0600 permissions since the token lives here.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to an explicit location.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# duet-tui configuration file\n")
	buf.WriteString("# Edit with care; the file reloads live.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
