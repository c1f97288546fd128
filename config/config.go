// Package config assembles program settings: code defaults, then an
// optional YAML file, then BREATHE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"breathe/session"
)

const EnvPrefix = "BREATHE_"

type Config struct {
	Session    session.Config `yaml:",inline"`
	LedgerPath string         `yaml:"ledger_path" env:"LEDGER_PATH"`
	Sounds     bool           `yaml:"sounds" env:"SOUNDS"`
}

func Default() Config {
	return Config{
		Session:    session.DefaultConfig(),
		LedgerPath: defaultLedgerPath(),
		Sounds:     true,
	}
}

func defaultLedgerPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "breathe", "rewards.db")
}

// Load returns the layered configuration. An empty path skips the file
// layer. Unknown YAML keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.LedgerPath == "" {
		return fmt.Errorf("invalid config: ledger path is required")
	}
	return nil
}
