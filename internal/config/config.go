// Package config loads and validates fieldcert configuration.
//
// Configuration comes from a YAML file with environment-variable overrides,
// and is validated against an embedded CUE schema before any component sees
// it. The ledger section is optional: absence of endpoint, API key, or
// contract reference is the documented trigger for mock-mode anchoring.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// LedgerConfig points at the external ledger backend.
// All three of Endpoint, APIKey, and ContractRef must be present for the
// anchor service to run in real mode.
type LedgerConfig struct {
	Endpoint    string `yaml:"endpoint"`
	APIKey      string `yaml:"api_key"`
	ContractRef string `yaml:"contract_ref"`
	Network     string `yaml:"network"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// Config is the full process configuration.
type Config struct {
	Database string       `yaml:"database"`
	Ledger   LedgerConfig `yaml:"ledger"`
}

// Default returns the configuration used when no file is given:
// a local database and an unconfigured (mock-mode) ledger.
func Default() Config {
	return Config{
		Database: "fieldcert.db",
		Ledger: LedgerConfig{
			TimeoutSec: 15,
		},
	}
}

// Load reads configuration from the YAML file at path, applies environment
// overrides, and validates the result. An empty path loads defaults plus
// environment overrides only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides file values from the environment. Secrets in particular
// (the API key) are expected to arrive this way rather than living in a file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FIELDCERT_DATABASE"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("FIELDCERT_LEDGER_ENDPOINT"); v != "" {
		cfg.Ledger.Endpoint = v
	}
	if v := os.Getenv("FIELDCERT_LEDGER_API_KEY"); v != "" {
		cfg.Ledger.APIKey = v
	}
	if v := os.Getenv("FIELDCERT_LEDGER_CONTRACT"); v != "" {
		cfg.Ledger.ContractRef = v
	}
	if v := os.Getenv("FIELDCERT_LEDGER_NETWORK"); v != "" {
		cfg.Ledger.Network = v
	}
}

// Validate checks the configuration against the embedded CUE schema.
func (c Config) Validate() error {
	cuectx := cuecontext.New()

	schema := cuectx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	val := cuectx.Encode(map[string]any{
		"database": c.Database,
		"ledger": map[string]any{
			"endpoint":     c.Ledger.Endpoint,
			"api_key":      c.Ledger.APIKey,
			"contract_ref": c.Ledger.ContractRef,
			"network":      c.Ledger.Network,
			"timeout_sec":  c.Ledger.TimeoutSec,
		},
	})
	if err := val.Err(); err != nil {
		return fmt.Errorf("config encode: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LedgerConfigured reports whether all fields required for real-mode
// anchoring are present. Anything less runs the deterministic mock.
func (c Config) LedgerConfigured() bool {
	return c.Ledger.Endpoint != "" && c.Ledger.APIKey != "" && c.Ledger.ContractRef != ""
}

// LedgerTimeout returns the configured per-call ledger timeout.
func (c Config) LedgerTimeout() time.Duration {
	return time.Duration(c.Ledger.TimeoutSec) * time.Second
}
