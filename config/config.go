package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"bricsengine/core/types"
	"bricsengine/native/pool"
	"bricsengine/native/vault"
	"bricsengine/observability/logging"
	telemetry "bricsengine/observability/otel"
)

// Duration wraps time.Duration to support YAML and TOML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	return d.UnmarshalText([]byte(value.Value))
}

// UnmarshalText parses durations from TOML strings.
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for bricsd.
type Config struct {
	ListenAddress string           `yaml:"listen" toml:"Listen"`
	Environment   string           `yaml:"env" toml:"Env"`
	Shutdown      Duration         `yaml:"shutdown_timeout" toml:"ShutdownTimeout"`
	Storage       Storage          `yaml:"storage" toml:"Storage"`
	Journal       Journal          `yaml:"journal" toml:"Journal"`
	Logging       logging.Options  `yaml:"logging" toml:"Logging"`
	Telemetry     telemetry.Config `yaml:"telemetry" toml:"Telemetry"`
	Auth          Auth             `yaml:"auth" toml:"Auth"`
	RateLimit     RateLimit        `yaml:"rate_limit" toml:"RateLimit"`
	Engine        Engine           `yaml:"engine" toml:"Engine"`
}

// Storage selects the state backend.
type Storage struct {
	// Backend is leveldb, bolt or memory.
	Backend string `yaml:"backend" toml:"Backend"`
	Path    string `yaml:"path" toml:"Path"`
}

// Journal configures the receipts database. DSNs starting with postgres://
// use Postgres; anything else is a SQLite file.
type Journal struct {
	DSN string `yaml:"dsn" toml:"DSN"`
}

// Auth configures bearer token validation.
type Auth struct {
	Secret   string   `yaml:"jwt_secret" toml:"JWTSecret"`
	Issuer   string   `yaml:"issuer" toml:"Issuer"`
	Audience string   `yaml:"audience" toml:"Audience"`
	Leeway   Duration `yaml:"leeway" toml:"Leeway"`
}

// RateLimit bounds per-client request rates.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"rps" toml:"RPS"`
	Burst             int     `yaml:"burst" toml:"Burst"`
}

// Engine holds the stablecoin deployment.
type Engine struct {
	Authority  string                 `yaml:"authority" toml:"Authority"`
	Currencies []types.CurrencyConfig `yaml:"currencies" toml:"Currencies"`
	// Rates maps collateral symbols to decimal rates such as "1.2500".
	Rates    map[string]string `yaml:"rates" toml:"Rates"`
	Vault    vault.Config      `yaml:"vault" toml:"Vault"`
	Pool     pool.Config       `yaml:"pool" toml:"Pool"`
	Accounts Accounts          `yaml:"accounts" toml:"Accounts"`
	Genesis  []GenesisBalance  `yaml:"genesis" toml:"Genesis"`
}

// Accounts override the derived module accounts.
type Accounts struct {
	Vault    string `yaml:"vault" toml:"Vault"`
	Pool     string `yaml:"pool" toml:"Pool"`
	Treasury string `yaml:"treasury" toml:"Treasury"`
}

// GenesisBalance credits an account on a fresh store.
type GenesisBalance struct {
	Account  string `yaml:"account" toml:"Account"`
	Currency string `yaml:"currency" toml:"Currency"`
	Amount   string `yaml:"amount" toml:"Amount"`
}

// Load reads configuration from path. The format follows the file
// extension: .toml is TOML, anything else YAML.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if env := strings.TrimSpace(os.Getenv("BRICS_ENV")); env != "" {
		cfg.Environment = env
	}
	if secret := strings.TrimSpace(os.Getenv("BRICSD_JWT_SECRET")); secret != "" {
		cfg.Auth.Secret = secret
	}
	cfg.Telemetry.ApplyEnv()
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); v != "" {
		cfg.Telemetry.Insecure = strings.EqualFold(v, "true") || v == "1"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7080"
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}
	if cfg.Shutdown.Duration == 0 {
		cfg.Shutdown.Duration = 10 * time.Second
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "leveldb"
	}
	if cfg.Storage.Path == "" && cfg.Storage.Backend != "memory" {
		cfg.Storage.Path = "./data/state"
	}
	if cfg.Journal.DSN == "" {
		cfg.Journal.DSN = "./data/receipts.sqlite"
	}
	if cfg.Auth.Leeway.Duration == 0 {
		cfg.Auth.Leeway.Duration = 30 * time.Second
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 20
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 40
	}
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Engine.Authority) == "" {
		return fmt.Errorf("engine.authority must be configured")
	}
	if strings.TrimSpace(cfg.Auth.Secret) == "" {
		return fmt.Errorf("auth.jwt_secret must be configured (or BRICSD_JWT_SECRET)")
	}
	switch cfg.Storage.Backend {
	case "leveldb", "bolt", "memory":
	default:
		return fmt.Errorf("storage.backend %q not supported", cfg.Storage.Backend)
	}
	if cfg.RateLimit.RequestsPerSecond < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must be non-negative")
	}
	return nil
}
