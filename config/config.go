// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
)

type Config struct {
	Port           int      `env:"PORT"            envDefault:"5200"`
	StorageDriver  string   `env:"STORAGE_DRIVER"  envDefault:"json"`
	DataDir        string   `env:"DATA_DIR"        envDefault:"data"`
	DatabaseURL    string   `env:"DATABASE_URL"`
	OperatorToken  string   `env:"OPERATOR_TOKEN"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	DefaultRounds  int      `env:"DEFAULT_ROUNDS"  envDefault:"4"`
	PairingSeed    int64    `env:"PAIRING_SEED"    envDefault:"0"`

	Archive      ArchiveConfig
	RegistrySync RegistrySyncConfig
}

// ArchiveConfig points at the R2 bucket closed tournaments are copied to.
// Archiving is off when Bucket is empty.
type ArchiveConfig struct {
	AccountID       string        `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string        `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string        `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string        `env:"R2_BUCKET_NAME"`
	Interval        time.Duration `env:"ARCHIVE_INTERVAL" envDefault:"10m"`
}

func (a ArchiveConfig) Enabled() bool { return a.Bucket != "" }

// RegistrySyncConfig points at the federation roster feed. Sync is off when
// URL is empty.
type RegistrySyncConfig struct {
	URL      string        `env:"REGISTRY_SYNC_URL"`
	Token    string        `env:"REGISTRY_SYNC_TOKEN"`
	Interval time.Duration `env:"REGISTRY_SYNC_INTERVAL" envDefault:"1h"`
}

func (r RegistrySyncConfig) Enabled() bool { return r.URL != "" }

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case DriverJSON:
		if strings.TrimSpace(c.DataDir) == "" {
			errs = append(errs, errors.New("DATA_DIR must not be empty"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.DefaultRounds <= 0 {
		errs = append(errs, errors.New("DEFAULT_ROUNDS must be positive"))
	}
	if c.Archive.Enabled() && c.Archive.Interval <= 0 {
		errs = append(errs, errors.New("ARCHIVE_INTERVAL must be positive"))
	}
	if c.RegistrySync.Enabled() && c.RegistrySync.Interval <= 0 {
		errs = append(errs, errors.New("REGISTRY_SYNC_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

// OriginsString joins the allowed origins the way fiber's CORS config wants.
func (c Config) OriginsString() string {
	return strings.Join(c.AllowedOrigins, ",")
}

func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
