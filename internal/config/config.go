// Package config loads service settings. Sources are applied in order of
// increasing precedence: built-in defaults, an optional config file, the
// environment, then command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type StorageConfig struct {
	Driver        string `yaml:"driver" env:"TEAMBOARD_STORAGE" env-default:"sqlite"`
	Path          string `yaml:"path" env:"TEAMBOARD_DB_PATH" env-default:"data/teamboard.db"`
	Dir           string `yaml:"dir" env:"TEAMBOARD_DATA_DIR" env-default:"data"`
	RedisAddr     string `yaml:"redis_addr" env:"TEAMBOARD_REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"TEAMBOARD_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"TEAMBOARD_REDIS_DB"`
	RedisPrefix   string `yaml:"redis_prefix" env:"TEAMBOARD_REDIS_PREFIX" env-default:"teamboard:"`
	PostgresDSN   string `yaml:"postgres_dsn" env:"TEAMBOARD_POSTGRES_DSN"`
	PostgresTable string `yaml:"postgres_table" env:"TEAMBOARD_POSTGRES_TABLE" env-default:"teamboard_kv"`
}

type AuthConfig struct {
	Secret       string        `yaml:"secret" env:"TEAMBOARD_AUTH_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"TEAMBOARD_AUTH_TOKEN_TTL" env-default:"24h"`
	Latency      time.Duration `yaml:"latency" env:"TEAMBOARD_AUTH_LATENCY" env-default:"1s"`
	Timeout      time.Duration `yaml:"timeout" env:"TEAMBOARD_AUTH_TIMEOUT" env-default:"5s"`
	RequireToken bool          `yaml:"require_token" env:"TEAMBOARD_AUTH_REQUIRE_TOKEN"`
}

type CategoriesConfig struct {
	// BaseURL of the remote category API. Empty disables /api/categories.
	BaseURL string        `yaml:"base_url" env:"TEAMBOARD_CATEGORIES_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TEAMBOARD_CATEGORIES_TIMEOUT" env-default:"10s"`
	Retries int           `yaml:"retries" env:"TEAMBOARD_CATEGORIES_RETRIES" env-default:"2"`
}

type Config struct {
	Addr      string `yaml:"addr" env:"TEAMBOARD_ADDR" env-default:":8080"`
	StaticDir string `yaml:"static_dir" env:"TEAMBOARD_STATIC_DIR" env-default:"web/dist"`
	LogLevel  string `yaml:"log_level" env:"TEAMBOARD_LOG_LEVEL" env-default:"info"`
	// SkipSeed leaves an empty roster empty on first start.
	SkipSeed bool `yaml:"skip_seed" env:"TEAMBOARD_SKIP_SEED"`

	Storage    StorageConfig    `yaml:"storage"`
	Auth       AuthConfig       `yaml:"auth"`
	Categories CategoriesConfig `yaml:"categories"`
}

// Load reads path (if non-empty) and then the environment. A missing file
// is an error only when the path was given explicitly.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// readFile decodes YAML, or JSON with comments and trailing commas. JSON is
// standardised and re-encoded as YAML so both formats share one set of tags
// and duration syntax.
func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	case ".json", ".jsonc", ".hujson":
		data, err = jsonToYAML(data)
		if err != nil {
			return fmt.Errorf("invalid JSONC in %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func jsonToYAML(data []byte) ([]byte, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(std, &tree); err != nil {
		return nil, err
	}
	return yaml.Marshal(tree)
}

// Validate checks driver-specific requirements.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the sqlite driver"))
		}
	case DriverFile:
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("storage.dir is required for the file driver"))
		}
	case DriverRedis:
		if c.Storage.RedisAddr == "" {
			errs = append(errs, errors.New("storage.redis_addr is required for the redis driver"))
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Auth.Timeout > 0 && c.Auth.Latency >= c.Auth.Timeout {
		errs = append(errs, fmt.Errorf("auth.latency (%s) must be shorter than auth.timeout (%s)", c.Auth.Latency, c.Auth.Timeout))
	}
	if c.Categories.Retries < 0 {
		errs = append(errs, errors.New("categories.retries must not be negative"))
	}
	return errors.Join(errs...)
}
