// Package config assembles server settings from defaults, an optional YAML file,
// MEMORIZ_* environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendEmbedded = "embedded"
)

// Config holds the memoriz server configuration.
type Config struct {
	Env     string        `yaml:"env"` // prod, dev, local
	HTTP    HTTPConfig    `yaml:"http"`
	GRPC    GRPCConfig    `yaml:"grpc"`
	Storage StorageConfig `yaml:"storage"`
	Search  SearchConfig  `yaml:"search"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig holds REST server settings.
type HTTPConfig struct {
	Addr            string `yaml:"addr"`
	StaticDir       string `yaml:"static_dir"` // empty disables static file serving
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
}

// GRPCConfig holds health server settings.
type GRPCConfig struct {
	Addr              string `yaml:"addr"` // empty disables the gRPC listener
	Reflection        bool   `yaml:"reflection"`
	HealthIntervalSec int    `yaml:"health_interval_sec"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend  string         `yaml:"backend"`
	Postgres PostgresConfig `yaml:"postgres"`
	Embedded EmbeddedConfig `yaml:"embedded"`
}

// PostgresConfig holds relational connection settings.
type PostgresConfig struct {
	Database string `yaml:"database"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
	Schema   string `yaml:"schema"`
}

// EmbeddedConfig holds the local store location.
type EmbeddedConfig struct {
	Dir string `yaml:"dir"`
}

// SearchConfig holds search service settings.
type SearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Index   string `yaml:"index"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Token   string `yaml:"token"`
	Prefix  string `yaml:"prefix"`
	Limit   int    `yaml:"limit"`
}

// AuthConfig holds the token verification key.
type AuthConfig struct {
	JWTKey string `yaml:"jwt_key"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Default returns the built-in configuration.
func Default() Config {
	c := Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = "prod"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 5
	}
	if c.GRPC.HealthIntervalSec <= 0 {
		c.GRPC.HealthIntervalSec = 10
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendPostgres
	}
	if c.Storage.Postgres.Host == "" {
		c.Storage.Postgres.Host = "localhost"
	}
	if c.Storage.Postgres.Port <= 0 {
		c.Storage.Postgres.Port = 5432
	}
	if c.Storage.Postgres.Schema == "" {
		c.Storage.Postgres.Schema = "memoriz"
	}
	if c.Storage.Embedded.Dir == "" {
		c.Storage.Embedded.Dir = "data"
	}
	if c.Search.Port <= 0 {
		c.Search.Port = 6379
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Env {
	case "prod", "dev", "local":
	default:
		return fmt.Errorf("env must be prod, dev or local, got %q", c.Env)
	}
	if c.Auth.JWTKey == "" {
		return errors.New("auth.jwt_key is required")
	}
	switch c.Storage.Backend {
	case BackendPostgres:
		pg := c.Storage.Postgres
		if pg.Database == "" || pg.User == "" {
			return errors.New("storage.postgres.database and storage.postgres.user are required")
		}
		if pg.Port > 65535 {
			return fmt.Errorf("storage.postgres.port must be between 1 and 65535, got %d", pg.Port)
		}
	case BackendEmbedded:
		if c.Storage.Embedded.Dir == "" {
			return errors.New("storage.embedded.dir is required")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendPostgres, BackendEmbedded, c.Storage.Backend)
	}
	if c.Search.Enabled && c.Search.Host == "" {
		return errors.New("search.host is required when search is enabled")
	}
	return nil
}

// Load builds the configuration from args and the environment. The YAML file is
// taken from -config or MEMORIZ_CONFIG; flags win over everything else.
func Load(args []string, getenv func(string) string) (Config, error) {
	fs := flag.NewFlagSet("memoriz", flag.ContinueOnError)
	var (
		path      = fs.String("config", getenv("MEMORIZ_CONFIG"), "path to YAML config")
		env       = fs.String("env", "", "environment: prod, dev, local")
		httpAddr  = fs.String("addr", "", "HTTP listen address")
		grpcAddr  = fs.String("grpc-addr", "", "gRPC health listen address")
		static    = fs.String("static", "", "static files folder")
		backend   = fs.String("backend", "", "storage backend: postgres or embedded")
		jwtKey    = fs.String("jwt-key", "", "HS256 verification key")
		logLevel  = fs.String("log-level", "", "log level override")
		reflectOn = fs.Bool("dev", false, "enable gRPC server reflection (dev only)")
	)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var cfg Config
	if *path != "" {
		if err := cfg.loadFile(*path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "env":
			cfg.Env = *env
		case "addr":
			cfg.HTTP.Addr = *httpAddr
		case "grpc-addr":
			cfg.GRPC.Addr = *grpcAddr
		case "static":
			cfg.HTTP.StaticDir = *static
		case "backend":
			cfg.Storage.Backend = *backend
		case "jwt-key":
			cfg.Auth.JWTKey = *jwtKey
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "dev":
			cfg.GRPC.Reflection = *reflectOn
		}
	})

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"MEMORIZ_ENV":             &c.Env,
		"MEMORIZ_HTTP_ADDR":       &c.HTTP.Addr,
		"MEMORIZ_STATIC_FOLDER":   &c.HTTP.StaticDir,
		"MEMORIZ_GRPC_ADDR":       &c.GRPC.Addr,
		"MEMORIZ_STORAGE_BACKEND": &c.Storage.Backend,
		"MEMORIZ_DB_NAME":         &c.Storage.Postgres.Database,
		"MEMORIZ_DB_HOST":         &c.Storage.Postgres.Host,
		"MEMORIZ_DB_USER":         &c.Storage.Postgres.User,
		"MEMORIZ_DB_PASSWORD":     &c.Storage.Postgres.Password,
		"MEMORIZ_DB_SCHEMA":       &c.Storage.Postgres.Schema,
		"MEMORIZ_EMBEDDED_DIR":    &c.Storage.Embedded.Dir,
		"MEMORIZ_SEARCH_INDEX":    &c.Search.Index,
		"MEMORIZ_SEARCH_HOST":     &c.Search.Host,
		"MEMORIZ_SEARCH_TOKEN":    &c.Search.Token,
		"MEMORIZ_SEARCH_PREFIX":   &c.Search.Prefix,
		"MEMORIZ_JWT_KEY":         &c.Auth.JWTKey,
		"MEMORIZ_LOG_LEVEL":       &c.Logging.Level,
	}
	for k, dst := range str {
		if v := getenv(k); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MEMORIZ_DB_PORT":      &c.Storage.Postgres.Port,
		"MEMORIZ_DB_MAX_CONNS": &c.Storage.Postgres.MaxConns,
		"MEMORIZ_SEARCH_PORT":  &c.Search.Port,
		"MEMORIZ_SEARCH_LIMIT": &c.Search.Limit,
	}
	for k, dst := range ints {
		v := getenv(k)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		*dst = n
	}

	if v := getenv("MEMORIZ_SEARCH_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MEMORIZ_SEARCH_ENABLED: %w", err)
		}
		c.Search.Enabled = b
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
