package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	catalog "apitest-backend"
)

type Database struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type Config struct {
	Port                  string   `yaml:"port"`
	Database              Database `yaml:"database"`
	RedisURL              string   `yaml:"redis_url"`
	ResultTTLSeconds      int      `yaml:"result_ttl_seconds"`
	NATSURL               string   `yaml:"nats_url"`
	BaseURL               string   `yaml:"base_url"`
	CORSAllowedOrigins    []string `yaml:"cors_allowed_origins"`
	RequestTimeoutSeconds int      `yaml:"request_timeout_seconds"`
	HandlerTimeoutSeconds int      `yaml:"handler_timeout_seconds"`
	ContractStrict        bool     `yaml:"contract_strict"`
	MigrationsDir         string   `yaml:"migrations_dir"`
	LogLevel              string   `yaml:"log_level"`
}

func Defaults() Config {
	return Config{
		Port:                  "8080",
		Database:              Database{Driver: "postgres"},
		BaseURL:               "http://127.0.0.1:8000",
		CORSAllowedOrigins:    []string{"*"},
		RequestTimeoutSeconds: 30,
		HandlerTimeoutSeconds: 60,
		MigrationsDir:         "migrations",
		LogLevel:              "info",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE when set, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fileCfg, err := LoadFile(path, cfg)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML file over base. Keys missing from the file keep the
// value they had in base.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getenv("PORT", c.Port)
	c.Database.Driver = getenv("DB_DRIVER", c.Database.Driver)
	c.Database.URL = getenv("DATABASE_URL", c.Database.URL)
	c.Database.Host = getenv("DB_HOST", c.Database.Host)
	c.Database.Port = getenvInt("DB_PORT", c.Database.Port)
	c.Database.User = getenv("DB_USER", c.Database.User)
	c.Database.Password = getenv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getenv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getenv("DB_SSLMODE", c.Database.SSLMode)
	c.RedisURL = getenv("REDIS_URL", c.RedisURL)
	c.ResultTTLSeconds = getenvInt("RESULT_TTL_SECONDS", c.ResultTTLSeconds)
	c.NATSURL = getenv("NATS_URL", c.NATSURL)
	c.BaseURL = getenv("BASE_URL", c.BaseURL)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = splitList(origins)
	}
	c.RequestTimeoutSeconds = getenvInt("REQUEST_TIMEOUT_SECONDS", c.RequestTimeoutSeconds)
	c.HandlerTimeoutSeconds = getenvInt("HANDLER_TIMEOUT_SECONDS", c.HandlerTimeoutSeconds)
	c.ContractStrict = getenvBool("CONTRACT_STRICT", c.ContractStrict)
	c.MigrationsDir = getenv("MIGRATIONS_DIR", c.MigrationsDir)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql", "mysql", "mssql", "sqlserver", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.HandlerTimeoutSeconds <= 0 {
		return fmt.Errorf("HANDLER_TIMEOUT_SECONDS must be positive")
	}
	if c.ResultTTLSeconds < 0 {
		return fmt.Errorf("RESULT_TTL_SECONDS must not be negative")
	}
	return nil
}

func (c Config) Connection() catalog.ConnectionConfig {
	return catalog.ConnectionConfig{
		Type:     c.Database.Driver,
		DSN:      c.Database.URL,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Database: c.Database.Name,
		SSLMode:  c.Database.SSLMode,
	}
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) HandlerTimeout() time.Duration {
	return time.Duration(c.HandlerTimeoutSeconds) * time.Second
}

func (c Config) ResultTTL() time.Duration {
	return time.Duration(c.ResultTTLSeconds) * time.Second
}

func (c Config) Logger() *slog.Logger {
	return NewLogger(os.Stdout, c.LogLevel)
}

// NewLogger returns a JSON logger writing to w. Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func getenv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getenvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(val); err == nil {
		return parsed
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if parsed, err := strconv.ParseBool(val); err == nil {
		return parsed
	}
	return fallback
}

func splitList(val string) []string {
	out := []string{}
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
