// Package config loads Studio settings from defaults, an optional YAML file, a .env file,
// STUDIO_* environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreRemote = "remote"
)

// EnvPrefix prefixes every environment variable, e.g. STUDIO_REDIS_ADDR.
const EnvPrefix = "STUDIO"

type Config struct {
	Env         string        `mapstructure:"env"`
	APIURL      string        `mapstructure:"api_url"`
	StudioURL   string        `mapstructure:"studio_url"` // another Studio, for the remote store
	Store       string        `mapstructure:"store"`
	PoliciesDir string        `mapstructure:"policies_dir"`
	BackupDir   string        `mapstructure:"backup_dir"`
	Redis       RedisConfig   `mapstructure:"redis"`
	HTTP        HTTPConfig    `mapstructure:"http"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	MCP         MCPConfig     `mapstructure:"mcp"`
	Log         LogConfig     `mapstructure:"log"`
	Stream      StreamConfig  `mapstructure:"stream"`
	Lock        LockConfig    `mapstructure:"lock"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

type MetricsConfig struct {
	Port int `mapstructure:"port"` // 0 disables the metrics listener
}

type MCPConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type StreamConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type LockConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

var defaults = map[string]any{
	"env":            "dev",
	"api_url":        "http://localhost:8000",
	"studio_url":     "http://localhost:8080",
	"store":          StoreFile,
	"policies_dir":   "policies",
	"backup_dir":     "backup",
	"redis.addr":     "localhost:6379",
	"redis.password": "",
	"redis.db":       0,
	"redis.prefix":   "studio:",
	"http.port":      8080,
	"metrics.port":   9090,
	"mcp.port":       8090,
	"log.level":      "info",
	"log.file":       "",
	"stream.timeout": 30 * time.Second,
	"lock.ttl":       30 * time.Second,
}

// flagNames maps config keys to the command line flags that override them.
var flagNames = map[string]string{
	"env":          "env",
	"api_url":      "api-url",
	"studio_url":   "studio-url",
	"store":        "store",
	"policies_dir": "policies-dir",
	"backup_dir":   "backup-dir",
	"redis.addr":   "redis-addr",
	"redis.prefix": "redis-prefix",
	"http.port":    "port",
	"metrics.port": "metrics-port",
	"mcp.port":     "mcp-port",
	"log.level":    "log-level",
	"log.file":     "log-file",
}

// Options locate the optional files.
type Options struct {
	// ConfigFile is a YAML file. Empty means no file.
	ConfigFile string
	// EnvFile is loaded into the process environment when it exists. Empty means ".env".
	EnvFile string
	// Flags override everything else when set on the command line.
	Flags *pflag.FlagSet
}

// Load resolves the configuration.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if opts.Flags != nil {
		for key, name := range flagNames {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreRemote:
	default:
		errs = append(errs, fmt.Errorf("store must be one of memory, file, redis, remote (got %q)", c.Store))
	}
	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("api_url must be an http or https URL (got %q)", c.APIURL))
	}
	if c.Store == StoreRemote {
		if u, err := url.Parse(c.StudioURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("studio_url must be an http or https URL for the remote store (got %q)", c.StudioURL))
		}
	}
	if c.Store == StoreFile && c.PoliciesDir == "" {
		errs = append(errs, errors.New("policies_dir is required for the file store"))
	}
	if c.Store == StoreRedis && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required for the redis store"))
	}
	for name, port := range map[string]int{"http.port": c.HTTP.Port, "mcp.port": c.MCP.Port} {
		if port <= 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s must be between 1 and 65535 (got %d)", name, port))
		}
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		errs = append(errs, fmt.Errorf("metrics.port must be between 0 and 65535 (got %d)", c.Metrics.Port))
	}
	if c.Stream.Timeout <= 0 {
		errs = append(errs, errors.New("stream.timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Production reports whether the Studio runs against a production backend.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}
