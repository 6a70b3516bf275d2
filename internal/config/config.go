package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Security SecurityConfig `mapstructure:"security"`
	Console  ConsoleConfig  `mapstructure:"console"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig points at the remote REST API
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects the durable key-value backend for the bearer token
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // file, sqlite, redis, memory
	Path   string `mapstructure:"path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SecurityConfig controls at-rest protection of the stored token
type SecurityConfig struct {
	TokenSecret string `mapstructure:"token_secret"`
}

// ConsoleConfig configures the local gateway served by `knowflow serve`
type ConsoleConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from file and environment variables. An empty
// path falls back to KNOWFLOW_CONFIG and then to the user config directory.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv("KNOWFLOW_CONFIG")
	}
	if path == "" {
		path = filepath.Join(DefaultDir(), "config.yaml")
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// SetConfigFile makes viper report a missing file as an fs error rather
		// than ConfigFileNotFoundError.
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultStoragePath(cfg.Storage.Driver)
	}

	return &cfg, nil
}

// DefaultDir returns the directory holding config and local state
func DefaultDir() string {
	if dir := os.Getenv("KNOWFLOW_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "knowflow")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".knowflow")
}

func defaultStoragePath(driver string) string {
	switch driver {
	case "sqlite":
		return filepath.Join(DefaultDir(), "state.db")
	default:
		return filepath.Join(DefaultDir(), "state.json")
	}
}

func setDefaults(v *viper.Viper) {
	// API
	v.SetDefault("api.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("api.timeout", "60s")

	// Storage
	v.SetDefault("storage.driver", "file")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "knowflow:")

	// Console
	v.SetDefault("console.host", "127.0.0.1")
	v.SetDefault("console.port", 5173)
	v.SetDefault("console.read_timeout", "30s")
	v.SetDefault("console.write_timeout", "120s")
	v.SetDefault("console.shutdown_timeout", "10s")
	v.SetDefault("console.allowed_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

func bindEnvVars(v *viper.Viper) {
	// API
	v.BindEnv("api.base_url", "KNOWFLOW_API_URL")
	v.BindEnv("api.timeout", "KNOWFLOW_API_TIMEOUT")

	// Storage
	v.BindEnv("storage.driver", "KNOWFLOW_STORAGE")
	v.BindEnv("storage.path", "KNOWFLOW_STORAGE_PATH")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Security
	v.BindEnv("security.token_secret", "KNOWFLOW_TOKEN_SECRET")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.file", "KNOWFLOW_LOG_FILE")
}
