package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Shell    ShellConfig    `mapstructure:"shell"`
	Workers  WorkerConfig   `mapstructure:"workers"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	Timezone    string `mapstructure:"timezone"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds the local SQLite configuration
type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

// ShellConfig holds the app-shell cache manager configuration. Origin is
// where the shell assets are published; relative manifest entries resolve
// against it and only responses from it are written through to the cache.
type ShellConfig struct {
	Version        string        `mapstructure:"version"`
	Origin         string        `mapstructure:"origin"`
	Manifest       []string      `mapstructure:"manifest"`
	OfflineURL     string        `mapstructure:"offline_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	ReminderLead    time.Duration `mapstructure:"reminder_lead"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	// Configure viper
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	setDefaults()

	// Bind environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "GlassFocus")
	viper.SetDefault("app.version", "2.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.timezone", "Local")

	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	viper.SetDefault("database.path", defaultDatabasePath())
	viper.SetDefault("database.busy_timeout", "5s")

	// Shell cache defaults
	viper.SetDefault("shell.version", "2.0.0")
	viper.SetDefault("shell.origin", "https://glassfocus.app")
	viper.SetDefault("shell.manifest", []string{
		"/",
		"/index.html",
		"/styles.css",
		"/app.js",
		"/manifest.json",
		"https://fonts.googleapis.com/css2?family=DM+Sans:opsz,wght@9..40,100..1000&display=swap",
	})
	viper.SetDefault("shell.offline_url", "/index.html")
	viper.SetDefault("shell.request_timeout", "15s")

	// Worker defaults
	viper.SetDefault("workers.refresh_interval", "60s")
	viper.SetDefault("workers.reminder_lead", "4h")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")
	viper.SetDefault("logger.output", "stdout")

	// Security defaults
	viper.SetDefault("security.cors_allowed_origins", "*")
	viper.SetDefault("security.rate_limit_requests", 100)
	viper.SetDefault("security.rate_limit_window", "1m")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
}

func bindEnvVars() {
	// App
	viper.BindEnv("app.name", "APP_NAME")
	viper.BindEnv("app.version", "APP_VERSION")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("app.debug", "APP_DEBUG")
	viper.BindEnv("app.timezone", "APP_TIMEZONE")

	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")

	// Database
	viper.BindEnv("database.path", "DB_PATH")
	viper.BindEnv("database.busy_timeout", "DB_BUSY_TIMEOUT")

	// Shell cache
	viper.BindEnv("shell.version", "SHELL_VERSION")
	viper.BindEnv("shell.origin", "SHELL_ORIGIN")
	viper.BindEnv("shell.offline_url", "SHELL_OFFLINE_URL")
	viper.BindEnv("shell.request_timeout", "SHELL_REQUEST_TIMEOUT")

	// Workers
	viper.BindEnv("workers.refresh_interval", "WORKERS_REFRESH_INTERVAL")
	viper.BindEnv("workers.reminder_lead", "WORKERS_REMINDER_LEAD")

	// Logger
	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.format", "LOG_FORMAT")
	viper.BindEnv("logger.output", "LOG_OUTPUT")

	// Security
	viper.BindEnv("security.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	viper.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("security.rate_limit_window", "RATE_LIMIT_WINDOW")

	// Metrics
	viper.BindEnv("metrics.enabled", "ENABLE_METRICS")
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if cfg.Shell.Version == "" {
		return fmt.Errorf("shell cache version is required")
	}

	if cfg.Shell.Origin == "" {
		return fmt.Errorf("shell origin is required")
	}

	if cfg.Shell.OfflineURL == "" {
		return fmt.Errorf("shell offline URL is required")
	}

	if _, err := cfg.App.Location(); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	return nil
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "glassfocus.db"
	}
	return filepath.Join(dir, "glassfocus", "glassfocus.db")
}

// CacheName returns the version-bearing cache identifier; bumping the
// version invalidates the whole shell cache at the next activation.
func (cfg *ShellConfig) CacheName() string {
	return fmt.Sprintf("glassfocus-v%s", cfg.Version)
}

// Location resolves the configured day-boundary timezone
func (cfg *AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(cfg.Timezone)
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}
