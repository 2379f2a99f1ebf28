package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Upload limits and blob storage
	Upload UploadConfig

	// Bearer token settings
	Auth AuthConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MigrationsPath  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// UploadConfig holds submission file settings
type UploadConfig struct {
	MaxTextSize  int64 // in bytes
	MaxAudioSize int64 // in bytes
	UploadDir    string
}

// AuthConfig holds identity token settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// fileConfig maps the optional TOML overlay named by CONFIG_FILE
type fileConfig struct {
	Port            string `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
	MigrationsPath  string `toml:"migrations_path"`

	DBHost     string `toml:"db_host"`
	DBPort     string `toml:"db_port"`
	DBUser     string `toml:"db_user"`
	DBPassword string `toml:"db_password"`
	DBName     string `toml:"db_name"`
	DBSSLMode  string `toml:"db_sslmode"`

	MaxTextSize  int64  `toml:"max_text_size"`
	MaxAudioSize int64  `toml:"max_audio_size"`
	UploadDir    string `toml:"upload_dir"`

	JWTSecret string `toml:"jwt_secret"`
	JWTIssuer string `toml:"jwt_issuer"`
	TokenTTL  string `toml:"token_ttl"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Load reads configuration from environment variables, then applies the
// TOML file named by CONFIG_FILE on top when it is set
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "nazm_contest"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Upload: UploadConfig{
			MaxTextSize:  getInt64Env("MAX_TEXT_UPLOAD_SIZE", 5*1024*1024),   // 5MB
			MaxAudioSize: getInt64Env("MAX_AUDIO_UPLOAD_SIZE", 10*1024*1024), // 10MB
			UploadDir:    getEnv("UPLOAD_DIR", "./data/uploads"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "nazm-contest-api"),
			TokenTTL:  getDurationEnv("JWT_TOKEN_TTL", 24*time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyFile overlays the keys defined in the TOML file at path
func (c *Config) ApplyFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config file: %w", err)
	}

	setString := func(key string, dst *string, val string) {
		if meta.IsDefined(key) {
			*dst = strings.TrimSpace(val)
		}
	}
	setDuration := func(key string, dst *time.Duration, val string) error {
		if !meta.IsDefined(key) {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("load config file: %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	setString("port", &c.Server.Port, raw.Port)
	setString("migrations_path", &c.Server.MigrationsPath, raw.MigrationsPath)
	if err := setDuration("read_timeout", &c.Server.ReadTimeout, raw.ReadTimeout); err != nil {
		return err
	}
	if err := setDuration("write_timeout", &c.Server.WriteTimeout, raw.WriteTimeout); err != nil {
		return err
	}
	if err := setDuration("shutdown_timeout", &c.Server.ShutdownTimeout, raw.ShutdownTimeout); err != nil {
		return err
	}

	setString("db_host", &c.Database.Host, raw.DBHost)
	setString("db_port", &c.Database.Port, raw.DBPort)
	setString("db_user", &c.Database.User, raw.DBUser)
	setString("db_password", &c.Database.Password, raw.DBPassword)
	setString("db_name", &c.Database.Name, raw.DBName)
	setString("db_sslmode", &c.Database.SSLMode, raw.DBSSLMode)

	if meta.IsDefined("max_text_size") {
		c.Upload.MaxTextSize = raw.MaxTextSize
	}
	if meta.IsDefined("max_audio_size") {
		c.Upload.MaxAudioSize = raw.MaxAudioSize
	}
	setString("upload_dir", &c.Upload.UploadDir, raw.UploadDir)

	setString("jwt_secret", &c.Auth.JWTSecret, raw.JWTSecret)
	setString("jwt_issuer", &c.Auth.Issuer, raw.JWTIssuer)
	if err := setDuration("token_ttl", &c.Auth.TokenTTL, raw.TokenTTL); err != nil {
		return err
	}

	setString("log_level", &c.Log.Level, raw.LogLevel)
	setString("log_format", &c.Log.Format, raw.LogFormat)

	return nil
}

// Validate checks the settings every command needs. Token settings are
// checked separately by ValidateAuth.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Upload.MaxTextSize <= 0 || c.Upload.MaxAudioSize <= 0 {
		return fmt.Errorf("upload size limits must be positive")
	}
	return nil
}

// ValidateAuth checks the settings needed to verify bearer tokens
func (c *Config) ValidateAuth() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TOKEN_TTL must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
