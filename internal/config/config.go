// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	JWTTTLMinutes int    `mapstructure:"JWT_TTL_MINUTES"`
	Port          string `mapstructure:"PORT"`

	DBDriver                      string `mapstructure:"DB_DRIVER"`
	DBSQLitePath                  string `mapstructure:"DB_SQLITE_PATH"`
	DBHost                        string `mapstructure:"DB_HOST"`
	DBPort                        string `mapstructure:"DB_PORT"`
	DBUser                        string `mapstructure:"DB_USER"`
	DBPassword                    string `mapstructure:"DB_PASSWORD"`
	DBName                        string `mapstructure:"DB_NAME"`
	DBSSLMode                     string `mapstructure:"DB_SSLMODE"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`
	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`
	Env            string `mapstructure:"APP_ENV"`

	StorageProvider     string `mapstructure:"STORAGE_PROVIDER"`
	UploadDir           string `mapstructure:"UPLOAD_DIR"`
	ResourceMaxUploadMB int    `mapstructure:"RESOURCE_MAX_UPLOAD_MB"`
	S3Bucket            string `mapstructure:"S3_BUCKET"`
	S3Region            string `mapstructure:"S3_REGION"`
	S3Endpoint          string `mapstructure:"S3_ENDPOINT"`
	S3Prefix            string `mapstructure:"S3_PREFIX"`
	S3AccessKeyID       string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey   string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle      bool   `mapstructure:"S3_USE_PATH_STYLE"`

	SweepSchedule           string `mapstructure:"SWEEP_SCHEDULE"`
	SweepStageMaxAgeMinutes int    `mapstructure:"SWEEP_STAGE_MAX_AGE_MINUTES"`
	SeedCatalog             bool   `mapstructure:"SEED_CATALOG"`

	DevBootstrapRoot bool   `mapstructure:"DEV_BOOTSTRAP_ROOT"`
	DevRootUsername  string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootEmail     string `mapstructure:"DEV_ROOT_EMAIL"`
	DevRootPassword  string `mapstructure:"DEV_ROOT_PASSWORD"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("PORT", "8375")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_TTL_MINUTES", 60)
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_SQLITE_PATH", "campus.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "campus")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:4200,http://localhost:5173,http://127.0.0.1:4200")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("STORAGE_PROVIDER", "local")
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("RESOURCE_MAX_UPLOAD_MB", 20)
	viper.SetDefault("S3_BUCKET", "")
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("S3_ENDPOINT", "")
	viper.SetDefault("S3_PREFIX", "")
	viper.SetDefault("S3_ACCESS_KEY_ID", "")
	viper.SetDefault("S3_SECRET_ACCESS_KEY", "")
	viper.SetDefault("S3_USE_PATH_STYLE", false)
	viper.SetDefault("SWEEP_SCHEDULE", "@every 30m")
	viper.SetDefault("SWEEP_STAGE_MAX_AGE_MINUTES", 60)
	viper.SetDefault("SEED_CATALOG", false)
	viper.SetDefault("DEV_BOOTSTRAP_ROOT", false)
	viper.SetDefault("DEV_ROOT_USERNAME", "campus_root")
	viper.SetDefault("DEV_ROOT_EMAIL", "root@campus.local")
	viper.SetDefault("DEV_ROOT_PASSWORD", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) normalize() {
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.StorageProvider = strings.ToLower(strings.TrimSpace(c.StorageProvider))
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// RateLimited reports whether request throttling applies. Local and test
// environments are never throttled.
func (c *Config) RateLimited() bool {
	switch c.Env {
	case "", "test", "development":
		return false
	}
	return true
}

// JWTTTL returns the lifetime of issued tokens.
func (c *Config) JWTTTL() time.Duration {
	if c.JWTTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// ResourceMaxUploadBytes returns the upload size cap for resource payloads.
func (c *Config) ResourceMaxUploadBytes() int64 {
	mb := c.ResourceMaxUploadMB
	if mb <= 0 {
		mb = 20
	}
	return int64(mb) * 1024 * 1024
}

// SweepStageMaxAge returns how long a staged payload may live before the sweeper removes it.
func (c *Config) SweepStageMaxAge() time.Duration {
	if c.SweepStageMaxAgeMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.SweepStageMaxAgeMinutes) * time.Minute
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	switch c.DBDriver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.StorageProvider {
	case "", "local":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when STORAGE_PROVIDER=s3")
		}
		if c.S3Region == "" {
			return errors.New("S3_REGION is required when STORAGE_PROVIDER=s3")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_PROVIDER %q", c.StorageProvider)
	}

	if c.ResourceMaxUploadMB < 0 {
		return errors.New("RESOURCE_MAX_UPLOAD_MB must not be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
