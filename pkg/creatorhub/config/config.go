// Package config loads application configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development signing secret. It is rejected in production.
const DefaultJWTSecret = "creatorhub-dev-secret-change-in-production"

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Tenant   TenantConfig
	Stripe   StripeConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Log      LogConfig
	Admin    AdminConfig
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	WebDistPath  string
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// DatabaseConfig selects the gorm driver and its DSN
type DatabaseConfig struct {
	Driver string // sqlite or postgres
	DSN    string
}

// JWTConfig holds token signing settings
type JWTConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// TenantConfig controls how request hosts map to organizations
type TenantConfig struct {
	// BaseDomain is the apex under which organizations get a <slug>.<base> subdomain.
	BaseDomain string
}

// StripeConfig holds billing processor settings
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds event stream settings. No brokers means events are only logged.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string
	Development bool
}

// AdminConfig holds the bootstrap platform admin credentials used by the seed command
type AdminConfig struct {
	Email    string
	Password string
}

// Load reads .env (if present), then builds and validates Config from the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine, env vars still apply

	return load(v)
}

// LoadWithPath loads configuration from a specific env file
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := bindConfig(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "creatorhub")
	v.SetDefault("APP_ENVIRONMENT", "development")

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_WEB_DIST_PATH", "./web/dist")

	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "creatorhub.db")

	v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("JWT_ISSUER", "creatorhub")

	v.SetDefault("TENANT_BASE_DOMAIN", "localhost")

	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "creatorhub.memberships")
	v.SetDefault("KAFKA_CLIENT_ID", "creatorhub")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEVELOPMENT", false)

	v.SetDefault("ADMIN_EMAIL", "admin@creatorhub.local")
	v.SetDefault("ADMIN_PASSWORD", "changeme")
}

func bindConfig(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")

	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.WebDistPath = v.GetString("SERVER_WEB_DIST_PATH")

	cfg.Database.Driver = strings.ToLower(v.GetString("DATABASE_DRIVER"))
	cfg.Database.DSN = v.GetString("DATABASE_DSN")

	cfg.JWT.Secret = v.GetString("JWT_SECRET")
	cfg.JWT.TTL = v.GetDuration("JWT_TTL")
	cfg.JWT.Issuer = v.GetString("JWT_ISSUER")

	cfg.Tenant.BaseDomain = strings.ToLower(strings.TrimSpace(v.GetString("TENANT_BASE_DOMAIN")))

	cfg.Stripe.SecretKey = v.GetString("STRIPE_SECRET_KEY")
	cfg.Stripe.WebhookSecret = v.GetString("STRIPE_WEBHOOK_SECRET")

	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.Topic = v.GetString("KAFKA_TOPIC")
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Development = v.GetBool("LOG_DEVELOPMENT")

	cfg.Admin.Email = v.GetString("ADMIN_EMAIL")
	cfg.Admin.Password = v.GetString("ADMIN_PASSWORD")

	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return errors.New("config: APP_NAME must be set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid SERVER_PORT %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: DATABASE_DRIVER must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: DATABASE_DSN must be set")
	}
	if c.JWT.Secret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("config: JWT_TTL must be positive")
	}
	if c.IsProduction() && c.JWT.Secret == DefaultJWTSecret {
		return errors.New("config: JWT_SECRET must be changed in production")
	}
	if c.IsProduction() && c.Stripe.WebhookSecret == "" {
		return errors.New("config: STRIPE_WEBHOOK_SECRET must be set in production")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
