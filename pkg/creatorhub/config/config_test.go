package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvVars = []string{
	"APP_NAME", "APP_ENVIRONMENT", "SERVER_PORT", "DATABASE_DRIVER", "DATABASE_DSN",
	"JWT_SECRET", "JWT_TTL", "TENANT_BASE_DOMAIN", "KAFKA_BROKERS", "STRIPE_WEBHOOK_SECRET",
}

func clearEnv(t *testing.T) {
	for _, v := range configEnvVars {
		if old, ok := os.LookupEnv(v); ok {
			os.Unsetenv(v)
			t.Cleanup(func() { os.Setenv(v, old) })
		}
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "creatorhub" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "creatorhub")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.JWT.TTL != 24*time.Hour {
		t.Errorf("JWT.TTL = %v, want %v", cfg.JWT.TTL, 24*time.Hour)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("Kafka.Brokers = %v, want none", cfg.Kafka.Brokers)
	}
	if cfg.Server.Addr() != ":8080" {
		t.Errorf("Server.Addr() = %q, want %q", cfg.Server.Addr(), ":8080")
	}
}

func TestLoad_WithEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TENANT_BASE_DOMAIN", "Creators.Example.com")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Tenant.BaseDomain != "creators.example.com" {
		t.Errorf("Tenant.BaseDomain = %q, want %q", cfg.Tenant.BaseDomain, "creators.example.com")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v, want [k1:9092 k2:9092]", cfg.Kafka.Brokers)
	}
}

func TestLoadWithPath(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	content := "APP_NAME=from-file\nDATABASE_DRIVER=postgres\nDATABASE_DSN=postgres://localhost/creatorhub\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := LoadWithPath(path)
	if err != nil {
		t.Fatalf("LoadWithPath() failed: %v", err)
	}
	if cfg.App.Name != "from-file" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "from-file")
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "postgres")
	}
}

func TestLoadWithPath_Missing(t *testing.T) {
	if _, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:      AppConfig{Name: "creatorhub", Environment: "development"},
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
			JWT:      JWTConfig{Secret: DefaultJWTSecret, TTL: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid development", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, true},
		{"zero ttl", func(c *Config) { c.JWT.TTL = 0 }, true},
		{"default secret in production", func(c *Config) {
			c.App.Environment = "production"
			c.Stripe.WebhookSecret = "whsec_x"
		}, true},
		{"production without webhook secret", func(c *Config) {
			c.App.Environment = "production"
			c.JWT.Secret = "real-secret"
		}, true},
		{"production configured", func(c *Config) {
			c.App.Environment = "production"
			c.JWT.Secret = "real-secret"
			c.Stripe.WebhookSecret = "whsec_x"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
