package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RejectsZeroAttempts(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("AI_MAX_ATTEMPTS", "0")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "AI_MAX_ATTEMPTS")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	for _, key := range []string{"PORT", "DB_DRIVER", "AI_SERVICE_URL", "AI_CONNECT_TIMEOUT",
		"AI_READ_TIMEOUT", "AI_MAX_ATTEMPTS", "AI_RETRY_BASE_DELAY", "JWT_EXPIRATION"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "http://localhost:8000/analyze", cfg.AI.URL)
	assert.Equal(t, 30*time.Second, cfg.AI.ConnectTimeout)
	assert.Equal(t, 600*time.Second, cfg.AI.ReadTimeout)
	assert.Equal(t, 3, cfg.AI.MaxAttempts)
	assert.Equal(t, time.Second, cfg.AI.RetryBaseDelay)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("AI_SERVICE_URL", "https://ai.example.com")
	t.Setenv("AI_MAX_ATTEMPTS", "5")
	t.Setenv("AI_RETRY_BASE_DELAY", "250ms")
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("FRONTEND_URL", "https://app.example.com///")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://ai.example.com", cfg.AI.URL)
	assert.Equal(t, 5, cfg.AI.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.AI.RetryBaseDelay)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, []string{
		"http://localhost:5173",
		"http://localhost:3000",
		"https://app.example.com",
		"https://a.example.com",
		"https://b.example.com",
	}, cfg.CORS.AllowedOrigins())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:      "production",
			Database: DatabaseConfig{Driver: "postgres"},
			JWT:      JWTConfig{Secret: "x", Expiration: time.Hour},
			AI: AIConfig{
				URL:            "http://localhost:8000",
				ConnectTimeout: time.Second,
				ReadTimeout:    time.Minute,
				MaxAttempts:    3,
				RetryBaseDelay: time.Second,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero attempts", func(c *Config) { c.AI.MaxAttempts = 0 }, true},
		{"zero read timeout", func(c *Config) { c.AI.ReadTimeout = 0 }, true},
		{"negative base delay", func(c *Config) { c.AI.RetryBaseDelay = -time.Second }, true},
		{"missing secret in production", func(c *Config) { c.JWT.Secret = "" }, true},
		{"missing secret in development", func(c *Config) { c.JWT.Secret = ""; c.Env = "development" }, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", User: "u", Password: "p", Name: "esg", Port: "5432", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=esg port=5432 sslmode=disable", d.DSN())

	d.Driver = "mysql"
	assert.Equal(t, "u:p@tcp(db:5432)/esg?parseTime=true&charset=utf8mb4&loc=UTC", d.DSN())

	d.URL = "postgres://override"
	assert.Equal(t, "postgres://override", d.DSN())
}
