// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Port    string
	Env     string
	GinMode string

	Database DatabaseConfig
	JWT      JWTConfig
	AI       AIConfig
	CORS     CORSConfig
	Login    LoginConfig
}

// DatabaseConfig selects the gorm dialect and connection string.
type DatabaseConfig struct {
	Driver   string
	URL      string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

// JWTConfig controls token signing.
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// AIConfig describes the remote analysis service.
type AIConfig struct {
	URL            string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	FrontendURL string
	Origins     []string
}

// LoginConfig throttles credential endpoints per client IP.
type LoginConfig struct {
	RatePerMinute int
	Burst         int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("GIN_MODE", "debug")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "pulseesg")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("AI_SERVICE_URL", "http://localhost:8000/analyze")
	v.SetDefault("AI_CONNECT_TIMEOUT", "30s")
	v.SetDefault("AI_READ_TIMEOUT", "600s")
	v.SetDefault("AI_MAX_ATTEMPTS", 3)
	v.SetDefault("AI_RETRY_BASE_DELAY", "1s")

	v.SetDefault("LOGIN_RATE_LIMIT", 5)
	v.SetDefault("LOGIN_RATE_BURST", 10)
}

// Load reads configuration from the process environment. Call godotenv.Load
// beforehand if a .env file should be honoured.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:    v.GetString("PORT"),
		Env:     strings.ToLower(v.GetString("ENV")),
		GinMode: v.GetString("GIN_MODE"),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			Port:     v.GetString("DB_PORT"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiration: v.GetDuration("JWT_EXPIRATION"),
		},
		AI: AIConfig{
			URL:            v.GetString("AI_SERVICE_URL"),
			ConnectTimeout: v.GetDuration("AI_CONNECT_TIMEOUT"),
			ReadTimeout:    v.GetDuration("AI_READ_TIMEOUT"),
			MaxAttempts:    v.GetInt("AI_MAX_ATTEMPTS"),
			RetryBaseDelay: v.GetDuration("AI_RETRY_BASE_DELAY"),
		},
		CORS: CORSConfig{
			FrontendURL: strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
			Origins:     splitList(v.GetString("CORS_ORIGINS")),
		},
		Login: LoginConfig{
			RatePerMinute: v.GetInt("LOGIN_RATE_LIMIT"),
			Burst:         v.GetInt("LOGIN_RATE_BURST"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AI.URL) == "" {
		return eris.New("config: AI_SERVICE_URL must not be empty")
	}
	if c.AI.MaxAttempts <= 0 {
		return eris.Errorf("config: AI_MAX_ATTEMPTS must be positive, got %d", c.AI.MaxAttempts)
	}
	if c.AI.ConnectTimeout <= 0 || c.AI.ReadTimeout <= 0 {
		return eris.New("config: AI timeouts must be positive")
	}
	if c.AI.RetryBaseDelay < 0 {
		return eris.New("config: AI_RETRY_BASE_DELAY must not be negative")
	}
	if c.JWT.Expiration <= 0 {
		return eris.New("config: JWT_EXPIRATION must be positive")
	}
	if c.JWT.Secret == "" && !c.IsDevelopment() {
		return eris.New("config: JWT_SECRET is required outside development")
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return eris.Errorf("config: unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

// IsDevelopment reports whether relaxed local defaults apply.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local" || c.Env == "test"
}

// DSN builds the connection string for the configured driver. DATABASE_URL
// wins when set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case "sqlite":
		return d.Name + ".db"
	default:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
	}
}

// AllowedOrigins returns the CORS allow-list: local dev servers plus any
// configured frontend origins.
func (c CORSConfig) AllowedOrigins() []string {
	origins := []string{"http://localhost:5173", "http://localhost:3000"}
	if c.FrontendURL != "" {
		origins = append(origins, c.FrontendURL)
	}
	for _, o := range c.Origins {
		origins = append(origins, strings.TrimRight(o, "/"))
	}
	return origins
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
