package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string   `mapstructure:"PORT"`
	Env                   string   `mapstructure:"ENV"`
	DatabaseURL           string   `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret             string   `mapstructure:"JWT_SECRET"`
	JWTTTLHours           int      `mapstructure:"JWT_TTL_HOURS"`
	CORSOrigins           []string `mapstructure:"CORS_ORIGINS"`
	ClassifierURL         string   `mapstructure:"CLASSIFIER_URL"`
	ClassifierTimeoutSecs int      `mapstructure:"CLASSIFIER_TIMEOUT_SECS"`
	AlertUrgencyThreshold float64  `mapstructure:"ALERT_URGENCY_THRESHOLD"`
	DefaultHospitalCode   string   `mapstructure:"DEFAULT_HOSPITAL_CODE"`
	RateLimitRPS          float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_TTL_HOURS", 8)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("CLASSIFIER_URL", "http://localhost:8000")
	v.SetDefault("CLASSIFIER_TIMEOUT_SECS", 10)
	v.SetDefault("ALERT_URGENCY_THRESHOLD", 70)
	v.SetDefault("DEFAULT_HOSPITAL_CODE", "HOSP-001")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_TTL_HOURS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("CLASSIFIER_URL")
	v.BindEnv("CLASSIFIER_TIMEOUT_SECS")
	v.BindEnv("ALERT_URGENCY_THRESHOLD")
	v.BindEnv("DEFAULT_HOSPITAL_CODE")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ClassifierTimeout returns the classifier round-trip budget as a duration.
func (c *Config) ClassifierTimeout() time.Duration {
	secs := c.ClassifierTimeoutSecs
	if secs <= 0 {
		secs = 10
	}
	return time.Duration(secs) * time.Second
}

// JWTTTL returns the issued token lifetime as a duration.
func (c *Config) JWTTTL() time.Duration {
	hours := c.JWTTTLHours
	if hours <= 0 {
		hours = 8
	}
	return time.Duration(hours) * time.Hour
}

// Validate checks that the configuration is safe to run. Outside development
// a real JWT_SECRET must be configured; there is no fallback secret.
func (c *Config) Validate() error {
	if !c.IsDev() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes outside development (current ENV=%q)", c.Env)
	}
	if c.AlertUrgencyThreshold < 0 || c.AlertUrgencyThreshold > 100 {
		return fmt.Errorf("ALERT_URGENCY_THRESHOLD must be within 0..100, got %v", c.AlertUrgencyThreshold)
	}
	if c.DefaultHospitalCode == "" {
		return fmt.Errorf("DEFAULT_HOSPITAL_CODE is required for triage alert routing")
	}
	return nil
}
