package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	Port           string        `mapstructure:"PORT"`
	AllowedOrigins []string      `mapstructure:"ALLOWED_ORIGINS"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	JWTIssuer      string        `mapstructure:"JWT_ISSUER"`
	JWTTTL         time.Duration `mapstructure:"JWT_TTL"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogFormat      string        `mapstructure:"LOG_FORMAT"`

	// Profile pictures are disabled when S3Bucket is empty.
	S3Bucket   string        `mapstructure:"S3_BUCKET"`
	AWSRegion  string        `mapstructure:"AWS_REGION"`
	PresignTTL time.Duration `mapstructure:"PRESIGN_TTL"`
}

// envLocations are tried in order; the first .env found wins.
var envLocations = []string{".env", "../.env", "../../.env"}

var defaults = map[string]any{
	"DATABASE_URL":    "",
	"PORT":            "8080",
	"ALLOWED_ORIGINS": "*",
	"JWT_SECRET":      "",
	"JWT_ISSUER":      "socialnet",
	"JWT_TTL":         "168h",
	"LOG_LEVEL":       "info",
	"LOG_FORMAT":      "console",
	"S3_BUCKET":       "",
	"AWS_REGION":      "us-east-1",
	"PRESIGN_TTL":     "5m",
}

// Load reads an optional .env file into the process environment and decodes the
// environment into a Config.
func Load() (*Config, error) {
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			break
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	return nil
}

// ProfilePicturesEnabled reports whether an object store is configured.
func (c *Config) ProfilePicturesEnabled() bool {
	return c.S3Bucket != ""
}
