package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	StoreDriver       string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir     string        `mapstructure:"MIGRATIONS_DIR"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ClinicName        string        `mapstructure:"CLINIC_NAME"`
	ExportAttribution string        `mapstructure:"EXPORT_ATTRIBUTION"`
	ExportScale       float64       `mapstructure:"EXPORT_SCALE"`
	ExportKeep        int           `mapstructure:"EXPORT_KEEP"`
	LogoPath          string        `mapstructure:"LOGO_PATH"`
	LogoURL           string        `mapstructure:"LOGO_URL"`
	ExportBucket      string        `mapstructure:"EXPORT_BUCKET"`
	AWSRegion         string        `mapstructure:"AWS_REGION"`
	S3Endpoint        string        `mapstructure:"S3_ENDPOINT"`
}

var keys = []string{
	"PORT", "ENV", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"MIGRATIONS_DIR", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"BODY_LIMIT", "REQUEST_TIMEOUT", "CLINIC_NAME", "EXPORT_ATTRIBUTION",
	"EXPORT_SCALE", "LOGO_PATH", "LOGO_URL", "EXPORT_BUCKET", "AWS_REGION",
	"S3_ENDPOINT", "EXPORT_KEEP",
}

// Load reads .env when present, then the environment. It does not validate;
// commands call Validate once they know which settings they need.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("CLINIC_NAME", "Tio Paulo")
	v.SetDefault("EXPORT_ATTRIBUTION", "Tio Paulo Odontopediatria")
	v.SetDefault("EXPORT_SCALE", 2.0)
	v.SetDefault("EXPORT_KEEP", 5)
	v.SetDefault("AWS_REGION", "us-east-1")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesPostgres reports whether records live in Postgres rather than memory.
func (c *Config) UsesPostgres() bool {
	return c.StoreDriver == DriverPostgres
}

// Validate checks the settings the server needs before it starts.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", DriverPostgres)
		}
	case DriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_DRIVER %q loses every record on restart and is not allowed in production", DriverMemory)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.StoreDriver)
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.ExportScale < 1 || c.ExportScale > 3 {
		return fmt.Errorf("EXPORT_SCALE must be within [1, 3], got %g", c.ExportScale)
	}
	if c.ExportKeep < 0 {
		return fmt.Errorf("EXPORT_KEEP must not be negative, got %d", c.ExportKeep)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if strings.TrimSpace(c.ClinicName) == "" {
		return fmt.Errorf("CLINIC_NAME must not be empty")
	}
	if c.S3Endpoint != "" && c.ExportBucket == "" {
		return fmt.Errorf("S3_ENDPOINT is set but EXPORT_BUCKET is empty")
	}
	return nil
}
