package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string   `mapstructure:"PORT"`
	Env          string   `mapstructure:"ENV"`
	DatabaseURL  string   `mapstructure:"DATABASE_URL"`
	DBMaxConns   int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns   int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer   string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL  string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience string   `mapstructure:"AUTH_AUDIENCE"`
	// AuthSigningKey enables HMAC token validation. Development and test use
	// only; production deployments configure an issuer with a JWKS endpoint.
	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`

	// Expiry lookahead windows in days, per custody stage.
	ManufacturerExpiryDays int `mapstructure:"MANUFACTURER_EXPIRY_DAYS"`
	AuthorityExpiryDays    int `mapstructure:"AUTHORITY_EXPIRY_DAYS"`

	// MovementEnforceChain requires that a lot has a confirmed inbound
	// handoff before a downstream handoff of that lot can be created.
	MovementEnforceChain bool `mapstructure:"MOVEMENT_ENFORCE_CHAIN"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("MANUFACTURER_EXPIRY_DAYS", 30)
	v.SetDefault("AUTHORITY_EXPIRY_DAYS", 60)
	v.SetDefault("MOVEMENT_ENFORCE_CHAIN", true)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("MANUFACTURER_EXPIRY_DAYS")
	v.BindEnv("AUTHORITY_EXPIRY_DAYS")
	v.BindEnv("MOVEMENT_ENFORCE_CHAIN")

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

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevMiddleware is active — unauthenticated requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure AUTH_ISSUER for production.")
		log.Println("WARNING: ============================================================")
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

// Validate checks that the configuration is safe to run. Outside development
// real token validation must be configured: an issuer with JWKS discovery, an
// explicit JWKS URL, or a shared signing key.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.AuthIssuer == "" && c.AuthJWKSURL == "" && c.AuthSigningKey == "" {
			return fmt.Errorf(
				"one of AUTH_ISSUER, AUTH_JWKS_URL or AUTH_SIGNING_KEY must be set when ENV=%q. "+
					"Refusing to start without authentication configuration", c.Env)
		}
	}

	if c.ManufacturerExpiryDays <= 0 {
		return fmt.Errorf("MANUFACTURER_EXPIRY_DAYS must be positive, got %d", c.ManufacturerExpiryDays)
	}
	if c.AuthorityExpiryDays <= 0 {
		return fmt.Errorf("AUTHORITY_EXPIRY_DAYS must be positive, got %d", c.AuthorityExpiryDays)
	}

	return nil
}
