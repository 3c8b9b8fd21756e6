package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
)

// Config describes the identity pool whose tokens are accepted.
type Config struct {
	Region     string
	UserPoolID string
	ClientID   string

	// JWKSURL overrides the well-known key-set location derived from the pool.
	JWKSURL string
	// CacheTTL is how long a fetched key set is reused. Zero fetches on every validation.
	CacheTTL time.Duration
	Leeway   time.Duration
}

// LoadConfig loads token validation settings from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Region:     strings.TrimSpace(env.GetEnv("AWS_REGION", "us-east-2")),
		UserPoolID: strings.TrimSpace(env.GetEnv("COGNITO_USER_POOL_ID", "")),
		ClientID:   strings.TrimSpace(env.GetEnv("COGNITO_APP_CLIENT_ID", "")),
		JWKSURL:    strings.TrimSpace(env.GetEnv("COGNITO_JWKS_URL", "")),
		CacheTTL:   env.GetDuration("JWKS_CACHE_TTL", time.Hour),
		Leeway:     env.GetDuration("JWT_LEEWAY", 30*time.Second),
	}

	if cfg.UserPoolID == "" {
		return nil, errors.New("COGNITO_USER_POOL_ID is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("COGNITO_APP_CLIENT_ID is required")
	}
	return cfg, nil
}

// Issuer is the iss claim every accepted token must carry.
func (c *Config) Issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

// KeySetURL is where the pool publishes its signing keys.
func (c *Config) KeySetURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return c.Issuer() + "/.well-known/jwks.json"
}
