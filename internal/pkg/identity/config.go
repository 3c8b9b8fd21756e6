package identity

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
)

type Config struct {
	UserPoolID string
	ClientID   string
	// Domain is the hosted UI domain, e.g. "summoner.auth.us-east-2.amazoncognito.com".
	Domain   string
	TokenURL string

	HTTPClient *http.Client
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		UserPoolID: strings.TrimSpace(env.GetEnv("COGNITO_USER_POOL_ID", "")),
		ClientID:   strings.TrimSpace(env.GetEnv("COGNITO_APP_CLIENT_ID", "")),
		Domain:     strings.TrimSpace(env.GetEnv("COGNITO_DOMAIN", "")),
		TokenURL:   strings.TrimSpace(env.GetEnv("COGNITO_TOKEN_URL", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	if cfg.UserPoolID == "" {
		return nil, errors.New("COGNITO_USER_POOL_ID is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("COGNITO_APP_CLIENT_ID is required")
	}
	return cfg, nil
}

// TokenEndpoint is the OAuth2 token URL of the hosted UI, or "" when no
// domain is configured.
func (c *Config) TokenEndpoint() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	if c.Domain == "" {
		return ""
	}
	domain := strings.TrimRight(c.Domain, "/")
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return domain + "/oauth2/token"
}
