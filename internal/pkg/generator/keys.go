package generator

import (
	"context"
	"errors"
	"strings"
)

// KeyProvider supplies the API key for each request.
type KeyProvider interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a key taken from configuration.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	if strings.TrimSpace(string(k)) == "" {
		return "", errors.New("OPENAI_API_KEY is empty")
	}
	return string(k), nil
}

// SecretLookup resolves a secret by id, e.g. *secrets.Manager.
type SecretLookup interface {
	Get(ctx context.Context, id string) (string, error)
}

// SecretKey reads the key from the secret store.
type SecretKey struct {
	Secrets SecretLookup
	ID      string
}

func (k SecretKey) APIKey(ctx context.Context) (string, error) {
	return k.Secrets.Get(ctx, k.ID)
}

// KeyFromConfig prefers an explicit key and falls back to the secret store.
func KeyFromConfig(cfg *Config, secrets SecretLookup) (KeyProvider, error) {
	if cfg.APIKey != "" {
		return StaticKey(cfg.APIKey), nil
	}
	if secrets == nil || cfg.SecretID == "" {
		return nil, errors.New("either OPENAI_API_KEY or OPENAI_SECRET_ID with a secret store is required")
	}
	return SecretKey{Secrets: secrets, ID: cfg.SecretID}, nil
}
