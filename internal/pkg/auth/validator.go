package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken means the credential itself is bad: malformed, badly
	// signed, expired, or issued for another pool or client.
	ErrInvalidToken = errors.New("invalid token")
	// ErrValidationUnavailable means the credential could not be checked at all.
	ErrValidationUnavailable = errors.New("token validation unavailable")
)

// KeySource resolves a verification key by kid.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Claims are the identity facts extracted from a verified token.
type Claims struct {
	Subject  string
	Email    string
	TokenUse string
}

// cognitoClaims covers both token kinds: ID tokens carry aud, access tokens carry client_id.
type cognitoClaims struct {
	TokenUse string `json:"token_use"`
	ClientID string `json:"client_id"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Validator verifies bearer tokens issued by one user pool for one app client.
type Validator struct {
	issuer   string
	clientID string
	keys     KeySource
	parser   *jwt.Parser
}

// NewValidator creates a validator for cfg using keys to resolve signing keys.
func NewValidator(cfg *Config, keys KeySource) *Validator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer()),
		jwt.WithExpirationRequired(),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	return &Validator{
		issuer:   cfg.Issuer(),
		clientID: cfg.ClientID,
		keys:     keys,
		parser:   jwt.NewParser(opts...),
	}
}

// NewValidatorFromConfig wires a validator to the pool's published key set.
func NewValidatorFromConfig(cfg *Config) *Validator {
	return NewValidator(cfg, NewKeySet(cfg.KeySetURL(), cfg.CacheTTL))
}

// Validate verifies token and returns its claims.
func (v *Validator) Validate(ctx context.Context, token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	// The kid is read before verification so that a key-set outage is
	// reported as unavailable rather than as a bad token.
	unverified, _, err := v.parser.ParseUnverified(token, &cognitoClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return Claims{}, fmt.Errorf("%w: missing kid", ErrInvalidToken)
	}

	key, err := v.keys.Key(ctx, kid)
	if err != nil {
		if errors.Is(err, ErrUnknownKey) {
			return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		log.Errorf("[Auth] key set lookup failed: %v", err)
		return Claims{}, fmt.Errorf("%w: %v", ErrValidationUnavailable, err)
	}

	claims := &cognitoClaims{}
	_, err = v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !v.audienceMatches(claims) {
		return Claims{}, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}
	if claims.TokenUse != "" && claims.TokenUse != "id" && claims.TokenUse != "access" {
		return Claims{}, fmt.Errorf("%w: unexpected token_use %q", ErrInvalidToken, claims.TokenUse)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Claims{
		Subject:  claims.Subject,
		Email:    claims.Email,
		TokenUse: claims.TokenUse,
	}, nil
}

func (v *Validator) audienceMatches(c *cognitoClaims) bool {
	if slices.Contains(c.Audience, v.clientID) {
		return true
	}
	return c.ClientID != "" && c.ClientID == v.clientID
}
