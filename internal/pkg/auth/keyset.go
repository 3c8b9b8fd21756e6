package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// minUnknownKidRefresh bounds how often a token with an unknown kid can force a refetch.
const minUnknownKidRefresh = 30 * time.Second

var (
	// ErrKeySetUnavailable means the signing keys could not be fetched or decoded.
	ErrKeySetUnavailable = errors.New("signing key set unavailable")
	// ErrUnknownKey means the key set was fetched but has no key with the requested kid.
	ErrUnknownKey = errors.New("unknown signing key")
)

type jsonWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jsonWebKeySet struct {
	Keys []jsonWebKey `json:"keys"`
}

// KeySet fetches RSA verification keys from a JWKS endpoint and caches them for TTL.
type KeySet struct {
	URL        string
	TTL        time.Duration
	HTTPClient *http.Client

	now func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeySet creates a key set for url. ttl <= 0 disables caching.
func NewKeySet(url string, ttl time.Duration) *KeySet {
	return &KeySet{
		URL: url,
		TTL: ttl,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// Key returns the public key for kid. The network fetch runs without holding
// the cache lock, so a slow endpoint never blocks callers that can be served
// from cache or whose context has already ended.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}

	now := k.now()
	k.mu.RLock()
	keys, fetchedAt := k.keys, k.fetchedAt
	k.mu.RUnlock()

	fresh := keys != nil && k.TTL > 0 && now.Sub(fetchedAt) < k.TTL
	if fresh {
		if key, ok := keys[kid]; ok {
			return key, nil
		}
		if now.Sub(fetchedAt) < minUnknownKidRefresh {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
		}
	}

	keys, err := k.fetch(ctx)
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	// a slower concurrent fetch must not replace a newer set
	if !now.Before(k.fetchedAt) {
		k.keys = keys
		k.fetchedAt = now
	}
	k.mu.Unlock()

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
	}
	return key, nil
}

func (k *KeySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status=%d", ErrKeySetUnavailable, resp.StatusCode)
	}

	var set jsonWebKeySet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" {
			continue
		}
		pub, err := rsaPublicKey(jwk)
		if err != nil {
			log.Warnf("[Auth] skipping malformed key %q: %v", jwk.Kid, err)
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no usable RSA keys", ErrKeySetUnavailable)
	}
	return keys, nil
}

func rsaPublicKey(jwk jsonWebKey) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	e := new(big.Int).SetBytes(eb)
	if len(nb) == 0 || !e.IsInt64() || e.Int64() < 3 {
		return nil, errors.New("invalid key parameters")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(e.Int64())}, nil
}
