// Package secrets reads string secrets from AWS Secrets Manager and keeps them
// for the life of the process.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/gofiber/fiber/v2/log"
)

var ErrEmptySecret = errors.New("secret has no string value")

// API is the subset of *secretsmanager.Client used here.
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type Manager struct {
	api API

	mu     sync.Mutex
	values map[string]string
}

func NewManager(api API) *Manager {
	return &Manager{api: api, values: make(map[string]string)}
}

func NewManagerFromConfig(cfg aws.Config) *Manager {
	return NewManager(secretsmanager.NewFromConfig(cfg))
}

// Get returns the SecretString of id. Successful lookups are cached; failures
// are not, so a later call retries.
func (m *Manager) Get(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	if v, ok := m.values[id]; ok {
		m.mu.Unlock()
		return v, nil
	}
	m.mu.Unlock()

	out, err := m.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", id, err)
	}
	value := strings.TrimSpace(aws.ToString(out.SecretString))
	if value == "" {
		return "", fmt.Errorf("get secret %s: %w", id, ErrEmptySecret)
	}

	m.mu.Lock()
	m.values[id] = value
	m.mu.Unlock()
	log.Infof("[Secrets] loaded secret %s", id)
	return value, nil
}
