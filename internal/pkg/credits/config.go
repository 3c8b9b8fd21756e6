package credits

import (
	"fmt"
	"strings"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
)

const (
	BackendDynamo = "dynamodb"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config selects and configures the balance store.
type Config struct {
	Backend     string
	Table       string
	RedisPrefix string
}

// GateConfig configures the charge applied to paid operations.
type GateConfig struct {
	Cost            int64
	RefundOnFailure bool
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Backend:     strings.ToLower(strings.TrimSpace(env.GetEnv("CREDITS_BACKEND", BackendDynamo))),
		Table:       strings.TrimSpace(env.GetEnv("CREDITS_TABLE", DefaultTable)),
		RedisPrefix: strings.TrimSpace(env.GetEnv("CREDITS_REDIS_PREFIX", "credits")),
	}
	switch cfg.Backend {
	case BackendDynamo, BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("CREDITS_BACKEND must be one of %s, %s, %s (got %q)", BackendDynamo, BackendRedis, BackendMemory, cfg.Backend)
	}
	return cfg, nil
}

func LoadGateConfig() GateConfig {
	return GateConfig{
		Cost:            int64(env.GetInt("CREDITS_COST", 1)),
		RefundOnFailure: env.GetBool("CREDITS_REFUND_ON_FAILURE", true),
	}
}
