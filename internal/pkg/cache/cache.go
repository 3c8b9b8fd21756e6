// Package cache builds the Redis connections used by the credits store and
// the rate limiter.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
)

// Config describes the Redis (or Dragonfly) server
type Config struct {
	Host     string
	Port     int
	Password string
	// DB holds credit balances, LimiterDB the rate limiter counters.
	DB        int
	LimiterDB int
}

func LoadConfig() *Config {
	return &Config{
		Host:      strings.TrimSpace(env.GetEnv("CACHE_HOST", "")),
		Port:      env.GetInt("CACHE_PORT", 6379),
		Password:  env.GetEnv("CACHE_PASSWORD", ""),
		DB:        env.GetInt("CACHE_DB", 0),
		LimiterDB: env.GetInt("CACHE_LIMITER_DB", 1),
	}
}

// IsEnabled reports whether a cache host was configured
func (c *Config) IsEnabled() bool {
	return c.Host != ""
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewClient connects to the configured server and verifies it answers PING
func NewClient(ctx context.Context, cfg *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pong, err := client.Ping(pctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to cache at %s: %w", cfg.Addr(), err)
	}
	log.Infof("[Cache] Successfully connected to cache: %s", pong)
	return client, nil
}

// NewLimiterStorage returns fiber storage for rate limiter counters, kept in
// a separate database from balances.
func NewLimiterStorage(cfg *Config) fiber.Storage {
	return redisstorage.New(redisstorage.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Database: cfg.LimiterDB,
		Reset:    false,
	})
}
