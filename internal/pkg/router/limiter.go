package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/controllers"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/models"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/cache"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/usercontext"
)

type LimiterConfig struct {
	Max    int
	Window time.Duration
	// Storage keeps counters shared between instances. Nil means in-process.
	Storage fiber.Storage
}

func LoadLimiterConfig() LimiterConfig {
	cfg := LimiterConfig{
		Max:    env.GetInt("RATE_LIMIT_MAX", 30),
		Window: env.GetDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
	if cacheCfg := cache.LoadConfig(); cacheCfg.IsEnabled() {
		log.Infof("[Router] rate limiter counters stored in redis at %s", cacheCfg.Addr())
		cfg.Storage = cache.NewLimiterStorage(cacheCfg)
	}
	return cfg
}

func newLimiter(cfg LimiterConfig) fiber.Handler {
	if cfg.Max <= 0 {
		cfg.Max = 30
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:          cfg.Max,
		Expiration:   cfg.Window,
		KeyGenerator: limiterKey,
		Storage:      cfg.Storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error:  "rate_limited",
				Detail: "Too many requests",
			})
		},
	})
}

// limiterKey buckets authenticated requests by account subject so rotating
// client addresses cannot reset the window.
func limiterKey(c *fiber.Ctx) string {
	if sub := usercontext.GetSubject(c); sub != "" {
		return "sub:" + sub
	}
	return "ip:" + controllers.GetClientIP(c)
}
