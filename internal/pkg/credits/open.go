package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/cache"
)

// OpenStore builds the backend selected by cfg.Backend. awsCfg is only used
// for DynamoDB.
func OpenStore(ctx context.Context, cfg *Config, awsCfg aws.Config) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		log.Warn("[Credits] using the in-memory balance store, balances are lost on restart")
		return NewMemoryStore(), nil

	case BackendRedis:
		cacheCfg := cache.LoadConfig()
		if !cacheCfg.IsEnabled() {
			return nil, errors.New("CREDITS_BACKEND=redis requires CACHE_HOST")
		}
		rdb, err := cache.NewClient(ctx, cacheCfg)
		if err != nil {
			return nil, fmt.Errorf("open redis balance store: %w", err)
		}
		log.Infof("[Credits] using redis balance store at %s (prefix %q)", cacheCfg.Addr(), cfg.RedisPrefix)
		return NewRedisStore(rdb, cfg.RedisPrefix), nil

	default:
		log.Infof("[Credits] using dynamodb balance store, table %s", cfg.Table)
		return NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.Table), nil
	}
}
