package router

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/controllers"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/auth"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/awsconf"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/billing"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/credits"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/generator"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/identity"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/middleware"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/s3archive"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/secrets"
)

// Services is everything the routes need, built once per process.
type Services struct {
	Handlers *controllers.Handlers
	Tokens   middleware.TokenValidator
	Limiter  LimiterConfig
}

// NewServicesFromEnv connects every collaborator named by the environment.
// It fails on the first missing or unreachable one.
func NewServicesFromEnv(ctx context.Context) (*Services, error) {
	awsCfg, err := awsconf.LoadFromEnv(ctx)
	if err != nil {
		return nil, err
	}

	authCfg, err := auth.LoadConfig()
	if err != nil {
		return nil, err
	}
	validator := auth.NewValidatorFromConfig(authCfg)

	creditsCfg, err := credits.LoadConfig()
	if err != nil {
		return nil, err
	}
	store, err := credits.OpenStore(ctx, creditsCfg, awsCfg)
	if err != nil {
		return nil, err
	}
	gate := credits.NewGate(store, credits.LoadGateConfig())

	identityCfg, err := identity.LoadConfig()
	if err != nil {
		return nil, err
	}

	stripeCfg, err := billing.LoadStripeConfig()
	if err != nil {
		return nil, err
	}
	fulfiller, err := newFulfiller(ctx, awsCfg, store, stripeCfg)
	if err != nil {
		return nil, err
	}

	genCfg := generator.LoadConfig()
	keys, err := generator.KeyFromConfig(genCfg, secrets.NewManagerFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}

	log.Infof("[Router] services ready (credits backend %s, cost %d per generation)", creditsCfg.Backend, gate.Cost())
	return &Services{
		Handlers: &controllers.Handlers{
			Identity:        identity.NewClientFromConfig(awsCfg, identityCfg),
			Store:           store,
			Gate:            gate,
			Checkout:        billing.NewStripeClient(stripeCfg),
			Generator:       generator.NewClient(keys, genCfg),
			Webhooks:        fulfiller,
			UpstreamTimeout: env.GetDuration("UPSTREAM_TIMEOUT", controllers.DefaultUpstreamTimeout),
		},
		Tokens:  validator,
		Limiter: LoadLimiterConfig(),
	}, nil
}

func newFulfiller(ctx context.Context, awsCfg aws.Config, store credits.Store, cfg *billing.StripeConfig) (*billing.Fulfiller, error) {
	opts := []billing.FulfillerOption{billing.WithTolerance(cfg.WebhookTolerance)}

	archiveCfg := s3archive.LoadConfig()
	if archiveCfg.IsEnabled() {
		archive, err := s3archive.NewClient(ctx, awsCfg, archiveCfg)
		if err != nil {
			return nil, fmt.Errorf("webhook archive: %w", err)
		}
		opts = append(opts, billing.WithArchiver(archive))
	}

	return billing.NewFulfiller(store, cfg.WebhookSecret, opts...), nil
}
