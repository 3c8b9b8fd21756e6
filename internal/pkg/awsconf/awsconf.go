// Package awsconf builds the aws.Config shared by every AWS service client
// (DynamoDB, Cognito, Secrets Manager, S3).
package awsconf

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/gofiber/fiber/v2/log"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
)

const DefaultRegion = "us-east-2"

// Config holds AWS connection settings
type Config struct {
	Region          string
	EndpointURL     string // Optional, for LocalStack or DynamoDB Local
	AccessKeyID     string
	SecretAccessKey string
}

// LoadConfig loads AWS settings from environment variables. Credentials are
// optional: without them the default chain (Lambda role, profile) is used.
func LoadConfig() *Config {
	return &Config{
		Region:          strings.TrimSpace(env.GetEnv("AWS_REGION", DefaultRegion)),
		EndpointURL:     strings.TrimSpace(env.GetEnv("AWS_ENDPOINT_URL", "")),
		AccessKeyID:     strings.TrimSpace(env.GetEnv("AWS_ACCESS_KEY_ID", "")),
		SecretAccessKey: strings.TrimSpace(env.GetEnv("AWS_SECRET_ACCESS_KEY", "")),
	}
}

// HasStaticCredentials reports whether explicit keys were configured
func (c *Config) HasStaticCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Load resolves cfg into an aws.Config
func Load(ctx context.Context, cfg *Config) (aws.Config, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.HasStaticCredentials() {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.EndpointURL != "" {
		awsConfig.BaseEndpoint = aws.String(cfg.EndpointURL)
		log.Infof("[AWS] using custom endpoint %s", cfg.EndpointURL)
	}
	return awsConfig, nil
}

// LoadFromEnv is LoadConfig followed by Load
func LoadFromEnv(ctx context.Context) (aws.Config, error) {
	return Load(ctx, LoadConfig())
}
