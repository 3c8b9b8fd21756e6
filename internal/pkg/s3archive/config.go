package s3archive

import (
	"strings"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
)

// Config holds webhook archive configuration
type Config struct {
	BucketName  string
	Prefix      string
	Region      string
	EndpointURL string // Optional for S3-compatible services
}

// LoadConfig loads archive configuration from environment variables.
// Archival is enabled by setting WEBHOOK_ARCHIVE_BUCKET.
func LoadConfig() *Config {
	return &Config{
		BucketName:  strings.TrimSpace(env.GetEnv("WEBHOOK_ARCHIVE_BUCKET", "")),
		Prefix:      strings.Trim(strings.TrimSpace(env.GetEnv("WEBHOOK_ARCHIVE_PREFIX", "webhooks")), "/"),
		Region:      strings.TrimSpace(env.GetEnv("AWS_REGION", "us-east-2")),
		EndpointURL: strings.TrimSpace(env.GetEnv("AWS_ENDPOINT_URL", "")),
	}
}

// IsEnabled returns true if a bucket is configured
func (c *Config) IsEnabled() bool {
	return c.BucketName != ""
}

// GetObjectKey prefixes key with the configured prefix
func (c *Config) GetObjectKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if c.Prefix == "" {
		return key
	}
	return c.Prefix + "/" + key
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	return env.GetEnv("APP_ENV", "prod")
}
