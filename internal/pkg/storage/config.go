package storage

import (
	"errors"
	"time"

	"github.com/ManuelReschke/BookForge/internal/pkg/constants"
	"github.com/ManuelReschke/BookForge/internal/pkg/env"
)

// Config holds S3 export storage configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string // Optional CDN or public bucket URL
	PresignTTL      time.Duration
	Enabled         bool
	LocalDir        string
	LocalURLPrefix  string
}

// LoadConfig loads storage configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   env.GetEnv("S3_PUBLIC_BASE_URL", ""),
		PresignTTL:      time.Duration(env.GetEnvInt("S3_PRESIGN_TTL_MINUTES", 60*24)) * time.Minute,
		Enabled:         env.GetEnvBool("S3_ENABLED", false),
		LocalDir:        env.GetEnv("EXPORT_LOCAL_DIR", "./"+constants.ExportsPath),
		LocalURLPrefix:  env.GetEnv("EXPORT_LOCAL_URL_PREFIX", constants.ExportsRoute),
	}

	// Validate required fields if S3 storage is enabled
	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when S3 storage is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when S3 storage is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when S3 storage is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if S3 storage is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}
