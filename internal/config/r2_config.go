package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Config holds the S3-compatible object storage settings (Cloudflare R2)
type R2Config struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// Enabled reports whether enough settings are present to build a client
func (c R2Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

// PublicURL returns the public URL for an object key
func (c R2Config) PublicURL(key string) string {
	base := c.PublicBaseURL
	if base == "" {
		base = strings.TrimRight(c.Endpoint, "/") + "/" + c.Bucket
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// NewS3Client builds an S3 client pointed at the configured R2 endpoint
func (c R2Config) NewS3Client(ctx context.Context) (*s3.Client, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("object storage is not configured")
	}

	region := c.Region
	if region == "" {
		region = "auto"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure R2 client: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.Endpoint)
	}), nil
}
