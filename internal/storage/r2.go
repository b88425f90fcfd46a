// Package storage persists files (signed agreements, ID images) to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"fleetrent-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore is what services need from object storage
type ObjectStore interface {
	// Put uploads data and returns its public URL
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// R2Store stores objects in a Cloudflare R2 bucket
type R2Store struct {
	client *s3.Client
	cfg    config.R2Config
}

func NewR2Store(ctx context.Context, cfg config.R2Config) (*R2Store, error) {
	client, err := cfg.NewS3Client(ctx)
	if err != nil {
		return nil, err
	}
	return &R2Store{client: client, cfg: cfg}, nil
}

func (s *R2Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	log.Printf("[R2] Stored %s (%d bytes)", key, len(data))
	return s.cfg.PublicURL(key), nil
}

func (s *R2Store) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// AgreementKey is the object key of a rental's signed agreement
func AgreementKey(tenantID, rentalID, envelopeID string) string {
	return fmt.Sprintf("tenants/%s/rentals/%s/agreement-%s.pdf", tenantID, rentalID, envelopeID)
}

// VerificationKey is the object key of one identity verification image
func VerificationKey(tenantID, verificationID, context, ext string) string {
	return fmt.Sprintf("tenants/%s/verifications/%s/%s%s", tenantID, verificationID, context, ext)
}
