// Package media stores check-in photos in S3-compatible object storage.
// The service never proxies image bytes; clients upload and download through
// presigned URLs and only the object key is persisted on the check-in.
package media

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds S3 connection parameters. Endpoint is optional and enables
// MinIO and other S3-compatible services for local dev.
type Config struct {
	Region      string
	Bucket      string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	UploadTTL   time.Duration
	DownloadTTL time.Duration
}

// Store issues presigned URLs against a single photo bucket.
type Store struct {
	client      *s3.Client
	presign     *s3.PresignClient
	bucket      string
	uploadTTL   time.Duration
	downloadTTL time.Duration
}

// NewStore constructs a Store and verifies the bucket exists, creating it for
// local dev endpoints when absent.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // required for MinIO and friends
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	uploadTTL := cfg.UploadTTL
	if uploadTTL <= 0 {
		uploadTTL = 15 * time.Minute
	}
	downloadTTL := cfg.DownloadTTL
	if downloadTTL <= 0 {
		downloadTTL = time.Hour
	}

	store := &Store{
		client:      client,
		presign:     s3.NewPresignClient(client),
		bucket:      cfg.Bucket,
		uploadTTL:   uploadTTL,
		downloadTTL: downloadTTL,
	}

	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err == nil {
		return nil
	}

	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("bucket %q does not exist and could not be created: %w", s.bucket, err)
	}
	return nil
}

// CheckInPhotoKey builds the deterministic object key for a check-in photo.
// One photo per (challenge, day); re-uploads overwrite.
func (s *Store) CheckInPhotoKey(tenantID, challengeID string, day int) string {
	return fmt.Sprintf("tenants/%s/challenges/%s/checkins/day-%03d.jpg", tenantID, challengeID, day)
}

// UploadURL returns a presigned PUT URL for the object key.
func (s *Store) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.uploadTTL
	})
	if err != nil {
		return "", fmt.Errorf("presign upload: %w", err)
	}
	return req.URL, nil
}

// DownloadURL returns a presigned GET URL for the object key.
func (s *Store) DownloadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.downloadTTL
	})
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return req.URL, nil
}
