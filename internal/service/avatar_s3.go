package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	appconfig "contacts-server/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Compile-time check to ensure s3AvatarStorage implements AvatarStorage
var _ AvatarStorage = (*s3AvatarStorage)(nil)

type s3AvatarStorage struct {
	client   *s3.Client
	bucket   string
	endpoint string
	region   string
	logger   *zap.Logger
}

// NewS3AvatarStorage creates an AvatarStorage backed by an S3-compatible
// bucket. An empty endpoint means AWS proper; a non-empty endpoint switches
// to path-style addressing (MinIO and friends).
func NewS3AvatarStorage(ctx context.Context, cfg *appconfig.Config, logger *zap.Logger) (AvatarStorage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"", // токен не нужен
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3AvatarStorage{
		client:   client,
		bucket:   cfg.S3Bucket,
		endpoint: strings.TrimRight(cfg.S3Endpoint, "/"),
		region:   cfg.S3Region,
		logger:   logger.Named("S3AvatarStorage"),
	}, nil
}

// Upload stores the object and returns its public URL.
func (s *s3AvatarStorage) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	log := s.logger.With(zap.String("bucket", s.bucket), zap.String("key", key))
	log.Debug("Uploading object to S3")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		log.Error("Failed to put object to S3", zap.Error(err))
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}

	url := s.publicURL(key)
	log.Info("Object uploaded to S3", zap.String("url", url))
	return url, nil
}

// publicURL builds the object URL: path-style for custom endpoints,
// virtual-hosted style for AWS.
func (s *s3AvatarStorage) publicURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
