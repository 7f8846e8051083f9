package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/oncolab/leukoflow/internal/config"
)

// S3Store uploads images to an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	cfg    config.StorageConfig
}

func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	awsConfig, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS SDK config: %w", err)
	}

	opts := s3.Options{
		Region:      awsConfig.Region,
		Credentials: awsConfig.Credentials,
		HTTPClient:  awsConfig.HTTPClient,
	}
	if cfg.Region != "" {
		opts.Region = cfg.Region
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	opts.UsePathStyle = cfg.UsePathStyle

	return &S3Store{client: s3.New(opts), cfg: cfg}, nil
}

func (s *S3Store) Upload(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrMissingFileName
	}
	if !ValidImageContentType(contentType) {
		return "", ErrInvalidContentType
	}
	if s.cfg.MaxImageBytes > 0 && int64(len(data)) > s.cfg.MaxImageBytes {
		return "", ErrFileTooLarge
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	key := s.objectKey(filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", filename, err)
	}

	return s.publicURL(key), nil
}

// objectKey namespaces uploads under the configured prefix and salts the
// name so repeated uploads of the same file never collide.
func (s *S3Store) objectKey(filename string) string {
	base := path.Base(filename)
	stamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/%s_%s_%s", s.cfg.KeyPrefix, stamp, uuid.NewString()[:8], base)
}

func (s *S3Store) publicURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/" + key
	}
	if s.cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.cfg.Endpoint, "/"), s.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}
