package images

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dealerlink/easysync/internal/events"
)

// BlobStore persists downloaded image bytes and returns the stored
// location.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// LocalStore writes images under a base directory.
type LocalStore struct {
	baseDir string
	logger  *events.Logger
}

// NewLocalStore creates a local blob store rooted at baseDir.
func NewLocalStore(baseDir string, logger *events.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &LocalStore{
		baseDir: baseDir,
		logger:  logger.WithField("component", "image_store"),
	}, nil
}

// Put writes the blob and returns its filesystem path.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	dest := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	s.logger.WithFields(map[string]interface{}{
		"path": dest,
		"size": len(data),
	}).Debug("Stored image")
	return dest, nil
}

// S3Store writes images to an S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	logger *events.Logger
}

// NewS3Store creates an S3-backed blob store using the ambient AWS
// configuration.
func NewS3Store(ctx context.Context, bucket, prefix string, logger *events.Logger) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		logger: logger.WithField("component", "s3_image_store"),
	}, nil
}

// Put uploads the blob and returns its s3:// location.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	fullKey := path.Join(s.prefix, key)

	putCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.client.PutObject(putCtx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"key":  fullKey,
		"size": len(data),
	}).Debug("Stored image")
	return fmt.Sprintf("s3://%s/%s", s.bucket, fullKey), nil
}
