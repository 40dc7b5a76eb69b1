package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/eventhub/backend/internal/config"
)

// ImageBackend stores image bytes under a flat object name.
type ImageBackend interface {
	Put(ctx context.Context, name, contentType string, data []byte) (url string, err error)
	Delete(ctx context.Context, name string) error
}

// NewImageBackend builds the backend selected by UPLOAD_BACKEND.
func NewImageBackend(ctx context.Context, cfg config.UploadConfig) (ImageBackend, error) {
	switch cfg.Backend {
	case "gcs":
		return NewGCSBackend(ctx, cfg.GCSBucket)
	case "s3":
		return NewS3Backend(cfg), nil
	default:
		return NewLocalBackend(cfg.Dir)
	}
}

// LocalBackend writes into a directory served under /uploads/.
type LocalBackend struct {
	dir string
}

func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalBackend{dir: dir}, nil
}

func (b *LocalBackend) Dir() string { return b.dir }

func (b *LocalBackend) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	path := filepath.Join(b.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return "/uploads/" + filepath.Base(name), nil
}

func (b *LocalBackend) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(b.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

type GCSBackend struct {
	client *gcs.Client
	bucket string
}

func NewGCSBackend(ctx context.Context, bucket string) (*GCSBackend, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSBackend{client: client, bucket: bucket}, nil
}

func (b *GCSBackend) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	w := b.client.Bucket(b.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("gcs write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close: %w", err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.bucket, name), nil
}

func (b *GCSBackend) Delete(ctx context.Context, name string) error {
	err := b.client.Bucket(b.bucket).Object(name).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

type S3Backend struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Backend uses static credentials. A custom endpoint switches to
// path-style addressing for S3-compatible stores.
func NewS3Backend(cfg config.UploadConfig) *S3Backend {
	opts := s3.Options{
		Region:      cfg.S3Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, ""),
	}
	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	if cfg.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.S3Endpoint)
		opts.UsePathStyle = true
		baseURL = strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
	}
	return &S3Backend{
		client:  s3.New(opts),
		bucket:  cfg.S3Bucket,
		baseURL: baseURL,
	}
}

func (b *S3Backend) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put: %w", err)
	}
	return b.baseURL + "/" + name, nil
}

func (b *S3Backend) Delete(ctx context.Context, name string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(name),
	})
	return err
}
