package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

const minioScheme = "minio://"

// MinioConfig contains the connection settings for an S3-compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Minio stores documents in an S3-compatible bucket.
type Minio struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewMinio connects to the endpoint and creates the bucket when missing.
func NewMinio(ctx context.Context, cfg MinioConfig, logger zerolog.Logger) (*Minio, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio endpoint and bucket must be provided")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Minio{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With().Str("component", "minio_storage").Logger(),
	}, nil
}

// Upload streams the reader into the bucket and returns a minio://bucket/object reference.
func (m *Minio) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	object := objectName(name)

	info, err := m.client.PutObject(ctx, m.bucket, object, reader, -1, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	m.logger.Info().Str("object", info.Key).Int64("size", info.Size).Msg("file uploaded to minio")

	return fmt.Sprintf("%s%s/%s", minioScheme, m.bucket, info.Key), nil
}

// Open fetches the object behind a minio:// reference.
func (m *Minio) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	bucket, object, err := parseMinioRef(ref)
	if err != nil {
		return nil, err
	}

	obj, err := m.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object: %w", err)
	}

	// GetObject is lazy; Stat surfaces a missing key before the caller starts streaming.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	return obj, nil
}

// Delete removes the object behind a minio:// reference.
func (m *Minio) Delete(ctx context.Context, ref string) error {
	bucket, object, err := parseMinioRef(ref)
	if err != nil {
		return err
	}

	if err := m.client.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}

	m.logger.Info().Str("object", object).Msg("file removed from minio")
	return nil
}

func parseMinioRef(ref string) (bucket, object string, err error) {
	if !strings.HasPrefix(ref, minioScheme) {
		return "", "", fmt.Errorf("reference %q is not a minio object: %w", ref, ErrNotFound)
	}

	bucket, object, ok := strings.Cut(strings.TrimPrefix(ref, minioScheme), "/")
	if !ok || bucket == "" || object == "" {
		return "", "", ErrNotFound
	}
	return bucket, object, nil
}
