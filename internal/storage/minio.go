package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/extraction"
)

// ObjectStorage defines the interface for storing objects.
type ObjectStorage interface {
	Put(ctx context.Context, key string, reader io.Reader) error
}

// MinIOClient implements ObjectStorage using MinIO.
type MinIOClient struct {
	client     *minio.Client
	bucketName string
}

// MinIOConfig holds MinIO connection settings.
type MinIOConfig struct {
	Endpoint  string // e.g., "localhost:9000"
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinIOClient creates a new MinIO storage client, creating the bucket when
// it does not exist yet.
func NewMinIOClient(ctx context.Context, cfg MinIOConfig) (*MinIOClient, error) {
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

	return &MinIOClient{
		client:     client,
		bucketName: cfg.Bucket,
	}, nil
}

// Put stores a CSV object in MinIO.
func (m *MinIOClient) Put(ctx context.Context, key string, reader io.Reader) error {
	_, err := m.client.PutObject(ctx, m.bucketName, key, reader, -1, minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return fmt.Errorf("failed to upload to minio: %w", err)
	}

	return nil
}

// MinIOSink uploads one CSV per run date under
// results/<profile>/<date>/<run-id>.csv.
type MinIOSink struct {
	storage ObjectStorage
	profile string
	runID   string
}

func NewMinIOSink(storage ObjectStorage, profile, runID string) *MinIOSink {
	return &MinIOSink{storage: storage, profile: profile, runID: runID}
}

func (s *MinIOSink) Write(ctx context.Context, date *time.Time, records []extraction.Record) error {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, records); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	key := ObjectKey{
		Source:    "results",
		Profile:   s.profile,
		Date:      extraction.DateLabel(date),
		RunID:     s.runID,
		Extension: "csv",
	}.Key()

	if err := s.storage.Put(ctx, key, &buf); err != nil {
		return err
	}

	slog.InfoContext(ctx, "results uploaded", "key", key, "records", len(records))
	return nil
}
