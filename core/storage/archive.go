package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
)

// Archive persists per-run sync reports as JSON objects in a bucket.
type Archive struct {
	client Client
	bucket string
}

// NewArchive creates an Archive writing to the given bucket.
func NewArchive(client Client, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket}
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check archive bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create archive bucket: %w", err)
	}
	return nil
}

// PutReport uploads one run report under reports/<name>.json.
func (a *Archive) PutReport(ctx context.Context, name string, payload []byte) error {
	objectName := fmt.Sprintf("reports/%s.json", name)

	_, err := a.client.PutObject(
		ctx,
		a.bucket,
		objectName,
		bytes.NewReader(payload),
		int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("failed to upload report %s: %w", objectName, err)
	}
	return nil
}
