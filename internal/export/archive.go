package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveStore keeps a copy of every exported IMDF bundle in object storage.
type ArchiveStore struct {
	client *minio.Client
	bucket string
}

// NewArchiveStore connects to the S3-compatible endpoint and ensures the
// bucket exists.
func NewArchiveStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*ArchiveStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to archive store: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check archive bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create archive bucket: %w", err)
		}
	}
	return &ArchiveStore{client: client, bucket: bucket}, nil
}

// Put uploads one archive under the session id and returns its object path.
func (s *ArchiveStore) Put(ctx context.Context, sessionID, filename string, data []byte) (string, error) {
	object := sessionID + "/" + filename
	_, err := s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return "", fmt.Errorf("upload archive: %w", err)
	}
	return s.bucket + "/" + object, nil
}
