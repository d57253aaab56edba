package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"bunkmate/pkg/logger"
)

const (
	groupIconFolder = "public/group-icons"
	maxIconBytes    = 5 << 20
)

// CloudStorageClient keeps uploaded group icons in a public GCS folder.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
	now        func() time.Time
}

func NewCloudStorageClient(ctx context.Context, bucketName string, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	storageClient := &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
		now:        time.Now,
	}

	if err := storageClient.setBucketCORS(ctx); err != nil {
		logger.Warn("Failed to set CORS configuration on %s: %v", bucketName, err)
	}

	return storageClient, nil
}

func (c *CloudStorageClient) setBucketCORS(ctx context.Context) error {
	bucket := c.client.Bucket(c.bucketName)

	attrs, err := bucket.Attrs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket attributes: %v", err)
	}
	if len(attrs.CORS) > 0 {
		return nil
	}

	_, err = bucket.Update(ctx, storage.BucketAttrsToUpdate{
		CORS: []storage.CORS{{
			MaxAge:          time.Hour,
			Methods:         []string{"GET", "HEAD"},
			Origins:         []string{"*"},
			ResponseHeaders: []string{"Content-Type"},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to update bucket CORS: %v", err)
	}
	return nil
}

// IconObjectName places every icon of a group under its own prefix so that
// deleting a group can sweep them together.
func IconObjectName(groupID, contentType string, at time.Time) string {
	name := fmt.Sprintf("%s-%s%s", uuid.New().String(), at.UTC().Format("20060102150405"), extensionFor(contentType))
	return path.Join(groupIconFolder, groupID, name)
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

func (c *CloudStorageClient) UploadGroupIcon(ctx context.Context, groupID string, file io.Reader, contentType string) (string, error) {
	objectName := IconObjectName(groupID, contentType, c.now())

	obj := c.client.Bucket(c.bucketName).Object(objectName)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"

	n, err := io.Copy(wc, io.LimitReader(file, maxIconBytes+1))
	if err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to copy icon to GCS: %v", err)
	}
	if n > maxIconBytes {
		wc.Close()
		obj.Delete(ctx)
		return "", fmt.Errorf("icon exceeds %d bytes", maxIconBytes)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("failed to set ACL: %v", err)
	}

	return PublicURL(c.bucketName, objectName), nil
}

func PublicURL(bucket, objectName string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectName)
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
