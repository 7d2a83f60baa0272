// Package gcs stores product images in a single Cloud Storage bucket.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/angelmondragon/wishlist-backend/pkg/config"
	"github.com/angelmondragon/wishlist-backend/pkg/gcp"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
)

const (
	defaultPublicBase = "https://storage.googleapis.com"
	pingTimeout       = 5 * time.Second
)

var (
	errNotInitialized = errors.New("gcs client not initialized")
	errKeyRequired    = errors.New("object key is required")
)

// Client uploads, deletes and addresses objects in one bucket.
type Client struct {
	objects    *storage.ObjectsService
	bucket     string
	publicBase string
}

// NewClient builds the storage service from the GCP credentials and verifies
// the bucket can be listed.
func NewClient(ctx context.Context, cfg config.GCSConfig, creds config.GCPConfig, logg *logger.Logger) (*Client, error) {
	opts := append(gcp.ClientOptions(creds), option.WithScopes(storage.DevstorageReadWriteScope))
	return newClient(ctx, cfg, logg, opts...)
}

func newClient(ctx context.Context, cfg config.GCSConfig, logg *logger.Logger, opts ...option.ClientOption) (*Client, error) {
	bucket := strings.TrimSpace(cfg.BucketName)
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage service: %w", err)
	}

	c := &Client{
		objects:    svc.Objects,
		bucket:     bucket,
		publicBase: cfg.PublicBaseURL,
	}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", bucket), "gcs client initialized")
	}
	return c, nil
}

// Ping lists at most one object, which needs storage.objects.list on the bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.objects == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	_, err := c.objects.List(c.bucket).MaxResults(1).Fields("items/name").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("listing bucket %q: %w", c.bucket, err)
	}
	return nil
}

// Upload writes data under key.
func (c *Client) Upload(ctx context.Context, key, contentType string, data []byte) error {
	if c == nil || c.objects == nil {
		return errNotInitialized
	}
	if strings.TrimSpace(key) == "" {
		return errKeyRequired
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	object := &storage.Object{Name: key, ContentType: contentType}
	_, err := c.objects.Insert(c.bucket, object).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("uploading %q: %w", key, err)
	}
	return nil
}

// Delete removes key. A missing object counts as deleted.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil || c.objects == nil {
		return errNotInitialized
	}
	if strings.TrimSpace(key) == "" {
		return errKeyRequired
	}

	err := c.objects.Delete(c.bucket, key).Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

// PublicURL returns the browser-facing URL of key. Empty keys map to "".
func (c *Client) PublicURL(key string) string {
	if c == nil || key == "" {
		return ""
	}
	base := strings.TrimRight(c.publicBase, "/")
	if base == "" {
		base = defaultPublicBase
	}
	return base + "/" + c.bucket + "/" + key
}

// Close is a no-op; the storage service keeps no open connections of its own.
func (c *Client) Close() error {
	return nil
}
