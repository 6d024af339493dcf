package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/almutairi-dev/tawseel-backend/pkg/config"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
	"github.com/almutairi-dev/tawseel-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// objectSegment is the path segment separating the public base URL from the
// escaped object key in fetch URLs. Resolution back to a key pattern-matches
// on it, so it must never change for already-issued URLs.
const objectSegment = "/o/"

// Client wraps the S3-compatible object store holding order attachments.
type Client struct {
	mc            *minio.Client
	bucket        string
	publicBaseURL string
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New creates a storage client and verifies the bucket exists.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("storage public base url is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}

	client := &Client{
		mc:            mc,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", cfg.Bucket, err)
		}
	}

	if logg != nil {
		logg.Info(ctx, "storage client initialized")
	}

	return client, nil
}

// Ping verifies the store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.mc == nil {
		return fmt.Errorf("storage client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.mc.BucketExists(ctx, c.bucket); err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}

// Put uploads the payload under key and returns the durable fetch URL.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "object key required")
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUploadFailed, err, "put object")
	}
	return c.FetchURL(key), nil
}

// FetchURL builds the public fetch URL for an already-stored key.
func (c *Client) FetchURL(key string) string {
	return fmt.Sprintf("%s/%s%s%s?alt=media&token=%s",
		c.publicBaseURL, c.bucket, objectSegment, url.PathEscape(key), uuid.NewString())
}

// Delete removes the object under key. Missing objects are not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "object key required")
	}
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDeleteFailed, err, "remove object")
	}
	return nil
}

// ResolveKey maps a fetch URL back to the internal object key. URLs that do
// not carry the object segment cannot be mapped and surface Unresolvable.
func (c *Client) ResolveKey(fetchURL string) (string, error) {
	return ResolveKey(fetchURL)
}

// ResolveKey extracts the escaped object key from a fetch URL.
func ResolveKey(fetchURL string) (string, error) {
	parsed, err := url.Parse(fetchURL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnresolvable, err, "parse fetch url")
	}
	// EscapedPath keeps %2F intact so multi-segment keys survive.
	path := parsed.EscapedPath()
	idx := strings.LastIndex(path, objectSegment)
	if idx < 0 {
		return "", pkgerrors.New(pkgerrors.CodeUnresolvable, "fetch url missing object segment").
			WithDetails(map[string]any{"url": fetchURL})
	}
	escaped := path[idx+len(objectSegment):]
	if escaped == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnresolvable, "fetch url carries empty object key")
	}
	key, err := url.PathUnescape(escaped)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnresolvable, err, "unescape object key")
	}
	return key, nil
}
