// Package storage wraps an S3-compatible object store behind the small
// surface the portal needs: upload, delete, signed download URLs and
// key derivation from stored locations.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// UploadResult identifies an uploaded object. Location is the full URL
// persisted in the documents table; Key is the bucket-relative object
// name used for deletes and signed URLs.
type UploadResult struct {
	Location string
	Key      string
}

// Config carries the connection parameters for the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Client talks to one bucket of an S3-compatible store.
type Client struct {
	mc     *minio.Client
	bucket string
	base   string
}

// New connects to the object store and verifies the bucket exists.
func New(ctx context.Context, cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}
	ok, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: bucket check: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("storage: bucket %q does not exist", cfg.Bucket)
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	base := fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	return &Client{mc: mc, bucket: cfg.Bucket, base: base}, nil
}

// Upload stores the file under a fresh key derived from a UUID plus the
// original extension and returns its location. Callers must have
// validated MIME type and size beforehand.
func (c *Client) Upload(ctx context.Context, r io.Reader, size int64, contentType, originalName string) (UploadResult, error) {
	key := "documents/" + uuid.NewString() + path.Ext(originalName)
	_, err := c.mc.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"originalname": originalName},
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("storage: upload %s: %w", key, err)
	}
	return UploadResult{Location: c.base + "/" + key, Key: key}, nil
}

// Delete removes an object by key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// SignedURL returns a presigned GET URL for an object.
func (c *Client) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := c.mc.PresignedGetObject(ctx, c.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("storage: sign %s: %w", key, err)
	}
	return u.String(), nil
}

// KeyFromLocation derives the object key from a stored location. Plain
// keys pass through unchanged; URLs have the bucket prefix stripped
// when the bucket appears in the path (path-style addressing) and are
// otherwise taken as virtual-hosted style, where the path is the key.
func (c *Client) KeyFromLocation(location string) (string, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return location, nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("storage: parse location %q: %w", location, err)
	}
	p := strings.TrimPrefix(u.Path, "/")
	if p == "" {
		return "", fmt.Errorf("storage: location %q has no key", location)
	}
	if strings.HasPrefix(p, c.bucket+"/") {
		return strings.TrimPrefix(p, c.bucket+"/"), nil
	}
	return p, nil
}
