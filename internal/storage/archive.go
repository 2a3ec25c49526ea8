// Package storage keeps generated exports: in a Google Cloud Storage bucket
// when one is configured, otherwise in a local directory.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Archive stores one file and returns its location.
type Archive interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Close() error
}

// objectName prefixes the base name with a unique id so repeated exports of
// the same file never overwrite each other.
func objectName(name string) string {
	dir, base := path.Split(strings.TrimLeft(filepath.ToSlash(name), "/"))
	return fmt.Sprintf("%s%s_%d_%s", dir, uuid.NewString(), time.Now().UnixNano(), base)
}

type gcsArchive struct {
	client *storage.Client
	bucket string
	log    *zap.Logger
}

// NewGCS connects to bucket. credentialsFile may be empty to use the
// ambient application default credentials.
func NewGCS(ctx context.Context, bucket, credentialsFile string, log *zap.Logger) (Archive, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to cloud storage: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("bucket %s not reachable: %w", bucket, err)
	}
	log.Info("archive bucket ready", zap.String("bucket", bucket))
	return &gcsArchive{client: client, bucket: bucket, log: log}, nil
}

func (a *gcsArchive) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	obj := objectName(name)
	w := a.client.Bucket(a.bucket).Object(obj).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return "", fmt.Errorf("upload %s: %w", obj, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finish upload %s: %w", obj, err)
	}

	url := fmt.Sprintf("https://storage.googleapis.com/%s/%s", a.bucket, obj)
	a.log.Info("export archived", zap.String("url", url), zap.Int("bytes", len(data)))
	return url, nil
}

func (a *gcsArchive) Close() error {
	return a.client.Close()
}

type localArchive struct {
	dir string
	log *zap.Logger
}

// NewLocal writes archives under dir, creating it if needed.
func NewLocal(dir string, log *zap.Logger) (Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &localArchive{dir: dir, log: log}, nil
}

func (a *localArchive) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	full := filepath.Join(a.dir, filepath.FromSlash(objectName(name)))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", full, err)
	}
	a.log.Info("export archived", zap.String("path", full), zap.Int("bytes", len(data)))
	return "file://" + filepath.ToSlash(full), nil
}

func (a *localArchive) Close() error { return nil }

// Open picks the bucket when configured, then the local directory. It
// returns nil when neither is set.
func Open(ctx context.Context, bucket, credentialsFile, dir string, log *zap.Logger) (Archive, error) {
	switch {
	case bucket != "":
		return NewGCS(ctx, bucket, credentialsFile, log)
	case dir != "":
		return NewLocal(dir, log)
	default:
		return nil, nil
	}
}
