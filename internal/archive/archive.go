// Package archive copies finished mutation logs to S3-compatible object
// storage so they outlive the machine the batch ran on.
package archive

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dvtools/dvbatch/internal/logging"
)

const contentType = "text/plain; charset=utf-8"

// Configuration errors.
var (
	ErrMissingEndpoint    = errors.New("archive: endpoint is required")
	ErrMissingBucket      = errors.New("archive: bucket is required")
	ErrMissingCredentials = errors.New("archive: access key and secret key are required")
)

// Config describes the target bucket.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

// Validate checks that the target is fully described.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Endpoint) == "" {
		errs = append(errs, ErrMissingEndpoint)
	}
	if strings.TrimSpace(c.Bucket) == "" {
		errs = append(errs, ErrMissingBucket)
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		errs = append(errs, ErrMissingCredentials)
	}
	return errors.Join(errs...)
}

// ObjectStore is the part of *minio.Client the uploader uses.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Info describes an uploaded log.
type Info struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

// Uploader puts mutation log files into one bucket.
type Uploader struct {
	store ObjectStore
	cfg   Config
}

// NewUploader connects a minio client for cfg.
func NewUploader(cfg Config) (*Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: creating client: %w", err)
	}
	return NewUploaderWithStore(client, cfg)
}

// NewUploaderWithStore builds an Uploader on an existing store.
func NewUploaderWithStore(store ObjectStore, cfg Config) (*Uploader, error) {
	if store == nil {
		return nil, errors.New("archive: object store cannot be nil")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, ErrMissingBucket
	}
	return &Uploader{store: store, cfg: cfg}, nil
}

// ObjectKey returns the key a log file is stored under.
func ObjectKey(prefix, filePath string) string {
	name := filepath.Base(filePath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Upload creates the bucket if needed and stores the file at filePath.
func (u *Uploader) Upload(ctx context.Context, filePath string) (Info, error) {
	log := logging.FromContext(ctx)

	stat, err := os.Stat(filePath)
	if err != nil {
		return Info{}, fmt.Errorf("archive: %w", err)
	}
	if err := u.ensureBucket(ctx); err != nil {
		return Info{}, fmt.Errorf("archive: ensure bucket %s: %w", u.cfg.Bucket, err)
	}

	key := ObjectKey(u.cfg.Prefix, filePath)
	uploaded, err := u.store.FPutObject(ctx, u.cfg.Bucket, key, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Info{}, fmt.Errorf("archive: put %s/%s: %w", u.cfg.Bucket, key, err)
	}

	size := uploaded.Size
	if size == 0 {
		size = stat.Size()
	}
	log.Info().Ctx(ctx).
		Str("bucket", u.cfg.Bucket).
		Str("key", key).
		Int64("size", size).
		Msg("mutation log archived")
	return Info{Bucket: u.cfg.Bucket, Key: key, Size: size, ETag: uploaded.ETag}, nil
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	exists, err := u.store.BucketExists(ctx, u.cfg.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return u.store.MakeBucket(ctx, u.cfg.Bucket, minio.MakeBucketOptions{Region: u.cfg.Region})
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
