package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	sc "github.com/dmitrijs2005/credeval/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Fetcher makes a document path available on the local filesystem.
// The returned cleanup must be called once the file is no longer needed.
type Fetcher interface {
	Materialize(ctx context.Context, path string) (local string, cleanup func(), err error)
}

type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher downloads s3://bucket/key paths to temp files. Other paths are
// treated as local and returned unchanged.
type S3Fetcher struct {
	client        ObjectGetter
	defaultBucket string
	tempDir       string
}

func NewS3Fetcher(client ObjectGetter, defaultBucket string) *S3Fetcher {
	return &S3Fetcher{client: client, defaultBucket: defaultBucket}
}

// NewS3FetcherFromConfig builds a client for the configured S3-compatible
// endpoint (path-style addressing, as MinIO expects).
func NewS3FetcherFromConfig(ctx context.Context, c *sc.Config) (*S3Fetcher, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return NewS3Fetcher(client, c.S3Bucket), nil
}

func (f *S3Fetcher) Materialize(ctx context.Context, path string) (string, func(), error) {
	if !strings.HasPrefix(path, "s3://") {
		return path, func() {}, nil
	}

	u, err := url.Parse(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrFileUnreadable, err)
	}
	bucket := u.Host
	if bucket == "" {
		bucket = f.defaultBucket
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", nil, fmt.Errorf("%w: empty object key in %s", ErrFileUnreadable, path)
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", nil, fmt.Errorf("%w: %s", ErrFileUnreadable, path)
		}
		return "", nil, fmt.Errorf("%w: get %s: %w", ErrStorageUnavailable, path, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(f.tempDir, "credeval-*"+filepath.Ext(key))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, out.Body); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("%w: download %s: %w", ErrStorageUnavailable, path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	return tmp.Name(), cleanup, nil
}
