package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	sc "github.com/dmitrijs2005/credeval/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectGetter struct {
	body   string
	err    error
	bucket string
	key    string
}

func (f *fakeObjectGetter) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3Fetcher_Materialize(t *testing.T) {
	g := &fakeObjectGetter{body: fakePDF}
	f := NewS3Fetcher(g, "uploads")
	f.tempDir = t.TempDir()

	local, cleanup, err := f.Materialize(context.Background(), "s3://scans/2026/03/transcript.pdf")
	require.NoError(t, err)

	assert.Equal(t, "scans", g.bucket)
	assert.Equal(t, "2026/03/transcript.pdf", g.key)
	assert.True(t, strings.HasSuffix(local, ".pdf"))

	b, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, fakePDF, string(b))

	cleanup()
	_, err = os.Stat(local)
	assert.True(t, os.IsNotExist(err))
}

func TestS3Fetcher_DefaultBucketAndLocalPaths(t *testing.T) {
	g := &fakeObjectGetter{body: "x"}
	f := NewS3Fetcher(g, "uploads")
	f.tempDir = t.TempDir()

	_, cleanup, err := f.Materialize(context.Background(), "s3:///k/notes.txt")
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, "uploads", g.bucket)

	local, cleanup2, err := f.Materialize(context.Background(), "/var/uploads/a.pdf")
	require.NoError(t, err)
	cleanup2()
	assert.Equal(t, "/var/uploads/a.pdf", local)

	_, _, err = f.Materialize(context.Background(), "s3://bucket/")
	assert.ErrorIs(t, err, ErrFileUnreadable)
}

func TestS3Fetcher_Errors(t *testing.T) {
	f := NewS3Fetcher(&fakeObjectGetter{err: &types.NoSuchKey{}}, "uploads")
	_, _, err := f.Materialize(context.Background(), "s3://uploads/missing.pdf")
	assert.ErrorIs(t, err, ErrFileUnreadable)
	assert.False(t, IsTransient(err))

	f = NewS3Fetcher(&fakeObjectGetter{err: errors.New("connection refused")}, "uploads")
	_, _, err = f.Materialize(context.Background(), "s3://uploads/a.pdf")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.True(t, IsTransient(err))
}

func TestNewS3FetcherFromConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
	})

	cfg := &sc.Config{S3Region: "us-east-1", S3RootUser: "u", S3RootPassword: "p", S3Bucket: "uploads", S3BaseEndpoint: "http://minio:9000"}

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(c aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	f, err := NewS3FetcherFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "uploads", f.defaultBucket)
	assert.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}
	_, err = NewS3FetcherFromConfig(context.Background(), cfg)
	assert.ErrorContains(t, err, "load aws config")
}
