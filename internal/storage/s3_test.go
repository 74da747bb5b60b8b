package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-api/internal/config"
)

func stubAWS(t *testing.T) *s3.Options {
	t.Helper()
	origLoad, origNew, origPresign := loadDefaultAWSConfig, newS3ClientFromConfig, presignPutObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, presignPutObject = origLoad, origNew, origPresign
	})

	loadDefaultAWSConfig = func(_ context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{Region: lo.Region}, nil
	}
	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return s3.NewFromConfig(cfg, optFns...)
	}
	return &opts
}

func testS3Config() config.S3Config {
	return config.S3Config{
		Bucket:     "catalog",
		Region:     "eu-central-1",
		Endpoint:   "http://127.0.0.1:9000",
		AccessKey:  "minio",
		SecretKey:  "minio-secret",
		PresignTTL: 10 * time.Minute,
	}
}

func TestPresignImageUpload(t *testing.T) {
	opts := stubAWS(t)
	var got *s3.PutObjectInput
	presignPutObject = func(_ *s3.PresignClient, _ context.Context, in *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		got = in
		return &v4.PresignedHTTPRequest{URL: "http://signed/" + *in.Key, Method: "PUT"}, nil
	}

	u, err := NewS3Uploader(context.Background(), testS3Config())
	require.NoError(t, err)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	u.now = func() time.Time { return time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC) }
	up, err := u.PresignImageUpload(context.Background(), "categories", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.Key, "categories/2026/03/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Equal(t, "catalog", *got.Bucket)
	assert.Equal(t, "image/png", *got.ContentType)
	assert.Equal(t, "http://signed/"+up.Key, up.UploadURL)
	assert.Equal(t, "http://127.0.0.1:9000/catalog/"+up.Key, up.PublicURL)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 10, 0, 0, time.UTC), up.ExpiresAt)
}

func TestPresignImageUpload_Rejects(t *testing.T) {
	stubAWS(t)
	presignPutObject = func(*s3.PresignClient, context.Context, *s3.PutObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("boom")
	}
	u, err := NewS3Uploader(context.Background(), testS3Config())
	require.NoError(t, err)

	_, err = u.PresignImageUpload(context.Background(), "categories", "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = u.PresignImageUpload(context.Background(), "categories", "image/jpeg")
	assert.ErrorContains(t, err, "boom")
}

func TestNewS3Uploader_LoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}
	_, err := NewS3Uploader(context.Background(), testS3Config())
	assert.ErrorContains(t, err, "no creds")
}

func TestPublicURL(t *testing.T) {
	u := &S3Uploader{cfg: config.S3Config{Bucket: "b", Region: "us-east-1", PublicBaseURL: "https://cdn.example.com/"}}
	assert.Equal(t, "https://cdn.example.com/k.png", u.publicURL("k.png"))
	u.cfg.PublicBaseURL = ""
	assert.Equal(t, "https://b.s3.us-east-1.amazonaws.com/k.png", u.publicURL("k.png"))
}
