// Package storage issues presigned upload URLs for catalog images on an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/iliyamo/storefront-api/internal/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// ErrUnsupportedType is returned for content types other than images.
var ErrUnsupportedType = errors.New("storage: unsupported content type")

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Upload is what a client needs to PUT an image and later reference it.
type Upload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// S3Uploader presigns PUT requests for one bucket.
type S3Uploader struct {
	cfg    config.S3Config
	client *s3.PresignClient
	now    func() time.Time
}

// NewS3Uploader builds the S3 client from cfg. Static credentials are
// used when both keys are set; otherwise the default AWS chain applies.
func NewS3Uploader(ctx context.Context, cfg config.S3Config) (*S3Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = 15 * time.Minute
	}
	return &S3Uploader{cfg: cfg, client: s3.NewPresignClient(client), now: time.Now}, nil
}

// PresignImageUpload returns a presigned PUT for a new object under
// prefix. Only image content types are accepted.
func (u *S3Uploader) PresignImageUpload(ctx context.Context, prefix, contentType string) (*Upload, error) {
	ext, ok := imageExt[strings.ToLower(contentType)]
	if !ok {
		return nil, ErrUnsupportedType
	}
	d := u.now().UTC()
	key := path.Join(prefix, fmt.Sprintf("%d/%02d", d.Year(), d.Month()), uuid.NewString()+ext)

	req, err := presignPutObject(u.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(u.cfg.PresignTTL))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}
	return &Upload{
		Key:       key,
		UploadURL: req.URL,
		PublicURL: u.publicURL(key),
		ExpiresAt: d.Add(u.cfg.PresignTTL),
	}, nil
}

func (u *S3Uploader) publicURL(key string) string {
	if u.cfg.PublicBaseURL != "" {
		return strings.TrimRight(u.cfg.PublicBaseURL, "/") + "/" + key
	}
	if u.cfg.Endpoint != "" {
		return strings.TrimRight(u.cfg.Endpoint, "/") + "/" + u.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, key)
}
