// Package storage is the blob namespace of the gallery: image objects in an
// S3-compatible bucket (MinIO locally), addressed by key and published
// through the gallery's own /public/<bucket>/<key> route.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	appconfig "lens/internal/config"
)

// MaxKeyLength bounds object keys
const MaxKeyLength = 255

// AllowedContentTypes is the whitelist of uploadable media
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/avif": true,
}

var (
	// ErrInvalidKey is returned for empty or unsafe object keys
	ErrInvalidKey = errors.New("invalid object key")
	// ErrObjectNotFound is returned by Open for a missing key
	ErrObjectNotFound = errors.New("object not found")
)

// Object is an opened blob
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Service defines the blob operations used by the gallery
type Service interface {
	// Upload stores body under key
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// PublicURL resolves the publicly reachable URL of key
	PublicURL(key string) string

	// Open streams the object stored under key
	Open(ctx context.Context, key string) (*Object, error)

	// Delete removes the object stored under key
	Delete(ctx context.Context, key string) error

	// EnsureBucketExists creates the bucket if it doesn't exist
	EnsureBucketExists(ctx context.Context) error

	// Health checks if the bucket is reachable
	Health(ctx context.Context) error
}

type service struct {
	client        *s3.Client
	bucketName    string
	publicBaseURL string
}

// New builds an S3 client for cfg. It does not touch the network.
func New(ctx context.Context, cfg appconfig.StorageConfig) (Service, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("S3_ENDPOINT is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET_NAME is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	protocol := "http"
	if cfg.UseSSL {
		protocol = "https"
	}
	endpointURL := cfg.Endpoint
	if !strings.Contains(endpointURL, "://") {
		endpointURL = fmt.Sprintf("%s://%s", protocol, cfg.Endpoint)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing is required for MinIO
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		o.UsePathStyle = true
	})

	return &service{
		client:        client,
		bucketName:    cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// PublicPrefix is the path segment preceding the key in public URLs
func PublicPrefix(bucket string) string {
	return "/public/" + bucket + "/"
}

// ValidateKey checks that key is usable as a flat object name
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: key too long (max %d characters)", ErrInvalidKey, MaxKeyLength)
	}
	if strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: key contains invalid characters", ErrInvalidKey)
	}
	return nil
}

// ValidateContentType checks if content type is an allowed image type
func ValidateContentType(contentType string) error {
	if contentType == "" {
		return fmt.Errorf("content type cannot be empty")
	}
	if !AllowedContentTypes[strings.ToLower(contentType)] {
		return fmt.Errorf("content type %s is not allowed", contentType)
	}
	return nil
}

func (s *service) EnsureBucketExists(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}

func (s *service) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ValidateContentType(contentType); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return nil
}

func (s *service) PublicURL(key string) string {
	return s.publicBaseURL + PublicPrefix(s.bucketName) + url.PathEscape(key)
}

func (s *service) Open(ctx context.Context, key string) (*Object, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}

	return &Object{
		Body:          out.Body,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: aws.ToInt64(out.ContentLength),
	}, nil
}

func (s *service) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", key, err)
	}

	return nil
}

func (s *service) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	if err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}
