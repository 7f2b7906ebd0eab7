package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	sc "github.com/Eyad010/postfeed/internal/server/config"
	"github.com/Eyad010/postfeed/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Store struct {
	client  objectAPI
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewS3Store builds a path-style S3 client for the configured endpoint.
func NewS3Store(ctx context.Context, cfg *sc.Config) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3Store(client, cfg.S3Bucket, cfg.S3BaseEndpoint), nil
}

func newS3Store(client objectAPI, bucket, endpoint string) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(endpoint, "/"),
		now:     time.Now,
	}
}

func (s *S3Store) storageKey(folder string) string {
	d := s.now()
	return fmt.Sprintf("%s/%d/%d/%d/%v", folder, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *S3Store) Upload(ctx context.Context, folder string, file Upload) (models.Image, error) {
	key := s.storageKey(folder)

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file.Body,
	}
	if file.Size > 0 {
		in.ContentLength = aws.Int64(file.Size)
	}
	if file.ContentType != "" {
		in.ContentType = aws.String(file.ContentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return models.Image{}, fmt.Errorf("put object: %w", err)
	}

	return models.Image{
		PublicID: key,
		URL:      s.baseURL + "/" + s.bucket + "/" + key,
	}, nil
}

func (s *S3Store) Remove(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// PublicID returns the object key for a URL produced by this store, or ""
// when the URL points elsewhere.
func (s *S3Store) PublicID(url string) string {
	prefix := s.baseURL + "/" + s.bucket + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}
