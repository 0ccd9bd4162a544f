package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string // e.g., "http://localhost:9000" for MinIO
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	PublicURL       string // Public URL for accessing objects (e.g., "http://localhost:9000/reports")
}

// ObjectPutter is the subset of the S3 client used for uploads
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage stores exported analytics reports in S3-compatible storage
type S3Storage struct {
	client    ObjectPutter
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewS3Storage creates a new S3 storage client
func NewS3Storage(cfg S3Config) *S3Storage {
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		UsePathStyle: true, // Required for MinIO
	})

	return NewS3StorageWithClient(client, cfg.Bucket, cfg.PublicURL)
}

// NewS3StorageWithClient creates storage on top of an existing client
func NewS3StorageWithClient(client ObjectPutter, bucket, publicURL string) *S3Storage {
	return &S3Storage{
		client:    client,
		bucket:    bucket,
		publicURL: publicURL,
		now:       time.Now,
	}
}

// PutReportInput represents a serialized report to store
type PutReportInput struct {
	WorkspaceID string
	Period      string
	Body        []byte
}

// PutReportOutput describes a stored report
type PutReportOutput struct {
	Key        string
	URL        string
	Size       int64
	UploadedAt time.Time
}

// PutReport uploads a JSON report under reports/<workspace>/<yyyy/mm/dd>/
func (s *S3Storage) PutReport(ctx context.Context, in PutReportInput) (*PutReportOutput, error) {
	now := s.now().UTC()
	key := path.Join(
		"reports",
		in.WorkspaceID,
		now.Format("2006/01/02"),
		fmt.Sprintf("%s-%s.json", in.Period, uuid.New().String()),
	)

	size := int64(len(in.Body))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(in.Body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading to s3: %w", err)
	}

	return &PutReportOutput{
		Key:        key,
		URL:        fmt.Sprintf("%s/%s", s.publicURL, key),
		Size:       size,
		UploadedAt: now,
	}, nil
}
