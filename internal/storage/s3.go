package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Object is one file to upload
type Object struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Stored identifies an uploaded object. Key is kept for compensation.
type Stored struct {
	Key string
	URL string
}

type uploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type deleteAPI interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type ImageStore struct {
	uploader uploadAPI
	client   deleteAPI
	bucket   string
	logger   *logrus.Logger
	now      func() time.Time
}

// NewImageStore resolves AWS credentials from the default chain
func NewImageStore(ctx context.Context, region, bucket string, logger *logrus.Logger) (*ImageStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &ImageStore{
		uploader: manager.NewUploader(client),
		client:   client,
		bucket:   bucket,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (s *ImageStore) Upload(ctx context.Context, obj Object) (Stored, error) {
	key := objectKey(s.now(), uuid.NewString(), obj.Name)

	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        obj.Body,
		ContentType: aws.String(obj.ContentType),
	})
	if err != nil {
		return Stored{}, fmt.Errorf("failed to upload %s: %w", obj.Name, err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"key":    key,
	}).Debug("Uploaded object")
	return Stored{Key: key, URL: out.Location}, nil
}

func (s *ImageStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// objectKey builds properties/<unix millis>-<uuid>-<file name>
func objectKey(now time.Time, id, name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r == ' ' || r < 0x20 {
			return '_'
		}
		return r
	}, name)
	if name == "." || name == "/" || name == "" {
		name = "photo"
	}
	return fmt.Sprintf("properties/%d-%s-%s", now.UnixMilli(), id, name)
}
