package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appconfig "github.com/semmidev/serverbackup/internal/config"
	"github.com/semmidev/serverbackup/internal/domain"
)

type s3API interface {
	s3.ListObjectsV2APIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type uploaderAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

type S3Storage struct {
	client   s3API
	uploader uploaderAPI
	credErr  error
}

// NewS3 creates an S3Storage for AWS or any S3-compatible endpoint. Missing
// credentials do not fail construction; every call reports them instead.
func NewS3(cfg *appconfig.StorageConfig) (*S3Storage, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	// uploads are attempted exactly once; the caller decides what a failure means
	uploader := s3manager.NewUploader(client, func(u *s3manager.Uploader) {
		u.ClientOptions = append(u.ClientOptions, func(o *s3.Options) {
			o.Retryer = aws.NopRetryer{}
		})
	})

	return newS3WithClients(client, uploader, checkCredentials(cfg.AccessKey, cfg.SecretKey)), nil
}

func newS3WithClients(client s3API, uploader uploaderAPI, credErr error) *S3Storage {
	return &S3Storage{client: client, uploader: uploader, credErr: credErr}
}

func checkCredentials(accessKey, secretKey string) error {
	switch {
	case accessKey == "" && secretKey == "":
		return domain.ErrMissingCredentials
	case accessKey == "" || secretKey == "":
		return fmt.Errorf("%w: incomplete credentials provided", domain.ErrMissingCredentials)
	}
	return nil
}

// Upload puts a local file at bucket/key.
func (s *S3Storage) Upload(ctx context.Context, localPath, bucket, key string) error {
	if s.credErr != nil {
		return s.credErr
	}

	file, err := os.Open(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrMissingLocalFile, localPath)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return &domain.RemoteServiceError{Op: "upload", Key: bucket + "/" + key, Err: err}
	}

	return nil
}

// List returns every object under prefix, following continuation tokens.
func (s *S3Storage) List(ctx context.Context, bucket, prefix string) ([]domain.RemoteObject, error) {
	if s.credErr != nil {
		return nil, s.credErr
	}

	objects := make([]domain.RemoteObject, 0)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &domain.RemoteServiceError{Op: "list", Key: bucket + "/" + prefix, Err: err}
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			objects = append(objects, domain.RemoteObject{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return objects, nil
}

// Delete removes bucket/key.
func (s *S3Storage) Delete(ctx context.Context, bucket, key string) error {
	if s.credErr != nil {
		return s.credErr
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &domain.RemoteServiceError{Op: "delete", Key: bucket + "/" + key, Err: err}
	}

	return nil
}

var _ domain.ObjectStore = (*S3Storage)(nil)
