package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/course-portal/internal/apperr"
	"github.com/course-portal/internal/config"
	"github.com/course-portal/internal/pathguard"
)

// S3 stores blobs as objects in a MinIO or S3 bucket
type S3 struct {
	client *minio.Client
	bucket string
	region string
	log    zerolog.Logger
}

// NewS3 creates a MinIO client from the storage config
func NewS3(cfg *config.StorageConfig, log zerolog.Logger) (*S3, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &S3{
		client: client,
		bucket: cfg.S3Bucket,
		region: cfg.S3Region,
		log:    log.With().Str("component", "blob.s3").Str("bucket", cfg.S3Bucket).Logger(),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist
func (s *S3) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
		s.log.Info().Msg("Bucket created")
	}
	return nil
}

// Put uploads an object
func (s *S3) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if !pathguard.IsSafe(name) {
		return apperr.Invalid("invalid file name %q", name)
	}
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("upload object %q: %w", name, err)
	}
	return nil
}

// Open fetches an object. The first Stat call surfaces a missing key.
func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, Info, error) {
	if !pathguard.IsSafe(name) {
		return nil, Info{}, apperr.NotFound("file %q not found", name)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, Info{}, s.wrap(name, err)
	}
	oi, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, Info{}, s.wrap(name, err)
	}
	return obj, Info{Name: name, Size: oi.Size, Modified: oi.LastModified}, nil
}

// Stat returns the object's size and modification time
func (s *S3) Stat(ctx context.Context, name string) (Info, error) {
	if !pathguard.IsSafe(name) {
		return Info{}, apperr.NotFound("file %q not found", name)
	}
	oi, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		return Info{}, s.wrap(name, err)
	}
	return Info{Name: name, Size: oi.Size, Modified: oi.LastModified}, nil
}

// Delete removes an object
func (s *S3) Delete(ctx context.Context, name string) error {
	if _, err := s.Stat(ctx, name); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return s.wrap(name, err)
	}
	return nil
}

// List returns every object at the top level of the bucket
func (s *S3) List(ctx context.Context) ([]Info, error) {
	var out []Info
	for oi := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{}) {
		if oi.Err != nil {
			return nil, fmt.Errorf("list bucket %s: %w", s.bucket, oi.Err)
		}
		out = append(out, Info{Name: oi.Key, Size: oi.Size, Modified: oi.LastModified})
	}
	return out, nil
}

func (s *S3) wrap(name string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return apperr.NotFound("file %q not found", name)
	}
	return fmt.Errorf("object %q: %w", name, err)
}
