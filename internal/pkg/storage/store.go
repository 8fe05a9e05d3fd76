package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// UploadResult contains the result of a successful upload
type UploadResult struct {
	ObjectKey   string
	URL         string
	Size        int64
	ContentType string
}

// ObjectStore stores rendered exports and hands out download URLs.
type ObjectStore interface {
	Put(ctx context.Context, objectKey string, data []byte, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, objectKey string) error
}

// New returns the S3 store when enabled and the local directory store otherwise.
func New(cfg *Config) (ObjectStore, error) {
	if cfg.IsEnabled() {
		return NewS3Store(cfg)
	}
	log.Infof("[Storage] S3 disabled, storing exports in %s", cfg.LocalDir)
	return NewLocalStore(cfg.LocalDir, cfg.LocalURLPrefix), nil
}

// ExportObjectKey generates the object key of an export.
func ExportObjectKey(userID, exportID, extension string, now time.Time) string {
	// Format: exports/YYYY/MM/<user>/<id>.ext
	return fmt.Sprintf("exports/%04d/%02d/%s/%s%s", now.Year(), int(now.Month()), sanitizeSegment(userID), exportID, extension)
}

func sanitizeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
	if s == "" {
		return "_"
	}
	return s
}

// S3Store uploads exports to an S3 compatible bucket.
type S3Store struct {
	s3Client *s3.Client
	presign  *s3.PresignClient
	config   *Config
}

// NewS3Store creates a new S3 client for the configured bucket
func NewS3Store(cfg *Config) (*S3Store, error) {
	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible providers need path-style URLs
			o.UsePathStyle = true
		}
	})

	log.Infof("[Storage] Initialized S3 client for bucket: %s", cfg.BucketName)
	return &S3Store{
		s3Client: s3Client,
		presign:  s3.NewPresignClient(s3Client),
		config:   cfg,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, objectKey string, data []byte, contentType string) (*UploadResult, error) {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.config.BucketName),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata: map[string]string{
			"upload-source": "bookforge-export",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	url, err := s.objectURL(ctx, objectKey)
	if err != nil {
		return nil, err
	}

	log.Infof("[Storage] Uploaded s3://%s/%s (%d bytes)", s.config.BucketName, objectKey, len(data))
	return &UploadResult{ObjectKey: objectKey, URL: url, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *S3Store) objectURL(ctx context.Context, objectKey string) (string, error) {
	if s.config.PublicBaseURL != "" {
		return strings.TrimRight(s.config.PublicBaseURL, "/") + "/" + objectKey, nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(s.config.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return req.URL, nil
}

func (s *S3Store) Delete(ctx context.Context, objectKey string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

// LocalStore writes exports below a directory served as static files.
type LocalStore struct {
	dir       string
	urlPrefix string
}

func NewLocalStore(dir, urlPrefix string) *LocalStore {
	return &LocalStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

// Dir returns the root directory of the store.
func (l *LocalStore) Dir() string {
	return l.dir
}

func (l *LocalStore) Put(ctx context.Context, objectKey string, data []byte, contentType string) (*UploadResult, error) {
	rel := strings.TrimPrefix(path.Clean("/"+objectKey), "/")
	full := filepath.Join(l.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}
	return &UploadResult{
		ObjectKey:   rel,
		URL:         l.urlPrefix + "/" + rel,
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

func (l *LocalStore) Delete(ctx context.Context, objectKey string) error {
	rel := strings.TrimPrefix(path.Clean("/"+objectKey), "/")
	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(rel)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
