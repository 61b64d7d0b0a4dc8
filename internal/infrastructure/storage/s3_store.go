// Package storage S3 兼容对象存储（MinIO / R2 / AWS）
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"logitoon-ai-api/internal/config"
	apperrors "logitoon-ai-api/pkg/errors"
)

var tracer = otel.Tracer("storage")

// S3Store 面板图像存储
type S3Store struct {
	client        *minio.Client
	bucket        string
	region        string
	presignExpiry time.Duration

	initOnce sync.Once
	initErr  error
}

// NewS3Store 创建存储客户端，不发起网络请求
func NewS3Store(cfg *config.S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &S3Store{client: client, bucket: bucket, region: region, presignExpiry: expiry}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Put 写入对象
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, span := tracer.Start(ctx, "storage.Put")
	defer span.End()
	span.SetAttributes(attribute.String("storage.key", key), attribute.Int("storage.size", len(data)))

	if err := s.ensureBucket(ctx); err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeStorageFailed, "ensure bucket failed")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeStorageFailed, "put object failed")
	}
	return nil
}

// PresignGet 生成限时读取地址
func (s *S3Store) PresignGet(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignExpiry, nil)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeStorageFailed, "presign failed")
	}
	return u.String(), nil
}

// DeletePrefix 删除某漫画下的全部对象
func (s *S3Store) DeletePrefix(ctx context.Context, prefix string) error {
	ctx, span := tracer.Start(ctx, "storage.DeletePrefix")
	defer span.End()

	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    strings.TrimSuffix(prefix, "/") + "/",
		Recursive: true,
	})
	for res := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if res.Err != nil {
			span.RecordError(res.Err)
			return apperrors.Wrap(res.Err, apperrors.CodeStorageFailed, "remove objects failed")
		}
	}
	return nil
}

// HealthCheck 检查存储桶可达
func (s *S3Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// PanelKey 面板图像对象键
func PanelKey(comicID string, panelID int, mimeType string) string {
	return path.Join("comics", comicID, fmt.Sprintf("panel-%02d%s", panelID, extensionFor(mimeType)))
}

// ComicPrefix 漫画对象前缀
func ComicPrefix(comicID string) string {
	return path.Join("comics", comicID)
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
