package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pinyinhub/config"
	"pinyinhub/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio 初始化 MinIO 客户端。未配置 MINIO_ENDPOINT 时跳过，
// 此时静态镜像只写本地文件。
func InitMinio(cfg *config.Config) error {
	if cfg.MinioEndpoint == "" {
		logger.Info("MinIO not configured, static mirrors will only be written locally")
		return nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created MinIO bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	logger.Info("MinIO client initialized", logger.String("bucket", cfg.MinioBucket))
	return nil
}

// GetMinioClient 获取 MinIO 客户端实例，未配置时返回 nil
func GetMinioClient() *minio.Client {
	return minioClient
}

// PutHTML uploads one generated HTML document to the configured bucket.
// No-op when MinIO is not configured.
func PutHTML(ctx context.Context, bucket, objectName, content string) error {
	if minioClient == nil {
		return nil
	}
	_, err := minioClient.PutObject(ctx, bucket, objectName,
		strings.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{
			ContentType:  "text/html; charset=utf-8",
			CacheControl: "public, max-age=3600",
		})
	if err != nil {
		return fmt.Errorf("failed to upload %s to MinIO: %w", objectName, err)
	}
	return nil
}
