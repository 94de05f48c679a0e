package infra

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/config"
)

// MinioClient stores before/after evidence media for jobs
type MinioClient struct {
	Admin    *madmin.AdminClient
	Client   *minio.Client
	Endpoint string
	Bucket   string
}

func InitMinioClient(cfg *config.EnvConfig) *MinioClient {
	endpoint := cfg.Minio.Endpoint
	if endpoint == "" {
		panic("MinIO endpoint is not configured")
	}

	rootUser := cfg.Minio.RootUser
	if rootUser == "" {
		panic("MinIO root user is not configured")
	}

	rootPassword := cfg.Minio.RootPassword
	if rootPassword == "" {
		panic("MinIO root password is not configured")
	}

	madminClient, err := madmin.New(endpoint, rootUser, rootPassword, cfg.Minio.UseSSL)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO admin client: %v", err))
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(rootUser, rootPassword, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO client: %v", err))
	}

	client := &MinioClient{
		Admin:    madminClient,
		Client:   minioClient,
		Endpoint: endpoint,
		Bucket:   cfg.Minio.EvidenceBucket,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.EnsureBucket(ctx); err != nil {
		panic(fmt.Sprintf("Failed to prepare evidence bucket: %v", err))
	}

	return client
}

func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.Client.BucketExists(ctx, m.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.Client.MakeBucket(ctx, m.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", m.Bucket, err)
	}
	return nil
}

// PutEvidence uploads one media file under objectKey
func (m *MinioClient) PutEvidence(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	_, err := m.Client.PutObject(ctx, m.Bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload evidence %s: %w", objectKey, err)
	}
	return nil
}

func (m *MinioClient) RemoveEvidence(ctx context.Context, objectKey string) error {
	return m.Client.RemoveObject(ctx, m.Bucket, objectKey, minio.RemoveObjectOptions{})
}

func (m *MinioClient) PresignedEvidenceURL(ctx context.Context, objectKey string, expiry time.Duration) (*url.URL, error) {
	return m.Client.PresignedGetObject(ctx, m.Bucket, objectKey, expiry, url.Values{})
}

// Health asks the MinIO admin API whether the deployment is online.
func (m *MinioClient) Health(ctx context.Context) error {
	info, err := m.Admin.ServerInfo(ctx)
	if err != nil {
		return fmt.Errorf("minio admin unreachable: %w", err)
	}
	if info.Mode != "" && info.Mode != "online" {
		return fmt.Errorf("minio mode is %s", info.Mode)
	}
	return nil
}
