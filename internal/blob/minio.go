package blob

import (
	"bytes"
	"context"
	"fmt"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"io"
	"strings"
)

type (
	// S3 互換のオブジェクトストレージ。名前は s3://bucket/key の形式
	MinioStore struct {
		client *minio.Client
	}

	MinioConfig struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Secure    bool
	}
)

func NewMinioStore(client *minio.Client) *MinioStore {
	return &MinioStore{client: client}
}

// 静的な認証情報でクライアントを作る
func DialMinio(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return NewMinioStore(client), nil
}

func (s *MinioStore) Get(ctx context.Context, name string) ([]byte, error) {
	bucket, key, err := ParseS3URL(name)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, notFound(err)
	}
	defer obj.Close()

	// GetObject は遅延して通信するので、存在しないキーのエラーは読み込み時に返る
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, notFound(err)
	}
	return data, nil
}

// PutObject は完了するまでオブジェクトを公開しない
func (s *MinioStore) Put(ctx context.Context, name string, data []byte) error {
	bucket, key, err := ParseS3URL(name)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

// s3://bucket/key をバケット名とキーに分解する
func ParseS3URL(name string) (string, string, error) {
	if !IsS3(name) {
		return "", "", fmt.Errorf("not an s3 url: '%s'", name)
	}

	bucket, key, ok := strings.Cut(strings.TrimPrefix(name, s3Scheme), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url must be s3://bucket/key: '%s'", name)
	}
	return bucket, key, nil
}

func notFound(err error) error {
	code := minio.ToErrorResponse(err).Code
	if code == "NoSuchKey" || code == "NoSuchBucket" || code == "NotFound" {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
