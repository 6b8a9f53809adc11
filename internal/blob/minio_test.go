package blob

import (
	"context"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

// MinIO が localhost:9000 で動いていない場合はスキップする
func TestMinioStore_Integration(t *testing.T) {
	s, err := DialMinio(MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := s.client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	const bucket = "test-toolpath"
	exists, err := s.client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	name := "s3://" + bucket + "/layers/part.parquet"
	require.NoError(t, s.Put(ctx, name, []byte("hello toolpath")))

	got, err := s.Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello toolpath"), got)

	_, err = s.Get(ctx, "s3://"+bucket+"/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
