package remote

import (
	"bytes"
	"context"
	"testing"

	"github.com/jchantrell/twmap/internal/datafile"
	"github.com/jchantrell/twmap/internal/format"
	"github.com/jchantrell/twmap/internal/testutil"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		url    string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://maps/dm1.map", "maps", "dm1.map", true},
		{"s3://maps/nested/dir/ctf5.map", "maps", "nested/dir/ctf5.map", true},
		{"s3://maps", "", "", false},
		{"s3://maps/", "", "", false},
		{"s3:///key", "", "", false},
		{"maps/dm1.map", "", "", false},
		{"/abs/dm1.map", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			bucket, key, ok := ParseURL(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(Options{})
	assert.Error(t, err)
}

// TestOpen_Integration requires a running MinIO instance.
// Skip if not available.
func TestOpen_Integration(t *testing.T) {
	client, err := NewClient(Options{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	bucket := "test-twmap"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	image := testutil.Minimal(format.Version4)
	_, err = client.PutObject(ctx, bucket, "dm1.map", bytes.NewReader(image), int64(len(image)), minio.PutObjectOptions{})
	require.NoError(t, err)

	obj, err := Open(ctx, client, bucket, "dm1.map")
	require.NoError(t, err)
	assert.Equal(t, int64(len(image)), obj.Size())

	r, err := datafile.New(obj)
	require.NoError(t, err)
	defer r.Close()

	data, err := r.ReadData(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	_, err = Open(ctx, client, bucket, "missing.map")
	assert.ErrorIs(t, err, ErrNotFound)
}
