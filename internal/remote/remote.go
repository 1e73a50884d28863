// Package remote opens datafiles stored in MinIO or any other S3-compatible
// object store.
//
// Objects are exposed as datafile.File handles: sequential reads stream the
// object, positioned reads issue ranged GET requests.
package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Scheme prefixes object URLs accepted by ParseURL.
const Scheme = "s3://"

// ErrNotFound is returned when the object does not exist. It satisfies
// errors.Is(err, os.ErrNotExist).
var ErrNotFound = os.ErrNotExist

// Options configures the object store client.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool
}

// NewClient creates a MinIO client from options.
func NewClient(opts Options) (*minio.Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("object store endpoint cannot be empty")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.Secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	return client, nil
}

// ParseURL splits an s3://bucket/key URL. ok is false for anything else,
// including local paths.
func ParseURL(url string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(url, Scheme)
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// Object is an open object. It satisfies datafile.File.
type Object struct {
	*minio.Object
	size int64
}

// Size returns the object size reported by the store.
func (o *Object) Size() int64 { return o.size }

// Open opens bucket/key for reading.
func Open(ctx context.Context, client *minio.Client, bucket, key string) (*Object, error) {
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("opening %s%s/%s: %w", Scheme, bucket, key, err)
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, fmt.Errorf("opening %s%s/%s: %w", Scheme, bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s%s/%s: %w", Scheme, bucket, key, err)
	}

	return &Object{Object: obj, size: info.Size}, nil
}
