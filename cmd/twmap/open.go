package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/jchantrell/twmap/internal/datafile"
	"github.com/jchantrell/twmap/internal/remote"
	"github.com/minio/minio-go/v7"
)

var (
	s3Once   sync.Once
	s3Client *minio.Client
	s3Err    error
)

// objectStore creates the client on first use so local-only runs need no S3 config
func objectStore() (*minio.Client, error) {
	s3Once.Do(func() {
		s3Client, s3Err = remote.NewClient(remote.Options{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
			Secure:    cfg.S3.Secure,
		})
	})
	return s3Client, s3Err
}

// openMap opens a local path or an s3://bucket/key URL
func openMap(ctx context.Context, arg string) (*datafile.Reader, error) {
	bucket, key, ok := remote.ParseURL(arg)
	if !ok {
		return datafile.Open(arg)
	}

	client, err := objectStore()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", arg, err)
	}

	obj, err := remote.Open(ctx, client, bucket, key)
	if err != nil {
		return nil, err
	}

	r, err := datafile.New(obj)
	if err != nil {
		obj.Close()
		return nil, err
	}
	return r, nil
}
