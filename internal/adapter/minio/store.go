// Package minio implements the object store on a MinIO server.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options locates the server and bucket.
type Options struct {
	Endpoint string
	Bucket   string
	Region   string
	UseSSL   bool
}

// Store implements domain.ObjectStore for one MinIO bucket. Credentials come
// from MINIO_ACCESS_KEY/MINIO_SECRET_KEY or the AWS_* variables.
type Store struct {
	client *minio.Client
	bucket string
}

// New builds a MinIO client. It does not contact the server. The client makes
// a single attempt per request; retries belong to the retry decorator.
func New(opts Options) (*Store, error) {
	creds := credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvMinio{},
		&credentials.EnvAWS{},
	})
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:      creds,
		Secure:     opts.UseSSL,
		Region:     opts.Region,
		MaxRetries: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w: %w", domain.ErrConfig, err)
	}
	return &Store{client: client, bucket: opts.Bucket}, nil
}

// CheckBucket verifies the bucket exists.
func (s *Store) CheckBucket(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket %s: %w: %w", s.bucket, domain.ErrConfig, err)
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist: %w", s.bucket, domain.ErrConfig)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	var out []domain.ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, classify("list "+prefix, obj.Err)
		}
		out = append(out, domain.ObjectInfo{Key: obj.Key, LastModified: obj.LastModified})
	}
	return out, nil
}

// ListPrefixes relies on MinIO's non-recursive listing, which always groups
// on "/".
func (s *Store) ListPrefixes(ctx context.Context, prefix, delimiter string) ([]string, error) {
	if delimiter != "/" {
		return nil, fmt.Errorf("list prefixes: unsupported delimiter %q", delimiter)
	}
	var out []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, classify("list prefixes "+prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, delimiter) {
			out = append(out, obj.Key)
		}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify("get "+key, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classify("get "+key, err)
	}
	return data, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "text/csv",
		UserMetadata: metadata,
	})
	if err != nil {
		return classify("put "+key, err)
	}
	return nil
}

func (s *Store) Copy(ctx context.Context, src, dst string, metadata map[string]string, replaceMetadata bool) error {
	dstOpts := minio.CopyDestOptions{Bucket: s.bucket, Object: dst}
	if replaceMetadata {
		dstOpts.ReplaceMetadata = true
		dstOpts.UserMetadata = metadata
	}
	_, err := s.client.CopyObject(ctx, dstOpts, minio.CopySrcOptions{Bucket: s.bucket, Object: src})
	if err != nil {
		return classify("copy "+src, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classify("delete "+key, err)
	}
	return nil
}

func classify(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" || resp.Code == "NotFound":
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case resp.Code == "SlowDown" || resp.Code == "RequestTimeout" || resp.Code == "XMinioServerNotInitialized":
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
