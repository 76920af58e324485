// Package s3 implements the object store on Amazon S3 (or any S3-compatible
// endpoint) with aws-sdk-go-v2.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/couchcryptid/station-data-etl-service/internal/domain"
)

// Options selects the bucket and, optionally, a custom endpoint.
type Options struct {
	Bucket   string
	Region   string
	Endpoint string
}

// Store implements domain.ObjectStore for one bucket.
type Store struct {
	client *s3.Client
	bucket string
}

// New loads the default AWS credential chain and builds a client. A custom
// endpoint switches to path-style addressing.
func New(ctx context.Context, opts Options) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w: %w", domain.ErrConfig, err)
	}
	client := s3.NewFromConfig(awsCfg, clientOptions(opts))
	return &Store{client: client, bucket: opts.Bucket}, nil
}

// clientOptions disables the SDK retryer; attempts are bounded by the retry
// decorator alone.
func clientOptions(opts Options) func(*s3.Options) {
	return func(o *s3.Options) {
		o.Retryer = aws.NopRetryer{}
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}
}

// CheckBucket verifies the bucket is reachable with the configured credentials.
func (s *Store) CheckBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("bucket %s: %w: %w", s.bucket, domain.ErrConfig, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var out []domain.ObjectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list "+prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, domain.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}

func (s *Store) ListPrefixes(ctx context.Context, prefix, delimiter string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String(delimiter),
	})

	var out []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list prefixes "+prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			out = append(out, aws.ToString(cp.Prefix))
		}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify("get "+key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", key, domain.ErrTransient, err)
	}
	return data, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      metadata,
	})
	if err != nil {
		return classify("put "+key, err)
	}
	return nil
}

func (s *Store) Copy(ctx context.Context, src, dst string, metadata map[string]string, replaceMetadata bool) error {
	in := &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dst),
		CopySource: aws.String(copySource(s.bucket, src)),
	}
	if replaceMetadata {
		in.Metadata = metadata
		in.MetadataDirective = types.MetadataDirectiveReplace
	}
	if _, err := s.client.CopyObject(ctx, in); err != nil {
		return classify("copy "+src, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classify("delete "+key, err)
	}
	return nil
}

// copySource URL-encodes "bucket/key", keeping the separators.
func copySource(bucket, key string) string {
	return (&url.URL{Path: bucket + "/" + key}).EscapedPath()
}

var throttleCodes = map[string]bool{
	"SlowDown":                 true,
	"Throttling":               true,
	"ThrottlingException":      true,
	"RequestTimeout":           true,
	"RequestTimeTooSkewed":     true,
	"InternalError":            true,
	"ServiceUnavailable":       true,
	"RequestLimitExceeded":     true,
	"TooManyRequestsException": true,
}

// classify maps SDK errors onto the domain sentinels.
func classify(op string, err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.ErrorCode(); {
		case code == "NoSuchKey" || code == "NotFound":
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		case throttleCodes[code]:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		if code := respErr.HTTPStatusCode(); code >= 500 || code == 429 {
			return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
