package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"campus/internal/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const s3Backend = "s3"

// S3Config configures an S3 or S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// s3API is the subset of *s3.Client the store calls.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps published blobs under <prefix>uploads/ and staged blobs under <prefix>staging/.
// Publish is a server-side copy followed by deleting the staged object.
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// NewS3Store builds an S3 client from cfg. Static credentials are used when both keys are set.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMode(aws.RetryModeStandard),
		awsconfig.WithRetryMaxAttempts(3),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3StoreWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3StoreWithClient(client s3API, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) Backend() string {
	return s3Backend
}

func (s *S3Store) finalKey(key string) string {
	return s.prefix + "uploads/" + key
}

func (s *S3Store) stagedKey(key string) string {
	return s.prefix + "staging/" + key
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}

func (s *S3Store) Stage(ctx context.Context, key string, r io.Reader) (n int64, err error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}
	ctx, span := observability.StartStorageSpan(ctx, s3Backend, "stage", key)
	defer func() { observability.EndSpan(span, err) }()

	body, size, err := seekableBody(r)
	if err != nil {
		observability.StorageErrors.WithLabelValues(s3Backend, "stage").Inc()
		return 0, fmt.Errorf("read payload: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.stagedKey(key)),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/pdf"),
	})
	if err != nil {
		observability.StorageErrors.WithLabelValues(s3Backend, "stage").Inc()
		return 0, fmt.Errorf("put staged object: %w", err)
	}
	observability.StorageBytesWritten.WithLabelValues(s3Backend).Add(float64(size))
	return size, nil
}

func (s *S3Store) Publish(ctx context.Context, key string) (err error) {
	if err := ValidateKey(key); err != nil {
		return err
	}
	ctx, span := observability.StartStorageSpan(ctx, s3Backend, "publish", key)
	defer func() { observability.EndSpan(span, err) }()

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + s.stagedKey(key)),
		Key:        aws.String(s.finalKey(key)),
	})
	if err != nil {
		observability.StorageErrors.WithLabelValues(s3Backend, "publish").Inc()
		if isS3NotFound(err) {
			return fmt.Errorf("publish %s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("publish %s: %w", key, err)
	}

	// The published copy is authoritative; a leftover stage is collected by the sweeper.
	if _, delErr := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.stagedKey(key)),
	}); delErr != nil {
		observability.StorageErrors.WithLabelValues(s3Backend, "discard").Inc()
	}
	return nil
}

func (s *S3Store) Discard(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.stagedKey(key)),
	}); err != nil && !isS3NotFound(err) {
		observability.StorageErrors.WithLabelValues(s3Backend, "discard").Inc()
		return fmt.Errorf("discard %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Open(ctx context.Context, key string) (obj *Object, err error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	ctx, span := observability.StartStorageSpan(ctx, s3Backend, "open", key)
	defer func() { observability.EndSpan(span, err) }()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.finalKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		observability.StorageErrors.WithLabelValues(s3Backend, "open").Inc()
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return &Object{
		Body:    out.Body,
		Size:    aws.ToInt64(out.ContentLength),
		ModTime: aws.ToTime(out.LastModified),
	}, nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.finalKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head %s: %w", key, err)
	}
	return true, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) (err error) {
	if err := ValidateKey(key); err != nil {
		return err
	}
	ctx, span := observability.StartStorageSpan(ctx, s3Backend, "delete", key)
	defer func() { observability.EndSpan(span, err) }()

	if _, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.finalKey(key)),
	}); err != nil && !isS3NotFound(err) {
		observability.StorageErrors.WithLabelValues(s3Backend, "delete").Inc()
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) ListStaged(ctx context.Context) ([]BlobInfo, error) {
	return s.list(ctx, s.prefix+"staging/")
}

func (s *S3Store) ListPublished(ctx context.Context) ([]BlobInfo, error) {
	return s.list(ctx, s.prefix+"uploads/")
}

func (s *S3Store) list(ctx context.Context, prefix string) ([]BlobInfo, error) {
	var (
		out   []BlobInfo
		token *string
	)
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			observability.StorageErrors.WithLabelValues(s3Backend, "list").Inc()
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if ValidateKey(key) != nil {
				continue
			}
			out = append(out, BlobInfo{
				Key:     key,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			return out, nil
		}
		token = page.NextContinuationToken
	}
}

// seekableBody returns r as a ReadSeeker with its remaining length.
// Payload signing needs a seekable body, so plain readers are buffered.
func seekableBody(r io.Reader) (io.ReadSeeker, int64, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, 0, err
		}
		end, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, err
		}
		if _, err := rs.Seek(start, io.SeekStart); err != nil {
			return nil, 0, err
		}
		return rs, end - start, nil
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(buf), int64(len(buf)), nil
}
