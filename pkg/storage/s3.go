package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures an S3-compatible bucket. Leave Endpoint empty for AWS.
type S3Config struct {
	Bucket   string
	Region   string
	Key      string
	Secret   string
	Endpoint string
	URL      string // public base; defaults to the virtual-hosted AWS URL
}

// S3Disk stores objects in one bucket.
type S3Disk struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3Disk(ctx context.Context, c S3Config) (*S3Disk, error) {
	if c.Bucket == "" {
		return nil, errors.New("storage/s3: bucket is not configured")
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}

	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(c.Region)}
	if c.Key != "" && c.Secret != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.Key, c.Secret, ""),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage/s3: load config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if c.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		})
	}

	base := strings.TrimRight(c.URL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
	}

	return &S3Disk{client: s3.NewFromConfig(cfg, clientOpts...), bucket: c.Bucket, baseURL: base}, nil
}

func (d *S3Disk) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := d.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("storage/s3: put %s: %w", key, err)
	}
	return nil
}

func (d *S3Disk) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage/s3: get %s: %w", key, err)
	}
	return out.Body, nil
}

func (d *S3Disk) Exists(ctx context.Context, key string) (bool, error) {
	_, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage/s3: head %s: %w", key, err)
	}
	return true, nil
}

func (d *S3Disk) Delete(ctx context.Context, key string) error {
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage/s3: delete %s: %w", key, err)
	}
	return nil
}

func (d *S3Disk) URL(key string) string {
	return d.baseURL + "/" + strings.TrimLeft(key, "/")
}
