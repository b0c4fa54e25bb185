package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config names the bucket and key prefix an S3Endpoint writes under.
type S3Config struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

// S3Endpoint serves an Endpoint from an S3 (or S3-compatible) bucket.
type S3Endpoint struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Endpoint loads the default AWS credential chain and builds an
// endpoint for cfg's bucket/prefix.
func NewS3Endpoint(ctx context.Context, cfg S3Config) (*S3Endpoint, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &S3Endpoint{client: s3.NewFromConfig(awsCfg), cfg: cfg}, nil
}

func (e *S3Endpoint) objectKey(key string) string {
	if e.cfg.Prefix == "" {
		return key
	}
	return e.cfg.Prefix + "/" + key
}

func (e *S3Endpoint) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := e.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &e.cfg.Bucket,
		Key:    strPtr(e.objectKey(key)),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (e *S3Endpoint) Put(ctx context.Context, key string, data []byte) error {
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &e.cfg.Bucket,
		Key:    strPtr(e.objectKey(key)),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (e *S3Endpoint) Exists(ctx context.Context, key string) (bool, error) {
	_, err := e.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &e.cfg.Bucket,
		Key:    strPtr(e.objectKey(key)),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}

func strPtr(s string) *string { return &s }
