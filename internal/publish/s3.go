// Package publish uploads the result file to an S3-compatible bucket after a
// run.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultRegion = "us-east-1"

type Config struct {
	Bucket string
	// Key is the object name. Empty uses the file's base name.
	Key string
	// Region defaults to us-east-1.
	Region string
	// Endpoint points at a non-AWS S3 service, e.g. "http://127.0.0.1:9000".
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool

	HTTPClient *http.Client
}

// Result describes a completed upload.
type Result struct {
	Bucket string
	Key    string
	Bytes  int64
}

type Publisher struct {
	uploader *manager.Uploader
	bucket   string
	key      string
}

func New(cfg Config) (*Publisher, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("publish: bucket is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("publish: S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}

	client := s3.NewFromConfig(aws.Config{Region: region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(strings.TrimSpace(cfg.Endpoint))
		}
		o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	return &Publisher{
		uploader: manager.NewUploader(client),
		bucket:   strings.TrimSpace(cfg.Bucket),
		key:      strings.TrimSpace(cfg.Key),
	}, nil
}

// Publish uploads the file at path.
func (p *Publisher) Publish(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		_ = f.Close()
	}()
	info, err := f.Stat()
	if err != nil {
		return Result{}, err
	}

	key := p.key
	if key == "" {
		key = filepath.Base(path)
	}
	_, err = p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("text/csv; charset=utf-8"),
	})
	if err != nil {
		return Result{}, fmt.Errorf("upload s3://%s/%s: %w", p.bucket, key, err)
	}
	return Result{Bucket: p.bucket, Key: key, Bytes: info.Size()}, nil
}
