// Package s3 implements archive.Store on an S3-compatible backend (AWS S3 or
// MinIO). Single bucket; keys map to object keys directly.
package s3

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"carecore/internal/archive"
)

var _ archive.Store = (*Store)(nil)

// Store talks to one bucket of an S3-compatible service.
type Store struct {
	client *s3.Client
	bucket string
}

// Config holds explicit construction parameters. Credentials fall back to
// the default AWS chain when the static fields are empty.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional, enables custom endpoint (e.g. MinIO)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// New creates an S3 archive store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *Store) Driver() archive.Driver { return archive.DriverS3 }

func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts archive.PutOptions) (archive.Info, error) {
	// Emulate create-only via Head first.
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key}); err == nil {
		return archive.Info{}, fmt.Errorf("artifact %s already exists", key)
	}
	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: r}
	if opts.ContentType != "" {
		input.ContentType = &opts.ContentType
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return archive.Info{}, err
	}
	return s.Head(ctx, key)
}

func (s *Store) Get(ctx context.Context, key string) (archive.Info, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return archive.Info{}, nil, err
	}
	var size int64
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return infoFrom(key, size, out.ContentType, out.Metadata, out.LastModified), out.Body, nil
}

func (s *Store) Head(ctx context.Context, key string) (archive.Info, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return archive.Info{}, err
	}
	var size int64
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return infoFrom(key, size, out.ContentType, out.Metadata, out.LastModified), nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]archive.Info, error) {
	var infos []archive.Info
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix, ContinuationToken: token})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			var size int64
			if obj.Size != nil {
				size = *obj.Size
			}
			infos = append(infos, archive.Info{Key: aws.ToString(obj.Key), Size: size, LastModified: aws.ToTime(obj.LastModified)})
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func infoFrom(key string, size int64, contentType *string, md map[string]string, lastModified *time.Time) archive.Info {
	var ct string
	if contentType != nil {
		ct = strings.TrimSpace(*contentType)
	}
	lm := time.Now().UTC()
	if lastModified != nil {
		lm = *lastModified
	}
	return archive.Info{Key: key, Size: size, ContentType: ct, Metadata: md, LastModified: lm}
}
