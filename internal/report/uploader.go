package report

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	config "github.com/ledgerlens/defi-insight/configs"
	"github.com/ledgerlens/defi-insight/internal/metrics"
)

// PutObjectAPI is the part of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewUploader returns nil when no bucket is configured.
func NewUploader(ctx context.Context, cfg config.S3Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
			}, nil
		})))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewUploaderWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func NewUploaderWithClient(client PutObjectAPI, bucket, prefix string) *Uploader {
	return &Uploader{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Upload stores body under the configured prefix and returns its s3:// URI.
func (u *Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	fullKey := key
	if u.prefix != "" {
		fullKey = path.Join(u.prefix, key)
	}
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		metrics.ReportUploads.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("failed to upload %s to s3: %w", fullKey, err)
	}
	metrics.ReportUploads.WithLabelValues("ok").Inc()
	uri := fmt.Sprintf("s3://%s/%s", u.bucket, fullKey)
	log.Info().Str("uri", uri).Int("bytes", len(body)).Msg("uploaded report")
	return uri, nil
}
