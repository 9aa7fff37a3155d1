// Package sink delivers retrieved reports to durable storage.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/openctemio/scanctl/internal/config"
	"github.com/openctemio/scanctl/pkg/logger"
)

// reportContentType is the media type of a normalized scan result document.
const reportContentType = "application/xml"

// S3Sink uploads reports to an S3 or S3-compatible bucket.
type S3Sink struct {
	cfg    config.SinkConfig
	client *s3.Client
	logger *logger.Logger
}

// NewS3Sink creates an S3 sink. Static keys take precedence over an assumed
// role; with neither, the default AWS credential chain is used.
func NewS3Sink(ctx context.Context, cfg config.SinkConfig, log *logger.Logger) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	awsOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	switch {
	case cfg.AccessKeyID != "":
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	case cfg.RoleARN != "":
		baseCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		stsClient := sts.NewFromConfig(baseCfg)
		assumeOpts := func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = "scanctl"
			if cfg.ExternalID != "" {
				o.ExternalID = aws.String(cfg.ExternalID)
			}
		}
		creds := stscreds.NewAssumeRoleProvider(stsClient, cfg.RoleARN, assumeOpts)
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(creds)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" || cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				// S3-compatible stores often reject the newer flexible checksums.
				o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			}
			o.UsePathStyle = true
		})
	}

	return &S3Sink{
		cfg:    cfg,
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		logger: log,
	}, nil
}

// Key returns the object key a local file is uploaded to.
func (s *S3Sink) Key(localPath string) string {
	prefix := strings.Trim(s.cfg.Prefix, "/")
	name := filepath.Base(localPath)
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Upload stores the file at localPath and returns its s3:// location.
func (s *S3Sink) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat report: %w", err)
	}

	key := s.Key(localPath)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(reportContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key)
	s.logger.Info("report uploaded", "location", location, "bytes", info.Size())
	return location, nil
}
