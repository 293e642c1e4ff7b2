package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"
	"github.com/gurre/smpager/aws"
)

// S3Uploader writes reports as JSON objects to S3.
type S3Uploader struct {
	client aws.S3Client
}

// NewS3Uploader creates an S3Uploader.
func NewS3Uploader(client aws.S3Client) *S3Uploader {
	return &S3Uploader{client: client}
}

// UploadReport writes report to an s3://bucket/key URI.
func (u *S3Uploader) UploadReport(ctx context.Context, uri string, report Report) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid report URI: %w", err)
	}
	if parsed.Scheme != "s3" {
		return fmt.Errorf("invalid report URI scheme: %s", parsed.Scheme)
	}
	bucket := parsed.Host
	key := strings.TrimPrefix(parsed.Path, "/")
	if bucket == "" || key == "" {
		return fmt.Errorf("report URI needs bucket and key: %s", uri)
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	contentType := "application/json"
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload report: %w", err)
	}
	return nil
}
