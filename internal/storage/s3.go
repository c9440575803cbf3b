// Package storage handles pitch asset uploads to S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Storage implements the wizard's blob store over an S3 bucket.
type S3Storage struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

func NewS3Storage(client *s3.Client, bucket, publicBaseURL string) *S3Storage {
	return &S3Storage{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// Put uploads one object and returns its retrieval URL. The optional
// progress callback receives percentages as bytes are consumed by the
// transport.
func (s *S3Storage) Put(ctx context.Context, key string, data []byte, contentType string, progress func(pct float64)) (string, error) {
	var body io.Reader = bytes.NewReader(data)
	if progress != nil {
		body = &progressReader{reader: body, total: int64(len(data)), report: progress}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	if progress != nil {
		progress(100)
	}

	return s.PublicURL(key), nil
}

// Delete removes an object. Missing objects are not an error on S3.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}

	return nil
}

// PublicURL returns the retrieval URL for a key.
func (s *S3Storage) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}

type progressReader struct {
	reader io.Reader
	total  int64
	read   int64
	report func(pct float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		p.report(float64(p.read) * 100 / float64(p.total))
	}
	return n, err
}
