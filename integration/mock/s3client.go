package mock

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client is an in-memory S3 used for checkpoints, reports and batch input.
// It satisfies aws.S3Client and the client interface of s3streamer, and its
// Stream method stands in for s3streamer.Streamer.
type S3Client struct {
	mu       sync.RWMutex
	files    map[string][]byte // bucket/key -> content
	metadata map[string]map[string]string
	puts     int
}

// NewS3Client creates an empty mock S3 client.
func NewS3Client() *S3Client {
	return &S3Client{
		files:    make(map[string][]byte),
		metadata: make(map[string]map[string]string),
	}
}

// AddFile stores an object.
func (m *S3Client) AddFile(bucket, key string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[bucket+"/"+key] = content
	m.metadata[bucket+"/"+key] = map[string]string{"Content-Type": "application/json"}
}

// File returns a stored object.
func (m *S3Client) File(bucket, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[bucket+"/"+key]
	return data, ok
}

// Puts returns the number of PutObject calls.
func (m *S3Client) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

func (m *S3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucketKey := fmt.Sprintf("%s/%s", *params.Bucket, *params.Key)
	content, ok := m.files[bucketKey]
	if !ok {
		return nil, &types.NoSuchKey{
			Message: aws.String(fmt.Sprintf("The specified key does not exist: %s", *params.Key)),
		}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(content)),
		Metadata:      m.metadata[bucketKey],
		ETag:          etag(content),
		ContentLength: aws.Int64(int64(len(content))),
	}, nil
}

func (m *S3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	bucketKey := fmt.Sprintf("%s/%s", *params.Bucket, *params.Key)
	m.files[bucketKey] = data
	m.metadata[bucketKey] = params.Metadata
	m.puts++
	return &s3.PutObjectOutput{ETag: etag(data)}, nil
}

func (m *S3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucketKey := fmt.Sprintf("%s/%s", *params.Bucket, *params.Key)
	content, ok := m.files[bucketKey]
	if !ok {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	return &s3.HeadObjectOutput{
		ETag:          etag(content),
		Metadata:      m.metadata[bucketKey],
		ContentLength: aws.Int64(int64(len(content))),
	}, nil
}

// Stream calls fn for every line of the object starting at line offset.
func (m *S3Client) Stream(ctx context.Context, bucket, key string, offset int64, fn func([]byte, int64) error) error {
	content, ok := m.File(bucket, key)
	if !ok {
		return fmt.Errorf("mock S3: key not found: %s/%s (have %v)", bucket, key, m.keys())
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for line := int64(0); scanner.Scan(); line++ {
		if line < offset {
			continue
		}
		if err := fn(scanner.Bytes(), line); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (m *S3Client) keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.files))
	for k := range m.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func etag(content []byte) *string {
	return aws.String(fmt.Sprintf("%q", fmt.Sprintf("%x", len(content))))
}

func (m *S3Client) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, fmt.Errorf("CreateMultipartUpload not implemented in mock")
}

func (m *S3Client) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, fmt.Errorf("UploadPart not implemented in mock")
}

func (m *S3Client) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, fmt.Errorf("CompleteMultipartUpload not implemented in mock")
}

func (m *S3Client) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, fmt.Errorf("AbortMultipartUpload not implemented in mock")
}

