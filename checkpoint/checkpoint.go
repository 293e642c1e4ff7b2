// Package checkpoint persists the continuation cursor of an invocation
// sequence so that an interrupted listing can resume where it stopped.
package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	json "github.com/goccy/go-json"
	"github.com/gurre/smpager/aws"
	"github.com/redis/go-redis/v9"
)

// State is the progress of one invocation sequence.
// Example:
//
//	store, _ := checkpoint.Open("s3://my-bucket/checkpoints/list-models.json", checkpoint.Deps{S3: client})
//	state, err := store.Load(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Resume %s after page %d at %q\n", state.Operation, state.Pages, state.Cursor)
type State struct {
	SequenceID string    `json:"sequenceId"`
	Operation  string    `json:"operation"`
	Request    string    `json:"request,omitempty"` // fingerprint of the request parameters
	Cursor     string    `json:"cursor"` // cursor for the next call
	Pages      int       `json:"pages"`  // pages completed so far
	Done       bool      `json:"done"`   // service reported no more pages
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Resumable reports whether the state can continue the given request. A
// cursor is only valid for the parameters that produced it, so both the
// operation and the request fingerprint must match.
func (s State) Resumable(operation, request string) bool {
	return s.Operation == operation && s.Request == request && !s.Done && s.Cursor != ""
}

// Store saves and loads a single State. Loading a missing checkpoint returns
// the zero State and no error.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

// Deps carries the clients Open may need for remote stores.
type Deps struct {
	S3    aws.S3Client
	Redis *redis.Client
}

// Open returns the Store for a checkpoint URI:
//
//	s3://bucket/key        S3Store
//	file:///abs/path.json  FileStore
//	redis://host:port/key  RedisStore (uses Deps.Redis when set)
//	memory://              MemoryStore
func Open(uri string, deps Deps) (Store, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint URI: %w", err)
	}
	switch u.Scheme {
	case "s3":
		if deps.S3 == nil {
			return nil, fmt.Errorf("checkpoint %s needs an S3 client", uri)
		}
		return NewS3Store(deps.S3, uri)
	case "file":
		return NewFileStore(uri)
	case "redis":
		client := deps.Redis
		if client == nil {
			client = redis.NewClient(&redis.Options{Addr: u.Host})
		}
		key := strings.TrimPrefix(u.Path, "/")
		if key == "" {
			return nil, fmt.Errorf("redis checkpoint URI needs a key path: %s", uri)
		}
		return NewRedisStore(client, key), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported checkpoint URI scheme: %q", u.Scheme)
	}
}

// S3Store keeps the checkpoint as a JSON object in S3.
type S3Store struct {
	client aws.S3Client
	bucket string
	key    string
}

// NewS3Store creates a new S3Store from an S3 URI.
// Example:
//
//	client := s3.NewFromConfig(cfg)
//	store, err := checkpoint.NewS3Store(client, "s3://my-bucket/checkpoints/list-models.json")
func NewS3Store(client aws.S3Client, uri string) (*S3Store, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 URI: %w", err)
	}
	if u.Scheme != "s3" {
		return nil, fmt.Errorf("invalid S3 URI scheme: %s", u.Scheme)
	}

	return &S3Store{
		client: client,
		bucket: u.Host,
		key:    strings.TrimPrefix(u.Path, "/"),
	}, nil
}

func (s *S3Store) Load(ctx context.Context) (State, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &s.key,
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return State{}, nil
		}
		// Some S3-compatible stores answer NotFound instead
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var state State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return State{}, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return state, nil
}

func (s *S3Store) Save(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &s.key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// FileStore keeps the checkpoint in a local JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore from a file URI. The path must be absolute;
// missing parent directories are created.
func NewFileStore(uri string) (*FileStore, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid file URI: %w", err)
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("invalid file URI scheme: %s", u.Scheme)
	}

	cleanPath := filepath.Clean(u.Path)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("checkpoint path must be absolute: %s", cleanPath)
	}
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &FileStore{path: cleanPath}, nil
}

func (f *FileStore) Load(ctx context.Context) (State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return state, nil
}

// Save writes to a temporary file and renames it over the checkpoint, so a
// crash never leaves a truncated file behind.
func (f *FileStore) Save(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}
