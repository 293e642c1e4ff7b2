package sink

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	json "github.com/goccy/go-json"
	"github.com/gurre/smpager/aws"
)

// item is the DynamoDB shape of a Record. SequenceId and Page form the key.
type item struct {
	SequenceID string `dynamodbav:"SequenceId"`
	Page       int    `dynamodbav:"Page"`
	Operation  string `dynamodbav:"Operation"`
	Payload    string `dynamodbav:"Payload,omitempty"`
	NextCursor string `dynamodbav:"NextCursor,omitempty"`
	Error      string `dynamodbav:"Error,omitempty"`
	EmittedAt  string `dynamodbav:"EmittedAt"`
}

// DynamoDBSink buffers records and writes them with BatchWriteItem.
type DynamoDBSink struct {
	client    aws.DynamoDBClient
	tableName string
	batchSize int // records per BatchWriteItem (≤25)

	mu      sync.Mutex
	pending []types.WriteRequest
	written int64
}

// NewDynamoDBSink creates a DynamoDBSink.
// Example:
//
//	client := dynamodb.NewFromConfig(cfg)
//	s := sink.NewDynamoDBSink(client, "smpager-results", 25)
//	defer s.Flush(ctx)
func NewDynamoDBSink(client aws.DynamoDBClient, tableName string, batchSize int) *DynamoDBSink {
	if batchSize < 1 || batchSize > 25 {
		batchSize = 25
	}
	return &DynamoDBSink{
		client:    client,
		tableName: tableName,
		batchSize: batchSize,
	}
}

// Write queues the record and sends a batch once batchSize records are queued.
func (s *DynamoDBSink) Write(ctx context.Context, rec Record) error {
	av, err := marshalRecord(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	if len(s.pending) < s.batchSize {
		return nil
	}
	return s.flushLocked(ctx)
}

// Flush sends every queued record.
func (s *DynamoDBSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

// Written returns the number of records the table accepted.
func (s *DynamoDBSink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

func (s *DynamoDBSink) flushLocked(ctx context.Context) error {
	for len(s.pending) > 0 {
		n := min(s.batchSize, len(s.pending))
		if err := s.writeBatch(ctx, s.pending[:n]); err != nil {
			return err
		}
		s.written += int64(n)
		s.pending = s.pending[n:]
	}
	s.pending = nil
	return nil
}

func marshalRecord(rec Record) (map[string]types.AttributeValue, error) {
	it := item{
		SequenceID: rec.SequenceID,
		Page:       rec.Page,
		Operation:  rec.Operation,
		NextCursor: rec.NextCursor,
		Error:      rec.Error,
		EmittedAt:  rec.EmittedAt.Format(time.RFC3339Nano),
	}
	if rec.Value != nil {
		payload, err := json.Marshal(rec.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload of %s page %d: %w", rec.Operation, rec.Page, err)
		}
		it.Payload = string(payload)
	}
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	return av, nil
}

// isThrottlingError reports whether DynamoDB rejected the request for
// capacity reasons. Capacity refills over time, so these retry indefinitely.
func isThrottlingError(err error) bool {
	var throughputErr *types.ProvisionedThroughputExceededException
	var requestLimitErr *types.RequestLimitExceeded
	return errors.As(err, &throughputErr) || errors.As(err, &requestLimitErr)
}

// backoffWait sleeps for an exponentially increasing duration with jitter.
// Returns false if the context is cancelled during the wait.
func backoffWait(ctx context.Context, attempt int) bool {
	base := 100 * time.Millisecond
	maxDelay := 30 * time.Second

	delay := base * time.Duration(1<<uint(min(attempt, 20)))
	if delay > maxDelay {
		delay = maxDelay
	}
	delay += time.Duration(rand.Int64N(int64(delay)))

	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// writeBatch sends one BatchWriteItem and resubmits unprocessed items.
// Throttling retries until ctx is done; other errors fail after maxRetries.
func (s *DynamoDBSink) writeBatch(ctx context.Context, requests []types.WriteRequest) error {
	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			s.tableName: requests,
		},
	}

	const maxRetries = 5
	attempt := 0
	for {
		output, err := s.client.BatchWriteItem(ctx, input)
		if err != nil {
			if isThrottlingError(err) {
				if !backoffWait(ctx, attempt) {
					return ctx.Err()
				}
				attempt++
				continue
			}
			if attempt < maxRetries {
				if !backoffWait(ctx, attempt) {
					return ctx.Err()
				}
				attempt++
				continue
			}
			return fmt.Errorf("failed to write batch after %d retries: %w", maxRetries, err)
		}

		if len(output.UnprocessedItems) > 0 {
			input.RequestItems = output.UnprocessedItems
			if !backoffWait(ctx, attempt) {
				return ctx.Err()
			}
			attempt++
			continue
		}
		return nil
	}
}
