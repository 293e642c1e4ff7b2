package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBClient stores BatchWriteItem puts keyed by the result table's
// SequenceId and Page attributes.
type DynamoDBClient struct {
	mu          sync.RWMutex
	tableData   map[string]map[string]map[string]types.AttributeValue
	batchWrites []dynamodb.BatchWriteItemInput

	failMu        sync.Mutex
	failNextWrite bool
}

// NewDynamoDBClient creates a new mock DynamoDB client
func NewDynamoDBClient() *DynamoDBClient {
	return &DynamoDBClient{
		tableData: make(map[string]map[string]map[string]types.AttributeValue),
	}
}

func itemKey(sequenceID, page string) string {
	return sequenceID + "#" + page
}

func attributeToString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	default:
		return ""
	}
}

// SetFailNextWrite makes the next BatchWriteItem call fail.
func (m *DynamoDBClient) SetFailNextWrite(fail bool) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	m.failNextWrite = fail
}

func (m *DynamoDBClient) shouldFail() bool {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	if m.failNextWrite {
		m.failNextWrite = false
		return true
	}
	return false
}

func (m *DynamoDBClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	m.mu.Lock()
	m.batchWrites = append(m.batchWrites, *params)
	m.mu.Unlock()

	if m.shouldFail() {
		return nil, fmt.Errorf("simulated batch write failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for tableName, writeRequests := range params.RequestItems {
		if _, ok := m.tableData[tableName]; !ok {
			m.tableData[tableName] = make(map[string]map[string]types.AttributeValue)
		}
		for _, wr := range writeRequests {
			if wr.PutRequest == nil {
				continue
			}
			item := wr.PutRequest.Item
			key := itemKey(attributeToString(item["SequenceId"]), attributeToString(item["Page"]))
			m.tableData[tableName][key] = item
		}
	}
	return &dynamodb.BatchWriteItemOutput{
		UnprocessedItems: make(map[string][]types.WriteRequest),
	}, nil
}

// GetTableContents returns every stored item of a table.
func (m *DynamoDBClient) GetTableContents(tableName string) map[string]map[string]types.AttributeValue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tableData[tableName]
}

// GetItem returns the item for a sequence page, or nil.
func (m *DynamoDBClient) GetItem(tableName, sequenceID string, page int) map[string]types.AttributeValue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tableData[tableName][itemKey(sequenceID, fmt.Sprint(page))]
}

// GetBatchWrites returns the batch write requests that were made.
func (m *DynamoDBClient) GetBatchWrites() []dynamodb.BatchWriteItemInput {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]dynamodb.BatchWriteItemInput(nil), m.batchWrites...)
}
