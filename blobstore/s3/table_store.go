package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/imgcache/blobstore"
)

// MaxItemBytes is the largest payload TableStore accepts. DynamoDB limits
// items to 400KB including attribute names.
const MaxItemBytes = 390 * 1024

// ErrItemTooLarge is returned by TableStore.Put for payloads above MaxItemBytes.
var ErrItemTooLarge = errors.New("s3: payload exceeds DynamoDB item limit")

// DDBClient is the subset of the DynamoDB API used by TableStore.
type DDBClient interface {
	dynamodb.ScanAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Attribute names of a TableStore item.
const (
	attrPath      = "path"
	attrData      = "data"
	attrSize      = "size"
	attrUpdatedAt = "updated_at"
)

// TableStore implements blobstore.BlobStore on a DynamoDB table.
//
// Each blob is one item keyed by its path:
//   - Partition key: path (string)
//   - data (binary), size (number), updated_at (RFC 3339 string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name images \
//	  --attribute-definitions AttributeName=path,AttributeType=S \
//	  --key-schema AttributeName=path,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type TableStore struct {
	client DDBClient
	table  string
	now    func() time.Time
}

// NewTableStore creates a store backed by the given table.
func NewTableStore(client DDBClient, table string) *TableStore {
	return &TableStore{client: client, table: table, now: time.Now}
}

func pathKey(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPath: &types.AttributeValueMemberS{Value: name},
	}
}

// Open reads the item with a strongly consistent read.
func (s *TableStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            pathKey(name),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: get %s: %w", name, err)
	}
	if len(resp.Item) == 0 {
		return nil, blobstore.ErrNotFound
	}

	data, ok := resp.Item[attrData].(*types.AttributeValueMemberB)
	if !ok {
		return nil, fmt.Errorf("s3: item %s: invalid %s attribute", name, attrData)
	}
	return &tableBlob{data: data.Value}, nil
}

// Put writes the item, replacing any existing one.
func (s *TableStore) Put(ctx context.Context, name string, data []byte) error {
	if len(data) > MaxItemBytes {
		return fmt.Errorf("%w: %s is %d bytes", ErrItemTooLarge, name, len(data))
	}

	item := pathKey(name)
	item[attrData] = &types.AttributeValueMemberB{Value: data}
	item[attrSize] = &types.AttributeValueMemberN{Value: strconv.Itoa(len(data))}
	item[attrUpdatedAt] = &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339)}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("s3: put %s: %w", name, err)
	}
	return nil
}

// Delete removes the item.
func (s *TableStore) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       pathKey(name),
	})
	if err != nil {
		return fmt.Errorf("s3: delete %s: %w", name, err)
	}
	return nil
}

// List scans the table for paths with the given prefix.
// Only the path attribute is projected.
func (s *TableStore) List(ctx context.Context, prefix string) ([]string, error) {
	input := &dynamodb.ScanInput{
		TableName:                aws.String(s.table),
		ProjectionExpression:     aws.String("#p"),
		ExpressionAttributeNames: map[string]string{"#p": attrPath},
	}
	if prefix != "" {
		input.FilterExpression = aws.String("begins_with(#p, :prefix)")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: prefix},
		}
	}

	var names []string
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: scan %s: %w", s.table, err)
		}
		for _, item := range page.Items {
			p, ok := item[attrPath].(*types.AttributeValueMemberS)
			if ok && strings.HasPrefix(p.Value, prefix) {
				names = append(names, p.Value)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// tableBlob holds an item payload.
type tableBlob struct {
	data []byte
}

func (b *tableBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *tableBlob) Size() int64 {
	return int64(len(b.data))
}

func (b *tableBlob) Close() error {
	return nil
}

// Bytes exposes the payload without copying.
func (b *tableBlob) Bytes() ([]byte, error) {
	return b.data, nil
}
