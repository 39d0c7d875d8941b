package s3

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgcache/blobstore"
)

// mockDDBClient is an in-memory DynamoDB mock for testing.
type mockDDBClient struct {
	mu       sync.RWMutex
	items    map[string]map[string]types.AttributeValue // path -> item
	pageSize int
	scans    int
	err      error
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{
		items:    make(map[string]map[string]types.AttributeValue),
		pageSize: 2,
	}
}

func itemPath(key map[string]types.AttributeValue) string {
	return key[attrPath].(*types.AttributeValueMemberS).Value
}

func (m *mockDDBClient) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	return &dynamodb.GetItemOutput{Item: m.items[itemPath(params.Key)]}, nil
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.items[itemPath(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, itemPath(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

// Scan returns pageSize items per call in path order, honoring the
// begins_with filter used by TableStore.List.
func (m *mockDDBClient) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++

	prefix := ""
	if v, ok := params.ExpressionAttributeValues[":prefix"]; ok {
		prefix = v.(*types.AttributeValueMemberS).Value
	}
	start := ""
	if params.ExclusiveStartKey != nil {
		start = itemPath(params.ExclusiveStartKey)
	}

	paths := make([]string, 0, len(m.items))
	for p := range m.items {
		if p > start {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	out := &dynamodb.ScanOutput{}
	for i, p := range paths {
		if i == m.pageSize {
			out.LastEvaluatedKey = pathKey(paths[i-1])
			break
		}
		if strings.HasPrefix(p, prefix) {
			out.Items = append(out.Items, pathKey(p))
		}
	}
	return out, nil
}

func TestTableStore_Lifecycle(t *testing.T) {
	client := newMockDDBClient()
	store := NewTableStore(client, "images")
	store.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "/owner/profile_picture.webp", []byte("avatar")))

	item := client.items["/owner/profile_picture.webp"]
	assert.Equal(t, "6", item[attrSize].(*types.AttributeValueMemberN).Value)
	assert.Equal(t, "2024-01-02T03:04:05Z", item[attrUpdatedAt].(*types.AttributeValueMemberS).Value)

	data, err := blobstore.ReadAll(ctx, store, "/owner/profile_picture.webp")
	require.NoError(t, err)
	assert.Equal(t, "avatar", string(data))

	_, err = store.Open(ctx, "/owner/missing.webp")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "/owner/profile_picture.webp"))
	_, err = store.Open(ctx, "/owner/profile_picture.webp")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestTableStore_List(t *testing.T) {
	client := newMockDDBClient()
	store := NewTableStore(client, "images")
	ctx := context.Background()

	for _, p := range []string{"/a/1.webp", "/a/2.webp", "/b/1.webp", "/a/3.webp", "/c/1.webp"} {
		require.NoError(t, store.Put(ctx, p, []byte(p)))
	}

	names, err := store.List(ctx, "/a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/1.webp", "/a/2.webp", "/a/3.webp"}, names)
	assert.Greater(t, client.scans, 1, "paginated")

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, names, 5)
}

func TestTableStore_Errors(t *testing.T) {
	client := newMockDDBClient()
	store := NewTableStore(client, "images")
	ctx := context.Background()

	err := store.Put(ctx, "/big.webp", make([]byte, MaxItemBytes+1))
	assert.ErrorIs(t, err, ErrItemTooLarge)

	client.items["/bad.webp"] = pathKey("/bad.webp")
	_, err = store.Open(ctx, "/bad.webp")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, blobstore.ErrNotFound)

	boom := errors.New("throttled")
	client.err = boom
	_, err = store.Open(ctx, "/x.webp")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, store.Put(ctx, "/x.webp", nil), boom)
}

func TestTableStore_ProjectsPathOnly(t *testing.T) {
	client := &scanRecorder{mockDDBClient: newMockDDBClient()}
	store := NewTableStore(client, "images")

	_, err := store.List(context.Background(), "/a/")
	require.NoError(t, err)
	require.NotNil(t, client.last)
	assert.Equal(t, "#p", aws.ToString(client.last.ProjectionExpression))
	assert.Equal(t, "begins_with(#p, :prefix)", aws.ToString(client.last.FilterExpression))
}

type scanRecorder struct {
	*mockDDBClient
	last *dynamodb.ScanInput
}

func (s *scanRecorder) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	s.last = params
	return s.mockDDBClient.Scan(ctx, params, optFns...)
}
