package dynamo

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanDeleter struct {
	scanOut *dynamodb.ScanOutput

	writeCalls int
	// unprocessedPerCall[i] is returned as unprocessed on call i; calls
	// beyond the slice report everything processed.
	unprocessedPerCall [][]types.WriteRequest
}

func (f *fakeScanDeleter) Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return f.scanOut, nil
}

func (f *fakeScanDeleter) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	call := f.writeCalls
	f.writeCalls++
	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	if call < len(f.unprocessedPerCall) && len(f.unprocessedPerCall[call]) > 0 {
		out.UnprocessedItems["captchas"] = f.unprocessedPerCall[call]
	}
	return out, nil
}

func expiredItems(n int) []map[string]types.AttributeValue {
	items := make([]map[string]types.AttributeValue, n)
	for i := range items {
		items[i] = map[string]types.AttributeValue{
			"captcha_id": &types.AttributeValueMemberS{Value: string(rune('a' + i))},
		}
	}
	return items
}

func asDeleteReqs(items []map[string]types.AttributeValue) []types.WriteRequest {
	reqs := make([]types.WriteRequest, 0, len(items))
	for _, item := range items {
		reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: item}})
	}
	return reqs
}

func TestDeleteExpired_RetriesUnprocessedItems(t *testing.T) {
	items := expiredItems(3)
	fake := &fakeScanDeleter{
		scanOut: &dynamodb.ScanOutput{Items: items},
		// first write leaves one behind, second clears it
		unprocessedPerCall: [][]types.WriteRequest{asDeleteReqs(items[2:])},
	}

	n, err := deleteExpired(context.Background(), fake, "captchas", []string{"captcha_id"}, 1000)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, fake.writeCalls)
}

func TestDeleteExpired_StuckItemsExcludedFromCount(t *testing.T) {
	items := expiredItems(2)
	stuck := asDeleteReqs(items[1:])
	fake := &fakeScanDeleter{
		scanOut: &dynamodb.ScanOutput{Items: items},
		// one item never goes through; the next sweep will pick it up
		unprocessedPerCall: [][]types.WriteRequest{stuck, stuck, stuck, stuck, stuck},
	}

	n, err := deleteExpired(context.Background(), fake, "captchas", []string{"captcha_id"}, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, maxBatchRetries+1, fake.writeCalls)
}

func TestDeleteExpired_NothingExpired(t *testing.T) {
	fake := &fakeScanDeleter{scanOut: &dynamodb.ScanOutput{}}

	n, err := deleteExpired(context.Background(), fake, "captchas", []string{"captcha_id"}, 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, fake.writeCalls)
}
