package dynamo

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// maxBatchWriteItems is the DynamoDB BatchWriteItem request ceiling.
	maxBatchWriteItems = 25

	// maxBatchRetries bounds re-submission of unprocessed delete requests.
	// Anything still unprocessed after that is left for the next sweep.
	maxBatchRetries = 3
)

// scanDeleter is the slice of the DynamoDB client deleteExpired needs.
type scanDeleter interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// deleteExpired scans the table for items whose expires_at is before now and
// deletes them in batches. keyAttrs names the table's key attributes (PK, or
// PK and SK) so the scan only projects what the deletes need. Returns the
// number of items actually deleted.
func deleteExpired(ctx context.Context, client scanDeleter, tableName string, keyAttrs []string, now int64) (int, error) {
	proj := "#k0"
	names := map[string]string{"#k0": keyAttrs[0]}
	if len(keyAttrs) > 1 {
		proj += ", #k1"
		names["#k1"] = keyAttrs[1]
	}

	deleted := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                aws.String(tableName),
			FilterExpression:         aws.String("expires_at < :now"),
			ProjectionExpression:     aws.String(proj),
			ExpressionAttributeNames: names,
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return deleted, err
		}

		for batch := out.Items; len(batch) > 0; {
			n := len(batch)
			if n > maxBatchWriteItems {
				n = maxBatchWriteItems
			}
			reqs := make([]types.WriteRequest, 0, n)
			for _, item := range batch[:n] {
				reqs = append(reqs, types.WriteRequest{
					DeleteRequest: &types.DeleteRequest{Key: item},
				})
			}
			done, err := batchDelete(ctx, client, tableName, reqs)
			deleted += done
			if err != nil {
				return deleted, err
			}
			batch = batch[n:]
		}

		if out.LastEvaluatedKey == nil {
			return deleted, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// batchDelete submits the delete requests, re-submitting any the service
// reports as unprocessed. Returns how many were actually accepted.
func batchDelete(ctx context.Context, client scanDeleter, tableName string, reqs []types.WriteRequest) (int, error) {
	done := 0
	for attempt := 0; len(reqs) > 0; attempt++ {
		out, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{tableName: reqs},
		})
		if err != nil {
			return done, err
		}
		unprocessed := out.UnprocessedItems[tableName]
		done += len(reqs) - len(unprocessed)
		if attempt >= maxBatchRetries {
			return done, nil
		}
		reqs = unprocessed
	}
	return done, nil
}
