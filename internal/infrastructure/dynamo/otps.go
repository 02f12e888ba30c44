package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/citizen-services/auth-api/internal/domain"
)

// OTPRepo provides typed DynamoDB operations for the otps table.
// PK: mobile_number, SK: otp_id (ULID). ULIDs sort by creation time, so a
// descending query yields the most recently issued code first.
type OTPRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOTPRepo(client *dynamodb.Client, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

func (r *OTPRepo) Put(ctx context.Context, o *domain.OTP) error {
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// LatestValid returns the most recently created row matching mobile, code and
// role that is unused and unexpired, or ErrNotFound.
func (r *OTPRepo) LatestValid(ctx context.Context, mobile, code string, role domain.Role, now int64) (*domain.OTP, error) {
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                aws.String(r.tableName),
			KeyConditionExpression:   aws.String("mobile_number = :m"),
			FilterExpression:         aws.String("otp_code = :c AND #r = :r AND is_used = :f AND expires_at > :now"),
			ExpressionAttributeNames: map[string]string{"#r": "role"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":m":   &types.AttributeValueMemberS{Value: mobile},
				":c":   &types.AttributeValueMemberS{Value: code},
				":r":   &types.AttributeValueMemberS{Value: string(role)},
				":f":   &types.AttributeValueMemberBOOL{Value: false},
				":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
			},
			ScanIndexForward:  aws.Bool(false), // newest first
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		if len(out.Items) > 0 {
			var o domain.OTP
			if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
				return nil, err
			}
			return &o, nil
		}
		if out.LastEvaluatedKey == nil {
			return nil, fmt.Errorf("otp for %s: %w", mobile, domain.ErrNotFound)
		}
		startKey = out.LastEvaluatedKey
	}
}

// MarkUsed flips is_used on one row as a single conditional write; see
// CaptchaRepo.MarkUsed for the concurrency rationale. Returns false when
// the row was already consumed or has expired.
func (r *OTPRepo) MarkUsed(ctx context.Context, mobile, otpID string, now int64) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("mobile_number", mobile, "otp_id", otpID),
		UpdateExpression:    aws.String("SET is_used = :t"),
		ConditionExpression: aws.String("attribute_exists(otp_id) AND is_used = :f AND expires_at > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":   &types.AttributeValueMemberBOOL{Value: true},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CountRecent counts rows issued for mobile+role since the given Unix time.
// Backs the issuance rate limit; the query stays live even while enforcement
// is disabled so the cap can be turned on without a schema change.
func (r *OTPRepo) CountRecent(ctx context.Context, mobile string, role domain.Role, since int64) (int64, error) {
	var total int64
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                aws.String(r.tableName),
			KeyConditionExpression:   aws.String("mobile_number = :m"),
			FilterExpression:         aws.String("#r = :r AND created_at > :since"),
			ExpressionAttributeNames: map[string]string{"#r": "role"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":m":     &types.AttributeValueMemberS{Value: mobile},
				":r":     &types.AttributeValueMemberS{Value: string(role)},
				":since": &types.AttributeValueMemberN{Value: strconv.FormatInt(since, 10)},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, err
		}
		total += int64(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// DeleteExpired removes all otps past their expiry. Returns the number of
// rows deleted.
func (r *OTPRepo) DeleteExpired(ctx context.Context, now int64) (int, error) {
	return deleteExpired(ctx, r.client, r.tableName, []string{"mobile_number", "otp_id"}, now)
}
