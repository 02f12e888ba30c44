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

// CaptchaRepo provides typed DynamoDB operations for the captchas table.
// PK: captcha_id.
type CaptchaRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCaptchaRepo(client *dynamodb.Client, tableName string) *CaptchaRepo {
	return &CaptchaRepo{client: client, tableName: tableName}
}

func (r *CaptchaRepo) Put(ctx context.Context, c *domain.Captcha) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal captcha: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *CaptchaRepo) Get(ctx context.Context, captchaID string) (*domain.Captcha, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("captcha_id", captchaID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("captcha %s: %w", captchaID, domain.ErrNotFound)
	}
	var c domain.Captcha
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkUsed flips is_used to true as a single conditional write: the update
// only succeeds if the record is still unused and unexpired, so exactly one
// of two concurrent consumers wins. Returns false (without error) when the
// condition fails.
func (r *CaptchaRepo) MarkUsed(ctx context.Context, captchaID string, now int64) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("captcha_id", captchaID),
		UpdateExpression:    aws.String("SET is_used = :t"),
		ConditionExpression: aws.String("attribute_exists(captcha_id) AND is_used = :f AND expires_at > :now"),
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

// DeleteExpired removes all captchas past their expiry. Returns the number
// of records deleted.
func (r *CaptchaRepo) DeleteExpired(ctx context.Context, now int64) (int, error) {
	return deleteExpired(ctx, r.client, r.tableName, []string{"captcha_id"}, now)
}
