package credits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/apierror"
)

const DefaultTable = "SummonerUsers"

// DynamoAPI is the subset of *dynamodb.Client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

type dynamoItem struct {
	UserID  string `dynamodbav:"userId"`
	Email   string `dynamodbav:"email,omitempty"`
	Credits int64  `dynamodbav:"credits"`
}

// DynamoStore keeps balances in a DynamoDB table keyed by userId. Guards are
// expressed as ConditionExpressions so check and write are one request.
type DynamoStore struct {
	api   DynamoAPI
	table string
}

func NewDynamoStore(api DynamoAPI, table string) *DynamoStore {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	return &DynamoStore{api: api, table: table}
}

func (s *DynamoStore) key(subject string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: subject},
	}
}

func (s *DynamoStore) Get(ctx context.Context, subject string) (Account, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(subject),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Account{}, apierror.Upstream(apierror.Store, err)
	}
	if len(out.Item) == 0 {
		return Account{}, ErrAccountNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return Account{}, apierror.Upstream(apierror.Store, fmt.Errorf("decode account %s: %w", subject, err))
	}
	return Account{Subject: item.UserID, Email: item.Email, Credits: item.Credits}, nil
}

func (s *DynamoStore) Create(ctx context.Context, account Account) error {
	if strings.TrimSpace(account.Subject) == "" {
		return ErrInvalidSubject
	}
	item, err := attributevalue.MarshalMap(dynamoItem{
		UserID:  account.Subject,
		Email:   account.Email,
		Credits: account.Credits,
	})
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(userId)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrAccountExists
		}
		return apierror.Upstream(apierror.Store, err)
	}
	return nil
}

func (s *DynamoStore) Decrement(ctx context.Context, subject string, amount int64) error {
	if err := checkArgs(subject, amount); err != nil {
		return err
	}
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 s.key(subject),
		UpdateExpression:    aws.String("SET credits = credits - :amt"),
		ConditionExpression: aws.String("attribute_exists(userId)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amt": numberValue(amount),
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrAccountNotFound
		}
		return apierror.Upstream(apierror.Store, err)
	}
	return nil
}

func (s *DynamoStore) DecrementIfSufficient(ctx context.Context, subject string, amount int64) (int64, error) {
	if err := checkArgs(subject, amount); err != nil {
		return 0, err
	}
	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 s.key(subject),
		UpdateExpression:    aws.String("SET credits = credits - :amt"),
		ConditionExpression: aws.String("attribute_exists(userId) AND credits >= :amt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amt": numberValue(amount),
		},
		ReturnValues:                        types.ReturnValueUpdatedNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return 0, ErrAccountNotFound
			}
			balance, _ := creditsAttr(ccf.Item)
			return balance, ErrInsufficientBalance
		}
		return 0, apierror.Upstream(apierror.Store, err)
	}
	return creditsAttr(out.Attributes)
}

func (s *DynamoStore) IncrementIfExists(ctx context.Context, subject string, amount int64, fulfillmentID string) (int64, error) {
	if err := checkArgs(subject, amount); err != nil {
		return 0, err
	}
	update := "SET credits = credits + :amt"
	condition := "attribute_exists(userId)"
	values := map[string]types.AttributeValue{
		":amt": numberValue(amount),
	}
	if fulfillmentID != "" {
		update += " ADD fulfilledSessions :fids"
		condition += " AND NOT contains(fulfilledSessions, :fid)"
		values[":fid"] = &types.AttributeValueMemberS{Value: fulfillmentID}
		values[":fids"] = &types.AttributeValueMemberSS{Value: []string{fulfillmentID}}
	}

	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(s.table),
		Key:                                 s.key(subject),
		UpdateExpression:                    aws.String(update),
		ConditionExpression:                 aws.String(condition),
		ExpressionAttributeValues:           values,
		ReturnValues:                        types.ReturnValueUpdatedNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return 0, ErrAccountNotFound
			}
			balance, _ := creditsAttr(ccf.Item)
			return balance, ErrAlreadyFulfilled
		}
		return 0, apierror.Upstream(apierror.Store, err)
	}
	return creditsAttr(out.Attributes)
}

func numberValue(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func creditsAttr(attrs map[string]types.AttributeValue) (int64, error) {
	n, ok := attrs["credits"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, apierror.Upstream(apierror.Store, errors.New("credits attribute missing from response"))
	}
	v, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, apierror.Upstream(apierror.Store, fmt.Errorf("credits attribute: %w", err))
	}
	return v, nil
}
