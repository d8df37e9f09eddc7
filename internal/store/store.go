// Package store persists workspace records in DynamoDB.
//
// The table is keyed by workspace id, with the name-username-index and
// username-index global secondary indexes providing the per-owner lookup
// paths. Put is an unconditional upsert: concurrent writers race and the
// last write wins.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/model"
)

// Index and table names.
const (
	DefaultTableName  = "workspaces"
	nameUsernameIndex = "name-username-index"
	usernameIndex     = "username-index"
)

// Page is one page of a per-owner listing. NextToken is empty when no more
// items remain.
type Page struct {
	Items     []model.Workspace
	NextToken string
}

// Store is the keyed persistence contract for workspace records.
type Store interface {
	// GetByID returns the record with the given id, or NotFound.
	GetByID(ctx context.Context, id string) (*model.Workspace, error)
	// GetByNameAndOwner returns the owner's record with the given name, or
	// NotFound.
	GetByNameAndOwner(ctx context.Context, name, username string) (*model.Workspace, error)
	// ListByOwner returns at most pageSize of the owner's records, resuming
	// from cursor when non-empty.
	ListByOwner(ctx context.Context, username string, pageSize int32, cursor string, ascending bool) (*Page, error)
	// Put unconditionally upserts the record.
	Put(ctx context.Context, ws *model.Workspace) error
	// Delete removes the record.
	Delete(ctx context.Context, ws *model.Workspace) error
}

// dynamoAPI is the subset of the DynamoDB client the store uses.
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore is the DynamoDB-backed Store.
type DynamoStore struct {
	client dynamoAPI
	table  string
}

var _ Store = (*DynamoStore)(nil)

// NewDynamoStore returns a store over the given client and table.
func NewDynamoStore(client *dynamodb.Client, table string) *DynamoStore {
	if table == "" {
		table = DefaultTableName
	}
	return &DynamoStore{client: client, table: table}
}

// GetByID looks the record up by its table key.
func (s *DynamoStore) GetByID(ctx context.Context, id string) (*model.Workspace, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		if isTableMissing(err) {
			return nil, apperrors.NotFound("Workspace not found")
		}
		return nil, fmt.Errorf("failed to get workspace %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, apperrors.NotFound("Workspace not found")
	}

	var ws model.Workspace
	if err := attributevalue.UnmarshalMap(out.Item, &ws); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workspace %s: %w", id, err)
	}
	return &ws, nil
}

// GetByNameAndOwner queries the name-username-index for the exact pair.
func (s *DynamoStore) GetByNameAndOwner(ctx context.Context, name, username string) (*model.Workspace, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(nameUsernameIndex),
		KeyConditionExpression: aws.String("#n = :name AND #u = :username"),
		ExpressionAttributeNames: map[string]string{
			"#n": "name",
			"#u": "username",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":     &types.AttributeValueMemberS{Value: name},
			":username": &types.AttributeValueMemberS{Value: username},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		if isTableMissing(err) {
			return nil, apperrors.NotFound("Workspace not found")
		}
		return nil, fmt.Errorf("failed to query workspace %s for user %s: %w", name, username, err)
	}
	if len(out.Items) == 0 {
		return nil, apperrors.NotFound("Workspace not found")
	}

	var ws model.Workspace
	if err := attributevalue.UnmarshalMap(out.Items[0], &ws); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workspace %s: %w", name, err)
	}
	return &ws, nil
}

// ListByOwner pages through the username-index. The cursor is decoded before
// the query runs; a malformed cursor aborts the call.
func (s *DynamoStore) ListByOwner(ctx context.Context, username string, pageSize int32, cursor string, ascending bool) (*Page, error) {
	startKey, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(usernameIndex),
		KeyConditionExpression: aws.String("#u = :username"),
		ExpressionAttributeNames: map[string]string{
			"#u": "username",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":username": &types.AttributeValueMemberS{Value: username},
		},
		Limit:             aws.Int32(pageSize),
		ExclusiveStartKey: startKey,
		ScanIndexForward:  aws.Bool(ascending),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces for user %s: %w", username, err)
	}

	var items []model.Workspace
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workspaces for user %s: %w", username, err)
	}

	nextToken, err := EncodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, err
	}

	return &Page{Items: items, NextToken: nextToken}, nil
}

// Put unconditionally upserts the record. There is no optimistic-lock
// condition: concurrent updates to the same record race by design.
func (s *DynamoStore) Put(ctx context.Context, ws *model.Workspace) error {
	item, err := attributevalue.MarshalMap(ws)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", ws, err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to put %s: %w", ws, err)
	}
	return nil
}

// Delete removes the record by id.
func (s *DynamoStore) Delete(ctx context.Context, ws *model.Workspace) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: ws.ID},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", ws, err)
	}
	return nil
}

// isTableMissing reports whether the error is DynamoDB's resource-not-found,
// which the store surfaces the same way as an absent record.
func isTableMissing(err error) bool {
	var rnf *types.ResourceNotFoundException
	return errors.As(err, &rnf)
}
