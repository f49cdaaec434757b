package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// Key attributes of the documents table. Document fields are stored as
// top-level attributes next to them, so DynamoDB Streams (and the Kinesis
// integration) carry full document images.
const (
	DynamoKeyCollection = "_collection"
	DynamoKeyID         = "_id"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore keeps every document in one table keyed by
// (_collection, _id).
type DynamoStore struct {
	client    DynamoAPI
	tableName string
	feed      *Feed
}

// NewDynamoClient builds a client from the default credential chain.
func NewDynamoClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName, feed: NewFeed()}
}

func (s *DynamoStore) Feed() *Feed {
	return s.feed
}

func (s *DynamoStore) key(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		DynamoKeyCollection: &types.AttributeValueMemberS{Value: collection},
		DynamoKeyID:         &types.AttributeValueMemberS{Value: id},
	}
}

func (s *DynamoStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	if err := checkPath(collection, id); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Collection: collection, ID: id}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(collection, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	if len(out.Item) == 0 {
		return snap, nil
	}
	data, err := itemToJSON(out.Item)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Exists = true
	snap.Data = data
	return snap, nil
}

func (s *DynamoStore) Set(ctx context.Context, collection, id string, data any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	item, err := jsonToItem(data)
	if err != nil {
		return err
	}
	for k, v := range s.key(collection, id) {
		item[k] = v
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	s.feed.Publish(collection, id)
	return nil
}

// Merge issues one UpdateItem with a SET clause per top-level field, which
// also creates the item when it does not exist.
func (s *DynamoStore) Merge(ctx context.Context, collection, id string, data any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	item, err := jsonToItem(data)
	if err != nil {
		return err
	}

	in := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(collection, id),
	}
	if len(item) > 0 {
		names := make(map[string]string, len(item))
		values := make(map[string]types.AttributeValue, len(item))
		keys := make([]string, 0, len(item))
		for k := range item {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		expr := "SET "
		for i, k := range keys {
			n, v := "#f"+strconv.Itoa(i), ":v"+strconv.Itoa(i)
			names[n] = k
			values[v] = item[k]
			if i > 0 {
				expr += ", "
			}
			expr += n + " = " + v
		}
		in.UpdateExpression = aws.String(expr)
		in.ExpressionAttributeNames = names
		in.ExpressionAttributeValues = values
	}

	if _, err := s.client.UpdateItem(ctx, in); err != nil {
		return fmt.Errorf("failed to merge %s/%s: %w", collection, id, err)
	}
	s.feed.Publish(collection, id)
	return nil
}

func (s *DynamoStore) Add(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.New().String()
	item, err := jsonToItem(data)
	if err != nil {
		return "", err
	}
	for k, v := range s.key(collection, id) {
		item[k] = v
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": DynamoKeyID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to add to %s: %w", collection, err)
	}
	s.feed.Publish(collection, id)
	return id, nil
}

func (s *DynamoStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.tableName),
		Key:          s.key(collection, id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if len(out.Attributes) == 0 {
		return ErrNotFound
	}
	s.feed.Publish(collection, id)
	return nil
}

func (s *DynamoStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	return s.Query(ctx, collection, Query{})
}

// Query reads the collection partition with an optional server-side
// filter; ordering on a non-key attribute happens in memory.
func (s *DynamoStore) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("#c = :c"),
		ExpressionAttributeNames: map[string]string{
			"#c": DynamoKeyCollection,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: collection},
		},
	}
	if q.Field != "" {
		in.FilterExpression = aws.String("#f = :v")
		in.ExpressionAttributeNames["#f"] = q.Field
		in.ExpressionAttributeValues[":v"] = &types.AttributeValueMemberS{Value: q.Value}
	}

	var out []Snapshot
	paginator := dynamodb.NewQueryPaginator(s.client, in)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", collection, err)
		}
		for _, item := range page.Items {
			var id string
			if v, ok := item[DynamoKeyID].(*types.AttributeValueMemberS); ok {
				id = v.Value
			}
			data, err := itemToJSON(item)
			if err != nil {
				return nil, err
			}
			out = append(out, Snapshot{Collection: collection, ID: id, Exists: true, Data: data})
		}
	}

	if q.OrderBy == "" {
		return out, nil
	}
	return applyQuery(out, Query{OrderBy: q.OrderBy, Desc: q.Desc})
}

func jsonToItem(data any) (map[string]types.AttributeValue, error) {
	f, err := encodeFields(data)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(f.raw(), &doc); err != nil {
		return nil, err
	}
	delete(doc, DynamoKeyCollection)
	delete(doc, DynamoKeyID)
	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	return item, nil
}

func itemToJSON(item map[string]types.AttributeValue) (json.RawMessage, error) {
	var doc map[string]any
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	delete(doc, DynamoKeyCollection)
	delete(doc, DynamoKeyID)
	return json.Marshal(doc)
}
