package kinesis

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/example/storefront-sync/internal/infrastructure/store"
)

// ConvertFromKinesisRecord converts a Kinesis record (DynamoDB Streams format)
// holding a documents-table write into a store.Snapshot.
// Only INSERTs are converted; documents updated in place return nil.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*store.Snapshot, error) {
	var dynamoDBRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &dynamoDBRecord); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}

	return ConvertFromDynamoDBStreamRecord(dynamoDBRecord)
}

// ConvertFromDynamoDBStreamRecord converts a DynamoDB Stream record.
// This is used when directly consuming from DynamoDB Streams.
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*store.Snapshot, error) {
	if record.EventName != "INSERT" {
		return nil, nil
	}

	return convertDynamoDBImage(record.Change.NewImage)
}

// convertDynamoDBImage rebuilds the JSON document stored by store.DynamoStore.
func convertDynamoDBImage(image map[string]events.DynamoDBAttributeValue) (*store.Snapshot, error) {
	if image == nil {
		return nil, fmt.Errorf("DynamoDB image is nil")
	}

	snap := &store.Snapshot{Exists: true}
	doc := make(map[string]any, len(image))
	for name, v := range image {
		switch name {
		case store.DynamoKeyCollection:
			snap.Collection = v.String()
		case store.DynamoKeyID:
			snap.ID = v.String()
		default:
			value, err := attributeValue(v)
			if err != nil {
				return nil, fmt.Errorf("attribute %s: %w", name, err)
			}
			doc[name] = value
		}
	}

	if snap.Collection == "" || snap.ID == "" {
		return nil, fmt.Errorf("missing required keys: %s=%q, %s=%q",
			store.DynamoKeyCollection, snap.Collection, store.DynamoKeyID, snap.ID)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	snap.Data = data
	return snap, nil
}

func attributeValue(v events.DynamoDBAttributeValue) (any, error) {
	switch v.DataType() {
	case events.DataTypeString:
		return v.String(), nil
	case events.DataTypeNumber:
		return json.Number(v.Number()), nil
	case events.DataTypeBoolean:
		return v.Boolean(), nil
	case events.DataTypeNull:
		return nil, nil
	case events.DataTypeBinary:
		return v.Binary(), nil
	case events.DataTypeStringSet:
		return v.StringSet(), nil
	case events.DataTypeNumberSet:
		out := make([]json.Number, 0, len(v.NumberSet()))
		for _, n := range v.NumberSet() {
			out = append(out, json.Number(n))
		}
		return out, nil
	case events.DataTypeBinarySet:
		return v.BinarySet(), nil
	case events.DataTypeList:
		out := make([]any, 0, len(v.List()))
		for _, item := range v.List() {
			value, err := attributeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
		return out, nil
	case events.DataTypeMap:
		out := make(map[string]any, len(v.Map()))
		for k, item := range v.Map() {
			value, err := attributeValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = value
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported attribute type %v", v.DataType())
}

// BatchConvertFromKinesisEvent converts all records from a Kinesis event.
// Returns the converted snapshots and any errors encountered.
func BatchConvertFromKinesisEvent(kinesisEvent events.KinesisEvent) ([]*store.Snapshot, []error) {
	var snaps []*store.Snapshot
	var errors []error

	for _, record := range kinesisEvent.Records {
		snap, err := ConvertFromKinesisRecord(record)
		if err != nil {
			errors = append(errors, fmt.Errorf("record %s: %w", record.EventID, err))
			continue
		}
		if snap != nil {
			snaps = append(snaps, snap)
		}
	}

	return snaps, errors
}
