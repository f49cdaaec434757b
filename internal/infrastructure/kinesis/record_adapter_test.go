package kinesis

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderImage(id string) map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"_collection":  events.NewStringAttribute("orders"),
		"_id":          events.NewStringAttribute(id),
		"email":        events.NewStringAttribute("a@x.com"),
		"checkoutType": events.NewStringAttribute("cod"),
		"total":        events.NewNumberAttribute("218.80976"),
		"items": events.NewListAttribute([]events.DynamoDBAttributeValue{
			events.NewMapAttribute(map[string]events.DynamoDBAttributeValue{
				"quantity": events.NewNumberAttribute("2"),
				"title":    events.NewStringAttribute("Lamp"),
			}),
		}),
		"shipping": events.NewNullAttribute(),
		"gift":     events.NewBooleanAttribute(false),
	}
}

func TestConvertDynamoDBImage(t *testing.T) {
	tests := []struct {
		name    string
		image   map[string]events.DynamoDBAttributeValue
		wantErr bool
	}{
		{
			name:    "valid document",
			image:   orderImage("order-1"),
			wantErr: false,
		},
		{
			name:    "nil image",
			image:   nil,
			wantErr: true,
		},
		{
			name: "missing keys",
			image: map[string]events.DynamoDBAttributeValue{
				"email": events.NewStringAttribute("a@x.com"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := convertDynamoDBImage(tt.image)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, snap)
			assert.Equal(t, "orders", snap.Collection)
			assert.Equal(t, "order-1", snap.ID)
			assert.True(t, snap.Exists)
			assert.JSONEq(t, `{
				"email": "a@x.com",
				"checkoutType": "cod",
				"total": 218.80976,
				"items": [{"quantity": 2, "title": "Lamp"}],
				"shipping": null,
				"gift": false
			}`, string(snap.Data))
		})
	}
}

func TestConvertFromDynamoDBStreamRecord(t *testing.T) {
	t.Run("INSERT converts successfully", func(t *testing.T) {
		record := events.DynamoDBEventRecord{
			EventName: "INSERT",
			Change:    events.DynamoDBStreamRecord{NewImage: orderImage("order-1")},
		}

		snap, err := ConvertFromDynamoDBStreamRecord(record)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, "order-1", snap.ID)
	})

	t.Run("MODIFY returns nil", func(t *testing.T) {
		snap, err := ConvertFromDynamoDBStreamRecord(events.DynamoDBEventRecord{EventName: "MODIFY"})
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("REMOVE returns nil", func(t *testing.T) {
		snap, err := ConvertFromDynamoDBStreamRecord(events.DynamoDBEventRecord{EventName: "REMOVE"})
		require.NoError(t, err)
		assert.Nil(t, snap)
	})
}

func TestConvertFromKinesisRecord(t *testing.T) {
	dynamoRecord := events.DynamoDBEventRecord{
		EventName: "INSERT",
		Change:    events.DynamoDBStreamRecord{NewImage: orderImage("order-7")},
	}
	data, err := json.Marshal(dynamoRecord)
	require.NoError(t, err)

	snap, err := ConvertFromKinesisRecord(events.KinesisEventRecord{
		EventID: "kinesis-event-1",
		Kinesis: events.KinesisRecord{Data: data},
	})

	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "order-7", snap.ID)

	var doc struct {
		Email string `json:"email"`
	}
	require.NoError(t, snap.DataTo(&doc))
	assert.Equal(t, "a@x.com", doc.Email)
}

func TestBatchConvertFromKinesisEvent(t *testing.T) {
	validJSON, _ := json.Marshal(events.DynamoDBEventRecord{
		EventName: "INSERT",
		Change:    events.DynamoDBStreamRecord{NewImage: orderImage("order-1")},
	})
	modifyJSON, _ := json.Marshal(events.DynamoDBEventRecord{EventName: "MODIFY"})

	kinesisEvent := events.KinesisEvent{
		Records: []events.KinesisEventRecord{
			{EventID: "1", Kinesis: events.KinesisRecord{Data: validJSON}},
			{EventID: "2", Kinesis: events.KinesisRecord{Data: modifyJSON}},
			{EventID: "3", Kinesis: events.KinesisRecord{Data: []byte("invalid json")}},
		},
	}

	snaps, errs := BatchConvertFromKinesisEvent(kinesisEvent)

	assert.Len(t, snaps, 1)
	assert.Len(t, errs, 1)
	assert.Equal(t, "order-1", snaps[0].ID)
}
