package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/logger"
)

type fakeHandler struct {
	seen []string
	err  error
}

func (f *fakeHandler) HandleSnapshot(snap *store.Snapshot) error {
	f.seen = append(f.seen, snap.Collection+"/"+snap.ID)
	return f.err
}

func kinesisRecord(t *testing.T, seq, eventName, id string) events.KinesisEventRecord {
	t.Helper()
	data, err := json.Marshal(events.DynamoDBEventRecord{
		EventName: eventName,
		Change: events.DynamoDBStreamRecord{
			NewImage: map[string]events.DynamoDBAttributeValue{
				"_collection": events.NewStringAttribute("orders"),
				"_id":         events.NewStringAttribute(id),
				"email":       events.NewStringAttribute("a@x.com"),
			},
		},
	})
	require.NoError(t, err)
	return events.KinesisEventRecord{
		EventID: seq,
		Kinesis: events.KinesisRecord{Data: data, SequenceNumber: seq},
	}
}

func TestProcessor_HandlesInsertsOnly(t *testing.T) {
	h := &fakeHandler{}
	p := &processor{handler: h, log: logger.Component("Test")}

	resp, err := p.handle(context.Background(), events.KinesisEvent{Records: []events.KinesisEventRecord{
		kinesisRecord(t, "1", "INSERT", "order-1"),
		kinesisRecord(t, "2", "MODIFY", "order-2"),
		{EventID: "3", Kinesis: events.KinesisRecord{Data: []byte("not json"), SequenceNumber: "3"}},
	}})

	require.NoError(t, err)
	assert.Equal(t, []string{"orders/order-1"}, h.seen)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "3", resp.BatchItemFailures[0].ItemIdentifier)
}

func TestProcessor_ReportsHandlerFailures(t *testing.T) {
	h := &fakeHandler{err: errors.New("smtp down")}
	p := &processor{handler: h, log: logger.Component("Test")}

	resp, err := p.handle(context.Background(), events.KinesisEvent{Records: []events.KinesisEventRecord{
		kinesisRecord(t, "7", "INSERT", "order-7"),
	}})

	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "7", resp.BatchItemFailures[0].ItemIdentifier)
}
