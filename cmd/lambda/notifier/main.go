package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"github.com/example/storefront-sync/internal/app"
	"github.com/example/storefront-sync/internal/config"
	"github.com/example/storefront-sync/internal/infrastructure/kinesis"
	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/logger"
	"github.com/example/storefront-sync/internal/notification"
)

type snapshotHandler interface {
	HandleSnapshot(snap *store.Snapshot) error
}

// processor sends confirmations for orders inserted into the documents
// table. Failed records are reported back so Lambda retries only those.
type processor struct {
	handler snapshotHandler
	log     *logrus.Entry
}

func (p *processor) handle(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	p.log.Infof("received %d records", len(kinesisEvent.Records))

	var batchItemFailures []events.KinesisBatchItemFailure
	fail := func(record events.KinesisEventRecord) {
		batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
			ItemIdentifier: record.Kinesis.SequenceNumber,
		})
	}

	for _, record := range kinesisEvent.Records {
		snap, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			p.log.WithError(err).WithField("event_id", record.EventID).Warn("failed to convert record")
			fail(record)
			continue
		}

		// Skip non-INSERT records
		if snap == nil {
			continue
		}

		if err := p.handler.HandleSnapshot(snap); err != nil {
			p.log.WithError(err).WithField("path", snap.Collection+"/"+snap.ID).Warn("failed to process record")
			fail(record)
		}
	}

	successCount := len(kinesisEvent.Records) - len(batchItemFailures)
	p.log.Infof("processed %d/%d records successfully", successCount, len(kinesisEvent.Records))

	return events.KinesisEventResponse{BatchItemFailures: batchItemFailures}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("[Lambda Notifier] %v", err)
	}
	if err := logger.Init(cfg.Logger()); err != nil {
		logrus.Fatalf("[Lambda Notifier] failed to initialize logger: %v", err)
	}
	log := logger.Component("LambdaNotifier")

	p := &processor{
		handler: notification.NewHandler(app.EmailService(cfg)),
		log:     log,
	}
	log.WithField("smtp", cfg.SMTPHost).Info("initialized")

	lambda.Start(p.handle)
}
