// Package app wires configured backends for the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/example/storefront-sync/internal/auth"
	"github.com/example/storefront-sync/internal/checkout"
	"github.com/example/storefront-sync/internal/config"
	"github.com/example/storefront-sync/internal/domain/user"
	"github.com/example/storefront-sync/internal/email"
	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/infrastructure/kafka"
	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/logger"
	"github.com/example/storefront-sync/internal/notification"
)

// OpenStore connects the document backend named by cfg.DocumentBackend. The
// returned function releases the connection.
func OpenStore(ctx context.Context, cfg *config.Config) (store.DocumentStore, func(), error) {
	log := logger.Component("App").WithField("backend", cfg.DocumentBackend)

	switch cfg.DocumentBackend {
	case config.BackendMemory, "":
		log.Warn("using in-memory documents; data is lost on exit")
		return store.NewMemoryStore(), func() {}, nil

	case config.BackendPostgres:
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewPostgresStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		go func() {
			if err := store.ListenPostgres(ctx, cfg.DatabaseURL, s.Feed()); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("postgres listener stopped")
			}
		}()
		log.Info("connected to PostgreSQL")
		return s, func() { db.Close() }, nil

	case config.BackendSQLite:
		s, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("path", cfg.SQLitePath).Info("opened SQLite")
		return s, func() { s.Close() }, nil

	case config.BackendMongo:
		client, err := store.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to MongoDB")
		return store.NewMongoStore(client.Database(cfg.MongoDatabase)), func() {
			client.Disconnect(context.Background())
		}, nil

	case config.BackendDynamo:
		client, err := store.NewDynamoClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("table", cfg.DynamoTable).Info("using DynamoDB")
		return store.NewDynamoStore(client, cfg.DynamoTable), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown document backend %q", cfg.DocumentBackend)
}

// RelayChanges shares document changes with other processes over Kafka
// until ctx is done. It is a no-op without brokers.
func RelayChanges(ctx context.Context, cfg *config.Config, feed *store.Feed, group string) func() {
	if !cfg.KafkaEnabled() {
		return func() {}
	}
	log := logger.Component("App")

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaChangesTopic)
	relay := kafka.NewChangeRelay(feed, producer)
	relay.Start()

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaChangesTopic, group, kafka.FromLatest())
	go func() {
		if err := consumer.Consume(ctx, relay.Handle); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("change relay consumer stopped")
		}
	}()
	log.WithField("topic", cfg.KafkaChangesTopic).Info("relaying document changes")

	return func() {
		consumer.Close()
		producer.Close()
	}
}

// EmailService builds the SMTP sender.
func EmailService(cfg *config.Config) *email.Service {
	dialer := email.NewSMTPDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return email.NewService(dialer, cfg.SMTPFrom, cfg.AdminEmail)
}

// Notifier picks how checkout requests confirmation emails.
func Notifier(cfg *config.Config) (checkout.Notifier, func(), error) {
	switch cfg.NotifyMode {
	case config.NotifyDirect, "":
		return notification.NewHandler(EmailService(cfg)), func() {}, nil
	case config.NotifyHTTP:
		return notification.NewHTTPNotifier(cfg.EmailEndpoint, nil), func() {}, nil
	case config.NotifyKafka:
		if !cfg.KafkaEnabled() {
			return nil, nil, fmt.Errorf("NOTIFY_MODE=kafka requires KAFKA_BROKERS")
		}
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaOrdersTopic)
		return notification.NewKafkaPublisher(producer), func() { producer.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown notify mode %q", cfg.NotifyMode)
}

// Identities builds the sign-in service. Google sign-in is enabled only when
// a Firebase project is configured.
func Identities(ctx context.Context, cfg *config.Config, s store.DocumentStore, users *user.Service) (*identity.Service, error) {
	var federated identity.FederatedProvider
	if cfg.FirebaseProjectID != "" {
		client, err := auth.NewFirebaseAuthClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, err
		}
		federated = auth.NewFirebaseVerifier(client)
		logger.Component("App").WithField("project", cfg.FirebaseProjectID).Info("federated sign-in enabled")
	}
	return identity.NewService(auth.NewPasswordProvider(s), federated, users), nil
}
