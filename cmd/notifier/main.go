package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/example/storefront-sync/internal/app"
	"github.com/example/storefront-sync/internal/config"
	"github.com/example/storefront-sync/internal/infrastructure/kafka"
	"github.com/example/storefront-sync/internal/logger"
	"github.com/example/storefront-sync/internal/notification"
)

// Dedicated consumer group for confirmation emails
const consumerGroup = "storefront-email-notifier"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("[Notifier] %v", err)
	}
	if err := logger.Init(cfg.Logger()); err != nil {
		logrus.Fatalf("[Notifier] failed to initialize logger: %v", err)
	}
	log := logger.Component("Notifier")
	if !cfg.KafkaEnabled() {
		log.Fatal("KAFKA_BROKERS is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("========================================")
	log.Info("Storefront - Email Notification Service")
	log.Info("========================================")
	log.WithFields(logrus.Fields{
		"kafka": cfg.KafkaBrokers,
		"topic": cfg.KafkaOrdersTopic,
		"group": consumerGroup,
		"smtp":  cfg.SMTPHost,
		"from":  cfg.SMTPFrom,
	}).Info("configuration loaded")

	handler := notification.NewHandler(app.EmailService(cfg))

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaOrdersTopic, consumerGroup)
	defer consumer.Close()

	go func() {
		log.Info("starting order consumer...")
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("consumer error")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down...")
	cancel()
}
