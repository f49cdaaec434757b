package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/storefront-sync/internal/api"
	"github.com/example/storefront-sync/internal/app"
	"github.com/example/storefront-sync/internal/auth"
	"github.com/example/storefront-sync/internal/checkout"
	"github.com/example/storefront-sync/internal/command"
	"github.com/example/storefront-sync/internal/config"
	"github.com/example/storefront-sync/internal/domain/category"
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/domain/user"
	"github.com/example/storefront-sync/internal/imageupload"
	"github.com/example/storefront-sync/internal/logger"
	"github.com/example/storefront-sync/internal/query"
	"github.com/example/storefront-sync/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("[API] %v", err)
	}
	if err := logger.Init(cfg.Logger()); err != nil {
		logrus.Fatalf("[API] failed to initialize logger: %v", err)
	}
	log := logger.Component("API")
	if err := cfg.RequireJWTSecret(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("========================================")
	log.Info("Storefront API")
	log.Info("========================================")
	log.WithFields(logrus.Fields{
		"backend": cfg.DocumentBackend,
		"notify":  cfg.NotifyMode,
		"kafka":   cfg.KafkaBrokers,
	}).Info("configuration loaded")

	docs, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open document store")
	}
	defer closeStore()

	stopRelay := app.RelayChanges(ctx, cfg, docs.Feed(), "storefront-api-"+docs.Feed().Origin())
	defer stopRelay()

	notifier, closeNotifier, err := app.Notifier(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to configure notifier")
	}
	defer closeNotifier()

	// Domain services
	users := user.NewService(docs)
	productSvc := product.NewService(docs)
	categorySvc := category.NewService(docs)
	orderSvc := order.NewService(docs)

	identities, err := app.Identities(ctx, cfg, docs, users)
	if err != nil {
		log.WithError(err).Fatal("failed to configure sign-in")
	}

	jwtService := auth.NewJWTService(
		cfg.JWTSecret,
		15*time.Minute, // Access token expiry
		7*24*time.Hour, // Refresh token expiry (7 days)
	)
	admins := auth.NewAllowList(cfg.AdminEmails)
	sessions := session.NewRegistry(ctx, docs)

	var uploader command.Uploader
	if cfg.ImgBBAPIKey != "" {
		uploader = imageupload.NewClient(cfg.ImgBBEndpoint, cfg.ImgBBAPIKey, nil)
	} else {
		log.Warn("IMGBB_API_KEY not set; image uploads are disabled")
	}

	cmdHandler := command.NewHandler(productSvc, categorySvc, uploader)
	queryHandler := query.NewHandler(productSvc, categorySvc, orderSvc, users)
	checkoutSvc := checkout.NewService(docs, notifier)

	router := api.NewRouter(api.Server{
		Handlers:   api.NewHandlers(cmdHandler, queryHandler, checkoutSvc, sessions, admins, cfg.EmailWait),
		Auth:       api.NewAuthHandlers(identities, users, jwtService, sessions, admins),
		Categories: api.NewCategoryHandlers(categorySvc, cmdHandler, queryHandler),
		Admin:      api.NewAdminHandlers(cmdHandler, queryHandler),
		Mail:       api.NewMailHandlers(app.EmailService(cfg)),
		JWT:        jwtService,
		Admins:     admins,
		WebDir:     os.Getenv("WEB_DIR"),
	})

	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("server started on %s", cfg.Address)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown incomplete")
	}

	// Pending cart and favorites pushes finish before the store closes.
	sessions.CloseAll()
	cancel()
}
