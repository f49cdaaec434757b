package main

import (
	"context"
	"fmt"
	"os"

	"github.com/example/storefront-sync/internal/app"
	"github.com/example/storefront-sync/internal/auth"
	"github.com/example/storefront-sync/internal/cli"
	"github.com/example/storefront-sync/internal/config"
	"github.com/example/storefront-sync/internal/imageupload"
	"github.com/example/storefront-sync/internal/logger"
)

func main() {
	opts := &cli.RootOptions{Connect: connect}
	if err := cli.NewRootCommand(opts).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func connect(ctx context.Context) (*cli.Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logger()); err != nil {
		return nil, err
	}

	docs, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	notifier, closeNotifier, err := app.Notifier(cfg)
	if err != nil {
		closeStore()
		return nil, err
	}

	deps := &cli.Deps{
		Store:    docs,
		Notifier: notifier,
		Admins:   auth.NewAllowList(cfg.AdminEmails),
		Close: func() {
			closeNotifier()
			closeStore()
		},
	}
	if cfg.ImgBBAPIKey != "" {
		deps.Uploader = imageupload.NewClient(cfg.ImgBBEndpoint, cfg.ImgBBAPIKey, nil)
	}
	return deps, nil
}
