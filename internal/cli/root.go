// Package cli implements the storefront command-line tool.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/storefront-sync/internal/auth"
	"github.com/example/storefront-sync/internal/checkout"
	"github.com/example/storefront-sync/internal/command"
	"github.com/example/storefront-sync/internal/domain/category"
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/domain/user"
	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/infrastructure/store"
	"github.com/example/storefront-sync/internal/query"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

var (
	ErrNotAdmin           = errors.New("account is not an admin")
	ErrMissingCredentials = errors.New("--email and --password are required")
)

// Deps are the backends a command runs against.
type Deps struct {
	Store    store.DocumentStore
	Uploader command.Uploader
	Notifier checkout.Notifier
	Admins   *auth.AllowList
	// Close releases the backends; may be nil.
	Close    func()
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format   string // "json" | "text"
	Email    string
	Password string

	// Connect opens the backends for one command run.
	Connect func(ctx context.Context) (*Deps, error)
}

// NewRootCommand creates the root command for the storefront CLI.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront catalog, cart and order tool",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Email, "email", "", "account email for session commands")
	cmd.PersistentFlags().StringVar(&opts.Password, "password", "", "account password for session commands")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewProductsCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewFavoritesCommand(opts))
	cmd.AddCommand(NewCheckoutCommand(opts))
	cmd.AddCommand(NewOrdersCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// env is an opened command environment.
type env struct {
	deps       *Deps
	products   *product.Service
	categories *category.Service
	users      *user.Service
	commands   *command.Handler
	queries    *query.Handler
	checkout   *checkout.Service
	identities *identity.Service
}

// open connects the backends; the returned function releases them.
func (o *RootOptions) open(ctx context.Context) (*env, func(), error) {
	if o.Connect == nil {
		return nil, nil, errors.New("no backend configured")
	}
	deps, err := o.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if deps.Close != nil {
			deps.Close()
		}
	}

	e := &env{
		deps:       deps,
		products:   product.NewService(deps.Store),
		categories: category.NewService(deps.Store),
		users:      user.NewService(deps.Store),
		checkout:   checkout.NewService(deps.Store, deps.Notifier),
	}
	e.commands = command.NewHandler(e.products, e.categories, deps.Uploader)
	e.queries = query.NewHandler(e.products, e.categories, order.NewService(deps.Store), e.users)
	e.identities = identity.NewService(auth.NewPasswordProvider(deps.Store), nil, e.users)
	return e, closeFn, nil
}

// signIn checks the global credentials without opening a session.
func (o *RootOptions) signIn(ctx context.Context, e *env) (*identity.Identity, error) {
	if o.Email == "" || o.Password == "" {
		return nil, ErrMissingCredentials
	}
	return e.identities.SignInWithPassword(ctx, o.Email, o.Password)
}
