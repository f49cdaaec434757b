package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/storefront-sync/internal/checkout"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/identity"
	"github.com/example/storefront-sync/internal/logger"
	"github.com/example/storefront-sync/internal/session"
)

const (
	// loadTimeout bounds the wait for the first remote state.
	loadTimeout = 10 * time.Second
	// emailTimeout bounds the wait for the confirmation outcome.
	emailTimeout = 30 * time.Second
)

// withSession signs in, runs fn on a loaded session and waits for its
// pushes before returning.
func (o *RootOptions) withSession(cmd *cobra.Command, fn func(ctx context.Context, e *env, c *session.Controller) error) error {
	ctx := cmd.Context()
	e, closeFn, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if o.Email == "" || o.Password == "" {
		return ErrMissingCredentials
	}

	resolver := identity.NewResolver(e.identities)
	ctrl := session.NewController(ctx, e.deps.Store, resolver)
	defer ctrl.Close()

	if _, err := resolver.SignInWithPassword(ctx, o.Email, o.Password); err != nil {
		return err
	}
	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	if err := ctrl.WaitLoaded(loadCtx); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	err = fn(ctx, e, ctrl)
	ctrl.Flush()
	return err
}

func (o *RootOptions) printCart(cmd *cobra.Command, c *session.Controller) error {
	st := c.State()
	return printer{o.Format, cmd.OutOrStdout()}.print(st.Cart, func(w io.Writer) {
		cartRows(w, st.Cart)
	})
}

func (o *RootOptions) printFavorites(cmd *cobra.Command, c *session.Controller) error {
	favs := c.State().Favorites
	return printer{o.Format, cmd.OutOrStdout()}.print(favs, func(w io.Writer) {
		productRows(w, favs)
	})
}

func catalogProduct(ctx context.Context, e *env, id string) (product.Product, error) {
	p, err := e.products.Get(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	return *p, nil
}

// NewCartCommand creates the cart command group.
func NewCartCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the signed-in cart",
	}

	update := &cobra.Command{
		Use:   "update <product-id> <quantity>",
		Short: "Set a line's quantity; below 1 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			return opts.withSession(cmd, func(ctx context.Context, e *env, c *session.Controller) error {
				if err := c.UpdateQuantity(args[0], qty); err != nil {
					return err
				}
				return opts.printCart(cmd, c)
			})
		},
	}
	// Quantities may be negative; "-5" must not parse as a flag.
	update.Flags().SetInterspersed(false)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withSession(cmd, func(ctx context.Context, e *env, c *session.Controller) error {
					return opts.printCart(cmd, c)
				})
			},
		},
		&cobra.Command{
			Use:   "add <product-id>",
			Short: "Add one unit of a product",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withSession(cmd, func(ctx context.Context, e *env, c *session.Controller) error {
					p, err := catalogProduct(ctx, e, args[0])
					if err != nil {
						return err
					}
					if err := c.AddToCart(p); err != nil {
						return err
					}
					return opts.printCart(cmd, c)
				})
			},
		},
		update,
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Remove a line",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withSession(cmd, func(ctx context.Context, e *env, c *session.Controller) error {
					if err := c.RemoveFromCart(args[0]); err != nil {
						return err
					}
					return opts.printCart(cmd, c)
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withSession(cmd, func(ctx context.Context, e *env, c *session.Controller) error {
					if err := c.ClearCart(); err != nil {
						return err
					}
					return opts.printCart(cmd, c)
				})
			},
		},
	)
	return cmd
}

// NewFavoritesCommand creates the favorites command group.
func NewFavoritesCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Show and change the signed-in favorites",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show favorites",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withSession(cmd, func(ctx context.Context, e *env, c *session.Controller) error {
					return opts.printFavorites(cmd, c)
				})
			},
		},
		&cobra.Command{
			Use:   "add <product-id>",
			Short: "Add a product to favorites",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withSession(cmd, func(ctx context.Context, e *env, c *session.Controller) error {
					p, err := catalogProduct(ctx, e, args[0])
					if err != nil {
						return err
					}
					if err := c.AddToFavorites(p); err != nil {
						return err
					}
					return opts.printFavorites(cmd, c)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Remove a product from favorites",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withSession(cmd, func(ctx context.Context, e *env, c *session.Controller) error {
					if err := c.RemoveFromFavorites(args[0]); err != nil {
						return err
					}
					return opts.printFavorites(cmd, c)
				})
			},
		},
	)
	return cmd
}

// CheckoutResult is printed after an order is placed.
type CheckoutResult struct {
	OrderID string  `json:"orderId"`
	Total   float64 `json:"total"`
	Email   string  `json:"email"`
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <file.yaml>",
		Short: "Place an order from the signed-in cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read checkout form: %w", err)
			}
			var req checkout.Request
			if err := yaml.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			return opts.withSession(cmd, func(ctx context.Context, e *env, c *session.Controller) error {
				sess, err := c.Session()
				if err != nil {
					return err
				}
				placed, err := e.checkout.Place(ctx, sess, req)
				if err != nil {
					return err
				}

				result := CheckoutResult{OrderID: placed.Order.ID, Total: placed.Order.Total, Email: "sent"}
				select {
				case err, ok := <-placed.Email:
					switch {
					case !ok:
						result.Email = "skipped"
					case err != nil:
						result.Email = "failed"
						logger.Component("Checkout").WithError(err).Warn("order placed, but the confirmation email could not be sent")
					}
				case <-time.After(emailTimeout):
					result.Email = "pending"
				}

				return printer{opts.Format, cmd.OutOrStdout()}.print(result, func(w io.Writer) {
					fmt.Fprintf(w, "order\t%s\n", result.OrderID)
					fmt.Fprintf(w, "total\t%.2f\n", result.Total)
					fmt.Fprintf(w, "email\t%s\n", result.Email)
				})
			})
		},
	}
}

// NewOrdersCommand creates the orders command.
func NewOrdersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List the signed-in account's orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, e *env, c *session.Controller) error {
				orders := c.State().Orders
				return printer{opts.Format, cmd.OutOrStdout()}.print(orders, func(w io.Writer) {
					orderRows(w, orders)
				})
			})
		},
	}
}
