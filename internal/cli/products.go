package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/storefront-sync/internal/export"
	"github.com/example/storefront-sync/internal/query"
)

// ProductsOptions holds flags for the products commands.
type ProductsOptions struct {
	*RootOptions
	Search   string
	Category string
	Output   string
}

// NewProductsCommand creates the products command group.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse and export the catalog",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List products, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			products, err := e.queries.ListProducts(cmd.Context(), query.ProductFilter{
				Search:   opts.Search,
				Category: opts.Category,
			})
			if err != nil {
				return err
			}
			return printer{opts.Format, cmd.OutOrStdout()}.print(products, func(w io.Writer) {
				productRows(w, products)
			})
		},
	}
	list.Flags().StringVarP(&opts.Search, "query", "q", "", "match title or category name")
	list.Flags().StringVar(&opts.Category, "category", "", "category name or slug")

	exp := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			products, err := e.queries.ListProducts(cmd.Context(), query.ProductFilter{})
			if err != nil {
				return err
			}

			f, err := os.Create(opts.Output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", opts.Output, err)
			}
			defer f.Close()
			w := bufio.NewWriter(f)
			if err := export.Products(w, products); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d products to %s\n", len(products), opts.Output)
			return nil
		},
	}
	exp.Flags().StringVarP(&opts.Output, "output", "o", "products.xlsx", "output file path")

	cmd.AddCommand(list, exp)
	return cmd
}
