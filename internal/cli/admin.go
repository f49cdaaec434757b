package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/storefront-sync/internal/command"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/imageupload"
)

// AdminOptions holds flags for the admin commands.
type AdminOptions struct {
	*RootOptions
	Images []string
}

// NewAdminCommand creates the admin command group. Every subcommand signs
// in and requires an allow-listed account.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AdminOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Catalog administration",
	}

	add := &cobra.Command{
		Use:   "add-product <file.yaml>",
		Short: "Upload images and create a product",
		Long: `Create a product from a YAML draft.

Each --image file is uploaded in order and its URL appended to the draft's
images before the product is created. Nothing is uploaded when the draft is
invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read draft: %w", err)
			}
			var draft product.Draft
			if err := yaml.Unmarshal(data, &draft); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			e, closeFn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := opts.signIn(cmd.Context(), e)
			if err != nil {
				return err
			}
			if !e.deps.Admins.IsAdmin(id.Email) {
				return ErrNotAdmin
			}

			files := make([]imageupload.File, 0, len(opts.Images))
			for _, path := range opts.Images {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open image: %w", err)
				}
				defer f.Close()
				files = append(files, imageupload.File{Name: path, Content: f})
			}

			p, err := e.commands.CreateProduct(cmd.Context(), command.CreateProduct{Draft: draft, Files: files})
			if err != nil {
				return err
			}
			return printer{opts.Format, cmd.OutOrStdout()}.print(p, func(w io.Writer) {
				fmt.Fprintf(w, "created\t%s\n", p.ID)
				listLine(w, "images", p.Images)
			})
		},
	}
	add.Flags().StringArrayVar(&opts.Images, "image", nil, "image file to upload (repeatable)")

	cmd.AddCommand(add)
	return cmd
}
