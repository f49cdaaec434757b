package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/storefront-sync/internal/checkout"
	"github.com/example/storefront-sync/internal/domain/category"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/logger"
)

// SeedFile is the catalog fixture loaded by the seed command.
type SeedFile struct {
	Categories     []category.Category      `yaml:"categories"`
	Collections    []category.Category      `yaml:"collections"`
	Colors         []product.Color          `yaml:"colors"`
	SubCategories  []product.SubCategory    `yaml:"subCategories"`
	StoreLocations []checkout.StoreLocation `yaml:"storeLocations"`
	Products       []product.Draft          `yaml:"products"`
}

// SeedResult counts what was written.
type SeedResult struct {
	Categories     int `json:"categories"`
	Collections    int `json:"collections"`
	Colors         int `json:"colors"`
	SubCategories  int `json:"subCategories"`
	StoreLocations int `json:"storeLocations"`
	Products       int `json:"products"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load categories, collections, colors and products from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readSeedFile(args[0])
			if err != nil {
				return err
			}
			e, closeFn, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := seed(cmd.Context(), e, file)
			if err != nil {
				return err
			}
			return printer{opts.Format, cmd.OutOrStdout()}.print(result, func(w io.Writer) {
				fmt.Fprintf(w, "categories\t%d\n", result.Categories)
				fmt.Fprintf(w, "collections\t%d\n", result.Collections)
				fmt.Fprintf(w, "colors\t%d\n", result.Colors)
				fmt.Fprintf(w, "sub-categories\t%d\n", result.SubCategories)
				fmt.Fprintf(w, "store locations\t%d\n", result.StoreLocations)
				fmt.Fprintf(w, "products\t%d\n", result.Products)
			})
		},
	}
}

func readSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &file, nil
}

// seed writes file in dependency order and stops at the first failure.
func seed(ctx context.Context, e *env, file *SeedFile) (*SeedResult, error) {
	log := logger.Component("Seed")
	result := &SeedResult{}

	for _, c := range file.Categories {
		if _, err := e.categories.SaveCategory(ctx, c); err != nil {
			return result, fmt.Errorf("category %q: %w", c.Name, err)
		}
		result.Categories++
	}
	for _, c := range file.Collections {
		if _, err := e.categories.SaveCollection(ctx, c); err != nil {
			return result, fmt.Errorf("collection %q: %w", c.Name, err)
		}
		result.Collections++
	}
	for _, c := range file.Colors {
		if _, err := e.categories.AddColor(ctx, c); err != nil {
			return result, fmt.Errorf("color %q: %w", c.Name, err)
		}
		result.Colors++
	}
	for _, sc := range file.SubCategories {
		if _, err := e.categories.AddSubCategory(ctx, sc); err != nil {
			return result, fmt.Errorf("sub-category %q: %w", sc.Name, err)
		}
		result.SubCategories++
	}
	for _, loc := range file.StoreLocations {
		if err := e.checkout.SaveStoreLocation(ctx, loc); err != nil {
			return result, fmt.Errorf("store location %q: %w", loc.ID, err)
		}
		result.StoreLocations++
	}
	for _, d := range file.Products {
		p, err := e.products.Create(ctx, d)
		if err != nil {
			return result, fmt.Errorf("product %q: %w", d.Title, err)
		}
		log.WithField("product_id", p.ID).Debug("seeded product")
		result.Products++
	}

	log.WithField("products", result.Products).Info("seed complete")
	return result, nil
}
