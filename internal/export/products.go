package export

import (
	"io"
	"strings"

	"github.com/tealeg/xlsx"

	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/pricing"
)

const (
	ProductsSheet = "Products"
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ProductHeaders are the column titles of the products sheet.
var ProductHeaders = []string{
	"ID", "Title", "Category", "Collection", "Price", "Discount",
	"Final Price", "Quantity", "Ratings", "Tags", "Colors",
	"Sub-categories", "Images", "Description",
}

// Products writes one spreadsheet row per product.
func Products(w io.Writer, products []product.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(ProductsSheet)
	if err != nil {
		return err
	}

	headerRow := sheet.AddRow()
	for _, h := range ProductHeaders {
		headerRow.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()

		row.AddCell().SetString(p.ID)
		row.AddCell().SetString(p.Title)
		row.AddCell().SetString(p.Category.Name)
		row.AddCell().SetString(p.Collection.Name)
		row.AddCell().SetString(pricing.Format(p.Price))
		row.AddCell().SetString(p.Discount.Label())
		row.AddCell().SetString(pricing.Format(p.UnitPrice()))
		if p.Quantity != nil {
			row.AddCell().SetInt(*p.Quantity)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetFloat(p.Ratings)
		row.AddCell().SetString(strings.Join(p.Tags, ","))

		colors := make([]string, 0, len(p.Colors))
		for _, c := range p.Colors {
			colors = append(colors, c.Name)
		}
		row.AddCell().SetString(strings.Join(colors, ","))

		subs := make([]string, 0, len(p.SubCategories))
		for _, sc := range p.SubCategories {
			subs = append(subs, sc.Name)
		}
		row.AddCell().SetString(strings.Join(subs, ","))

		row.AddCell().SetString(strings.Join(p.Images, "\n"))
		row.AddCell().SetString(p.Description)
	}

	return file.Write(w)
}
