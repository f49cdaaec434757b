package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/example/storefront-sync/internal/domain/cart"
	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/pricing"
)

// printer writes either JSON or a text rendering of the same value.
type printer struct {
	format string
	w      io.Writer
}

func (p printer) print(v any, text func(w io.Writer)) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func productRows(w io.Writer, products []product.Product) {
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tPRICE\tDISCOUNT")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Title, p.Category.Name, pricing.Format(p.UnitPrice()), p.Discount.Label())
	}
}

func cartRows(w io.Writer, items []cart.Item) {
	fmt.Fprintln(w, "ID\tTITLE\tQTY\tUNIT\tLINE")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			item.Product.ID, item.Product.Title, item.Quantity,
			pricing.Format(item.Product.UnitPrice()), pricing.Format(item.LineTotal()))
	}
	fmt.Fprintf(w, "\t\t%d\tSUBTOTAL\t%s\n", cart.Count(items), pricing.Format(cart.Subtotal(items)))
}

func orderRows(w io.Writer, orders []order.Order) {
	fmt.Fprintln(w, "ID\tPLACED\tMETHOD\tITEMS\tTOTAL")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			o.ID, o.Placed().Format("2006-01-02 15:04"), o.CheckoutMethod.Label(),
			cart.Count(o.CartItems), pricing.Format(o.Total))
	}
}

func listLine(w io.Writer, label string, values []string) {
	fmt.Fprintf(w, "%s\t%s\n", label, strings.Join(values, ", "))
}
