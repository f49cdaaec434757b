package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/example/storefront-sync/internal/domain/order"
	"github.com/example/storefront-sync/internal/pricing"
)

const supportAddress = "support@yourcompany.com"

// BuildOrderConfirmationHTML builds the HTML body for an order confirmation
func BuildOrderConfirmationHTML(c OrderConfirmation) string {
	name := html.EscapeString(customerName(c.CustomerName))

	details := ""
	if c.IsOrder && c.Order != nil {
		details = orderDetailsHTML(c.Order)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<h2 style="color: #2d2d2d;">Hello %s,</h2>
	<p style="color: #333;">Thank you for your order! We're excited to process it shortly.</p>
	<p style="color: #333;">Here are the details of your order:</p>
%s
	<p style="color: #333;">We will send you an update once your order is on its way!</p>
	<p style="color: #333;">If you have any questions, feel free to reach out to us.</p>
	<p style="color: #333;">Thank you for shopping with us!</p>
	<footer style="color: #aaa; font-size: 0.8em;">
		<p>If you didn't place this order, please contact us immediately at <a href="mailto:%s" style="color: #1a73e8;">%s</a></p>
	</footer>
</body>
</html>`, name, details, supportAddress, supportAddress)
}

func orderDetailsHTML(o *order.Order) string {
	var rows strings.Builder
	for _, item := range o.CartItems {
		rows.WriteString(fmt.Sprintf(`
				<tr>
					<td style="padding: 10px; border-bottom: 1px solid #eee;">%s</td>
					<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
					<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
					<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				</tr>`,
			html.EscapeString(itemName(item.Product.Title, item.Product.ID)),
			item.Quantity,
			formatMoney(item.Product.UnitPrice()),
			formatMoney(item.LineTotal()),
		))
	}

	fulfilment := ""
	switch o.CheckoutMethod {
	case order.MethodStorePickup:
		fulfilment = fmt.Sprintf(`<p><strong>Pickup:</strong> %s on %s</p>`,
			html.EscapeString(o.StoreLocation), html.EscapeString(o.PickupDate))
	case order.MethodCOD:
		if o.Shipping != nil {
			fulfilment = fmt.Sprintf(`<p><strong>Ship to:</strong> %s, %s, %s %s, %s</p>`,
				html.EscapeString(o.Shipping.FullName), html.EscapeString(o.Shipping.Address),
				html.EscapeString(o.Shipping.City), html.EscapeString(o.Shipping.PostalCode),
				html.EscapeString(o.Shipping.Country))
		}
	}

	return fmt.Sprintf(`	<table width="600" cellpadding="20" cellspacing="0" style="background-color: #ffffff; border-radius: 8px;">
		<tr><td align="center" style="border-bottom: 1px solid #eee;"><h2 style="margin: 0; color: #333;">🧾 Your Order</h2></td></tr>
		<tr><td>
			<p><strong>Order:</strong> %s</p>
			<p><strong>Method:</strong> %s</p>
			%s
			<table style="width: 100%%; border-collapse: collapse;">
				<tr style="background: #f8f9fa;">
					<th style="padding: 10px; text-align: left;">Item</th>
					<th style="padding: 10px; text-align: center;">Qty</th>
					<th style="padding: 10px; text-align: right;">Price</th>
					<th style="padding: 10px; text-align: right;">Total</th>
				</tr>%s
			</table>
			<p style="text-align: right;">Subtotal: %s<br>Shipping: %s<br>Tax: %s<br>COD fee: %s</p>
			<p style="text-align: right; font-size: 18px;"><strong>Total: %s</strong></p>
			<p style="font-size: 12px; color: #999;">This is an automated message from your print-on-demand system.</p>
		</td></tr>
	</table>`,
		html.EscapeString(o.ID),
		html.EscapeString(o.CheckoutMethod.Label()),
		fulfilment,
		rows.String(),
		formatMoney(o.Subtotal),
		formatMoney(o.ShippingFee),
		formatMoney(o.Tax),
		formatMoney(o.CODFee),
		formatMoney(o.Total),
	)
}

// BuildOrderConfirmationText builds the plain-text alternative body
func BuildOrderConfirmationText(c OrderConfirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", customerName(c.CustomerName))
	b.WriteString("Thank you for your order! We're excited to process it shortly.\n\n")

	if c.IsOrder && c.Order != nil {
		o := c.Order
		fmt.Fprintf(&b, "Order: %s\nMethod: %s\n", o.ID, o.CheckoutMethod.Label())
		for _, item := range o.CartItems {
			fmt.Fprintf(&b, "  %d x %s @ %s = %s\n",
				item.Quantity,
				itemName(item.Product.Title, item.Product.ID),
				formatMoney(item.Product.UnitPrice()),
				formatMoney(item.LineTotal()))
		}
		fmt.Fprintf(&b, "Subtotal: %s\nShipping: %s\nTax: %s\nCOD fee: %s\nTotal: %s\n\n",
			formatMoney(o.Subtotal), formatMoney(o.ShippingFee), formatMoney(o.Tax),
			formatMoney(o.CODFee), formatMoney(o.Total))
	}

	b.WriteString("Status: Processing\n\n")
	b.WriteString("We will send you an update once your order is on its way!\n\n")
	b.WriteString("Best regards,\nYour Company Name\n\n")
	fmt.Fprintf(&b, "If you didn't place this order, please contact us immediately at %s\n", supportAddress)
	return b.String()
}

func customerName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Customer"
	}
	return name
}

func itemName(title, id string) string {
	if title == "" {
		return id
	}
	return title
}

// formatMoney renders a two-decimal amount with comma separators: $1,234.50
func formatMoney(v float64) string {
	s := pricing.Format(v)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var result strings.Builder
	remainder := len(whole) % 3
	if remainder > 0 {
		result.WriteString(whole[:remainder])
	}
	for i := remainder; i < len(whole); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(whole[i : i+3])
	}
	return sign + "$" + result.String() + "." + frac
}
