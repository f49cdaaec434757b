package pricing

import "github.com/shopspring/decimal"

// Price returns the unit price after discount. The result keeps full float
// precision; rounding happens only when formatting.
func Price(base float64, d Discount) float64 {
	if d.IsZero() {
		return base
	}
	return base - base*float64(d)/100
}

// PriceToken prices a base amount against a legacy discount token.
func PriceToken(base float64, token string) (float64, error) {
	d, err := ParseDiscount(token)
	if err != nil {
		return 0, err
	}
	return Price(base, d), nil
}

// Round2 rounds a money value to cents for presentation.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Format renders a money value with two decimals.
func Format(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
