package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDiscount    = errors.New("discount must start with a number")
	ErrDiscountOutOfRange = errors.New("discount must be between 0 and 100")
)

// Discount is a percentage taken off a base price. The zero value means no
// discount.
type Discount float64

// ParseDiscount reads the legacy discount token used by stored catalog
// records and admin entry: a leading number with an optional suffix such as
// "% OFF". Empty input means no discount.
func ParseDiscount(token string) (Discount, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return 0, nil
	}

	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	if end == 0 || s[:end] == "." {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDiscount, token)
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDiscount, token)
	}
	d := Discount(v)
	if err := d.Validate(); err != nil {
		return 0, err
	}
	return d, nil
}

// Validate checks the percentage is within 0..100.
func (d Discount) Validate() error {
	if d < 0 || d > 100 {
		return fmt.Errorf("%w: %v", ErrDiscountOutOfRange, float64(d))
	}
	return nil
}

// IsZero reports whether the discount leaves prices unchanged.
func (d Discount) IsZero() bool {
	return d == 0
}

// Percent returns the discount as a plain number.
func (d Discount) Percent() float64 {
	return float64(d)
}

// Label renders the discount the way the storefront displays it.
func (d Discount) Label() string {
	if d.IsZero() {
		return "0"
	}
	return decimal.NewFromFloat(float64(d)).String() + "% OFF"
}

func (d Discount) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(d))
}

// UnmarshalJSON accepts a number, a legacy token string or null.
func (d *Discount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*d = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var token string
		if err := json.Unmarshal(data, &token); err != nil {
			return err
		}
		parsed, err := ParseDiscount(token)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDiscount, raw)
	}
	parsed := Discount(v)
	if err := parsed.Validate(); err != nil {
		return err
	}
	*d = parsed
	return nil
}
