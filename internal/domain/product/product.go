package product

import (
	"strings"

	"github.com/example/storefront-sync/internal/pricing"
)

// Collection is the document collection holding the catalog.
const Collection = "products"

// Ref points at a category or collection by id and display name.
type Ref struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name" validate:"required"`
}

// Color is a display variant of a product.
type Color struct {
	ID    string `json:"id,omitempty" yaml:"id"`
	Name  string `json:"name" yaml:"name" validate:"required,max=20"`
	Value string `json:"value" yaml:"value" validate:"required"`
}

// SubCategory groups products below a category.
type SubCategory struct {
	ID          string `json:"id,omitempty" yaml:"id"`
	Name        string `json:"name" yaml:"name" validate:"required,max=30"`
	Description string `json:"description" yaml:"description" validate:"required,max=200"`
	Image       string `json:"image" yaml:"image"`
}

// Product is a catalog entry. Carts and favorites hold copies of it.
type Product struct {
	ID            string           `json:"id,omitempty"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Images        []string         `json:"images"`
	Colors        []Color          `json:"colors"`
	Tags          []string         `json:"tags"`
	Price         float64          `json:"priceBeforeDiscount"`
	Discount      pricing.Discount `json:"discount"`
	Category      Ref              `json:"category"`
	Ratings       float64          `json:"ratings"`
	Collection    Ref              `json:"collection"`
	SubCategories []SubCategory    `json:"subCategories"`
	Quantity      *int             `json:"quantity,omitempty"`
}

// UnitPrice is the price after discount.
func (p Product) UnitPrice() float64 {
	return pricing.Price(p.Price, p.Discount)
}

// PrimaryImage returns the first image, or "" when there is none.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ParseTags splits comma-separated admin input, dropping blanks.
func ParseTags(s string) []string {
	tags := []string{}
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
