package command

import (
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/imageupload"
)

// Product Commands
type CreateProduct struct {
	Draft product.Draft
	// Files are uploaded in order and appended to Draft.Images.
	Files []imageupload.File
}

type UpdateProduct struct {
	ProductID string
	Update    product.Update
}

type DeleteProduct struct {
	ProductID string
}

// Image Commands
type UploadImages struct {
	Files []imageupload.File
}

// Color Commands
type AddColor struct {
	Color product.Color
}

type DeleteColor struct {
	ColorID string
}

// Sub-category Commands
type AddSubCategory struct {
	SubCategory product.SubCategory
	// Image, when set, is uploaded and replaces SubCategory.Image.
	Image *imageupload.File
}

type DeleteSubCategory struct {
	SubCategoryID string
}
