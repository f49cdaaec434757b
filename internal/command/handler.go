package command

import (
	"context"
	"errors"

	"github.com/example/storefront-sync/internal/domain/category"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/imageupload"
	"github.com/example/storefront-sync/internal/logger"
	"github.com/example/storefront-sync/internal/validation"
)

var ErrNoUploader = errors.New("image upload is not configured")

// Uploader stores image files and returns their public URLs in order.
type Uploader interface {
	UploadAll(ctx context.Context, files []imageupload.File) ([]string, error)
}

// Handler runs admin catalog commands.
type Handler struct {
	productSvc  *product.Service
	categorySvc *category.Service
	uploader    Uploader
}

func NewHandler(productSvc *product.Service, categorySvc *category.Service, uploader Uploader) *Handler {
	return &Handler{
		productSvc:  productSvc,
		categorySvc: categorySvc,
		uploader:    uploader,
	}
}

// CreateProduct validates the draft, uploads its files one by one, then
// stores the product with the uploaded URLs. Nothing is uploaded when the
// draft is invalid.
func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*product.Product, error) {
	// 1. Validate with the files standing in for their future URLs
	probe := cmd.Draft
	probe.Images = append([]string(nil), cmd.Draft.Images...)
	for _, f := range cmd.Files {
		probe.Images = append(probe.Images, f.Name)
	}
	if _, err := probe.Validate(); err != nil {
		return nil, err
	}

	// 2. Upload images sequentially
	draft := cmd.Draft
	if len(cmd.Files) > 0 {
		urls, err := h.UploadImages(ctx, UploadImages{Files: cmd.Files})
		if err != nil {
			return nil, err
		}
		draft.Images = append(append([]string(nil), draft.Images...), urls...)
	}

	// 3. Create product
	p, err := h.productSvc.Create(ctx, draft)
	if err != nil {
		return nil, err
	}
	logger.Component("Command").WithField("product_id", p.ID).WithField("images", len(p.Images)).Info("product created")
	return p, nil
}

// UpdateProduct updates a product
func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (*product.Product, error) {
	return h.productSvc.Update(ctx, cmd.ProductID, cmd.Update)
}

// DeleteProduct deletes a product
func (h *Handler) DeleteProduct(ctx context.Context, cmd DeleteProduct) error {
	return h.productSvc.Delete(ctx, cmd.ProductID)
}

// UploadImages uploads files in order and returns their URLs.
func (h *Handler) UploadImages(ctx context.Context, cmd UploadImages) ([]string, error) {
	if len(cmd.Files) == 0 {
		return []string{}, nil
	}
	if h.uploader == nil {
		return nil, ErrNoUploader
	}
	return h.uploader.UploadAll(ctx, cmd.Files)
}

// AddColor adds a color to the palette
func (h *Handler) AddColor(ctx context.Context, cmd AddColor) (*product.Color, error) {
	return h.categorySvc.AddColor(ctx, cmd.Color)
}

// DeleteColor removes a color
func (h *Handler) DeleteColor(ctx context.Context, cmd DeleteColor) error {
	return h.categorySvc.DeleteColor(ctx, cmd.ColorID)
}

// AddSubCategory uploads the optional image, then stores the sub-category.
func (h *Handler) AddSubCategory(ctx context.Context, cmd AddSubCategory) (*product.SubCategory, error) {
	sc := cmd.SubCategory
	if err := validation.Struct(sc); err != nil {
		return nil, err
	}
	if cmd.Image != nil {
		urls, err := h.UploadImages(ctx, UploadImages{Files: []imageupload.File{*cmd.Image}})
		if err != nil {
			return nil, err
		}
		sc.Image = urls[0]
	}
	return h.categorySvc.AddSubCategory(ctx, sc)
}

// DeleteSubCategory removes a sub-category
func (h *Handler) DeleteSubCategory(ctx context.Context, cmd DeleteSubCategory) error {
	return h.categorySvc.DeleteSubCategory(ctx, cmd.SubCategoryID)
}
