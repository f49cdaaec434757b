package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/example/storefront-sync/internal/command"
	"github.com/example/storefront-sync/internal/domain/category"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/imageupload"
	"github.com/example/storefront-sync/internal/query"
)

// maxUploadBytes caps multipart admin uploads.
const maxUploadBytes = 32 << 20

// CategoryHandlers serves categories, collections, colors and
// sub-categories.
type CategoryHandlers struct {
	categoryService *category.Service
	cmdHandler      *command.Handler
	queryHandler    *query.Handler
}

// NewCategoryHandlers creates a new CategoryHandlers instance
func NewCategoryHandlers(categoryService *category.Service, cmdHandler *command.Handler, queryHandler *query.Handler) *CategoryHandlers {
	return &CategoryHandlers{
		categoryService: categoryService,
		cmdHandler:      cmdHandler,
		queryHandler:    queryHandler,
	}
}

// ListCategories returns all categories
func (h *CategoryHandlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.queryHandler.ListCategories(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(categories))
}

// ListCollections returns all collections
func (h *CategoryHandlers) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.queryHandler.ListCollections(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(collections))
}

// GetCategory returns a single category by id, name or slug
func (h *CategoryHandlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := h.categoryService.FindCategory(r.Context(), r.PathValue("key"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cat)
}

// GetProductsByCategory returns products in a category
func (h *CategoryHandlers) GetProductsByCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := h.categoryService.FindCategory(r.Context(), r.PathValue("key"))
	if err != nil {
		respondErr(w, err)
		return
	}
	products, err := h.queryHandler.ListProducts(r.Context(), query.ProductFilter{Category: cat.Name})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// SaveCategory upserts a category (admin only)
func (h *CategoryHandlers) SaveCategory(w http.ResponseWriter, r *http.Request) {
	var req category.Category
	if !decodeJSON(w, r, &req) {
		return
	}
	cat, err := h.categoryService.SaveCategory(r.Context(), req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cat)
}

// SaveCollection upserts a collection (admin only)
func (h *CategoryHandlers) SaveCollection(w http.ResponseWriter, r *http.Request) {
	var req category.Category
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.categoryService.SaveCollection(r.Context(), req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Colors

func (h *CategoryHandlers) ListColors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.queryHandler.ListColors(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(colors))
}

func (h *CategoryHandlers) AddColor(w http.ResponseWriter, r *http.Request) {
	var req product.Color
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.cmdHandler.AddColor(r.Context(), command.AddColor{Color: req})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *CategoryHandlers) DeleteColor(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.DeleteColor(r.Context(), command.DeleteColor{ColorID: r.PathValue("id")}); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Color deleted"})
}

// Sub-categories

func (h *CategoryHandlers) ListSubCategories(w http.ResponseWriter, r *http.Request) {
	subs, err := h.queryHandler.ListSubCategories(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, emptyIfNil(subs))
}

// AddSubCategory accepts JSON, or a multipart form with name, description
// and an optional image file.
func (h *CategoryHandlers) AddSubCategory(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddSubCategory
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			respondJSONError(w, "Invalid form", http.StatusBadRequest)
			return
		}
		cmd.SubCategory = product.SubCategory{
			Name:        r.FormValue("name"),
			Description: r.FormValue("description"),
		}
		file, header, err := r.FormFile("image")
		switch {
		case err == nil:
			defer file.Close()
			cmd.Image = &imageupload.File{Name: header.Filename, Content: file}
		case !errors.Is(err, http.ErrMissingFile):
			respondJSONError(w, "Invalid image", http.StatusBadRequest)
			return
		}
	} else if !decodeJSON(w, r, &cmd.SubCategory) {
		return
	}

	sc, err := h.cmdHandler.AddSubCategory(r.Context(), cmd)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sc)
}

func (h *CategoryHandlers) DeleteSubCategory(w http.ResponseWriter, r *http.Request) {
	err := h.cmdHandler.DeleteSubCategory(r.Context(), command.DeleteSubCategory{SubCategoryID: r.PathValue("id")})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Sub-category deleted"})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
