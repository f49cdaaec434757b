package api

import (
	"encoding/json"
	"mime/multipart"
	"net/http"

	"github.com/example/storefront-sync/internal/command"
	"github.com/example/storefront-sync/internal/domain/product"
	"github.com/example/storefront-sync/internal/export"
	"github.com/example/storefront-sync/internal/imageupload"
	"github.com/example/storefront-sync/internal/logger"
	"github.com/example/storefront-sync/internal/query"
)

// AdminHandlers serves the admin catalog and reports. Routes are wrapped
// in the admin allow-list check.
type AdminHandlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
}

func NewAdminHandlers(cmdHandler *command.Handler, queryHandler *query.Handler) *AdminHandlers {
	return &AdminHandlers{cmdHandler: cmdHandler, queryHandler: queryHandler}
}

// CreateProduct accepts a JSON draft, or a multipart form with the draft
// as JSON in "product" and image files in "images".
func (h *AdminHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateProduct
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			respondJSONError(w, "Invalid form", http.StatusBadRequest)
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("product")), &cmd.Draft); err != nil {
			respondJSONError(w, "Invalid product", http.StatusBadRequest)
			return
		}
		files, closeAll, err := openFiles(r.MultipartForm.File["images"])
		if err != nil {
			respondJSONError(w, "Invalid image", http.StatusBadRequest)
			return
		}
		defer closeAll()
		cmd.Files = files
	} else if !decodeJSON(w, r, &cmd.Draft) {
		return
	}

	p, err := h.cmdHandler.CreateProduct(r.Context(), cmd)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *AdminHandlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req product.Update
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.cmdHandler.UpdateProduct(r.Context(), command.UpdateProduct{
		ProductID: r.PathValue("id"),
		Update:    req,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *AdminHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.DeleteProduct(r.Context(), command.DeleteProduct{ProductID: r.PathValue("id")}); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

// UploadImages uploads every "image" file in order and returns the URLs.
func (h *AdminHandlers) UploadImages(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondJSONError(w, "Invalid form", http.StatusBadRequest)
		return
	}
	files, closeAll, err := openFiles(r.MultipartForm.File["image"])
	if err != nil {
		respondJSONError(w, "Invalid image", http.StatusBadRequest)
		return
	}
	defer closeAll()
	if len(files) == 0 {
		respondJSONError(w, "image is required", http.StatusBadRequest)
		return
	}

	urls, err := h.cmdHandler.UploadImages(r.Context(), command.UploadImages{Files: files})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"urls": urls})
}

// ListUsers returns every user with their orders
func (h *AdminHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.queryHandler.UsersWithOrders(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// ListOrders returns all orders (for admin use)
func (h *AdminHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrders(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// ExportProducts downloads the catalog as a spreadsheet
func (h *AdminHandlers) ExportProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.queryHandler.ListProducts(r.Context(), query.ProductFilter{})
	if err != nil {
		respondErr(w, err)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=products.xlsx")
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Transfer-Encoding", "binary")
	w.Header().Set("Expires", "0")

	if err := export.Products(w, products); err != nil {
		logger.Component("API").WithError(err).Error("failed to write products export")
	}
}

// openFiles opens the uploaded parts in form order.
func openFiles(headers []*multipart.FileHeader) ([]imageupload.File, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	files := make([]imageupload.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		opened = append(opened, f)
		files = append(files, imageupload.File{Name: fh.Filename, Content: f})
	}
	return files, closeAll, nil
}
