package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// ProductsHandler serves the master catalog used for item labels.
type ProductsHandler struct {
	DB *sql.DB
}

type createProductRequest struct {
	Title string `json:"title"`
	ASIN  string `json:"asin"`
	Brand string `json:"brand"`
}

// List handles GET /api/products.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := store.ListProducts(r.Context(), h.DB)
	if err != nil {
		domainError(w, r, err, "list products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	jsonResponse(w, http.StatusOK, products)
}

// Create handles POST /api/products.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := store.CreateProduct(r.Context(), h.DB, req.Title, req.ASIN, req.Brand)
	if err != nil {
		domainError(w, r, err, "create product")
		return
	}

	slog.Info("product created", "product", p.ID, "title", p.Title, "operator", operatorName(r.Context()))
	jsonResponse(w, http.StatusCreated, p)
}
