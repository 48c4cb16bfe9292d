package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-service/internal/domain/product"
)

type productRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

type productResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func newProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price.Round(2),
		Category:  p.Category,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func productListResponse(products []product.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i := range products {
		out[i] = newProductResponse(&products[i])
	}
	return out
}

func (req productRequest) validate() string {
	if req.Name == "" {
		return "name required"
	}
	if req.Price.IsNegative() {
		return "price must not be negative"
	}
	return ""
}

// CreateProduct handles POST /products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondBadRequest(w, msg)
		return
	}

	p := &product.Product{
		ID:       uuid.New().String(),
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newProductResponse(p))
}

// GetProduct handles GET /products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newProductResponse(p))
}

// ListProducts handles GET /products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, productListResponse(products))
}

// UpdateProduct handles PUT /products/{id}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondBadRequest(w, msg)
		return
	}

	p := &product.Product{
		ID:       chi.URLParam(r, "id"),
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
	}
	if err := h.products.Update(r.Context(), p); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newProductResponse(p))
}

// DeleteProduct handles DELETE /products/{id}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProductsByCategory handles GET /products/category/{category}.
func (h *Handler) ProductsByCategory(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, productListResponse(products))
}

// SearchProducts handles GET /products/search?keyword=...
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		respondBadRequest(w, "keyword required")
		return
	}

	products, err := h.products.Search(r.Context(), keyword)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, productListResponse(products))
}

// ProductsByPriceRange handles GET /products/price-range?min=...&max=...
func (h *Handler) ProductsByPriceRange(w http.ResponseWriter, r *http.Request) {
	minPrice, err := decimal.NewFromString(r.URL.Query().Get("min"))
	if err != nil {
		respondBadRequest(w, "invalid min price")
		return
	}
	maxPrice, err := decimal.NewFromString(r.URL.Query().Get("max"))
	if err != nil {
		respondBadRequest(w, "invalid max price")
		return
	}
	if maxPrice.LessThan(minPrice) {
		respondBadRequest(w, "max price must not be below min price")
		return
	}

	products, err := h.products.ListByPriceRange(r.Context(), minPrice, maxPrice)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, productListResponse(products))
}
