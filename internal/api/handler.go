// Package api maps the HTTP surface onto the coupon engine and the product
// catalog: JSON request decoding, routing, and error-to-status translation.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/coupon-service/internal/domain/cart"
	"github.com/xenking/coupon-service/internal/domain/coupon"
	"github.com/xenking/coupon-service/internal/domain/product"
)

// Handler exposes the coupon and product endpoints. Business rules live in
// the coupon service; the handler only translates between HTTP and domain
// types.
type Handler struct {
	coupons  *coupon.Service
	products product.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(coupons *coupon.Service, products product.Repository) *Handler {
	return &Handler{coupons: coupons, products: products}
}

// Routes builds the router for all API endpoints. The caller mounts it under
// its path prefix.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/coupons", func(r chi.Router) {
		r.Post("/", h.CreateCoupon)
		r.Get("/", h.ListCoupons)
		r.Get("/active", h.ListActiveCoupons)
		r.Get("/{id}", h.GetCoupon)
		r.Put("/{id}", h.UpdateCoupon)
		r.Delete("/{id}", h.DeleteCoupon)
	})

	r.Post("/applicable-coupons", h.ApplicableCoupons)
	r.Post("/apply-coupon/{id}", h.ApplyCoupon)

	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		r.Get("/search", h.SearchProducts)
		r.Get("/price-range", h.ProductsByPriceRange)
		r.Get("/category/{category}", h.ProductsByCategory)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})

	return r
}

// errorResponse is the JSON error envelope shared by all endpoints.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps domain errors onto the status taxonomy: validation
// failures 400, unknown ids 404, inactive coupons 422, everything else 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status  int
		itemErr *cart.InvalidItemError
	)
	switch {
	case errors.Is(err, cart.ErrEmpty),
		errors.As(err, &itemErr),
		errors.Is(err, coupon.ErrInvalid),
		errors.Is(err, coupon.ErrUnknownType):
		status = http.StatusBadRequest
	case errors.Is(err, coupon.ErrNotFound), errors.Is(err, product.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, coupon.ErrInactive):
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondJSON(w, status, errorResponse{Code: status, Message: "internal server error"})
		return
	}
	respondJSON(w, status, errorResponse{Code: status, Message: err.Error()})
}

func respondBadRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{
		Code:    http.StatusBadRequest,
		Message: msg,
	})
}

func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
