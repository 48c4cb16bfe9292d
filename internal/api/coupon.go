package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-service/internal/domain/cart"
	"github.com/xenking/coupon-service/internal/domain/coupon"
)

// --- request/response DTOs ---

type cartItemDTO struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type cartDTO struct {
	Items []cartItemDTO `json:"items"`
}

type cartRequest struct {
	Cart cartDTO `json:"cart"`
}

func (c cartDTO) toDomain() cart.Cart {
	items := make([]cart.Item, len(c.Items))
	for i, item := range c.Items {
		items[i] = cart.Item{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	return cart.Cart{Items: items}
}

type productQuantityDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type cartWiseDTO struct {
	Threshold       decimal.Decimal `json:"threshold"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

type productWiseDTO struct {
	ProductID       string          `json:"productId"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

type bxgyDTO struct {
	BuyProducts     []productQuantityDTO `json:"buyProducts"`
	GetProducts     []productQuantityDTO `json:"getProducts"`
	RepetitionLimit int                  `json:"repetitionLimit"`
}

type couponRequest struct {
	Code        string          `json:"code,omitempty"`
	Type        string          `json:"type"`
	CartWise    *cartWiseDTO    `json:"cartWise,omitempty"`
	ProductWise *productWiseDTO `json:"productWise,omitempty"`
	BxGy        *bxgyDTO        `json:"bxgy,omitempty"`
}

func (req couponRequest) toDomain() *coupon.Coupon {
	c := &coupon.Coupon{
		Code: req.Code,
		Type: coupon.Type(req.Type),
	}
	if req.CartWise != nil {
		c.CartWise = &coupon.CartWiseDetails{
			Threshold:       req.CartWise.Threshold,
			DiscountPercent: req.CartWise.DiscountPercent,
		}
	}
	if req.ProductWise != nil {
		c.ProductWise = &coupon.ProductWiseDetails{
			ProductID:       req.ProductWise.ProductID,
			DiscountPercent: req.ProductWise.DiscountPercent,
		}
	}
	if req.BxGy != nil {
		c.BxGy = &coupon.BxGyDetails{
			Buy:             toProductQuantities(req.BxGy.BuyProducts),
			Get:             toProductQuantities(req.BxGy.GetProducts),
			RepetitionLimit: req.BxGy.RepetitionLimit,
		}
	}
	return c
}

func toProductQuantities(dtos []productQuantityDTO) []coupon.ProductQuantity {
	if dtos == nil {
		return nil
	}
	out := make([]coupon.ProductQuantity, len(dtos))
	for i, pq := range dtos {
		out[i] = coupon.ProductQuantity{ProductID: pq.ProductID, Quantity: pq.Quantity}
	}
	return out
}

func fromProductQuantities(pqs []coupon.ProductQuantity) []productQuantityDTO {
	out := make([]productQuantityDTO, len(pqs))
	for i, pq := range pqs {
		out[i] = productQuantityDTO{ProductID: pq.ProductID, Quantity: pq.Quantity}
	}
	return out
}

type couponResponse struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Type        string          `json:"type"`
	CartWise    *cartWiseDTO    `json:"cartWise,omitempty"`
	ProductWise *productWiseDTO `json:"productWise,omitempty"`
	BxGy        *bxgyDTO        `json:"bxgy,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func newCouponResponse(c *coupon.Coupon) couponResponse {
	resp := couponResponse{
		ID:        c.ID,
		Code:      c.Code,
		Type:      string(c.Type),
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.CartWise != nil {
		resp.CartWise = &cartWiseDTO{
			Threshold:       c.CartWise.Threshold,
			DiscountPercent: c.CartWise.DiscountPercent,
		}
	}
	if c.ProductWise != nil {
		resp.ProductWise = &productWiseDTO{
			ProductID:       c.ProductWise.ProductID,
			DiscountPercent: c.ProductWise.DiscountPercent,
		}
	}
	if c.BxGy != nil {
		resp.BxGy = &bxgyDTO{
			BuyProducts:     fromProductQuantities(c.BxGy.Buy),
			GetProducts:     fromProductQuantities(c.BxGy.Get),
			RepetitionLimit: c.BxGy.RepetitionLimit,
		}
	}
	return resp
}

type applicableCouponDTO struct {
	CouponID    string          `json:"couponId"`
	Type        string          `json:"type"`
	Discount    decimal.Decimal `json:"discount"`
	Description string          `json:"description"`
}

type applicableCouponsResponse struct {
	ApplicableCoupons []applicableCouponDTO `json:"applicableCoupons"`
}

type updatedItemDTO struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

type updatedCartDTO struct {
	Items         []updatedItemDTO `json:"items"`
	OriginalTotal decimal.Decimal  `json:"originalTotal"`
	TotalDiscount decimal.Decimal  `json:"totalDiscount"`
	FinalTotal    decimal.Decimal  `json:"finalTotal"`
}

type applyCouponResponse struct {
	UpdatedCart updatedCartDTO `json:"updatedCart"`
}

// Monetary values keep full precision inside the engine and are rounded to
// two decimal places here, at the serialization boundary.
func newUpdatedCartDTO(uc *cart.UpdatedCart) updatedCartDTO {
	items := make([]updatedItemDTO, len(uc.Items))
	for i, item := range uc.Items {
		items[i] = updatedItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.Round(2),
			Discount:  item.Discount.Round(2),
			Total:     item.Total.Round(2),
		}
	}
	return updatedCartDTO{
		Items:         items,
		OriginalTotal: uc.OriginalTotal.Round(2),
		TotalDiscount: uc.TotalDiscount.Round(2),
		FinalTotal:    uc.FinalTotal.Round(2),
	}
}

// --- handlers ---

// CreateCoupon handles POST /coupons.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	created, err := h.coupons.Create(r.Context(), req.toDomain())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newCouponResponse(created))
}

// ListCoupons handles GET /coupons, returning active and soft-deleted
// coupons alike.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, couponListResponse(coupons))
}

// ListActiveCoupons handles GET /coupons/active.
func (h *Handler) ListActiveCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.ListActive(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, couponListResponse(coupons))
}

func couponListResponse(coupons []coupon.Coupon) []couponResponse {
	out := make([]couponResponse, len(coupons))
	for i := range coupons {
		out[i] = newCouponResponse(&coupons[i])
	}
	return out
}

// GetCoupon handles GET /coupons/{id}.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newCouponResponse(c))
}

// UpdateCoupon handles PUT /coupons/{id}, replacing the variant wholesale.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	updated, err := h.coupons.Update(r.Context(), chi.URLParam(r, "id"), req.toDomain())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newCouponResponse(updated))
}

// DeleteCoupon handles DELETE /coupons/{id}. Deletion is soft: the coupon
// stays in the store with its active flag cleared.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.coupons.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplicableCoupons handles POST /applicable-coupons: which active coupons
// qualify for the submitted cart, and what would each save.
func (h *Handler) ApplicableCoupons(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	applicable, err := h.coupons.EvaluateApplicable(r.Context(), req.Cart.toDomain())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]applicableCouponDTO, len(applicable))
	for i, a := range applicable {
		out[i] = applicableCouponDTO{
			CouponID:    a.CouponID,
			Type:        string(a.Type),
			Discount:    a.Discount.Round(2),
			Description: a.Description,
		}
	}
	respondJSON(w, http.StatusOK, applicableCouponsResponse{ApplicableCoupons: out})
}

// ApplyCoupon handles POST /apply-coupon/{id}: the itemized effect of one
// chosen coupon on the submitted cart.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	updated, err := h.coupons.ApplyCoupon(r.Context(), chi.URLParam(r, "id"), req.Cart.toDomain())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, applyCouponResponse{UpdatedCart: newUpdatedCartDTO(updated)})
}
