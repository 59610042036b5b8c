package handler

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/onnride/vehicle-rental/internal/engine"
	"github.com/onnride/vehicle-rental/internal/model"
	"github.com/onnride/vehicle-rental/internal/repository"
)

// CouponHandler serves the customer-facing coupon preview and the
// admin CRUD.
type CouponHandler struct {
	Service *engine.BookingService
	Repo    *repository.CouponRepo
}

func NewCouponHandler(s *engine.BookingService, r *repository.CouponRepo) *CouponHandler {
	return &CouponHandler{Service: s, Repo: r}
}

type validateCouponReq struct {
	Code   string `json:"code"`
	Amount int64  `json:"amount"`
}

// Validate previews the discount a coupon would grant on an amount.
// Nothing is redeemed; times_used only moves when a booking commits.
func (h *CouponHandler) Validate(c echo.Context) error {
	var req validateCouponReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	preview, err := h.Service.ValidateCoupon(c.Request().Context(), req.Code, req.Amount)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, preview)
}

// ----- admin CRUD -----

type couponReq struct {
	Code              string     `json:"code"`
	DiscountType      string     `json:"discount_type"`
	DiscountValue     float64    `json:"discount_value"`
	MaxDiscountAmount *int64     `json:"max_discount_amount"`
	MinBookingAmount  *int64     `json:"min_booking_amount"`
	ValidFrom         *time.Time `json:"valid_from"`
	ValidUntil        *time.Time `json:"valid_until"`
	UsageLimit        *int       `json:"usage_limit"`
	IsActive          *bool      `json:"is_active"`
}

func (r *couponReq) validate(requireCode bool) string {
	if requireCode && strings.TrimSpace(r.Code) == "" {
		return "code is required"
	}
	// discount_value is stored as a whole number; reject fractional
	// input instead of letting the database round it.
	if r.DiscountValue != math.Trunc(r.DiscountValue) {
		return "discount_value must be a whole number"
	}
	switch model.DiscountType(r.DiscountType) {
	case model.DiscountPercentage:
		if r.DiscountValue <= 0 || r.DiscountValue > 100 {
			return "discount_value must be in (0, 100] for percentage coupons"
		}
	case model.DiscountFixed:
		if r.DiscountValue <= 0 {
			return "discount_value must be positive"
		}
	default:
		return "discount_type must be percentage or fixed"
	}
	if r.ValidFrom != nil && r.ValidUntil != nil && !r.ValidFrom.Before(*r.ValidUntil) {
		return "valid_from must be before valid_until"
	}
	if r.UsageLimit != nil && *r.UsageLimit <= 0 {
		return "usage_limit must be positive"
	}
	return ""
}

func (r *couponReq) apply(c *model.Coupon) {
	c.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	c.DiscountType = model.DiscountType(r.DiscountType)
	c.DiscountValue = r.DiscountValue
	c.MaxDiscountAmount = r.MaxDiscountAmount
	c.MinBookingAmount = r.MinBookingAmount
	c.ValidFrom = r.ValidFrom
	c.ValidUntil = r.ValidUntil
	c.UsageLimit = r.UsageLimit
	c.IsActive = r.IsActive == nil || *r.IsActive
}

func (h *CouponHandler) List(c echo.Context) error {
	coupons, err := h.Repo.List(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"coupons": coupons})
}

func (h *CouponHandler) Create(c echo.Context) error {
	var req couponReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(true); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	coupon := &model.Coupon{ID: uuid.NewString()}
	req.apply(coupon)
	if err := h.Repo.Create(c.Request().Context(), coupon); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, coupon)
}

func (h *CouponHandler) Update(c echo.Context) error {
	var req couponReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Code = c.Param("code")
	if msg := req.validate(true); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	coupon := &model.Coupon{}
	req.apply(coupon)
	if err := h.Repo.Update(c.Request().Context(), coupon); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, coupon)
}

// Deactivate soft-disables a coupon; redeemed history stays intact.
func (h *CouponHandler) Deactivate(c echo.Context) error {
	if err := h.Repo.Deactivate(c.Request().Context(), c.Param("code")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
