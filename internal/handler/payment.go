package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/onnride/vehicle-rental/internal/engine"
)

// PaymentHandler exposes the payment surface: order creation, the
// gateway webhook, the client status poll and the admin recovery path.
type PaymentHandler struct {
	Service *engine.PaymentService
}

func NewPaymentHandler(s *engine.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: s}
}

// CreateOrder opens a gateway order for a pending booking and returns
// the session token the checkout widget needs.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	uid, role := identity(c)
	order, err := h.Service.CreatePaymentOrder(c.Request().Context(), c.Param("id"), uid, role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// Webhook receives gateway callbacks. The signature is verified over
// the raw body before anything is parsed, so the body must be read
// untouched.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	signature := c.Request().Header.Get("X-Razorpay-Signature")
	b, err := h.Service.HandleWebhook(c.Request().Context(), body, signature)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":     b.ID,
		"status":         b.Status,
		"payment_status": b.PaymentStatus,
	})
}

// Status polls the gateway for the booking's order and reconciles the
// result. Clients call this after checkout when the webhook has not
// landed yet.
func (h *PaymentHandler) Status(c echo.Context) error {
	uid, role := identity(c)
	b, err := h.Service.CheckPaymentStatus(c.Request().Context(), c.Param("id"), uid, role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":     b.ID,
		"status":         b.Status,
		"payment_status": b.PaymentStatus,
	})
}

type verifyReq struct {
	OrderID string `json:"order_id"`
}

// Verify is the admin recovery path for payments whose webhook never
// arrived; it checks the order with the gateway and reconciles.
func (h *PaymentHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	uid, _ := identity(c)
	b, err := h.Service.VerifyManually(c.Request().Context(), c.Param("id"), strings.TrimSpace(req.OrderID), uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":     b.ID,
		"status":         b.Status,
		"payment_status": b.PaymentStatus,
	})
}
