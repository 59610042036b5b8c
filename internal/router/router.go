package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/onnride/vehicle-rental/internal/handler"
	"github.com/onnride/vehicle-rental/internal/middleware"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Auth     *handler.AuthHandler
	Vehicles *handler.VehicleHandler
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
	Coupons  *handler.CouponHandler
}

// Register wires the full route table. Public browse and the payment
// webhook need no token; the booking lifecycle requires a valid access
// token; fleet and coupon management additionally require the admin
// role. The response cache covers only the public browse routes:
// everything behind JWTAuth is per-caller and must never be served
// from a shared cache entry.
func Register(e *echo.Echo, h Handlers, jwtSecret string, cache echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	// auth
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// public browse and availability, cached
	e.GET("/v1/vehicles", h.Vehicles.List, cache)
	e.GET("/v1/vehicles/:id", h.Vehicles.Get, cache)
	e.GET("/v1/vehicles/:id/availability", h.Vehicles.Availability, cache)
	e.GET("/v1/vehicles/:id/quote", h.Vehicles.Quote, cache)
	e.POST("/v1/coupons/validate", h.Coupons.Validate)

	// gateway webhook: authenticated by its HMAC signature, not a JWT
	e.POST("/v1/payments/webhook", h.Payments.Webhook)

	// customer booking lifecycle
	user := e.Group("/v1")
	user.Use(middleware.JWTAuth(jwtSecret))
	user.Use(middleware.RequireRole("user", "admin"))
	user.POST("/bookings", h.Bookings.Create)
	user.GET("/bookings", h.Bookings.ListMine)
	user.GET("/bookings/:id", h.Bookings.Get)
	user.POST("/bookings/:id/cancel", h.Bookings.Cancel)
	user.POST("/bookings/:id/pay", h.Payments.CreateOrder)
	user.GET("/bookings/:id/payment", h.Payments.Status)

	// admin surface
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("admin"))
	admin.GET("/vehicles", h.Vehicles.ListAll)
	admin.POST("/vehicles", h.Vehicles.Create)
	admin.PUT("/vehicles/:id", h.Vehicles.Update)
	admin.DELETE("/vehicles/:id", h.Vehicles.Delete)
	admin.GET("/bookings", h.Bookings.ListAll)
	admin.POST("/bookings/:id/complete", h.Bookings.Complete)
	admin.POST("/bookings/:id/verify-payment", h.Payments.Verify)
	admin.GET("/coupons", h.Coupons.List)
	admin.POST("/coupons", h.Coupons.Create)
	admin.PUT("/coupons/:code", h.Coupons.Update)
	admin.DELETE("/coupons/:code", h.Coupons.Deactivate)
}
