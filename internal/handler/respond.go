package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/onnride/vehicle-rental/internal/engine"
	"github.com/onnride/vehicle-rental/internal/repository"
)

// fail translates engine and repository errors into JSON error
// responses. Every handler funnels its terminal error through here so
// the error taxonomy maps to HTTP codes in exactly one place.
func fail(c echo.Context, err error) error {
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Reason})
	}
	var te *engine.InvalidTransitionError
	if errors.As(err, &te) {
		return c.JSON(http.StatusConflict, echo.Map{"error": te.Error()})
	}
	switch {
	case errors.Is(err, engine.ErrVehicleNotFound),
		errors.Is(err, engine.ErrBookingNotFound),
		errors.Is(err, engine.ErrCouponNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrCapacityExceeded),
		errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrCouponExpired),
		errors.Is(err, engine.ErrCouponExhausted),
		errors.Is(err, engine.ErrCouponMinimumNotMet):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidSignature):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var se *engine.TransientStorageError
	if errors.As(err, &se) {
		logrus.WithError(err).WithField("path", c.Path()).Warn("storage unavailable")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service temporarily unavailable"})
	}
	logrus.WithError(err).WithField("path", c.Path()).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// identity returns the authenticated user id and role stored by the
// JWT middleware.
func identity(c echo.Context) (string, string) {
	uid, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	return uid, role
}
