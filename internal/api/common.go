package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/domain"
)

// CustomValidator adapts go-playground/validator to echo
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return domain.ValidationError("%v", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps the domain error taxonomy onto HTTP statuses
func statusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.As(err, &he):
		return he.Code
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders every handler error as {"error": "..."}. Internal errors are logged
// and replaced with a generic message.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := statusFor(err)
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg = fmt.Sprint(he.Message)
		}
		if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
			logger.Error("Request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			msg = http.StatusText(status)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, errorResponse{Error: msg})
		}
		if err != nil {
			logger.Warn("Failed to write error response", zap.Error(err))
		}
	}
}

// bind decodes and validates a request body
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return domain.ValidationError("invalid request body: %v", err)
	}
	return c.Validate(v)
}

func int64Param(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ValidationError("invalid %s", name)
	}
	return id, nil
}

func caseIDParam(c echo.Context) (int64, error) {
	return int64Param(c, "case_id")
}

// queryInt reads an optional integer query parameter
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ValidationError("invalid %s", name)
	}
	return v, nil
}

// actor names the authenticated caller from the JWT subject, or "system" when auth is off
func actor(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil {
		return "system"
	}
	if sub, err := token.Claims.GetSubject(); err == nil && sub != "" {
		return sub
	}
	return "unknown"
}

type countResponse struct {
	Count int64 `json:"count"`
}
