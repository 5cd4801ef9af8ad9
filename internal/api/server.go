package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Handlers groups every route handler of the service
type Handlers struct {
	Cases     *CaseHandler
	MoneyFlow *MoneyFlowHandler
	Calls     *CallHandler
	Crypto    *CryptoHandler
	Locations *LocationHandler
	Evidence  *EvidenceHandler
	Admin     *AdminHandler
}

// RegisterRoutes mounts the protected API on api, the admin endpoints on admin, and the
// unauthenticated endpoints on public
func (h Handlers) RegisterRoutes(api, admin, public *echo.Group) {
	h.Cases.RegisterRoutes(api)
	h.MoneyFlow.RegisterRoutes(api)
	h.Calls.RegisterRoutes(api)
	h.Crypto.RegisterRoutes(api)
	h.Locations.RegisterRoutes(api)
	h.Evidence.RegisterRoutes(api)
	h.Evidence.RegisterPublicRoutes(public)
	h.Admin.RegisterRoutes(admin)
}

// NewEcho builds the echo instance with validation, error mapping and request logging
func NewEcho(logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Info("Request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	return e
}
