package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/service"
)

type AdminHandler struct {
	credentials *service.CredentialService
}

func NewAdminHandler(credentials *service.CredentialService) *AdminHandler {
	return &AdminHandler{credentials: credentials}
}

type setKeyRequest struct {
	Provider string `json:"provider" validate:"required"`
	APIKey   string `json:"api_key" validate:"required,min=8,max=512"`
}

func vaultError(err error) error {
	if errors.Is(err, service.ErrVaultDisabled) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return err
}

// ListKeys handles GET /admin/api-keys
func (h *AdminHandler) ListKeys(c echo.Context) error {
	statuses, err := h.credentials.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statuses)
}

// SetKey handles POST /admin/api-keys
func (h *AdminHandler) SetKey(c echo.Context) error {
	var req setKeyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := domain.ParseProviderName(req.Provider)
	if err != nil {
		return err
	}
	status, err := h.credentials.Set(c.Request().Context(), p, req.APIKey, actor(c))
	if err != nil {
		return vaultError(err)
	}
	return c.JSON(http.StatusOK, status)
}

// ClearKey handles DELETE /admin/api-keys/:provider
func (h *AdminHandler) ClearKey(c echo.Context) error {
	p, err := domain.ParseProviderName(c.Param("provider"))
	if err != nil {
		return err
	}
	if err := h.credentials.Clear(c.Request().Context(), p); err != nil {
		return vaultError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reseal handles POST /admin/api-keys/reseal
func (h *AdminHandler) Reseal(c echo.Context) error {
	n, err := h.credentials.ResealAll(c.Request().Context())
	if err != nil {
		return vaultError(err)
	}
	return c.JSON(http.StatusOK, countResponse{Count: int64(n)})
}

func (h *AdminHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/admin/api-keys", h.ListKeys)
	g.POST("/admin/api-keys", h.SetKey)
	g.POST("/admin/api-keys/reseal", h.Reseal)
	g.DELETE("/admin/api-keys/:provider", h.ClearKey)
}
