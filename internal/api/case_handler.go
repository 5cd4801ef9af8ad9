package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/service"
)

type CaseHandler struct {
	cases *service.CaseService
}

func NewCaseHandler(cases *service.CaseService) *CaseHandler {
	return &CaseHandler{cases: cases}
}

type createCaseRequest struct {
	CaseNumber  string `json:"case_number" validate:"required,max=64"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
}

// Create handles POST /cases
func (h *CaseHandler) Create(c echo.Context) error {
	var req createCaseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created := &domain.Case{
		CaseNumber:  req.CaseNumber,
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.CaseStatus(req.Status),
		Currency:    req.Currency,
	}
	if err := h.cases.Create(c.Request().Context(), created, actor(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// List handles GET /cases
func (h *CaseHandler) List(c echo.Context) error {
	cases, err := h.cases.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cases)
}

// Get handles GET /cases/:case_id
func (h *CaseHandler) Get(c echo.Context) error {
	id, err := caseIDParam(c)
	if err != nil {
		return err
	}
	found, err := h.cases.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, found)
}

func (h *CaseHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/cases", h.Create)
	g.GET("/cases", h.List)
	g.GET("/cases/:case_id", h.Get)
}
