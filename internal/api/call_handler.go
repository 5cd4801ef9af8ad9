package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/network"
	"github.com/investigate/case-graph/internal/service"
)

type CallHandler struct {
	network  *network.Service
	evidence *service.EvidenceService
}

func NewCallHandler(network *network.Service, evidence *service.EvidenceService) *CallHandler {
	return &CallHandler{network: network, evidence: evidence}
}

type importCallsRequest struct {
	EvidenceID *uuid.UUID          `json:"evidence_id"`
	Records    []domain.CallRecord `json:"records" validate:"required,min=1,max=50000"`
}

type importResponse struct {
	Imported   int        `json:"imported"`
	EvidenceID *uuid.UUID `json:"evidence_id,omitempty"`
}

// Import handles POST /cases/:case_id/calls/records
func (h *CallHandler) Import(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	var req importCallsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.evidence.Attachable(ctx, caseID, req.EvidenceID); err != nil {
		return err
	}
	n, err := h.network.ImportRecords(ctx, caseID, req.EvidenceID, req.Records)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, importResponse{Imported: n, EvidenceID: req.EvidenceID})
}

// List handles GET /cases/:case_id/calls/records
func (h *CallHandler) List(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	records, err := h.network.ListRecords(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// Delete handles DELETE /cases/:case_id/calls/records
func (h *CallHandler) Delete(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	n, err := h.network.DeleteRecords(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Count: n})
}

// Network handles GET /cases/:case_id/calls/network
func (h *CallHandler) Network(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	g, err := h.network.Network(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// Regenerate handles POST /cases/:case_id/calls/network/regenerate
func (h *CallHandler) Regenerate(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	n, err := h.network.Regenerate(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"generation_id": n.GenerationID,
		"entities":      len(n.Entities),
		"links":         len(n.Links),
	})
}

// Stats handles GET /cases/:case_id/calls/stats
func (h *CallHandler) Stats(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	stats, err := h.network.Stats(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Search handles GET /cases/:case_id/calls/entities/search?q=
func (h *CallHandler) Search(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return err
	}
	entities, err := h.network.SearchEntities(c.Request().Context(), caseID, c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entities)
}

// Path handles GET /cases/:case_id/calls/path?from=&to=
func (h *CallHandler) Path(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	path, err := h.network.Path(c.Request().Context(), caseID, c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"path":      path,
		"connected": len(path) > 0,
	})
}

// Snapshots handles GET /cases/:case_id/calls/snapshots
func (h *CallHandler) Snapshots(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	keys, err := h.network.Snapshots(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, keys)
}

func (h *CallHandler) RegisterRoutes(g *echo.Group) {
	calls := g.Group("/cases/:case_id/calls")
	calls.POST("/records", h.Import)
	calls.GET("/records", h.List)
	calls.DELETE("/records", h.Delete)
	calls.GET("/network", h.Network)
	calls.POST("/network/regenerate", h.Regenerate)
	calls.GET("/stats", h.Stats)
	calls.GET("/entities/search", h.Search)
	calls.GET("/path", h.Path)
	calls.GET("/snapshots", h.Snapshots)
}
