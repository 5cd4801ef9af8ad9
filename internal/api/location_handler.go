package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/service"
)

type LocationHandler struct {
	locations *service.LocationService
	evidence  *service.EvidenceService
}

func NewLocationHandler(locations *service.LocationService, evidence *service.EvidenceService) *LocationHandler {
	return &LocationHandler{locations: locations, evidence: evidence}
}

type importPointsRequest struct {
	EvidenceID *uuid.UUID             `json:"evidence_id"`
	Points     []domain.LocationPoint `json:"points" validate:"required,min=1,max=50000"`
}

type detectClustersRequest struct {
	RadiusMeters float64 `json:"radius_meters" validate:"min=0,max=50000"`
	MinVisits    int     `json:"min_visits" validate:"min=0"`
}

// Import handles POST /cases/:case_id/locations/points
func (h *LocationHandler) Import(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	var req importPointsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.evidence.Attachable(ctx, caseID, req.EvidenceID); err != nil {
		return err
	}
	n, err := h.locations.ImportPoints(ctx, caseID, req.EvidenceID, req.Points)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, importResponse{Imported: n, EvidenceID: req.EvidenceID})
}

// ListPoints handles GET /cases/:case_id/locations/points
func (h *LocationHandler) ListPoints(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	points, err := h.locations.ListPoints(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, points)
}

// DeletePoints handles DELETE /cases/:case_id/locations/points
func (h *LocationHandler) DeletePoints(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	n, err := h.locations.DeletePoints(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Count: n})
}

// CreateCluster handles POST /cases/:case_id/locations/clusters
func (h *LocationHandler) CreateCluster(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	var cluster domain.LocationCluster
	if err := bind(c, &cluster); err != nil {
		return err
	}
	if err := h.locations.CreateCluster(c.Request().Context(), caseID, &cluster); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cluster)
}

// ListClusters handles GET /cases/:case_id/locations/clusters
func (h *LocationHandler) ListClusters(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	clusters, err := h.locations.ListClusters(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clusters)
}

// DetectClusters handles POST /cases/:case_id/locations/clusters/detect
func (h *LocationHandler) DetectClusters(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	var req detectClustersRequest
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	clusters, err := h.locations.DetectClusters(c.Request().Context(), caseID, req.RadiusMeters, req.MinVisits)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clusters)
}

// Timeline handles GET /cases/:case_id/locations/timeline
func (h *LocationHandler) Timeline(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	timeline, err := h.locations.Timeline(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, timeline)
}

// Stats handles GET /cases/:case_id/locations/stats
func (h *LocationHandler) Stats(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	stats, err := h.locations.Stats(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *LocationHandler) RegisterRoutes(g *echo.Group) {
	loc := g.Group("/cases/:case_id/locations")
	loc.POST("/points", h.Import)
	loc.GET("/points", h.ListPoints)
	loc.DELETE("/points", h.DeletePoints)
	loc.POST("/clusters", h.CreateCluster)
	loc.GET("/clusters", h.ListClusters)
	loc.POST("/clusters/detect", h.DetectClusters)
	loc.GET("/timeline", h.Timeline)
	loc.GET("/stats", h.Stats)
}
