package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/service"
)

type MoneyFlowHandler struct {
	flows *service.MoneyFlowService
}

func NewMoneyFlowHandler(flows *service.MoneyFlowService) *MoneyFlowHandler {
	return &MoneyFlowHandler{flows: flows}
}

type bulkNodesRequest struct {
	Nodes []domain.Node `json:"nodes" validate:"required,min=1,max=1000"`
}

type bulkEdgesRequest struct {
	Edges []domain.Edge `json:"edges" validate:"required,min=1,max=5000"`
}

type positionsRequest struct {
	Positions []service.NodePosition `json:"positions" validate:"required,min=1,dive"`
}

// Graph handles GET /cases/:case_id/money-flow
func (h *MoneyFlowHandler) Graph(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	g, err := h.flows.Graph(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// View handles GET /cases/:case_id/money-flow/view
func (h *MoneyFlowHandler) View(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	v, err := h.flows.View(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

// ListNodes handles GET /cases/:case_id/money-flow/nodes
func (h *MoneyFlowHandler) ListNodes(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	nodes, err := h.flows.ListNodes(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nodes)
}

// CreateNode handles POST /cases/:case_id/money-flow/nodes
func (h *MoneyFlowHandler) CreateNode(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	var n domain.Node
	if err := bind(c, &n); err != nil {
		return err
	}
	created, err := h.flows.CreateNodes(c.Request().Context(), caseID, []domain.Node{n})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created[0])
}

// CreateNodes handles POST /cases/:case_id/money-flow/nodes/bulk
func (h *MoneyFlowHandler) CreateNodes(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	var req bulkNodesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := h.flows.CreateNodes(c.Request().Context(), caseID, req.Nodes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// GetNode handles GET /cases/:case_id/money-flow/nodes/:node_id
func (h *MoneyFlowHandler) GetNode(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	id, err := int64Param(c, "node_id")
	if err != nil {
		return err
	}
	n, err := h.flows.GetNode(c.Request().Context(), caseID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

// UpdateNode handles PATCH /cases/:case_id/money-flow/nodes/:node_id
func (h *MoneyFlowHandler) UpdateNode(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	id, err := int64Param(c, "node_id")
	if err != nil {
		return err
	}
	var patch service.NodePatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	n, err := h.flows.UpdateNode(c.Request().Context(), caseID, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

// UpdatePositions handles PATCH /cases/:case_id/money-flow/nodes/positions
func (h *MoneyFlowHandler) UpdatePositions(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	var req positionsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	nodes, err := h.flows.UpdatePositions(c.Request().Context(), caseID, req.Positions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nodes)
}

// DeleteNode handles DELETE /cases/:case_id/money-flow/nodes/:node_id
func (h *MoneyFlowHandler) DeleteNode(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	id, err := int64Param(c, "node_id")
	if err != nil {
		return err
	}
	if err := h.flows.DeleteNode(c.Request().Context(), caseID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListEdges handles GET /cases/:case_id/money-flow/edges
func (h *MoneyFlowHandler) ListEdges(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	edges, err := h.flows.ListEdges(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, edges)
}

// CreateEdge handles POST /cases/:case_id/money-flow/edges
func (h *MoneyFlowHandler) CreateEdge(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	var e domain.Edge
	if err := bind(c, &e); err != nil {
		return err
	}
	created, err := h.flows.CreateEdges(c.Request().Context(), caseID, []domain.Edge{e})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created[0])
}

// CreateEdges handles POST /cases/:case_id/money-flow/edges/bulk
func (h *MoneyFlowHandler) CreateEdges(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	var req bulkEdgesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := h.flows.CreateEdges(c.Request().Context(), caseID, req.Edges)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// GetEdge handles GET /cases/:case_id/money-flow/edges/:edge_id
func (h *MoneyFlowHandler) GetEdge(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	id, err := int64Param(c, "edge_id")
	if err != nil {
		return err
	}
	e, err := h.flows.GetEdge(c.Request().Context(), caseID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// UpdateEdge handles PATCH /cases/:case_id/money-flow/edges/:edge_id
func (h *MoneyFlowHandler) UpdateEdge(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	id, err := int64Param(c, "edge_id")
	if err != nil {
		return err
	}
	var patch service.EdgePatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	e, err := h.flows.UpdateEdge(c.Request().Context(), caseID, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// DeleteEdge handles DELETE /cases/:case_id/money-flow/edges/:edge_id
func (h *MoneyFlowHandler) DeleteEdge(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	id, err := int64Param(c, "edge_id")
	if err != nil {
		return err
	}
	if err := h.flows.DeleteEdge(c.Request().Context(), caseID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *MoneyFlowHandler) RegisterRoutes(g *echo.Group) {
	mf := g.Group("/cases/:case_id/money-flow")
	mf.GET("", h.Graph)
	mf.GET("/view", h.View)
	mf.GET("/nodes", h.ListNodes)
	mf.POST("/nodes", h.CreateNode)
	mf.POST("/nodes/bulk", h.CreateNodes)
	mf.PATCH("/nodes/positions", h.UpdatePositions)
	mf.GET("/nodes/:node_id", h.GetNode)
	mf.PATCH("/nodes/:node_id", h.UpdateNode)
	mf.DELETE("/nodes/:node_id", h.DeleteNode)
	mf.GET("/edges", h.ListEdges)
	mf.POST("/edges", h.CreateEdge)
	mf.POST("/edges/bulk", h.CreateEdges)
	mf.GET("/edges/:edge_id", h.GetEdge)
	mf.PATCH("/edges/:edge_id", h.UpdateEdge)
	mf.DELETE("/edges/:edge_id", h.DeleteEdge)
}
