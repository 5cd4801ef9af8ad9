package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/service"
)

const maxEvidenceUpload = 512 << 20

type EvidenceHandler struct {
	evidence *service.EvidenceService
}

func NewEvidenceHandler(evidence *service.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{evidence: evidence}
}

// Register handles POST /cases/:case_id/evidence. A multipart upload in field "file" is hashed
// server side; a JSON body must carry the digest computed by the client.
func (h *EvidenceHandler) Register(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}

	var in service.EvidenceInput
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return domain.ValidationError("file is required")
		}
		if fh.Size > maxEvidenceUpload {
			return domain.ValidationError("file exceeds %d bytes", maxEvidenceUpload)
		}
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()

		records, _ := strconv.Atoi(c.FormValue("records_count"))
		in = service.EvidenceInput{
			FileName:     fh.Filename,
			FileType:     fh.Header.Get(echo.HeaderContentType),
			EvidenceType: domain.ParseEvidenceType(c.FormValue("evidence_type")),
			Source:       c.FormValue("evidence_source"),
			RecordsCount: records,
			Description:  c.FormValue("description"),
			Content:      f,
		}
	} else if err := bind(c, &in); err != nil {
		return err
	}

	e, err := h.evidence.Register(c.Request().Context(), caseID, in, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

// List handles GET /cases/:case_id/evidence
func (h *EvidenceHandler) List(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	list, err := h.evidence.List(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Get handles GET /cases/:case_id/evidence/:evidence_id
func (h *EvidenceHandler) Get(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("evidence_id"))
	if err != nil {
		return domain.ValidationError("invalid evidence_id")
	}
	e, err := h.evidence.Get(c.Request().Context(), caseID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// GetByHash handles GET /evidence/hash/:sha256
func (h *EvidenceHandler) GetByHash(c echo.Context) error {
	e, err := h.evidence.GetByHash(c.Request().Context(), c.Param("sha256"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// Verify handles GET /public/evidence/verify/:sha256. It is reachable without a token so that
// a court or third party can check a file against the custody log.
func (h *EvidenceHandler) Verify(c echo.Context) error {
	v, err := h.evidence.Verify(c.Request().Context(), c.Param("sha256"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (h *EvidenceHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/cases/:case_id/evidence", h.Register)
	g.GET("/cases/:case_id/evidence", h.List)
	g.GET("/cases/:case_id/evidence/:evidence_id", h.Get)
	g.GET("/evidence/hash/:sha256", h.GetByHash)
}

// RegisterPublicRoutes mounts the unauthenticated verification endpoint
func (h *EvidenceHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/evidence/verify/:sha256", h.Verify)
}
