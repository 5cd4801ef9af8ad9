package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/service"
)

type CryptoHandler struct {
	crypto   *service.CryptoService
	evidence *service.EvidenceService
}

func NewCryptoHandler(crypto *service.CryptoService, evidence *service.EvidenceService) *CryptoHandler {
	return &CryptoHandler{crypto: crypto, evidence: evidence}
}

type importCryptoRequest struct {
	EvidenceID   *uuid.UUID                 `json:"evidence_id"`
	Transactions []domain.CryptoTransaction `json:"transactions" validate:"required,min=1,max=50000"`
}

// Import handles POST /cases/:case_id/crypto/transactions
func (h *CryptoHandler) Import(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	var req importCryptoRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.evidence.Attachable(ctx, caseID, req.EvidenceID); err != nil {
		return err
	}
	n, err := h.crypto.ImportTransactions(ctx, caseID, req.EvidenceID, req.Transactions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, importResponse{Imported: n, EvidenceID: req.EvidenceID})
}

// ListTransactions handles GET /cases/:case_id/crypto/transactions
func (h *CryptoHandler) ListTransactions(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	txs, err := h.crypto.ListTransactions(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, txs)
}

// DeleteTransactions handles DELETE /cases/:case_id/crypto/transactions
func (h *CryptoHandler) DeleteTransactions(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	n, err := h.crypto.DeleteTransactions(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Count: n})
}

// ListWallets handles GET /cases/:case_id/crypto/wallets
func (h *CryptoHandler) ListWallets(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	wallets, err := h.crypto.ListWallets(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wallets)
}

// RebuildWallets handles POST /cases/:case_id/crypto/wallets/rebuild
func (h *CryptoHandler) RebuildWallets(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	wallets, err := h.crypto.RebuildWallets(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wallets)
}

// Data handles GET /cases/:case_id/crypto/data
func (h *CryptoHandler) Data(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	data, err := h.crypto.Data(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, data)
}

// Stats handles GET /cases/:case_id/crypto/stats
func (h *CryptoHandler) Stats(c echo.Context) error {
	caseID, err := caseIDParam(c)
	if err != nil {
		return err
	}
	stats, err := h.crypto.Stats(c.Request().Context(), caseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// LookupWallet handles GET /blockchain/:chain/wallets/:address
func (h *CryptoHandler) LookupWallet(c echo.Context) error {
	chain := domain.ParseBlockchain(c.Param("chain"))
	report, err := h.crypto.LookupWallet(c.Request().Context(), c.Param("address"), chain)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// WalletTransactions handles GET /blockchain/:chain/wallets/:address/transactions
func (h *CryptoHandler) WalletTransactions(c echo.Context) error {
	chain := domain.ParseBlockchain(c.Param("chain"))
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return err
	}
	txs, err := h.crypto.Transactions(c.Request().Context(), c.Param("address"), chain, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, txs)
}

// Providers handles GET /blockchain/providers
func (h *CryptoHandler) Providers(c echo.Context) error {
	return c.JSON(http.StatusOK, h.crypto.ProviderStatus(c.Request().Context()))
}

func (h *CryptoHandler) RegisterRoutes(g *echo.Group) {
	cr := g.Group("/cases/:case_id/crypto")
	cr.POST("/transactions", h.Import)
	cr.GET("/transactions", h.ListTransactions)
	cr.DELETE("/transactions", h.DeleteTransactions)
	cr.GET("/wallets", h.ListWallets)
	cr.POST("/wallets/rebuild", h.RebuildWallets)
	cr.GET("/data", h.Data)
	cr.GET("/stats", h.Stats)

	g.GET("/blockchain/providers", h.Providers)
	g.GET("/blockchain/:chain/wallets/:address", h.LookupWallet)
	g.GET("/blockchain/:chain/wallets/:address/transactions", h.WalletTransactions)
}
