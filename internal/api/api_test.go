package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/crypto"
	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/network"
	"github.com/investigate/case-graph/internal/provider"
	"github.com/investigate/case-graph/internal/repository/memory"
	"github.com/investigate/case-graph/internal/service"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	logger := zap.NewNop()
	store := memory.New()
	signer, err := crypto.NewSigner("test-secret")
	require.NoError(t, err)

	evidence := service.NewEvidenceService(store, store, signer, logger)
	handlers := Handlers{
		Cases:     NewCaseHandler(service.NewCaseService(store, logger)),
		MoneyFlow: NewMoneyFlowHandler(service.NewMoneyFlowService(store, store, logger)),
		Calls:     NewCallHandler(network.NewService(store, store, signer, network.Sinks{}, logger), evidence),
		Crypto:    NewCryptoHandler(service.NewCryptoService(store, store, nil, nil, nil, nil, logger), evidence),
		Locations: NewLocationHandler(service.NewLocationService(store, store, logger), evidence),
		Evidence:  NewEvidenceHandler(evidence),
		Admin:     NewAdminHandler(service.NewCredentialService(store, nil, provider.StaticKeys{}, logger)),
	}

	e := NewEcho(logger)
	v1 := e.Group("/api/v1")
	handlers.RegisterRoutes(v1, v1, e.Group("/public"))
	return e
}

func do(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createCase(t *testing.T, e *echo.Echo) int64 {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/v1/cases", map[string]string{
		"case_number": "CASE-2024-0042",
		"title":       "Romance scam ring",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.Case](t, rec).ID
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec := do(t, e, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCases(t *testing.T) {
	e := newTestServer(t)
	id := createCase(t, e)

	rec := do(t, e, http.MethodGet, fmt.Sprintf("/api/v1/cases/%d", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[domain.Case](t, rec)
	assert.Equal(t, domain.CaseStatusDraft, c.Status)
	assert.Equal(t, "system", c.CreatedBy)

	rec = do(t, e, http.MethodPost, "/api/v1/cases", map[string]string{"title": "no number"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "CaseNumber")
}

func TestErrorMapping(t *testing.T) {
	e := newTestServer(t)

	rec := do(t, e, http.MethodGet, "/api/v1/cases/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[errorResponse](t, rec).Error)

	rec = do(t, e, http.MethodGet, "/api/v1/cases/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMoneyFlow(t *testing.T) {
	e := newTestServer(t)
	id := createCase(t, e)
	base := fmt.Sprintf("/api/v1/cases/%d/money-flow", id)

	rec := do(t, e, http.MethodPost, base+"/nodes/bulk", map[string]any{"nodes": []map[string]any{
		{"node_type": "person", "label": "Victim", "is_victim": true},
		{"node_type": "mule_account", "label": "Mule", "is_suspect": true},
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	nodes := decode[[]domain.Node](t, rec)
	require.Len(t, nodes, 2)

	rec = do(t, e, http.MethodPost, base+"/edges", map[string]any{
		"from_node_id": nodes[0].ID, "to_node_id": nodes[1].ID, "amount": 250000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	edge := decode[domain.Edge](t, rec)
	assert.Equal(t, "THB", edge.Currency)
	assert.Equal(t, "transfer", edge.EdgeType)

	rec = do(t, e, http.MethodPost, base+"/edges", map[string]any{"from_node_id": nodes[0].ID, "to_node_id": 9999})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPatch, base+"/nodes/positions", map[string]any{
		"positions": []map[string]any{{"id": nodes[0].ID, "x": 10, "y": 20}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	g := decode[domain.MoneyFlowGraph](t, rec)
	assert.Equal(t, domain.MoneyFlowSummary{TotalAmount: 250000, NodeCount: 2, EdgeCount: 1, SuspectsCount: 1, VictimsCount: 1}, g.Summary)

	rec = do(t, e, http.MethodDelete, fmt.Sprintf("%s/nodes/%d", base, nodes[1].ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, e, http.MethodGet, base+"/edges", nil)
	assert.Empty(t, decode[[]domain.Edge](t, rec), "incident edges cascade")
}

func TestCallNetwork(t *testing.T) {
	e := newTestServer(t)
	id := createCase(t, e)
	base := fmt.Sprintf("/api/v1/cases/%d/calls", id)

	records := []map[string]any{}
	for i := 0; i < 6; i++ {
		records = append(records, map[string]any{
			"device_number": "0810000000", "partner_number": "0820000000",
			"call_type": "outgoing", "duration_seconds": 60,
		})
	}
	rec := do(t, e, http.MethodPost, base+"/records", map[string]any{"records": records})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 6, decode[importResponse](t, rec).Imported)

	rec = do(t, e, http.MethodGet, base+"/network", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	g := decode[domain.NetworkGraph](t, rec)
	assert.Equal(t, 2, g.Summary.TotalEntities)
	assert.Equal(t, 1, g.Summary.TotalLinks)

	rec = do(t, e, http.MethodGet, base+"/path?from=0810000000&to=0820000000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"path":["0810000000","0820000000"],"connected":true}`, rec.Body.String())

	rec = do(t, e, http.MethodGet, base+"/entities/search?q=082", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.CallEntity](t, rec), 1)

	rec = do(t, e, http.MethodGet, base+"/stats", nil)
	stats := decode[domain.CallStats](t, rec)
	assert.Equal(t, 6, stats.TotalRecords)
	assert.Equal(t, int64(360), stats.TotalDurationSeconds)

	rec = do(t, e, http.MethodGet, base+"/snapshots", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, e, http.MethodPost, base+"/records", map[string]any{"records": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvidenceUploadAndVerify(t *testing.T) {
	e := newTestServer(t)
	id := createCase(t, e)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "cdr.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("device,partner\n0810000000,0820000000\n"))
	require.NoError(t, mw.WriteField("evidence_type", "csv_file"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/cases/%d/evidence", id), &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[domain.Evidence](t, rec)
	assert.Equal(t, crypto.SHA256Hex([]byte("device,partner\n0810000000,0820000000\n")), ev.SHA256)

	rec = do(t, e, http.MethodGet, "/public/evidence/verify/"+strings.ToUpper(ev.SHA256), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[domain.EvidenceVerification](t, rec)
	assert.True(t, v.Found)
	assert.True(t, v.SignatureValid)

	rec = do(t, e, http.MethodGet, "/public/evidence/verify/"+strings.Repeat("0", 64), nil)
	assert.JSONEq(t, `{"found":false,"signature_valid":false}`, rec.Body.String())

	rec = do(t, e, http.MethodPost, fmt.Sprintf("/api/v1/cases/%d/calls/records", id), map[string]any{
		"evidence_id": "6f1c1f3e-9d7a-4a53-8f43-0c3b7f2c9b11",
		"records":     []map[string]any{{"partner_number": "0820000000"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "foreign evidence cannot be attached")
}

func TestWalletLookupRejectsMalformedAddress(t *testing.T) {
	e := newTestServer(t)
	rec := do(t, e, http.MethodGet, "/api/v1/blockchain/eth/wallets/0x1234", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminKeysWithoutVault(t *testing.T) {
	e := newTestServer(t)

	rec := do(t, e, http.MethodGet, "/api/v1/admin/api-keys", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	statuses := decode[[]service.CredentialStatus](t, rec)
	require.Len(t, statuses, 3)
	assert.Equal(t, "none", statuses[0].Source)

	rec = do(t, e, http.MethodPost, "/api/v1/admin/api-keys", map[string]string{"provider": "etherscan", "api_key": "ABCDEFGH12345"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/v1/admin/api-keys", map[string]string{"provider": "unknown", "api_key": "ABCDEFGH12345"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
