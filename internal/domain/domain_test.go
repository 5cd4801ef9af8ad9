package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlockchain(t *testing.T) {
	cases := map[string]Blockchain{
		"BTC":        BlockchainBTC,
		"bitcoin":    BlockchainBTC,
		"Ethereum":   BlockchainETH,
		"usdt-trc20": BlockchainUSDTTRC20,
		"USDT_ERC20": BlockchainUSDTERC20,
		"bsc":        BlockchainBNB,
		"polygon":    BlockchainMATIC,
		" tron ":     BlockchainTRX,
		"dogecoin":   BlockchainOther,
		"":           BlockchainOther,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseBlockchain(in), in)
	}
}

func TestParseRiskFlag(t *testing.T) {
	assert.Equal(t, RiskFlagNone, ParseRiskFlag(""))
	assert.Equal(t, RiskFlagTornadoCash, ParseRiskFlag("Tornado_Cash"))
	assert.Equal(t, RiskFlagSanctioned, ParseRiskFlag("sanctioned"))
	assert.Equal(t, RiskFlagUnknown, ParseRiskFlag("ransomware"))
}

func TestParseEnumsFallback(t *testing.T) {
	assert.Equal(t, CallTypeOutgoing, ParseCallType("OUTGOING"))
	assert.Equal(t, CallTypeUnknown, ParseCallType("video"))
	assert.Equal(t, NodeTypePromptPay, ParseNodeType("PromptPay"))
	assert.Equal(t, NodeTypeUnknown, ParseNodeType("shell_company"))
	assert.Equal(t, SourceCellTower, ParseLocationSource("cell_tower"))
	assert.Equal(t, SourceUnknown, ParseLocationSource("satellite"))
	assert.Equal(t, EvidenceCSVFile, ParseEvidenceType("csv_file"))
	assert.Equal(t, EvidenceOther, ParseEvidenceType("zip"))
}

func TestLevelForScore(t *testing.T) {
	assert.Equal(t, RiskCritical, LevelForScore(100))
	assert.Equal(t, RiskCritical, LevelForScore(80))
	assert.Equal(t, RiskHigh, LevelForScore(79))
	assert.Equal(t, RiskHigh, LevelForScore(60))
	assert.Equal(t, RiskMedium, LevelForScore(40))
	assert.Equal(t, RiskLow, LevelForScore(39))
	assert.Equal(t, RiskLow, LevelForScore(0))
}

func TestEdgeValidate_Defaults(t *testing.T) {
	e := Edge{FromNodeID: 1, ToNodeID: 1, Amount: 500}
	require.NoError(t, e.Validate())
	assert.Equal(t, "THB", e.Currency)
	assert.Equal(t, "transfer", e.EdgeType)

	bad := Edge{FromNodeID: 1}
	assert.True(t, errors.Is(bad.Validate(), ErrValidation))
}

func TestNodeValidate(t *testing.T) {
	n := Node{Label: "Mule 1", Type: "MULE_ACCOUNT"}
	require.NoError(t, n.Validate())
	assert.Equal(t, NodeTypeMuleAccount, n.Type)

	n = Node{Label: "x", RiskScore: 101}
	assert.ErrorIs(t, n.Validate(), ErrValidation)
}

func TestCallRecord_DeviceIdentifier(t *testing.T) {
	r := CallRecord{DeviceOwner: "Somchai", PartnerNumber: " 0811111111 "}
	require.NoError(t, r.Validate())
	assert.Equal(t, "Somchai", r.DeviceIdentifier())
	assert.Equal(t, "0811111111", r.PartnerNumber)

	r.DeviceNumber = "0899999999"
	assert.Equal(t, "0899999999", r.DeviceIdentifier())
}

func TestErrorHelpers(t *testing.T) {
	assert.ErrorIs(t, NotFoundError("node", 7), ErrNotFound)
	assert.Contains(t, NotFoundError("node", 7).Error(), "node 7")
	assert.ErrorIs(t, UpstreamError("etherscan", errors.New("boom")), ErrUpstreamUnavailable)
}

func TestParseCaseStatus(t *testing.T) {
	assert.Equal(t, CaseStatusInProgress, ParseCaseStatus(" In_Progress "))
	assert.Equal(t, CaseStatusClosed, ParseCaseStatus("closed"))
	assert.Equal(t, CaseStatusDraft, ParseCaseStatus(""))
	assert.Equal(t, CaseStatusDraft, ParseCaseStatus("reopened"))
}
