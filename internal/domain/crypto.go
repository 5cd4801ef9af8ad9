package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Blockchain identifies the chain or token network of an address or transaction
type Blockchain string

const (
	BlockchainBTC       Blockchain = "btc"
	BlockchainETH       Blockchain = "eth"
	BlockchainUSDTTRC20 Blockchain = "usdt_trc20"
	BlockchainUSDTERC20 Blockchain = "usdt_erc20"
	BlockchainBNB       Blockchain = "bnb"
	BlockchainMATIC     Blockchain = "matic"
	BlockchainTRX       Blockchain = "trx"
	BlockchainOther     Blockchain = "other"
)

var blockchainAliases = map[string]Blockchain{
	"btc":        BlockchainBTC,
	"bitcoin":    BlockchainBTC,
	"eth":        BlockchainETH,
	"ethereum":   BlockchainETH,
	"usdt_trc20": BlockchainUSDTTRC20,
	"usdt-trc20": BlockchainUSDTTRC20,
	"usdt_erc20": BlockchainUSDTERC20,
	"usdt-erc20": BlockchainUSDTERC20,
	"bnb":        BlockchainBNB,
	"bsc":        BlockchainBNB,
	"matic":      BlockchainMATIC,
	"polygon":    BlockchainMATIC,
	"trx":        BlockchainTRX,
	"tron":       BlockchainTRX,
}

// ParseBlockchain maps free text (ticker or network name) onto a Blockchain, falling back to other
func ParseBlockchain(s string) Blockchain {
	if b, ok := blockchainAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return b
	}
	return BlockchainOther
}

// Network returns the underlying network the chain settles on
func (b Blockchain) Network() string {
	switch b {
	case BlockchainBTC:
		return "bitcoin"
	case BlockchainETH, BlockchainUSDTERC20:
		return "ethereum"
	case BlockchainTRX, BlockchainUSDTTRC20:
		return "tron"
	case BlockchainBNB:
		return "bsc"
	case BlockchainMATIC:
		return "polygon"
	default:
		return "other"
	}
}

// RiskFlag is the risk marker attached to a transaction
type RiskFlag string

const (
	RiskFlagNone          RiskFlag = "none"
	RiskFlagMixerDetected RiskFlag = "mixer_detected"
	RiskFlagTornadoCash   RiskFlag = "tornado_cash"
	RiskFlagHighValue     RiskFlag = "high_value"
	RiskFlagExchange      RiskFlag = "exchange"
	RiskFlagFromMixer     RiskFlag = "from_mixer"
	RiskFlagSanctioned    RiskFlag = "sanctioned"
	RiskFlagGambling      RiskFlag = "gambling"
	RiskFlagDarknet       RiskFlag = "darknet"
	RiskFlagUnknown       RiskFlag = "unknown"
)

var riskFlags = map[string]RiskFlag{
	"none":           RiskFlagNone,
	"mixer_detected": RiskFlagMixerDetected,
	"tornado_cash":   RiskFlagTornadoCash,
	"high_value":     RiskFlagHighValue,
	"exchange":       RiskFlagExchange,
	"from_mixer":     RiskFlagFromMixer,
	"sanctioned":     RiskFlagSanctioned,
	"gambling":       RiskFlagGambling,
	"darknet":        RiskFlagDarknet,
}

// ParseRiskFlag maps free text onto a RiskFlag. Empty input is none, anything unrecognized is unknown.
func ParseRiskFlag(s string) RiskFlag {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RiskFlagNone
	}
	if f, ok := riskFlags[s]; ok {
		return f
	}
	return RiskFlagUnknown
}

// HighRiskTransactionScore is the score from which a transaction counts as high risk
const HighRiskTransactionScore = 70

// CryptoTransaction is one on-chain transfer imported from a forensic export or live lookup
type CryptoTransaction struct {
	ID          int64      `json:"id" db:"id"`
	CaseID      int64      `json:"case_id" db:"case_id"`
	EvidenceID  *uuid.UUID `json:"evidence_id,omitempty" db:"evidence_id"`
	Blockchain  Blockchain `json:"blockchain" db:"blockchain"`
	TxHash      string     `json:"tx_hash,omitempty" db:"tx_hash"`
	BlockNumber *int64     `json:"block_number,omitempty" db:"block_number"`
	FromAddress string     `json:"from_address" db:"from_address"`
	FromLabel   string     `json:"from_label,omitempty" db:"from_label"`
	ToAddress   string     `json:"to_address" db:"to_address"`
	ToLabel     string     `json:"to_label,omitempty" db:"to_label"`
	Amount      float64    `json:"amount" db:"amount"`
	AmountUSD   float64    `json:"amount_usd" db:"amount_usd"`
	Fee         float64    `json:"fee" db:"fee"`
	Timestamp   *time.Time `json:"timestamp,omitempty" db:"timestamp"`
	RiskFlag    RiskFlag   `json:"risk_flag" db:"risk_flag"`
	RiskScore   int        `json:"risk_score" db:"risk_score"`
	IsIncoming  bool       `json:"is_incoming" db:"is_incoming"`
	IsContract  bool       `json:"is_contract_interaction" db:"is_contract_interaction"`
	MethodName  string     `json:"method_name,omitempty" db:"method_name"`
	Notes       string     `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Validate normalizes enum fields and checks required fields
func (t *CryptoTransaction) Validate() error {
	t.FromAddress = strings.TrimSpace(t.FromAddress)
	t.ToAddress = strings.TrimSpace(t.ToAddress)
	if t.FromAddress == "" || t.ToAddress == "" {
		return ValidationError("crypto transaction requires from_address and to_address")
	}
	if t.RiskScore < 0 || t.RiskScore > 100 {
		return ValidationError("crypto transaction risk_score %d out of range 0-100", t.RiskScore)
	}
	t.Blockchain = ParseBlockchain(string(t.Blockchain))
	t.RiskFlag = ParseRiskFlag(string(t.RiskFlag))
	return nil
}

// CryptoWallet aggregates activity and risk for one address within a case
type CryptoWallet struct {
	ID               int64        `json:"id" db:"id"`
	CaseID           int64        `json:"case_id" db:"case_id"`
	Address          string       `json:"address" db:"address"`
	Blockchain       Blockchain   `json:"blockchain" db:"blockchain"`
	Label            string       `json:"label,omitempty" db:"label"`
	OwnerName        string       `json:"owner_name,omitempty" db:"owner_name"`
	OwnerType        string       `json:"owner_type,omitempty" db:"owner_type"` // suspect, victim, exchange, mixer
	TotalReceived    float64      `json:"total_received" db:"total_received"`
	TotalSent        float64      `json:"total_sent" db:"total_sent"`
	TotalReceivedUSD float64      `json:"total_received_usd" db:"total_received_usd"`
	TotalSentUSD     float64      `json:"total_sent_usd" db:"total_sent_usd"`
	TransactionCount int          `json:"transaction_count" db:"transaction_count"`
	RiskScore        int          `json:"risk_score" db:"risk_score"`
	RiskFactors      []RiskFactor `json:"risk_factors,omitempty" db:"risk_factors"`
	IsSuspect        bool         `json:"is_suspect" db:"is_suspect"`
	IsExchange       bool         `json:"is_exchange" db:"is_exchange"`
	IsMixer          bool         `json:"is_mixer" db:"is_mixer"`
	IsSanctioned     bool         `json:"is_sanctioned" db:"is_sanctioned"`
	FirstTxDate      *time.Time   `json:"first_tx_date,omitempty" db:"first_tx_date"`
	LastTxDate       *time.Time   `json:"last_tx_date,omitempty" db:"last_tx_date"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// EntityCategory classifies a known on-chain service
type EntityCategory string

const (
	CategoryExchange EntityCategory = "exchange"
	CategoryDeFi     EntityCategory = "defi"
	CategoryMixer    EntityCategory = "mixer"
	CategoryGambling EntityCategory = "gambling"
	CategoryDarknet  EntityCategory = "darknet"
	CategoryUnknown  EntityCategory = "unknown"
)

// Resolution is the resolver's classification of an address.
// Degraded is set when sanctions screening could not be confirmed by an external provider.
type Resolution struct {
	Address        string         `json:"address"`
	Blockchain     Blockchain     `json:"blockchain"`
	IsSanctioned   bool           `json:"is_sanctioned"`
	SanctionSource string         `json:"sanction_source,omitempty"`
	Labels         []string       `json:"labels"`
	Factors        []RiskFactor   `json:"factors,omitempty"`
	EntityName     string         `json:"entity_name,omitempty"`
	Category       EntityCategory `json:"category,omitempty"`
	RiskTier       RiskLevel      `json:"risk_tier"`
	Degraded       bool           `json:"degraded"`
}

// WalletInfo is live wallet data returned by a blockchain provider
type WalletInfo struct {
	Address       string     `json:"address"`
	Blockchain    Blockchain `json:"blockchain"`
	Balance       float64    `json:"balance"`
	BalanceUSD    float64    `json:"balance_usd"`
	TotalReceived float64    `json:"total_received"`
	TotalSent     float64    `json:"total_sent"`
	TxCount       int        `json:"tx_count"`
	Labels        []string   `json:"labels,omitempty"`
	Provider      string     `json:"provider"`
	FetchedAt     time.Time  `json:"fetched_at"`
}

// TransactionInfo is one transaction returned by a blockchain provider
type TransactionInfo struct {
	Hash        string     `json:"hash"`
	Blockchain  Blockchain `json:"blockchain"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	Amount      float64    `json:"amount"`
	BlockNumber int64      `json:"block_number,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	IsError     bool       `json:"is_error,omitempty"`
}

// ScreeningResult is a provider's sanctions verdict for an address
type ScreeningResult struct {
	Address        string       `json:"address"`
	IsSanctioned   bool         `json:"is_sanctioned"`
	SanctionSource string       `json:"sanction_source,omitempty"`
	Labels         []string     `json:"labels"`
	Factors        []RiskFactor `json:"factors,omitempty"`
	RiskScore      int          `json:"risk_score"`
	Provider       string       `json:"provider"`
}

// WalletReport is the outcome of an on-demand wallet lookup
type WalletReport struct {
	Wallet     WalletInfo     `json:"wallet"`
	Resolution Resolution     `json:"resolution"`
	Risk       RiskAssessment `json:"risk"`
	Degraded   bool           `json:"degraded"`
}

// CryptoSummary aggregates the crypto data of a case
type CryptoSummary struct {
	TotalTransactions    int          `json:"totalTransactions"`
	TotalWallets         int          `json:"totalWallets"`
	TotalValueUSD        float64      `json:"totalValueUSD"`
	HighRiskTransactions int          `json:"highRiskTransactions"`
	Blockchains          []Blockchain `json:"blockchains"`
}

// CryptoData is the crypto visualization payload of a case
type CryptoData struct {
	Transactions []CryptoTransaction `json:"transactions"`
	Wallets      []CryptoWallet      `json:"wallets"`
	Summary      CryptoSummary       `json:"summary"`
}

// CryptoStats counts a case's crypto data grouped by chain
type CryptoStats struct {
	TotalTransactions int                `json:"total_transactions"`
	TotalWallets      int                `json:"total_wallets"`
	TotalValueUSD     float64            `json:"total_value_usd"`
	HighRiskCount     int                `json:"high_risk_count"`
	Blockchains       map[Blockchain]int `json:"blockchains"`
}
