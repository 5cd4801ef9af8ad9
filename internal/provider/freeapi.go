package provider

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/ratelimit"
	"github.com/investigate/case-graph/internal/resolver"
)

const (
	weiPerEther  = 1e18
	satPerBTC    = 1e8
	sunPerTRX    = 1e6
	freeProvider = "free_api"
)

// FreeAPIURLs holds the base URLs of the public explorers
type FreeAPIURLs struct {
	Etherscan  string
	Blockchair string
	Tronscan   string
}

// FreeAPI queries public block explorers: Etherscan for EVM, Blockchair for Bitcoin, Tronscan for TRON.
// It is always available; per-chain calls may still fail when an explorer needs a key.
type FreeAPI struct {
	up       *upstream
	keys     KeySource
	registry *resolver.Registry
	prices   *PriceOracle
	urls     FreeAPIURLs
	now      func() time.Time
}

// NewFreeAPI creates the free explorer strategy
func NewFreeAPI(client *http.Client, gate ratelimit.Gate, keys KeySource, registry *resolver.Registry, prices *PriceOracle, urls FreeAPIURLs) *FreeAPI {
	return &FreeAPI{
		up:       newUpstream(freeProvider, client, gate),
		keys:     keys,
		registry: registry,
		prices:   prices,
		urls:     urls,
		now:      time.Now,
	}
}

// Name implements Provider
func (f *FreeAPI) Name() string { return freeProvider }

// Available implements Provider
func (f *FreeAPI) Available(context.Context) bool { return true }

// Capabilities implements Provider
func (f *FreeAPI) Capabilities() []string {
	return []string{CapabilityWalletInfo, CapabilityTransactions, CapabilitySanctions}
}

// WalletInfo implements Provider
func (f *FreeAPI) WalletInfo(ctx context.Context, address string, chain domain.Blockchain) (domain.WalletInfo, error) {
	var (
		info domain.WalletInfo
		err  error
	)
	switch chain.Network() {
	case "ethereum":
		info, err = f.etherscanWallet(ctx, address)
	case "bitcoin":
		info, err = f.blockchairWallet(ctx, address)
	case "tron":
		info, err = f.tronscanWallet(ctx, address)
	default:
		info = domain.WalletInfo{}
	}
	if err != nil {
		return domain.WalletInfo{}, err
	}

	info.Address = address
	info.Blockchain = chain
	info.Provider = freeProvider
	info.FetchedAt = f.now().UTC()
	info.Labels = []string{}
	if known, ok := f.registry.Lookup(address); ok {
		info.Labels = append(info.Labels, known.Name)
	}
	if info.BalanceUSD == 0 && info.Balance > 0 && f.prices != nil {
		price, _ := f.prices.USD(ctx, nativeCoinID(chain))
		info.BalanceUSD = info.Balance * price
	}
	return info, nil
}

func (f *FreeAPI) etherscanWallet(ctx context.Context, address string) (domain.WalletInfo, error) {
	key := f.keys.APIKey(ctx, domain.ProviderEtherscan)
	if key == "" {
		return domain.WalletInfo{}, domain.UpstreamError("etherscan", ErrMissingCredential)
	}

	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "balance")
	q.Set("address", address)
	q.Set("tag", "latest")
	q.Set("apikey", key)

	body, err := f.etherscanGet(ctx, q)
	if err != nil {
		return domain.WalletInfo{}, err
	}

	wei, ok := new(big.Float).SetString(gjson.GetBytes(body, "result").String())
	if !ok {
		return domain.WalletInfo{}, domain.UpstreamError("etherscan", fmt.Errorf("malformed balance"))
	}
	balance, _ := new(big.Float).Quo(wei, big.NewFloat(weiPerEther)).Float64()
	return domain.WalletInfo{Balance: balance}, nil
}

// etherscanGet runs an account module query and checks the envelope status
func (f *FreeAPI) etherscanGet(ctx context.Context, q url.Values) ([]byte, error) {
	status, body, err := f.up.get(ctx, f.urls.Etherscan+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, unexpectedStatus("etherscan", status)
	}
	env := gjson.ParseBytes(body)
	if env.Get("status").String() != "1" {
		// "No transactions found" is a valid empty answer
		if strings.HasPrefix(env.Get("message").String(), "No transactions") {
			return body, nil
		}
		return nil, domain.UpstreamError("etherscan", fmt.Errorf("%s", env.Get("message").String()))
	}
	return body, nil
}

func (f *FreeAPI) blockchairWallet(ctx context.Context, address string) (domain.WalletInfo, error) {
	u := fmt.Sprintf("%s/bitcoin/dashboards/address/%s", f.urls.Blockchair, url.PathEscape(address))
	if key := f.keys.APIKey(ctx, domain.ProviderBlockchair); key != "" {
		u += "?key=" + url.QueryEscape(key)
	}

	status, body, err := f.up.get(ctx, u, nil)
	if err != nil {
		return domain.WalletInfo{}, err
	}
	if status != http.StatusOK {
		return domain.WalletInfo{}, unexpectedStatus("blockchair", status)
	}

	var addr gjson.Result
	gjson.GetBytes(body, "data").ForEach(func(key, value gjson.Result) bool {
		if strings.EqualFold(key.String(), address) {
			addr = value.Get("address")
			return false
		}
		return true
	})
	if !addr.Exists() {
		return domain.WalletInfo{}, domain.UpstreamError("blockchair", fmt.Errorf("address missing from response"))
	}

	return domain.WalletInfo{
		Balance:       addr.Get("balance").Float() / satPerBTC,
		BalanceUSD:    addr.Get("balance_usd").Float(),
		TotalReceived: addr.Get("received").Float() / satPerBTC,
		TotalSent:     addr.Get("spent").Float() / satPerBTC,
		TxCount:       int(addr.Get("transaction_count").Int()),
	}, nil
}

func (f *FreeAPI) tronscanWallet(ctx context.Context, address string) (domain.WalletInfo, error) {
	status, body, err := f.up.get(ctx, f.urls.Tronscan+"/accountv2?address="+url.QueryEscape(address), nil)
	if err != nil {
		return domain.WalletInfo{}, err
	}
	if status != http.StatusOK {
		return domain.WalletInfo{}, unexpectedStatus("tronscan", status)
	}

	acct := gjson.ParseBytes(body)
	return domain.WalletInfo{
		Balance: acct.Get("balance").Float() / sunPerTRX,
		TxCount: int(acct.Get("transactions").Int()),
	}, nil
}

// Transactions implements Provider. Only EVM chains are listed; other chains return an empty page.
func (f *FreeAPI) Transactions(ctx context.Context, address string, chain domain.Blockchain, limit int) ([]domain.TransactionInfo, error) {
	if chain.Network() != "ethereum" {
		return []domain.TransactionInfo{}, nil
	}
	key := f.keys.APIKey(ctx, domain.ProviderEtherscan)
	if key == "" {
		return nil, domain.UpstreamError("etherscan", ErrMissingCredential)
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("page", "1")
	q.Set("offset", fmt.Sprint(limit))
	q.Set("sort", "desc")
	q.Set("apikey", key)

	body, err := f.etherscanGet(ctx, q)
	if err != nil {
		return nil, err
	}

	txs := []domain.TransactionInfo{}
	gjson.GetBytes(body, "result").ForEach(func(_, tx gjson.Result) bool {
		wei, ok := new(big.Float).SetString(tx.Get("value").String())
		amount := 0.0
		if ok {
			amount, _ = new(big.Float).Quo(wei, big.NewFloat(weiPerEther)).Float64()
		}
		txs = append(txs, domain.TransactionInfo{
			Hash:        tx.Get("hash").String(),
			Blockchain:  chain,
			From:        tx.Get("from").String(),
			To:          tx.Get("to").String(),
			Amount:      amount,
			BlockNumber: tx.Get("blockNumber").Int(),
			Timestamp:   time.Unix(tx.Get("timeStamp").Int(), 0).UTC(),
			IsError:     tx.Get("isError").String() == "1",
		})
		return true
	})
	return txs, nil
}

// ScreenAddress implements Provider using the static known-entity table only
func (f *FreeAPI) ScreenAddress(_ context.Context, address string, _ domain.Blockchain) (domain.ScreeningResult, error) {
	result := domain.ScreeningResult{
		Address:  address,
		Labels:   []string{},
		Provider: freeProvider,
	}

	known, ok := f.registry.Lookup(address)
	if !ok {
		return result, nil
	}
	result.Labels = append(result.Labels, known.Name)

	switch known.Category {
	case domain.CategoryMixer:
		result.IsSanctioned = true
		result.SanctionSource = "OFAC"
		result.RiskScore = 100
		result.Factors = []domain.RiskFactor{{
			Code:        "mixer",
			Description: fmt.Sprintf("Address associated with %s - OFAC Sanctioned", known.Name),
			Severity:    domain.RiskCritical,
			Points:      100,
		}}
	case domain.CategoryExchange:
		result.RiskScore = 10
	}
	return result, nil
}
