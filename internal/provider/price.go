package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/cache"
	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/ratelimit"
)

// fallbackUSD is used when the live price API fails. These are stale approximations;
// balances priced with them are flagged as not live.
var fallbackUSD = map[string]float64{
	"bitcoin":       43000,
	"ethereum":      3000,
	"tron":          0.1,
	"binancecoin":   300,
	"matic-network": 0.8,
	"tether":        1,
}

// PriceOracle quotes native coin prices in USD
type PriceOracle struct {
	up      *upstream
	baseURL string
	cache   *cache.TTL[string, float64]
	logger  *zap.Logger
}

// NewPriceOracle creates an oracle backed by a CoinGecko compatible simple price API
func NewPriceOracle(client *http.Client, gate ratelimit.Gate, baseURL string, prices *cache.TTL[string, float64], logger *zap.Logger) *PriceOracle {
	return &PriceOracle{
		up:      newUpstream("coingecko", client, gate),
		baseURL: baseURL,
		cache:   prices,
		logger:  logger,
	}
}

// coinID maps a chain to the coin its balances are denominated in
func coinID(chain domain.Blockchain) string {
	switch chain {
	case domain.BlockchainUSDTERC20, domain.BlockchainUSDTTRC20:
		return "tether"
	}
	switch chain.Network() {
	case "bitcoin":
		return "bitcoin"
	case "ethereum":
		return "ethereum"
	case "tron":
		return "tron"
	case "bsc":
		return "binancecoin"
	case "polygon":
		return "matic-network"
	default:
		return ""
	}
}

// nativeCoinID is the coin a wallet's native balance is held in, ignoring token networks
func nativeCoinID(chain domain.Blockchain) string {
	switch chain {
	case domain.BlockchainUSDTERC20:
		return coinID(domain.BlockchainETH)
	case domain.BlockchainUSDTTRC20:
		return coinID(domain.BlockchainTRX)
	default:
		return coinID(chain)
	}
}

// USD returns the price of one coin and whether it came from the live API
func (o *PriceOracle) USD(ctx context.Context, coin string) (float64, bool) {
	if coin == "" {
		return 0, false
	}
	if p, ok := o.cache.Get(coin); ok {
		return p, true
	}

	price, err := o.fetch(ctx, coin)
	if err != nil {
		o.logger.Warn("Price lookup failed, using fallback table", zap.String("coin", coin), zap.Error(err))
		return fallbackUSD[coin], false
	}
	o.cache.Set(coin, price)
	return price, true
}

// QuoteChain prices one unit of the asset a chain's transactions are denominated in
func (o *PriceOracle) QuoteChain(ctx context.Context, chain domain.Blockchain) (float64, bool) {
	return o.USD(ctx, coinID(chain))
}

func (o *PriceOracle) fetch(ctx context.Context, coin string) (float64, error) {
	q := url.Values{}
	q.Set("ids", coin)
	q.Set("vs_currencies", "usd")

	status, body, err := o.up.get(ctx, o.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, unexpectedStatus(o.up.name, status)
	}

	price := gjson.GetBytes(body, coin+".usd")
	if !price.Exists() || price.Float() <= 0 {
		return 0, domain.UpstreamError(o.up.name, fmt.Errorf("no usd price for %s", coin))
	}
	return price.Float(), nil
}
