package resolver

import (
	"sync"

	"github.com/investigate/case-graph/internal/chainaddr"
	"github.com/investigate/case-graph/internal/domain"
)

// KnownEntity is a labeled on-chain service address
type KnownEntity struct {
	Address        string                `json:"address"`
	Name           string                `json:"name"`
	Category       domain.EntityCategory `json:"category"`
	Tier           domain.RiskLevel      `json:"tier"`
	Sanctioned     bool                  `json:"sanctioned"`
	SanctionSource string                `json:"sanction_source,omitempty"`
}

// Registry is a case-insensitive table of known addresses
type Registry struct {
	mu      sync.RWMutex
	entries map[string]KnownEntity
}

// NewRegistry creates a registry holding the given entities
func NewRegistry(entities ...KnownEntity) *Registry {
	r := &Registry{entries: make(map[string]KnownEntity, len(entities))}
	for _, e := range entities {
		r.Add(e)
	}
	return r
}

// DefaultRegistry returns the built-in table of exchanges, DeFi routers and sanctioned mixers
func DefaultRegistry() *Registry {
	return NewRegistry(defaultEntities...)
}

// Add inserts or replaces an entity
func (r *Registry) Add(e KnownEntity) {
	key := chainaddr.Normalize(e.Address)
	r.mu.Lock()
	r.entries[key] = e
	r.mu.Unlock()
}

// Lookup finds an entity by address, ignoring case
func (r *Registry) Lookup(address string) (KnownEntity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[chainaddr.Normalize(address)]
	return e, ok
}

// Len returns the number of known addresses
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

var defaultEntities = []KnownEntity{
	// Binance
	{Address: "0x28c6c06298d514db089934071355e5743bf21d60", Name: "Binance Hot Wallet", Category: domain.CategoryExchange, Tier: domain.RiskLow},
	{Address: "0x21a31ee1afc51d94c2efccaa2092ad1028285549", Name: "Binance", Category: domain.CategoryExchange, Tier: domain.RiskLow},
	{Address: "0xdfd5293d8e347dfe59e90efd55b2956a1343963d", Name: "Binance", Category: domain.CategoryExchange, Tier: domain.RiskLow},
	// Bitkub
	{Address: "0x974caa59e49682cda0ad2bbe82983419a2ecc400", Name: "Bitkub Hot Wallet", Category: domain.CategoryExchange, Tier: domain.RiskLow},
	// Tornado Cash, OFAC SDN since 2022-08-08
	{Address: "0x8589427373d6d84e98730d7795d8f6f8731fda16", Name: "Tornado Cash", Category: domain.CategoryMixer, Tier: domain.RiskCritical, Sanctioned: true, SanctionSource: "OFAC"},
	{Address: "0x722122df12d4e14e13ac3b6895a86e84145b6967", Name: "Tornado Cash Router", Category: domain.CategoryMixer, Tier: domain.RiskCritical, Sanctioned: true, SanctionSource: "OFAC"},
	{Address: "0xd90e2f925da726b50c4ed8d0fb90ad053324f31b", Name: "Tornado Cash", Category: domain.CategoryMixer, Tier: domain.RiskCritical, Sanctioned: true, SanctionSource: "OFAC"},
	// Uniswap
	{Address: "0x7a250d5630b4cf539739df2c5dacb4c659f2488d", Name: "Uniswap V2 Router", Category: domain.CategoryDeFi, Tier: domain.RiskLow},
	{Address: "0x68b3465833fb72a70ecdf485e0e4c7bd8665fc45", Name: "Uniswap V3 Router", Category: domain.CategoryDeFi, Tier: domain.RiskLow},
}
