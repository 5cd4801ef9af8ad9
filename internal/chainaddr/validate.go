package chainaddr

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"

	"github.com/investigate/case-graph/internal/domain"
)

const tronAddressVersion = 0x41

// Validate checks that address is well formed for the given chain.
// Chains without a known format only require a non-empty value.
func Validate(address string, chain domain.Blockchain) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.ValidationError("address is required")
	}

	switch chain.Network() {
	case "bitcoin":
		if _, err := btcutil.DecodeAddress(address, &chaincfg.MainNetParams); err != nil {
			return domain.ValidationError("invalid bitcoin address %q", address)
		}
	case "ethereum", "bsc", "polygon":
		if !common.IsHexAddress(address) {
			return domain.ValidationError("invalid %s address %q", chain.Network(), address)
		}
	case "tron":
		payload, version, err := base58.CheckDecode(address)
		if err != nil || version != tronAddressVersion || len(payload) != 20 {
			return domain.ValidationError("invalid tron address %q", address)
		}
	}
	return nil
}

// Normalize lowercases an address for the known-entity registry, which stores hex and
// base58 entries alike in lowercase.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Key returns the cache key of an address on a chain. Only EVM addresses fold case;
// base58 addresses that differ in case are different addresses.
func Key(address string, chain domain.Blockchain) string {
	address = strings.TrimSpace(address)
	switch chain.Network() {
	case "ethereum", "bsc", "polygon":
		address = strings.ToLower(address)
	}
	return string(chain) + ":" + address
}
