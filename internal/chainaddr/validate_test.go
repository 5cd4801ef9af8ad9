package chainaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/investigate/case-graph/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		address string
		chain   domain.Blockchain
		wantErr bool
	}{
		{"eth ok", "0x8589427373d6d84e98730d7795d8f6f8731fda16", domain.BlockchainETH, false},
		{"erc20 ok", "0x28C6c06298d514Db089934071355E5743bf21d60", domain.BlockchainUSDTERC20, false},
		{"eth short", "0x1234", domain.BlockchainETH, true},
		{"btc p2pkh", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", domain.BlockchainBTC, false},
		{"btc bech32", "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", domain.BlockchainBTC, false},
		{"btc garbage", "not-a-bitcoin-address", domain.BlockchainBTC, true},
		{"tron ok", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", domain.BlockchainUSDTTRC20, false},
		{"tron bad checksum", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u", domain.BlockchainTRX, true},
		{"other anything", "whatever", domain.BlockchainOther, false},
		{"empty", "  ", domain.BlockchainOther, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.address, tt.chain)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "0xabcdef", Normalize(" 0xABCdef "))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("0xABCdef", domain.BlockchainETH), Key(" 0xabcDEF", domain.BlockchainETH))
	assert.Equal(t, "btc:12QtD5BFwRsdNsAZY76UVE1xyCGNTojH9h", Key("12QtD5BFwRsdNsAZY76UVE1xyCGNTojH9h ", domain.BlockchainBTC))
	assert.NotEqual(t, Key("TXyz", domain.BlockchainTRX), Key("txyz", domain.BlockchainTRX))
	assert.NotEqual(t, Key("0xabc", domain.BlockchainETH), Key("0xabc", domain.BlockchainBNB))
}
