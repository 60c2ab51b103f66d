// File: internal/chain/mints.go
package chain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// MintsFromConfig builds the Token->mint-address map NewGateway needs
// from the two base58 mint addresses supplied in configuration.
func MintsFromConfig(usdcMint, usdtMint string) (map[Token]solana.PublicKey, error) {
	usdc, err := solana.PublicKeyFromBase58(usdcMint)
	if err != nil {
		return nil, fmt.Errorf("chain: parse usdc mint: %w", err)
	}
	usdt, err := solana.PublicKeyFromBase58(usdtMint)
	if err != nil {
		return nil, fmt.Errorf("chain: parse usdt mint: %w", err)
	}
	return map[Token]solana.PublicKey{
		TokenUSDC: usdc,
		TokenUSDT: usdt,
	}, nil
}

// EOF: internal/chain/mints.go
