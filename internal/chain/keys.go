// File: internal/chain/keys.go
package chain

import (
	"github.com/gagliardetto/solana-go"
)

// GenerateKeypair creates a fresh Ed25519 keypair in the chain's native
// encoding. It is pure and touches no network.
func GenerateKeypair() (pub string, secret [64]byte, err error) {
	wallet, err := solana.NewRandomPrivateKey()
	if err != nil {
		return "", [64]byte{}, err
	}
	copy(secret[:], wallet[:])
	return wallet.PublicKey().String(), secret, nil
}

// EOF: internal/chain/keys.go
