// File: internal/chain/validate.go
package chain

import (
	"github.com/mr-tron/base58"
)

// ValidAddress checks the destination's syntactic shape before any
// network call is made: a base58 string of length 32-44 (the range a
// 32-byte Solana public key base58-encodes to). Exported so callers
// outside this package (the payment engine) can reject a malformed
// withdrawal destination before persisting a Transaction row.
func ValidAddress(addr string) bool {
	return validAddress(addr)
}

func validAddress(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

// EOF: internal/chain/validate.go
