// File: internal/walletcrypto/errors.go
package walletcrypto

import "errors"

// Failure taxonomy for wallet payload decode/validation. CryptoAuth
// failures from the underlying kms.Provider are wrapped into
// DecryptionFailed rather than passed through, so callers never probe
// which layer rejected a blob.
var (
	ErrWalletInvalid     = errors.New("walletcrypto: wallet invalid")
	ErrDecryptionFailed  = errors.New("walletcrypto: decryption failed")
	ErrInvalidPayload    = errors.New("walletcrypto: invalid payload")
	ErrUnsupportedVersion = errors.New("walletcrypto: unsupported payload version")
	ErrUserMismatch      = errors.New("walletcrypto: payload user_id does not match wallet owner")
	ErrKeyMismatch       = errors.New("walletcrypto: decrypted secret does not derive the stored public key")
)

// EOF: internal/walletcrypto/errors.go
