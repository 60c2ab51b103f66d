// Package walletcrypto generates and custodies Ed25519 wallet keypairs,
// envelope-sealing the secret key through a kms.Provider into a
// payload bound to its owning user. It never persists anything itself;
// callers hand the returned blob to the store layer and feed it back
// for decrypt/rotate.
//
// File: internal/walletcrypto/wallet.go
package walletcrypto

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/cedrosys/paymentcore/internal/kms"
)

// KeyAlgorithm is the fixed algorithm label stored alongside every
// wallet's encrypted blob.
const KeyAlgorithm = "AES-256-GCM"

// Wallet is the crypto-layer view of a custodial wallet: the public
// key plus whatever the KMS provider needs to recover the secret. The store layer's
// persisted record carries the same fields plus cached balances.
type Wallet struct {
	UserID        uuid.UUID
	PublicKey     string // base58
	EncryptedBlob string
	KeyVersion    string
	KeyAlgorithm  string
}

// Secret holds a decrypted 64-byte Ed25519 private key for the
// duration of one scoped use. Callers must `defer secret.Release()`
// immediately after acquiring it; Release zeroes the backing array so
// the key does not linger in memory past its use.
type Secret struct {
	key ed25519.PrivateKey
}

// Key returns the raw 64-byte Ed25519 private key. The returned slice
// aliases Secret's internal storage; it must not be retained past
// Release.
func (s *Secret) Key() ed25519.PrivateKey {
	return s.key
}

// Release zeroes the secret key material.
func (s *Secret) Release() {
	for i := range s.key {
		s.key[i] = 0
	}
}

// Crypto implements generate/decrypt/rotate/validate over a kms.Provider.
type Crypto struct {
	provider kms.Provider
}

// NewCrypto constructs a Crypto bound to the given KMS provider.
func NewCrypto(provider kms.Provider) *Crypto {
	return &Crypto{provider: provider}
}

// Generate creates a new Ed25519 keypair for userID, seals the secret
// key inside an EncryptedPayload bound to userID, and returns the
// resulting Wallet. The plaintext secret is zeroed before return.
func (c *Crypto) Generate(ctx context.Context, userID uuid.UUID) (Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return Wallet{}, fmt.Errorf("walletcrypto: generate keypair: %w", err)
	}
	defer zeroBytes(priv)

	payload, err := newPayload(userID, priv)
	if err != nil {
		return Wallet{}, err
	}
	raw, err := payload.MarshalBinary()
	if err != nil {
		return Wallet{}, err
	}
	defer zeroBytes(raw)

	blob, keyVersion, err := c.provider.Encrypt(ctx, raw)
	if err != nil {
		return Wallet{}, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return Wallet{
		UserID:        userID,
		PublicKey:     base58.Encode(pub),
		EncryptedBlob: blob,
		KeyVersion:    keyVersion,
		KeyAlgorithm:  KeyAlgorithm,
	}, nil
}

// Decrypt recovers the wallet's secret key, validating the payload's
// magic, version, and embedded user binding against w. The caller must
// release the returned Secret.
func (c *Crypto) Decrypt(ctx context.Context, w Wallet) (*Secret, error) {
	raw, err := c.provider.Decrypt(ctx, w.EncryptedBlob, w.KeyVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	defer zeroBytes(raw)

	var payload EncryptedPayload
	if err := payload.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	if payload.UserID != w.UserID {
		return nil, ErrUserMismatch
	}

	key := make(ed25519.PrivateKey, secretKeyLen)
	copy(key, payload.SecretKey[:])
	zeroBytes(payload.SecretKey[:])

	derived := key.Public().(ed25519.PublicKey)
	if base58.Encode(derived) != w.PublicKey {
		zeroBytes(key)
		return nil, ErrKeyMismatch
	}

	return &Secret{key: key}, nil
}

// Rotate decrypts w under its current key_version and re-encrypts the
// same secret, picking up whatever key_version the provider currently
// considers current. The public key is unchanged.
func (c *Crypto) Rotate(ctx context.Context, w Wallet) (Wallet, error) {
	secret, err := c.Decrypt(ctx, w)
	if err != nil {
		return Wallet{}, err
	}
	defer secret.Release()

	payload, err := newPayload(w.UserID, secret.Key())
	if err != nil {
		return Wallet{}, err
	}
	raw, err := payload.MarshalBinary()
	if err != nil {
		return Wallet{}, err
	}
	defer zeroBytes(raw)

	blob, keyVersion, err := c.provider.Encrypt(ctx, raw)
	if err != nil {
		return Wallet{}, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	rotated := w
	rotated.EncryptedBlob = blob
	rotated.KeyVersion = keyVersion
	return rotated, nil
}

// Validate reports whether w's blob decrypts successfully, discarding
// the secret. Used by the validate_encryptions scheduler job.
func (c *Crypto) Validate(ctx context.Context, w Wallet) bool {
	secret, err := c.Decrypt(ctx, w)
	if err != nil {
		return false
	}
	secret.Release()
	return true
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// EOF: internal/walletcrypto/wallet.go
