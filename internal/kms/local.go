// File: internal/kms/local.go
package kms

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// LocalProvider wraps DEKs with a 32-byte symmetric master key held in
// process configuration. It never leaves the process. This provider is
// explicitly NOT for production use; it exists so the rest of the
// system can run against a real envelope-encryption path without a
// cloud KMS dependency.
type LocalProvider struct {
	masterKey []byte // 32 bytes
}

// NewLocalProvider constructs a LocalProvider from a 32-byte master key.
func NewLocalProvider(masterKey []byte) (*LocalProvider, error) {
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("kms: local provider requires a 32-byte master key, got %d", len(masterKey))
	}
	key := make([]byte, 32)
	copy(key, masterKey)
	return &LocalProvider{masterKey: key}, nil
}

// Scrypt parameters for passphrase-derived master keys (N=32768, r=8,
// p=1). The salt is fixed: the derived key must be identical across
// restarts or every previously wrapped DEK becomes unrecoverable, and
// a dev-only provider has no key store to persist a random salt in.
const (
	scryptN   = 32768
	scryptR   = 8
	scryptP   = 1
	localSalt = "paymentcore-local-kms-v1"
)

// NewLocalProviderFromPassphrase derives the 32-byte master key from a
// passphrase with scrypt. Like NewLocalProvider, NOT for production.
func NewLocalProviderFromPassphrase(passphrase string) (*LocalProvider, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("kms: local provider passphrase is empty")
	}
	key, err := scrypt.Key([]byte(passphrase), []byte(localSalt), scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, fmt.Errorf("kms: derive local master key: %w", err)
	}
	return &LocalProvider{masterKey: key}, nil
}

// KeyVersion is the fixed version identifier for the local provider;
// there is only ever one local master key.
const LocalKeyVersion = "local-v1"

func (p *LocalProvider) wrap(dek []byte) ([]byte, error) {
	block, err := aes.NewCipher(p.masterKey)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	// Prefix the wrap-IV so unwrap can recover it; this nested seal uses
	// the same AES-GCM primitive as the outer envelope but under the
	// master key instead of the DEK.
	sealed := aesgcm.Seal(iv, iv, dek, nil)
	return sealed, nil
}

func (p *LocalProvider) unwrap(wrapped []byte) ([]byte, error) {
	if len(wrapped) < ivSize {
		return nil, fmt.Errorf("kms: local: wrapped dek too short")
	}
	iv := wrapped[:ivSize]
	sealed := wrapped[ivSize:]
	block, err := aes.NewCipher(p.masterKey)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, iv, sealed, nil)
}

// Encrypt implements Provider.
func (p *LocalProvider) Encrypt(ctx context.Context, plaintext []byte) (string, string, error) {
	blob, err := seal(plaintext, p.wrap)
	if err != nil {
		return "", "", err
	}
	return blob, LocalKeyVersion, nil
}

// Decrypt implements Provider.
func (p *LocalProvider) Decrypt(ctx context.Context, blob string, keyVersion string) ([]byte, error) {
	if keyVersion != LocalKeyVersion {
		return nil, fmt.Errorf("%w: unknown local key version %q", ErrAuth, keyVersion)
	}
	return open(blob, p.unwrap)
}

// EOF: internal/kms/local.go
