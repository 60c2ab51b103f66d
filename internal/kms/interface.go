// Package kms provides envelope encryption rooted in an external key
// management service. Callers never see a master key: they encrypt and
// decrypt through a Provider, which wraps/unwraps a fresh data
// encryption key (DEK) per call and uses it, once, to seal the caller's
// plaintext with AES-256-GCM.
//
// File: internal/kms/interface.go
package kms

import "context"

// Provider is the contract every key custodian backend must satisfy:
// a local development key, or a cloud KMS/Key Vault. All implementations
// must be safe for concurrent use.
type Provider interface {
	// Encrypt wraps a fresh DEK under the provider's master key, seals
	// plaintext with it, and returns the opaque blob (base64, see
	// envelope.go) plus the provider's key version identifier.
	Encrypt(ctx context.Context, plaintext []byte) (blob string, keyVersion string, err error)

	// Decrypt reverses Encrypt. It fails with ErrAuth if the GCM tag
	// does not verify or the provider cannot unwrap the DEK under the
	// given key version.
	Decrypt(ctx context.Context, blob string, keyVersion string) ([]byte, error)
}

// EOF: internal/kms/interface.go
