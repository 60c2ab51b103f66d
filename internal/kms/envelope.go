// Package kms: the on-wire envelope format shared by every provider.
//
// A blob is base64 of:
//
//	u32 LE dek_len | wrapped_dek (dek_len bytes) | iv (12 bytes) | AES-256-GCM(ciphertext || tag)
//
// The DEK is 32 bytes, generated fresh for every Encrypt call. The inner
// AES-GCM seal already appends its 16-byte tag to the ciphertext, so the
// wire layout's "ciphertext | tag" split is just that sealed blob
// treated as one opaque run of bytes.
//
// File: internal/kms/envelope.go
package kms

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

const dekSize = 32
const ivSize = 12

// wrapFunc wraps a plaintext DEK under a provider's master key.
type wrapFunc func(dek []byte) (wrapped []byte, err error)

// unwrapFunc reverses wrapFunc.
type unwrapFunc func(wrapped []byte) (dek []byte, err error)

// seal generates a fresh DEK, wraps it with wrap, and AES-256-GCM
// encrypts plaintext under the plaintext DEK. The DEK is zeroed before
// seal returns, on every exit path.
func seal(plaintext []byte, wrap wrapFunc) (blob string, err error) {
	dek := make([]byte, dekSize)
	if _, err := rand.Read(dek); err != nil {
		return "", fmt.Errorf("kms: generate dek: %w", err)
	}
	defer zero(dek)

	wrapped, err := wrap(dek)
	if err != nil {
		return "", fmt.Errorf("kms: wrap dek: %w", err)
	}

	block, err := aes.NewCipher(dek)
	if err != nil {
		return "", fmt.Errorf("kms: new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("kms: new gcm: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("kms: generate iv: %w", err)
	}
	sealed := aesgcm.Seal(nil, iv, plaintext, nil)

	out := make([]byte, 0, 4+len(wrapped)+ivSize+len(sealed))
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(wrapped)))
	out = append(out, lenBuf...)
	out = append(out, wrapped...)
	out = append(out, iv...)
	out = append(out, sealed...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// sealWithFixedDEK seals plaintext under a DEK the caller already has
// (e.g. returned alongside its wrapped form by a GenerateDataKey call),
// instead of generating one and calling a wrap callback. The DEK is
// zeroed before returning.
func sealWithFixedDEK(plaintext, dek, wrapped []byte) (blob string, err error) {
	defer zero(dek)

	block, err := aes.NewCipher(dek)
	if err != nil {
		return "", fmt.Errorf("kms: new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("kms: new gcm: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("kms: generate iv: %w", err)
	}
	sealed := aesgcm.Seal(nil, iv, plaintext, nil)

	out := make([]byte, 0, 4+len(wrapped)+ivSize+len(sealed))
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(wrapped)))
	out = append(out, lenBuf...)
	out = append(out, wrapped...)
	out = append(out, iv...)
	out = append(out, sealed...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// open reverses seal, unwrapping the DEK with unwrap and verifying the
// GCM tag. Any failure (malformed blob, unwrap refusal, tag mismatch)
// collapses to ErrAuth.
func open(blob string, unwrap unwrapFunc) (plaintext []byte, err error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: decode blob: %v", ErrAuth, err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: blob too short", ErrAuth)
	}
	dekLen := int(binary.LittleEndian.Uint32(raw[:4]))
	raw = raw[4:]
	if dekLen < 0 || len(raw) < dekLen+ivSize {
		return nil, fmt.Errorf("%w: blob truncated", ErrAuth)
	}
	wrapped := raw[:dekLen]
	iv := raw[dekLen : dekLen+ivSize]
	sealed := raw[dekLen+ivSize:]

	dek, err := unwrap(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap dek: %v", ErrAuth, err)
	}
	defer zero(dek)

	block, err := aes.NewCipher(dek)
	if err != nil {
		return nil, fmt.Errorf("%w: new cipher: %v", ErrAuth, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: new gcm: %v", ErrAuth, err)
	}

	plaintext, err = aesgcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: tag verification failed", ErrAuth)
	}
	return plaintext, nil
}

// zero overwrites b with zero bytes. Used to scrub DEKs and secrets
// before they go out of scope.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// EOF: internal/kms/envelope.go
