// File: internal/walletcrypto/payload.go
package walletcrypto

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	payloadMagic   = "PPWK"
	payloadVersion = uint8(1)

	magicLen  = 4
	versionLen = 1
	timestampLen = 8
	userIDLen = 16
	secretKeyLen = 64

	// PayloadSize is the fixed wire size of an EncryptedPayload in v1:
	// magic(4) | version(1) | timestamp(8) | user_id(16) | secret_key(64).
	PayloadSize = magicLen + versionLen + timestampLen + userIDLen + secretKeyLen
)

// EncryptedPayload is the plaintext sealed inside a Wallet's encrypted
// blob. It binds the secret key to the owning user_id so a row-swapped
// blob fails to decrypt for any user but its own.
type EncryptedPayload struct {
	Version   uint8
	Timestamp time.Time
	UserID    uuid.UUID
	SecretKey [secretKeyLen]byte // ed25519.PrivateKey, 64 bytes
}

// newPayload composes a fresh v1 payload for userID around secretKey.
func newPayload(userID uuid.UUID, secretKey []byte) (EncryptedPayload, error) {
	if len(secretKey) != secretKeyLen {
		return EncryptedPayload{}, fmt.Errorf("%w: secret key must be %d bytes, got %d", ErrInvalidPayload, secretKeyLen, len(secretKey))
	}
	p := EncryptedPayload{
		Version:   payloadVersion,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
	}
	copy(p.SecretKey[:], secretKey)
	return p, nil
}

// MarshalBinary encodes the payload to its fixed 93-byte v1 wire form.
func (p EncryptedPayload) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, PayloadSize)
	out = append(out, []byte(payloadMagic)...)
	out = append(out, p.Version)

	ts := make([]byte, timestampLen)
	binary.LittleEndian.PutUint64(ts, uint64(p.Timestamp.Unix()))
	out = append(out, ts...)

	userBytes, err := p.UserID.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: marshal user_id: %v", ErrInvalidPayload, err)
	}
	out = append(out, userBytes...)
	out = append(out, p.SecretKey[:]...)
	return out, nil
}

// UnmarshalBinary decodes and validates a wire-form payload, checking
// magic and version before returning ErrInvalidPayload/
// ErrUnsupportedVersion. It does not check UserID against any wallet;
// that binding check belongs to the caller (decrypt).
func (p *EncryptedPayload) UnmarshalBinary(data []byte) error {
	if len(data) != PayloadSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPayload, PayloadSize, len(data))
	}
	if string(data[:magicLen]) != payloadMagic {
		return fmt.Errorf("%w: bad magic", ErrInvalidPayload)
	}
	offset := magicLen

	version := data[offset]
	offset += versionLen
	if version != payloadVersion {
		return fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, version)
	}

	ts := binary.LittleEndian.Uint64(data[offset : offset+timestampLen])
	offset += timestampLen

	var userID uuid.UUID
	if err := userID.UnmarshalBinary(data[offset : offset+userIDLen]); err != nil {
		return fmt.Errorf("%w: parse user_id: %v", ErrInvalidPayload, err)
	}
	offset += userIDLen

	var secret [secretKeyLen]byte
	copy(secret[:], data[offset:offset+secretKeyLen])

	p.Version = version
	p.Timestamp = time.Unix(int64(ts), 0).UTC()
	p.UserID = userID
	p.SecretKey = secret
	return nil
}

// EOF: internal/walletcrypto/payload.go
