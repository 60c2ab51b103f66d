package walletcrypto

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_MarshalUnmarshalRoundTrip(t *testing.T) {
	secret := make([]byte, secretKeyLen)
	for i := range secret {
		secret[i] = byte(i)
	}
	userID := uuid.New()

	p, err := newPayload(userID, secret)
	require.NoError(t, err)

	raw, err := p.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, raw, PayloadSize)
	assert.Equal(t, 93, PayloadSize)

	var got EncryptedPayload
	require.NoError(t, got.UnmarshalBinary(raw))
	assert.Equal(t, p.Version, got.Version)
	assert.Equal(t, p.UserID, got.UserID)
	assert.Equal(t, p.SecretKey, got.SecretKey)
	assert.WithinDuration(t, p.Timestamp, got.Timestamp, 0)
}

func TestPayload_RejectsBadMagic(t *testing.T) {
	secret := make([]byte, secretKeyLen)
	p, err := newPayload(uuid.New(), secret)
	require.NoError(t, err)
	raw, err := p.MarshalBinary()
	require.NoError(t, err)

	raw[0] = 'X'
	var got EncryptedPayload
	err = got.UnmarshalBinary(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestPayload_RejectsUnsupportedVersion(t *testing.T) {
	secret := make([]byte, secretKeyLen)
	p, err := newPayload(uuid.New(), secret)
	require.NoError(t, err)
	raw, err := p.MarshalBinary()
	require.NoError(t, err)

	raw[magicLen] = 2
	var got EncryptedPayload
	err = got.UnmarshalBinary(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestPayload_RejectsWrongLength(t *testing.T) {
	var got EncryptedPayload
	err := got.UnmarshalBinary([]byte("too short"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestNewPayload_RejectsWrongSecretLength(t *testing.T) {
	_, err := newPayload(uuid.New(), []byte("short"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

// EOF: internal/walletcrypto/payload_test.go
