package walletcrypto_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedrosys/paymentcore/internal/kms"
	"github.com/cedrosys/paymentcore/internal/walletcrypto"
)

func testCrypto(t *testing.T) *walletcrypto.Crypto {
	t.Helper()
	masterKey := make([]byte, 32)
	for i := range masterKey {
		masterKey[i] = byte(i * 7)
	}
	provider, err := kms.NewLocalProvider(masterKey)
	require.NoError(t, err)
	return walletcrypto.NewCrypto(provider)
}

func TestCrypto_GenerateDecryptRoundTrip(t *testing.T) {
	c := testCrypto(t)
	userID := uuid.New()

	wallet, err := c.Generate(context.Background(), userID)
	require.NoError(t, err)
	assert.NotEmpty(t, wallet.PublicKey)
	assert.Equal(t, walletcrypto.KeyAlgorithm, wallet.KeyAlgorithm)
	assert.Equal(t, kms.LocalKeyVersion, wallet.KeyVersion)

	secret, err := c.Decrypt(context.Background(), wallet)
	require.NoError(t, err)
	defer secret.Release()
	assert.Len(t, secret.Key(), 64)
}

func TestCrypto_Decrypt_UserMismatch(t *testing.T) {
	c := testCrypto(t)

	wallet, err := c.Generate(context.Background(), uuid.New())
	require.NoError(t, err)

	// Swap in a different owner, simulating a row-swap attack: the blob
	// still decrypts and passes its GCM tag, but the embedded user_id
	// no longer matches.
	wallet.UserID = uuid.New()

	_, err = c.Decrypt(context.Background(), wallet)
	require.Error(t, err)
	assert.ErrorIs(t, err, walletcrypto.ErrUserMismatch)
}

func TestCrypto_Decrypt_TamperedBlobFailsDecryption(t *testing.T) {
	c := testCrypto(t)

	wallet, err := c.Generate(context.Background(), uuid.New())
	require.NoError(t, err)

	tampered := []byte(wallet.EncryptedBlob)
	tampered[len(tampered)-2] ^= 0x01
	wallet.EncryptedBlob = string(tampered)

	_, err = c.Decrypt(context.Background(), wallet)
	require.Error(t, err)
	assert.ErrorIs(t, err, walletcrypto.ErrDecryptionFailed)
}

func TestCrypto_Rotate_PreservesPublicKey(t *testing.T) {
	c := testCrypto(t)

	wallet, err := c.Generate(context.Background(), uuid.New())
	require.NoError(t, err)

	rotated, err := c.Rotate(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKey, rotated.PublicKey)
	assert.NotEqual(t, wallet.EncryptedBlob, rotated.EncryptedBlob)

	secret, err := c.Decrypt(context.Background(), rotated)
	require.NoError(t, err)
	defer secret.Release()
}

func TestCrypto_Validate(t *testing.T) {
	c := testCrypto(t)

	wallet, err := c.Generate(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, c.Validate(context.Background(), wallet))

	wallet.UserID = uuid.New()
	assert.False(t, c.Validate(context.Background(), wallet))
}

// EOF: internal/walletcrypto/wallet_test.go
