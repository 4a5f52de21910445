package vault_test

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerlink/easysync/internal/models"
	"github.com/dealerlink/easysync/internal/vault"
)

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	key := make([]byte, vault.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	v, err := vault.New(key)
	require.NoError(t, err)
	return v
}

func TestVault_New(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		wantErr bool
	}{
		{name: "valid 32-byte key", keyLen: 32},
		{name: "short key", keyLen: 16, wantErr: true},
		{name: "long key", keyLen: 64, wantErr: true},
		{name: "empty key", keyLen: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vault.New(make([]byte, tt.keyLen))
			if tt.wantErr {
				assert.ErrorIs(t, err, vault.ErrInvalidKey)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVault_NewFromBase64(t *testing.T) {
	key := make([]byte, vault.KeySize)
	encoded := base64.StdEncoding.EncodeToString(key)

	_, err := vault.NewFromBase64(encoded)
	assert.NoError(t, err)

	_, err = vault.NewFromBase64("not-base64!!!")
	assert.ErrorIs(t, err, vault.ErrInvalidKey)

	_, err = vault.NewFromBase64("")
	assert.ErrorIs(t, err, vault.ErrInvalidKey)
}

func TestVault_NewFromPassphrase(t *testing.T) {
	_, err := vault.NewFromPassphrase("correct horse battery", "0123456789abcdef")
	assert.NoError(t, err)

	_, err = vault.NewFromPassphrase("", "0123456789abcdef")
	assert.ErrorIs(t, err, vault.ErrInvalidKey)

	_, err = vault.NewFromPassphrase("pass", "short")
	assert.ErrorIs(t, err, vault.ErrInvalidKey)
}

func TestVault_RoundTrip(t *testing.T) {
	v := newTestVault(t)

	secrets := []string{
		"account-secret-123",
		"x",
		"secret with spaces and unicode ✓",
	}
	for _, plaintext := range secrets {
		blob, err := v.Encrypt(plaintext)
		require.NoError(t, err)

		decrypted, err := v.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestVault_EncryptEmptyPlaintext(t *testing.T) {
	v := newTestVault(t)

	_, err := v.Encrypt("")
	var inputErr *models.InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestVault_NonceUniqueness(t *testing.T) {
	v := newTestVault(t)

	blob1, err := v.Encrypt("same secret")
	require.NoError(t, err)
	blob2, err := v.Encrypt("same secret")
	require.NoError(t, err)

	assert.NotEqual(t, blob1, blob2)
}

func TestVault_DecryptFailures(t *testing.T) {
	v := newTestVault(t)

	valid, err := v.Encrypt("secret")
	require.NoError(t, err)

	t.Run("invalid base64", func(t *testing.T) {
		_, err := v.Decrypt("%%%not base64%%%")
		assert.ErrorIs(t, err, models.ErrDecryptionFailed)
	})

	t.Run("too short", func(t *testing.T) {
		// Nonce plus tag with no ciphertext byte.
		short := base64.StdEncoding.EncodeToString(make([]byte, vault.NonceSize+vault.TagSize))
		_, err := v.Decrypt(short)
		assert.ErrorIs(t, err, models.ErrDecryptionFailed)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		raw, err := base64.StdEncoding.DecodeString(valid)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xff
		_, err = v.Decrypt(base64.StdEncoding.EncodeToString(raw))
		assert.ErrorIs(t, err, models.ErrDecryptionFailed)
	})

	t.Run("tampered tag", func(t *testing.T) {
		raw, err := base64.StdEncoding.DecodeString(valid)
		require.NoError(t, err)
		raw[vault.NonceSize] ^= 0xff
		_, err = v.Decrypt(base64.StdEncoding.EncodeToString(raw))
		assert.ErrorIs(t, err, models.ErrDecryptionFailed)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := newTestVault(t)
		_, err := other.Decrypt(valid)
		assert.ErrorIs(t, err, models.ErrDecryptionFailed)

		// The failure class never reveals which check failed.
		var decErr *models.DecryptError
		assert.True(t, errors.As(err, &decErr))
	})
}

func TestVault_BlobLayout(t *testing.T) {
	v := newTestVault(t)

	blob, err := v.Encrypt("ab")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)
	assert.Equal(t, vault.NonceSize+vault.TagSize+2, len(raw))
}
