package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/dealerlink/easysync/internal/models"
)

const (
	// KeySize is the AES-256 key length.
	KeySize = 32
	// NonceSize is the GCM standard nonce length.
	NonceSize = 12
	// TagSize is the GCM authentication tag length.
	TagSize = 16

	// PBKDF2 parameters for passphrase-derived master keys.
	kdfIterations = 100000
	minSaltSize   = 16
)

// ErrInvalidKey reports a master key that is not exactly KeySize bytes.
var ErrInvalidKey = errors.New("invalid master key size")

// Vault performs authenticated encryption of stored API secrets.
// Blobs are formatted base64(nonce || tag || ciphertext) and every
// Encrypt call draws a fresh nonce, so equal plaintexts never produce
// equal blobs.
type Vault struct {
	aead cipher.AEAD
}

// New creates a vault from a raw 32-byte key. It fails fast so a
// misconfigured key is caught at startup, not on first decrypt.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// NewFromBase64 creates a vault from a base64-encoded 32-byte key.
func NewFromBase64(encoded string) (*Vault, error) {
	if encoded == "" {
		return nil, fmt.Errorf("%w: key not configured", ErrInvalidKey)
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: not valid base64", ErrInvalidKey)
	}
	return New(key)
}

// NewFromPassphrase derives the master key from a passphrase and salt
// with PBKDF2-SHA256.
func NewFromPassphrase(passphrase, salt string) (*Vault, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", ErrInvalidKey)
	}
	if len(salt) < minSaltSize {
		return nil, fmt.Errorf("%w: salt must be at least %d bytes", ErrInvalidKey, minSaltSize)
	}
	key := pbkdf2.Key([]byte(passphrase), []byte(salt), kdfIterations, KeySize, sha256.New)
	return New(key)
}

// Encrypt seals a plaintext secret into a base64 blob.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", &models.InputError{Field: "plaintext", Reason: "must not be empty"}
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	// Seal appends the tag after the ciphertext; the stored layout is
	// nonce || tag || ciphertext.
	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	tag := sealed[len(sealed)-TagSize:]
	ciphertext := sealed[:len(sealed)-TagSize]

	blob := make([]byte, 0, NonceSize+TagSize+len(ciphertext))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. Every failure mode maps to
// the same models.ErrDecryptionFailed classification so callers learn
// nothing about whether the format or the key was wrong.
func (v *Vault) Decrypt(encoded string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", &models.DecryptError{Err: models.ErrDecryptionFailed}
	}

	// Shortest valid blob: nonce, tag, one ciphertext byte. Checked
	// before touching the cipher.
	if len(blob) < NonceSize+TagSize+1 {
		return "", &models.DecryptError{Err: models.ErrDecryptionFailed}
	}

	nonce := blob[:NonceSize]
	tag := blob[NonceSize : NonceSize+TagSize]
	ciphertext := blob[NonceSize+TagSize:]

	// Open expects ciphertext || tag.
	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", &models.DecryptError{Err: models.ErrDecryptionFailed}
	}
	return string(plaintext), nil
}
