package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/TheMichaelB/enpass/internal/models"
)

const (
	// FieldKeySize is the AES-256 key prefix of an item key.
	FieldKeySize = 32

	// NonceSize is the nonce suffix of a 48 byte item key.
	NonceSize = 16

	// CompactNonceSize is the nonce suffix of a 44 byte item key, the
	// layout written by current vault versions.
	CompactNonceSize = 12

	// TagSize is the GCM tag appended to every ciphertext.
	TagSize = 16
)

// splitItemKey separates an item key into AES key and nonce.
func splitItemKey(itemKey []byte) (key, nonce []byte, err error) {
	switch len(itemKey) {
	case FieldKeySize + NonceSize, FieldKeySize + CompactNonceSize:
		return itemKey[:FieldKeySize], itemKey[FieldKeySize:], nil
	default:
		return nil, nil, fmt.Errorf("%w: got %d bytes, want %d or %d",
			models.ErrInvalidKeyLength, len(itemKey),
			FieldKeySize+NonceSize, FieldKeySize+CompactNonceSize)
	}
}

func newItemAEAD(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidKeyLength, err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return aead, nil
}

// ItemAAD returns the additional data bound to an item's fields: the raw
// bytes of its UUID.
func ItemAAD(itemUUID string) ([]byte, error) {
	aad, err := hex.DecodeString(strings.ReplaceAll(itemUUID, "-", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: uuid: %w", models.ErrInvalidHex, err)
	}
	return aad, nil
}

// DecryptField authenticates and decrypts one hex encoded field value.
// Callers must not pass empty values; those mean "not set".
func DecryptField(ciphertextHex, itemUUID string, itemKey []byte) (string, error) {
	fail := func(reason string, err error) (string, error) {
		return "", &models.DecryptError{UUID: itemUUID, Reason: reason, Err: err}
	}

	key, nonce, err := splitItemKey(itemKey)
	if err != nil {
		return fail("split item key", err)
	}

	aead, err := newItemAEAD(key, len(nonce))
	if err != nil {
		return fail("create cipher", err)
	}

	aad, err := ItemAAD(itemUUID)
	if err != nil {
		return fail("decode aad", err)
	}

	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return fail("decode ciphertext", fmt.Errorf("%w: ciphertext: %w", models.ErrInvalidHex, err))
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return fail("open", fmt.Errorf("%w: %w", models.ErrAuthentication, err))
	}

	if !utf8.Valid(plaintext) {
		return fail("decode plaintext", models.ErrInvalidUTF8)
	}

	return string(plaintext), nil
}

// EncryptField is the inverse of DecryptField. The nonce comes from the
// item key, matching how the vault stores fields.
func EncryptField(plaintext, itemUUID string, itemKey []byte) (string, error) {
	key, nonce, err := splitItemKey(itemKey)
	if err != nil {
		return "", err
	}

	aead, err := newItemAEAD(key, len(nonce))
	if err != nil {
		return "", err
	}

	aad, err := ItemAAD(itemUUID)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(aead.Seal(nil, nonce, []byte(plaintext), aad)), nil
}

// NewItemKey generates a random 48 byte item key.
func NewItemKey() ([]byte, error) {
	key := make([]byte, FieldKeySize+NonceSize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate item key: %w", err)
	}
	return key, nil
}
