package crypto

import (
	"crypto/sha512"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyMaterialSize is the PBKDF2 output length.
	KeyMaterialSize = 64

	// PageKeySize is the prefix of the key material used as the page key.
	PageKeySize = 32

	// SaltSize is the length of the salt stored in the vault file.
	SaltSize = 16

	// DefaultIterations applies when the descriptor carries no kdf_iter.
	DefaultIterations = 100000
)

// KeyMaterial is the raw PBKDF2-HMAC-SHA512 output for a vault.
//
// Only the first PageKeySize bytes are used. The remaining bytes are
// derived for parity with the vault format and carry no meaning here.
type KeyMaterial [KeyMaterialSize]byte

// PageKey returns the key applied to the page-encrypted store.
func (k KeyMaterial) PageKey() []byte {
	key := make([]byte, PageKeySize)
	copy(key, k[:PageKeySize])
	return key
}

// PageKeyHex returns PageKey hex encoded, as the store expects it.
func (k KeyMaterial) PageKeyHex() string {
	return hex.EncodeToString(k[:PageKeySize])
}

// Wipe zeroes the key material.
func (k *KeyMaterial) Wipe() {
	for i := range k {
		k[i] = 0
	}
}

// DeriveKey stretches a passphrase into vault key material.
// Every call pays the full iteration cost; nothing is cached.
func DeriveKey(passphrase, salt []byte, iterations uint32) KeyMaterial {
	var km KeyMaterial
	copy(km[:], pbkdf2.Key(passphrase, salt, int(iterations), KeyMaterialSize, sha512.New))
	return km
}
