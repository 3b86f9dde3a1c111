package crypto_test

import (
	stdpbkdf2 "crypto/pbkdf2"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/enpass/internal/crypto"
	"github.com/TheMichaelB/enpass/internal/crypto/testdata"
)

func TestDeriveKey(t *testing.T) {
	salt := []byte("SQLite format 3\x00")

	tests := []struct {
		name       string
		passphrase string
		iterations uint32
	}{
		{"ascii passphrase", "correct horse battery staple", 1000},
		{"unicode passphrase", "пароль123", 1000},
		{"empty passphrase", "", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km := crypto.DeriveKey([]byte(tt.passphrase), salt, tt.iterations)
			assert.Len(t, km, crypto.KeyMaterialSize)

			// Deterministic
			km2 := crypto.DeriveKey([]byte(tt.passphrase), salt, tt.iterations)
			assert.Equal(t, km, km2)

			// Matches an independent PBKDF2 implementation.
			want, err := stdpbkdf2.Key(sha512.New, tt.passphrase, salt, int(tt.iterations), crypto.KeyMaterialSize)
			require.NoError(t, err)
			assert.Equal(t, want, km[:])
		})
	}
}

func TestDeriveKeyVectors(t *testing.T) {
	for _, vector := range testdata.KDFVectors {
		t.Run(vector.Name, func(t *testing.T) {
			km := crypto.DeriveKey([]byte(vector.Passphrase), []byte(vector.Salt), vector.Iterations)
			assert.Equal(t, vector.KeyMaterial, hex.EncodeToString(km[:]))
		})
	}
}

func TestDeriveKeyInputSensitivity(t *testing.T) {
	passphrase := []byte("passphrase")
	salt := []byte("0123456789abcdef")
	base := crypto.DeriveKey(passphrase, salt, 100)

	t.Run("passphrase byte", func(t *testing.T) {
		p := append([]byte(nil), passphrase...)
		p[0] ^= 0x01
		assert.NotEqual(t, base, crypto.DeriveKey(p, salt, 100))
	})

	t.Run("salt byte", func(t *testing.T) {
		s := append([]byte(nil), salt...)
		s[len(s)-1] ^= 0x80
		assert.NotEqual(t, base, crypto.DeriveKey(passphrase, s, 100))
	})

	t.Run("iteration count", func(t *testing.T) {
		assert.NotEqual(t, base, crypto.DeriveKey(passphrase, salt, 101))
	})
}

func TestKeyMaterialPageKey(t *testing.T) {
	var km crypto.KeyMaterial
	for i := range km {
		km[i] = byte(i)
	}

	pageKey := km.PageKey()
	assert.Len(t, pageKey, crypto.PageKeySize)
	assert.Equal(t, km[:crypto.PageKeySize], pageKey)
	assert.Equal(t, "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", km.PageKeyHex())

	// PageKey returns a copy.
	pageKey[0] = 0xff
	assert.Equal(t, byte(0), km[0])

	km.Wipe()
	assert.Equal(t, crypto.KeyMaterial{}, km)
}

func TestProvider(t *testing.T) {
	provider := crypto.NewProvider()
	salt := []byte("0123456789abcdef")

	assert.Equal(t, crypto.DeriveKey([]byte("pw"), salt, 10), provider.DeriveKey([]byte("pw"), salt, 10))

	v := testdata.FieldVectors[0]
	key, err := hex.DecodeString(v.ItemKey)
	require.NoError(t, err)

	ciphertext, err := crypto.EncryptField(v.Plaintext, v.UUID, key)
	require.NoError(t, err)

	plaintext, err := provider.DecryptField(ciphertext, v.UUID, key)
	require.NoError(t, err)
	assert.Equal(t, v.Plaintext, plaintext)
}
