package testutil

import (
	"github.com/stretchr/testify/mock"

	"github.com/TheMichaelB/enpass/internal/crypto"
)

// MockCryptoProvider mocks crypto operations.
type MockCryptoProvider struct {
	mock.Mock
}

func NewMockCryptoProvider() *MockCryptoProvider {
	return &MockCryptoProvider{}
}

func (m *MockCryptoProvider) DeriveKey(passphrase, salt []byte, iterations uint32) crypto.KeyMaterial {
	args := m.Called(passphrase, salt, iterations)
	return args.Get(0).(crypto.KeyMaterial)
}

func (m *MockCryptoProvider) DecryptField(ciphertextHex, itemUUID string, itemKey []byte) (string, error) {
	args := m.Called(ciphertextHex, itemUUID, itemKey)
	return args.String(0), args.Error(1)
}

// SpyProvider wraps the real provider and counts calls.
type SpyProvider struct {
	crypto.Provider
	Derives  int
	Decrypts []string
}

func NewSpyProvider() *SpyProvider {
	return &SpyProvider{Provider: crypto.NewProvider()}
}

func (s *SpyProvider) DeriveKey(passphrase, salt []byte, iterations uint32) crypto.KeyMaterial {
	s.Derives++
	return s.Provider.DeriveKey(passphrase, salt, iterations)
}

func (s *SpyProvider) DecryptField(ciphertextHex, itemUUID string, itemKey []byte) (string, error) {
	s.Decrypts = append(s.Decrypts, ciphertextHex)
	return s.Provider.DecryptField(ciphertextHex, itemUUID, itemKey)
}
