package crypto

// Provider defines the cryptographic operations a vault session needs.
type Provider interface {
	// DeriveKey derives vault key material from a passphrase.
	DeriveKey(passphrase, salt []byte, iterations uint32) KeyMaterial

	// DecryptField decrypts a hex encoded field of the given item.
	DecryptField(ciphertextHex, itemUUID string, itemKey []byte) (string, error)
}

type defaultProvider struct{}

// NewProvider returns the PBKDF2 / AES-GCM provider.
func NewProvider() Provider {
	return defaultProvider{}
}

func (defaultProvider) DeriveKey(passphrase, salt []byte, iterations uint32) KeyMaterial {
	return DeriveKey(passphrase, salt, iterations)
}

func (defaultProvider) DecryptField(ciphertextHex, itemUUID string, itemKey []byte) (string, error) {
	return DecryptField(ciphertextHex, itemUUID, itemKey)
}
