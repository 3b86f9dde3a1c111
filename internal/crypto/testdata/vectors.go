package testdata

// KDFVector is a PBKDF2-HMAC-SHA512 input/output pair.
type KDFVector struct {
	Name        string
	Passphrase  string
	Salt        string
	Iterations  uint32
	KeyMaterial string // Hex, 64 bytes
}

// KDFVectors contains published PBKDF2-HMAC-SHA512 vectors.
var KDFVectors = []KDFVector{
	{
		Name:        "password/salt single iteration",
		Passphrase:  "password",
		Salt:        "salt",
		Iterations:  1,
		KeyMaterial: "867f70cf1ade02cff3752599a3a53dc4af34c7a669815ae5d513554e1c8cf252c02d470a285a0501bad999bfe943c08f050235d7d68b1da55e63f73b60a57fce",
	},
}

// FieldVector describes an item field for round-trip tests.
type FieldVector struct {
	Name      string
	UUID      string
	ItemKey   string // Hex
	Plaintext string
}

// FieldVectors contains item fields for round-trip tests.
var FieldVectors = []FieldVector{
	{
		Name:      "ascii password",
		UUID:      "6b1f9e2a-4c3d-4e5f-8a9b-0c1d2e3f4a5b",
		ItemKey:   "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f202122232425262728292a2b2c2d2e2f",
		Plaintext: "secret123",
	},
	{
		Name:      "unicode password",
		UUID:      "0d9c8b7a-6f5e-4d3c-2b1a-09f8e7d6c5b4",
		ItemKey:   "ffeeddccbbaa99887766554433221100ffeeddccbbaa99887766554433221100a0a1a2a3a4a5a6a7a8a9aaabacadaeaf",
		Plaintext: "пароль-世界-🌍",
	},
	{
		Name:      "compact item key",
		UUID:      "11111111-2222-3333-4444-555555555555",
		ItemKey:   "5f4dcc3b5aa765d61d8327deb882cf995f4dcc3b5aa765d61d8327deb882cf99000000000000000000000001",
		Plaintext: "hunter2",
	},
}
