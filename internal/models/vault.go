package models

import "fmt"

// Supported algorithm identifiers.
var (
	SupportedKDFAlgos        = []string{"pbkdf2"}
	SupportedEncryptionAlgos = []string{"aes-256-cbc"}
)

// Metadata holds the fields of the vault descriptor (vault.json).
type Metadata struct {
	EncryptionAlgo string `json:"encryption_algo"`
	HaveKeyfile    bool   `json:"have_keyfile"`
	KDFAlgo        string `json:"kdf_algo"`
	KDFIter        uint32 `json:"kdf_iter"`
	VaultUUID      string `json:"vault_uuid"`
	Version        uint   `json:"version"`
}

// DefaultMetadata returns the descriptor assumed when none is available.
func DefaultMetadata() Metadata {
	return Metadata{
		EncryptionAlgo: SupportedEncryptionAlgos[0],
		HaveKeyfile:    false,
		KDFAlgo:        SupportedKDFAlgos[0],
		KDFIter:        100000,
		VaultUUID:      "primary",
		Version:        6,
	}
}

// Unsupported lists descriptor values this reader does not know how to
// handle. The vault is still opened; callers only report them.
func (m Metadata) Unsupported() []string {
	var out []string
	if !contains(SupportedKDFAlgos, m.KDFAlgo) {
		out = append(out, fmt.Sprintf("kdf_algo=%s", m.KDFAlgo))
	}
	if !contains(SupportedEncryptionAlgos, m.EncryptionAlgo) {
		out = append(out, fmt.Sprintf("encryption_algo=%s", m.EncryptionAlgo))
	}
	if m.HaveKeyfile {
		out = append(out, "have_keyfile=1")
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// OpenMode selects how the vault file is accessed.
type OpenMode int

const (
	// Direct opens the page-encrypted file as is.
	Direct OpenMode = iota
	// Segmented is the sync container: a 0x400 byte header followed by the
	// page-encrypted database.
	Segmented
)

func (m OpenMode) String() string {
	switch m {
	case Direct:
		return "direct"
	case Segmented:
		return "segmented"
	default:
		return "unknown"
	}
}
