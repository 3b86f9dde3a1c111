package testutil

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mutecomm/go-sqlcipher/v4"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/enpass/internal/crypto"
	"github.com/TheMichaelB/enpass/internal/models"
	"github.com/TheMichaelB/enpass/internal/store"
)

// Fixture passphrase and iteration count. The low count keeps tests fast.
const (
	Passphrase = "correct horse battery staple"
	KDFIter    = 1000
)

// SyncHeaderSize is the descriptor area in front of a sync container.
const SyncHeaderSize = 0x400

const schema = `
CREATE TABLE item (
    id INTEGER PRIMARY KEY,
    uuid TEXT NOT NULL,
    title TEXT,
    key BLOB NOT NULL
);

CREATE TABLE itemfield (
    item_uuid TEXT NOT NULL,
    type TEXT NOT NULL,
    value TEXT,
    "order" INTEGER NOT NULL DEFAULT 0
);
`

// FieldSpec describes a stored field. Password values are encrypted with
// the item key unless empty or Raw is set.
type FieldSpec struct {
	Type  string
	Value string
	Raw   bool
	Order int
}

// ItemSpec describes an item to insert.
type ItemSpec struct {
	Title      string
	Fields     []FieldSpec
	CompactKey bool
}

// Item is an inserted item.
type Item struct {
	ID    uint32
	UUID  string
	Title string
	Key   []byte
}

// Vault is a page-encrypted vault built on disk.
type Vault struct {
	Dir            string
	DBPath         string
	DescriptorPath string
	Items          []Item

	// Salt is the random KDF salt stored in the first 16 database bytes.
	Salt []byte
	// PageKeyHex is the page key derived from Passphrase and Salt.
	PageKeyHex string
}

// Metadata returns the descriptor used by fixtures.
func Metadata() map[string]interface{} {
	return map[string]interface{}{
		"encryption_algo": "aes-256-cbc",
		"have_keyfile":    0,
		"kdf_algo":        "pbkdf2",
		"kdf_iter":        KDFIter,
		"vault_uuid":      "primary",
		"version":         6,
	}
}

// DefaultItems is the standard fixture content.
func DefaultItems() []ItemSpec {
	return []ItemSpec{
		{
			Title: "Example",
			Fields: []FieldSpec{
				{Type: models.FieldUsername, Value: "user@example.com", Order: 1},
				{Type: models.FieldPassword, Value: "secret123", Order: 2},
				{Type: "url", Value: "https://example.com", Order: 3},
				{Type: models.FieldTOTP, Value: "JBSWY3DPEHPK3PXP", Order: 4},
				{Type: "note", Value: "", Order: 5},
			},
		},
		{
			Title: "No Password",
			Fields: []FieldSpec{
				{Type: models.FieldUsername, Value: "nobody", Order: 1},
				{Type: models.FieldPassword, Value: "", Order: 2},
			},
		},
		{
			Title: "Compact Key",
			Fields: []FieldSpec{
				{Type: models.FieldUsername, Value: "compact", Order: 1},
				{Type: models.FieldPassword, Value: "short-nonce", Order: 2},
			},
			CompactKey: true,
		},
	}
}

// BuildVault writes vault.enpassdb and vault.json into a temp directory.
// The database is encrypted with the key derived from Passphrase over a
// random salt, using the vault format's cipher settings.
func BuildVault(t testing.TB, items ...ItemSpec) *Vault {
	t.Helper()

	dir := t.TempDir()
	v := &Vault{
		Dir:            dir,
		DBPath:         filepath.Join(dir, "vault.enpassdb"),
		DescriptorPath: filepath.Join(dir, "vault.json"),
		Salt:           make([]byte, crypto.SaltSize),
	}

	_, err := rand.Read(v.Salt)
	require.NoError(t, err)

	km := crypto.DeriveKey([]byte(Passphrase), v.Salt, KDFIter)
	v.PageKeyHex = km.PageKeyHex()

	require.NoError(t, store.SetCipherDefaults(context.Background(), store.DriverName, store.DefaultCipherParams()))

	db := v.open(t)
	defer db.Close()

	_, err = db.Exec(schema)
	require.NoError(t, err)

	for i, spec := range items {
		item := insertItem(t, db, uint32(i+1), spec)
		v.Items = append(v.Items, item)
	}

	require.NoError(t, db.Close())

	header := make([]byte, crypto.SaltSize)
	f, err := os.Open(v.DBPath)
	require.NoError(t, err)
	_, err = f.Read(header)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	require.Equal(t, v.Salt, header, "encrypted database must start with its salt")

	WriteDescriptor(t, v.DescriptorPath, Metadata())
	return v
}

// open connects read-write with the page key and the explicit salt, which
// SQLCipher writes into the header of a new database.
func (v *Vault) open(t testing.TB) *sql.DB {
	t.Helper()

	key := fmt.Sprintf("x'%s%s'", v.PageKeyHex, hex.EncodeToString(v.Salt))
	q := url.Values{}
	q.Set("_pragma_key", key)
	q.Set("_pragma_cipher_page_size", fmt.Sprint(store.DefaultCipherParams().PageSize))

	db, err := sql.Open(store.DriverName, v.DBPath+"?"+q.Encode())
	require.NoError(t, err)
	return db
}

func insertItem(t testing.TB, db *sql.DB, id uint32, spec ItemSpec) Item {
	t.Helper()

	key, err := crypto.NewItemKey()
	require.NoError(t, err)
	if spec.CompactKey {
		key = key[:crypto.FieldKeySize+crypto.CompactNonceSize]
	}

	item := Item{ID: id, UUID: uuid.NewString(), Title: spec.Title, Key: key}

	_, err = db.Exec("INSERT INTO item (id, uuid, title, key) VALUES (?, ?, ?, ?)",
		item.ID, item.UUID, item.Title, item.Key)
	require.NoError(t, err)

	for _, field := range spec.Fields {
		value := field.Value
		if field.Type == models.FieldPassword && value != "" && !field.Raw {
			value, err = crypto.EncryptField(value, item.UUID, key)
			require.NoError(t, err)
		}

		_, err = db.Exec(`INSERT INTO itemfield (item_uuid, type, value, "order") VALUES (?, ?, ?, ?)`,
			item.UUID, field.Type, value, field.Order)
		require.NoError(t, err)
	}

	return item
}

// Exec runs a statement against the fixture database.
func (v *Vault) Exec(t testing.TB, query string, args ...interface{}) {
	t.Helper()

	db := v.open(t)
	defer db.Close()

	_, err := db.Exec(query, args...)
	require.NoError(t, err)
}

// SyncContainer writes vault.enpassdbsync: the descriptor padded with NUL
// bytes to SyncHeaderSize, followed by the database.
func (v *Vault) SyncContainer(t testing.TB, descriptor map[string]interface{}) string {
	t.Helper()

	header, err := json.Marshal(descriptor)
	require.NoError(t, err)
	require.Less(t, len(header), SyncHeaderSize)

	db, err := os.ReadFile(v.DBPath)
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(make([]byte, SyncHeaderSize-len(header)))
	buf.Write(db)

	path := filepath.Join(v.Dir, "vault.enpassdbsync")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

// WriteDescriptor writes a descriptor document.
func WriteDescriptor(t testing.TB, path string, descriptor map[string]interface{}) {
	t.Helper()

	data, err := json.Marshal(descriptor)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
}
