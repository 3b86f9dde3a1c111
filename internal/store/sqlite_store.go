package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/TheMichaelB/enpass/internal/events"
	"github.com/TheMichaelB/enpass/internal/models"
)

// DriverName is the built-in SQLCipher driver. Any other name is looked up
// in the database/sql registry.
const DriverName = "sqlite3"

// Options configure how a store is opened.
type Options struct {
	// Driver selects the database/sql driver; empty means DriverName.
	Driver string

	// Extensions are loaded into every connection of the built-in driver.
	Extensions []string

	Reporter events.Reporter
}

// SQLiteStore implements Store over a read-only SQLCipher database.
type SQLiteStore struct {
	db       *sql.DB
	dsn      string
	driver   string
	exts     []string
	reporter events.Reporter
	source   string

	mu     sync.RWMutex
	keyed  bool
	closed bool
}

// OpenFile prepares a read-only store for the database file at path.
// No connection is made until the key is applied.
func OpenFile(path string, opts Options) (*SQLiteStore, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, models.NewIOError("open store", path, err)
	}
	if info.IsDir() {
		return nil, models.NewIOError("open store", path, fmt.Errorf("is a directory"))
	}

	return open(fileDSN(path), path, opts), nil
}

// OpenRegion prepares a store over a database held in memory, such as a
// mapped file region, through the memvfs extension. The region is owned by
// the caller and must stay valid and unmodified until the store is closed.
// The memvfs extension must already be registered, see ProbeExtension.
func OpenRegion(data []byte, opts Options) (*SQLiteStore, error) {
	if len(data) == 0 {
		return nil, models.NewStoreError("open region", fmt.Errorf("empty region"))
	}

	return open(regionDSN(data), "memory region", opts), nil
}

func open(dsn, source string, opts Options) *SQLiteStore {
	s := &SQLiteStore{
		dsn:      dsn,
		driver:   driverName(opts.Driver),
		exts:     opts.Extensions,
		source:   source,
		reporter: events.OrDiscard(opts.Reporter),
	}

	s.reporter.Report(events.DebugLevel, "Opened vault store", events.Fields{
		"source": source,
		"driver": s.driver,
	})
	return s
}

// ApplyKey connects with the raw page key and cipher settings. The key is
// passed in the connection string so it is set before the driver touches
// the database; a wrong key surfaces on the first read.
func (s *SQLiteStore) ApplyKey(ctx context.Context, pageKeyHex string, params CipherParams) error {
	if pageKeyHex == "" {
		return fmt.Errorf("apply key: %w: empty page key", models.ErrInvalidHex)
	}
	if _, err := hex.DecodeString(pageKeyHex); err != nil {
		return fmt.Errorf("apply key: %w: page key", models.ErrInvalidHex)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.NewStoreError("apply key", ErrClosed)
	}

	if err := SetCipherDefaults(ctx, s.driver, params); err != nil {
		return err
	}

	dsn := keyedDSN(s.dsn, pageKeyHex, params)

	var db *sql.DB
	if s.driver == DriverName {
		db = sql.OpenDB(&connector{
			dsn:    dsn,
			driver: &sqlite3.SQLiteDriver{Extensions: s.exts},
		})
	} else {
		var err error
		if db, err = sql.Open(s.driver, dsn); err != nil {
			return models.NewStoreError("open store", err)
		}
	}

	// A single long-lived connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return models.NewStoreError("open store", err)
	}

	if s.db != nil {
		_ = s.db.Close()
	}
	s.db = db
	s.keyed = true

	s.reporter.Report(events.DebugLevel, "Applied page key", events.Fields{
		"source":               s.source,
		"cipher_compatibility": params.Compatibility,
		"cipher_page_size":     params.PageSize,
	})

	return nil
}

// SetCipherDefaults sets the process-wide SQLCipher defaults used by
// connections opened afterwards. Compatibility has to be in place before
// the first page is read, which happens while the driver opens a
// connection.
func SetCipherDefaults(ctx context.Context, driverName string, params CipherParams) error {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return models.NewStoreError("apply cipher defaults", err)
	}
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		return models.NewStoreError("apply cipher defaults", err)
	}
	defer conn.Close()

	for _, pragma := range cipherDefaultPragmas(params) {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return models.NewStoreError("apply "+pragmaName(pragma), err)
		}
	}
	return nil
}

// Ping reads the schema. With a wrong key this fails with a store error.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return models.NewStoreError("verify key", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&count); err != nil {
		return models.NewStoreError("verify key", err)
	}
	return nil
}

// ListItems returns every item in store order.
func (s *SQLiteStore) ListItems(ctx context.Context) ([]ItemRow, error) {
	if err := s.ready(); err != nil {
		return nil, models.NewStoreError("list items", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, title FROM item")
	if err != nil {
		return nil, models.NewStoreError("list items", err)
	}
	defer rows.Close()

	var items []ItemRow
	for rows.Next() {
		var item ItemRow
		var title sql.NullString
		if err := rows.Scan(&item.ID, &title); err != nil {
			return nil, models.NewStoreError("scan item row", err)
		}
		item.Title = title.String
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, models.NewStoreError("iterate items", err)
	}

	return items, nil
}

// ItemDetails returns the uuid and key blob of item id.
func (s *SQLiteStore) ItemDetails(ctx context.Context, id uint32) (*DetailsRow, error) {
	if err := s.ready(); err != nil {
		return nil, models.NewStoreError("query item", err)
	}

	var details DetailsRow
	err := s.db.QueryRowContext(ctx, "SELECT uuid, key FROM item WHERE id = ?", id).
		Scan(&details.UUID, &details.Key)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.ItemNotFoundError{ID: id}
	}
	if err != nil {
		return nil, models.NewStoreError("query item", err)
	}

	return &details, nil
}

// Credentials pairs every username field of the item with every password
// field.
func (s *SQLiteStore) Credentials(ctx context.Context, itemUUID string) ([]CredentialRow, error) {
	if err := s.ready(); err != nil {
		return nil, models.NewStoreError("query credentials", err)
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT item1.value AS username, item2.value AS password
        FROM itemfield AS item1
        INNER JOIN itemfield AS item2 ON item1.item_uuid = item2.item_uuid
        WHERE item1.item_uuid = ?
            AND item1.type = 'username'
            AND item2.type = 'password'
    `, itemUUID)
	if err != nil {
		return nil, models.NewStoreError("query credentials", err)
	}
	defer rows.Close()

	var creds []CredentialRow
	for rows.Next() {
		var username, password sql.NullString
		if err := rows.Scan(&username, &password); err != nil {
			return nil, models.NewStoreError("scan credential row", err)
		}
		creds = append(creds, CredentialRow{Username: username.String, Password: password.String})
	}

	if err := rows.Err(); err != nil {
		return nil, models.NewStoreError("iterate credentials", err)
	}

	return creds, nil
}

// Fields returns the item's fields ordered by their "order" column.
func (s *SQLiteStore) Fields(ctx context.Context, itemUUID string) ([]FieldRow, error) {
	if err := s.ready(); err != nil {
		return nil, models.NewStoreError("query fields", err)
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT type, value
        FROM itemfield
        WHERE item_uuid = ?
        ORDER BY "order" ASC
    `, itemUUID)
	if err != nil {
		return nil, models.NewStoreError("query fields", err)
	}
	defer rows.Close()

	var fields []FieldRow
	for rows.Next() {
		var fieldType, value sql.NullString
		if err := rows.Scan(&fieldType, &value); err != nil {
			return nil, models.NewStoreError("scan field row", err)
		}
		fields = append(fields, FieldRow{Type: fieldType.String, Value: value.String})
	}

	if err := rows.Err(); err != nil {
		return nil, models.NewStoreError("iterate fields", err)
	}

	return fields, nil
}

// Close closes the database. Calling it again is a no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.keyed = false
	s.dsn = ""

	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return models.NewStoreError("close store", err)
	}
	return nil
}

func (s *SQLiteStore) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.closed:
		return ErrClosed
	case !s.keyed:
		return ErrNotKeyed
	default:
		return nil
	}
}

// connector hands out connections of the built-in driver with the
// configured extensions loaded.
type connector struct {
	dsn    string
	driver *sqlite3.SQLiteDriver
}

func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.driver.Open(c.dsn)
}

func (c *connector) Driver() driver.Driver {
	return c.driver
}

// keyedDSN appends the key parameters the driver applies right after
// opening. The key is a raw 32 byte key in blob form, bypassing the
// cipher's own key derivation.
func keyedDSN(dsn, pageKeyHex string, params CipherParams) string {
	q := url.Values{}
	q.Set("_pragma_key", fmt.Sprintf("x'%s'", pageKeyHex))
	q.Set("_pragma_cipher_page_size", strconv.Itoa(params.PageSize))

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + q.Encode()
}

func cipherDefaultPragmas(params CipherParams) []string {
	return []string{
		fmt.Sprintf("PRAGMA cipher_default_compatibility = %d", params.Compatibility),
		fmt.Sprintf("PRAGMA cipher_default_page_size = %d", params.PageSize),
	}
}

// pragmaName extracts the pragma name for error messages.
func pragmaName(pragma string) string {
	fields := strings.Fields(pragma)
	if len(fields) < 2 {
		return "pragma"
	}
	return "pragma " + fields[1]
}

var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func fileDSN(path string) string {
	return "file:" + uriEscaper.Replace(path) + "?mode=ro"
}

func regionDSN(data []byte) string {
	return fmt.Sprintf("file:mmaped?ptr=%p&sz=%d&vfs=memvfs&mode=ro", unsafe.Pointer(&data[0]), len(data))
}

func driverName(name string) string {
	if name == "" {
		return DriverName
	}
	return name
}
