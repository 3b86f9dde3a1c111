package store

import (
	"context"
	"errors"
)

// Store is the read-only query surface of an unlocked vault database.
type Store interface {
	// ApplyKey keys the page cipher. It must run before any query.
	ApplyKey(ctx context.Context, pageKeyHex string, params CipherParams) error

	// Ping forces a read of the schema, which fails when the key is wrong.
	Ping(ctx context.Context) error

	// ListItems returns id and title of every item.
	ListItems(ctx context.Context) ([]ItemRow, error)

	// ItemDetails looks up the uuid and key blob of an item. An unknown id
	// yields *models.ItemNotFoundError.
	ItemDetails(ctx context.Context, id uint32) (*DetailsRow, error)

	// Credentials returns the username/password join rows of an item, in
	// store order. Password values are still encrypted.
	Credentials(ctx context.Context, itemUUID string) ([]CredentialRow, error)

	// Fields returns every field of an item ordered by its position.
	Fields(ctx context.Context, itemUUID string) ([]FieldRow, error)

	// Close releases the database handle.
	Close() error
}

// CipherParams are the page cipher settings applied alongside the key.
type CipherParams struct {
	Compatibility int
	PageSize      int
}

// DefaultCipherParams matches the vault format's page layout.
func DefaultCipherParams() CipherParams {
	return CipherParams{Compatibility: 3, PageSize: 1024}
}

// ItemRow is a row of the item table listing.
type ItemRow struct {
	ID    int64
	Title string
}

// DetailsRow carries an item's uuid and raw key blob.
type DetailsRow struct {
	UUID string
	Key  []byte
}

// CredentialRow is one username/password pairing.
type CredentialRow struct {
	Username string
	Password string
}

// FieldRow is a stored field; Value is raw.
type FieldRow struct {
	Type  string
	Value string
}

// Errors
var (
	ErrNotKeyed = errors.New("store is not keyed")
	ErrClosed   = errors.New("store is closed")
)
