package vault

import (
	"context"

	"github.com/TheMichaelB/enpass/internal/crypto"
	"github.com/TheMichaelB/enpass/internal/models"
	"github.com/TheMichaelB/enpass/internal/services/totp"
	"github.com/TheMichaelB/enpass/internal/store"
)

// CodeFormatter renders a stored TOTP seed for display.
type CodeFormatter interface {
	Format(raw string) string
}

// Items reads and decrypts vault items. Item keys are fetched per call.
type Items struct {
	store    store.Store
	provider crypto.Provider
	codes    CodeFormatter
}

// ItemsOption configures Items.
type ItemsOption func(*Items)

// WithFieldProvider replaces the provider used to decrypt fields.
func WithFieldProvider(p crypto.Provider) ItemsOption {
	return func(i *Items) {
		i.provider = p
	}
}

// WithCodeFormatter replaces the TOTP formatter.
func WithCodeFormatter(f CodeFormatter) ItemsOption {
	return func(i *Items) {
		i.codes = f
	}
}

// NewItems creates an item reader over st.
func NewItems(st store.Store, opts ...ItemsOption) *Items {
	i := &Items{
		store:    st,
		provider: crypto.NewProvider(),
		codes:    totp.NewService(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// List returns id and title of every item.
func (i *Items) List(ctx context.Context) ([]models.ListItem, error) {
	rows, err := i.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.ListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.ListItem{ID: row.ID, Title: row.Title})
	}
	return items, nil
}

// Password returns the username and decrypted password of item id. When the
// item has several pairings the last one wins.
func (i *Items) Password(ctx context.Context, id uint32) (*models.Credential, error) {
	details, err := i.store.ItemDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := i.store.Credentials(ctx, details.UUID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &models.ItemNotFoundError{ID: id}
	}

	last := rows[len(rows)-1]
	password, err := i.decrypt(last.Password, details)
	if err != nil {
		return nil, err
	}

	return &models.Credential{Username: last.Username, Password: password}, nil
}

// Dump returns every non-empty field of item id in order. Passwords are
// decrypted and TOTP seeds rendered with their current code.
func (i *Items) Dump(ctx context.Context, id uint32) ([]models.Field, error) {
	details, err := i.store.ItemDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := i.store.Fields(ctx, details.UUID)
	if err != nil {
		return nil, err
	}

	fields := make([]models.Field, 0, len(rows))
	for _, row := range rows {
		value := row.Value

		switch row.Type {
		case models.FieldPassword:
			value, err = i.decrypt(row.Value, details)
			if err != nil {
				return nil, err
			}
		case models.FieldTOTP:
			value = i.codes.Format(row.Value)
		}

		if value == "" {
			continue
		}
		fields = append(fields, models.Field{Key: row.Type, Value: value})
	}

	return fields, nil
}

// decrypt opens a stored field value. Empty means unset and is returned
// without touching the cipher.
func (i *Items) decrypt(value string, details *store.DetailsRow) (string, error) {
	if value == "" {
		return "", nil
	}
	return i.provider.DecryptField(value, details.UUID, details.Key)
}
