package vault_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/enpass/internal/crypto"
	"github.com/TheMichaelB/enpass/internal/models"
	"github.com/TheMichaelB/enpass/internal/services/totp"
	"github.com/TheMichaelB/enpass/internal/store"
	"github.com/TheMichaelB/enpass/internal/vault"
	"github.com/TheMichaelB/enpass/test/testutil"
)

const itemUUID = "0b7c5a7e-2f0e-4d3b-9a55-3c1f0a8e6d42"

type fakeCodes struct{}

func (fakeCodes) Format(raw string) string {
	if raw == "" {
		return ""
	}
	return raw + " => 123456"
}

func encrypt(t *testing.T, plaintext string, key []byte) string {
	t.Helper()
	ciphertext, err := crypto.EncryptField(plaintext, itemUUID, key)
	require.NoError(t, err)
	return ciphertext
}

func newItemKey(t *testing.T) []byte {
	t.Helper()
	key, err := crypto.NewItemKey()
	require.NoError(t, err)
	return key
}

func TestItemsList(t *testing.T) {
	st := store.NewMockStore(
		store.MockItem{ID: 1, Title: "Alpha"},
		store.MockItem{ID: 7, Title: "Beta"},
	)

	items, err := vault.NewItems(st).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.ListItem{{ID: 1, Title: "Alpha"}, {ID: 7, Title: "Beta"}}, items)
}

func TestItemsListEmpty(t *testing.T) {
	items, err := vault.NewItems(store.NewMockStore()).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestItemsPassword(t *testing.T) {
	key := newItemKey(t)
	ctx := context.Background()

	t.Run("decrypts password", func(t *testing.T) {
		st := store.NewMockStore(store.MockItem{
			ID: 42, UUID: itemUUID, Key: key,
			Fields: []store.FieldRow{
				{Type: models.FieldUsername, Value: "user@example.com"},
				{Type: models.FieldPassword, Value: encrypt(t, "secret123", key)},
			},
		})

		cred, err := vault.NewItems(st).Password(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, &models.Credential{Username: "user@example.com", Password: "secret123"}, cred)
		assert.Equal(t, "user@example.com\tsecret123", cred.String())
	})

	t.Run("last pairing wins", func(t *testing.T) {
		st := store.NewMockStore(store.MockItem{
			ID: 1, UUID: itemUUID, Key: key,
			Fields: []store.FieldRow{
				{Type: models.FieldUsername, Value: "first"},
				{Type: models.FieldUsername, Value: "second"},
				{Type: models.FieldPassword, Value: encrypt(t, "pw", key)},
			},
		})

		cred, err := vault.NewItems(st).Password(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "second", cred.Username)
	})

	t.Run("empty password not decrypted", func(t *testing.T) {
		spy := testutil.NewSpyProvider()
		st := store.NewMockStore(store.MockItem{
			ID: 1, UUID: itemUUID, Key: key,
			Fields: []store.FieldRow{
				{Type: models.FieldUsername, Value: "nobody"},
				{Type: models.FieldPassword, Value: ""},
			},
		})

		cred, err := vault.NewItems(st, vault.WithFieldProvider(spy)).Password(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "", cred.Password)
		assert.Empty(t, spy.Decrypts)
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := vault.NewItems(store.NewMockStore()).Password(ctx, 5)
		assert.ErrorIs(t, err, models.ErrItemNotFound)
		assert.EqualError(t, err, "item 5 not found")
	})

	t.Run("item without credentials", func(t *testing.T) {
		st := store.NewMockStore(store.MockItem{
			ID: 3, UUID: itemUUID, Key: key,
			Fields: []store.FieldRow{{Type: "note", Value: "hello"}},
		})

		_, err := vault.NewItems(st).Password(ctx, 3)
		var notFound *models.ItemNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, uint32(3), notFound.ID)
	})

	t.Run("tampered password", func(t *testing.T) {
		ciphertext := []byte(encrypt(t, "secret123", key))
		if ciphertext[0] == '0' {
			ciphertext[0] = '1'
		} else {
			ciphertext[0] = '0'
		}
		st := store.NewMockStore(store.MockItem{
			ID: 1, UUID: itemUUID, Key: key,
			Fields: []store.FieldRow{
				{Type: models.FieldUsername, Value: "u"},
				{Type: models.FieldPassword, Value: string(ciphertext)},
			},
		})

		_, err := vault.NewItems(st).Password(ctx, 1)
		assert.ErrorIs(t, err, models.ErrAuthentication)
	})

	t.Run("store failure", func(t *testing.T) {
		st := store.NewMockStore()
		st.QueryErr = models.NewStoreError("query item", errors.New("file is not a database"))

		_, err := vault.NewItems(st).Password(ctx, 1)
		assert.ErrorIs(t, err, models.ErrStore)
		assert.True(t, models.LikelyWrongPassphrase(err))
	})
}

func TestItemsDump(t *testing.T) {
	key := newItemKey(t)
	ctx := context.Background()

	st := store.NewMockStore(store.MockItem{
		ID: 9, UUID: itemUUID, Key: key,
		Fields: []store.FieldRow{
			{Type: models.FieldUsername, Value: "user@example.com"},
			{Type: models.FieldPassword, Value: encrypt(t, "secret123", key)},
			{Type: "note", Value: ""},
			{Type: models.FieldTOTP, Value: "JBSWY3DPEHPK3PXP"},
			{Type: models.FieldPassword, Value: ""},
			{Type: "url", Value: "https://example.com"},
		},
	})

	spy := testutil.NewSpyProvider()
	fields, err := vault.NewItems(st, vault.WithFieldProvider(spy), vault.WithCodeFormatter(fakeCodes{})).Dump(ctx, 9)
	require.NoError(t, err)

	assert.Equal(t, []models.Field{
		{Key: "username", Value: "user@example.com"},
		{Key: "password", Value: "secret123"},
		{Key: "totp", Value: "JBSWY3DPEHPK3PXP => 123456"},
		{Key: "url", Value: "https://example.com"},
	}, fields)
	assert.Len(t, spy.Decrypts, 1, "empty password must not be decrypted")
}

func TestItemsDumpTOTP(t *testing.T) {
	fixed := time.Unix(1234567890, 0)
	codes := totp.NewService().WithClock(func() time.Time { return fixed })

	st := store.NewMockStore(store.MockItem{
		ID: 1, UUID: itemUUID, Key: newItemKey(t),
		Fields: []store.FieldRow{
			{Type: models.FieldTOTP, Value: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"},
			{Type: models.FieldTOTP, Value: "not base32!"},
			{Type: models.FieldTOTP, Value: ""},
		},
	})

	fields, err := vault.NewItems(st, vault.WithCodeFormatter(codes)).Dump(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []models.Field{
		{Key: "totp", Value: "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ => 005924"},
		{Key: "totp", Value: "not base32!"},
	}, fields)
}

func TestItemsDumpErrors(t *testing.T) {
	key := newItemKey(t)
	ctx := context.Background()

	t.Run("unknown item", func(t *testing.T) {
		_, err := vault.NewItems(store.NewMockStore()).Dump(ctx, 77)
		assert.ErrorIs(t, err, models.ErrItemNotFound)
	})

	t.Run("bad ciphertext propagates", func(t *testing.T) {
		st := store.NewMockStore(store.MockItem{
			ID: 1, UUID: itemUUID, Key: key,
			Fields: []store.FieldRow{
				{Type: models.FieldUsername, Value: "u"},
				{Type: models.FieldPassword, Value: "not-hex"},
			},
		})

		fields, err := vault.NewItems(st).Dump(ctx, 1)
		assert.Nil(t, fields)
		assert.ErrorIs(t, err, models.ErrInvalidHex)
	})

	t.Run("short item key", func(t *testing.T) {
		st := store.NewMockStore(store.MockItem{
			ID: 1, UUID: itemUUID, Key: key[:40],
			Fields: []store.FieldRow{
				{Type: models.FieldPassword, Value: encrypt(t, "pw", key)},
			},
		})

		_, err := vault.NewItems(st).Dump(ctx, 1)
		assert.ErrorIs(t, err, models.ErrInvalidKeyLength)
	})
}

func TestItemsWithMockProvider(t *testing.T) {
	key := newItemKey(t)
	provider := testutil.NewMockCryptoProvider()
	provider.On("DecryptField", "abcdef", itemUUID, key).Return("from-mock", nil).Once()

	st := store.NewMockStore(store.MockItem{
		ID: 1, UUID: itemUUID, Key: key,
		Fields: []store.FieldRow{
			{Type: models.FieldUsername, Value: "u"},
			{Type: models.FieldPassword, Value: "abcdef"},
		},
	})

	cred, err := vault.NewItems(st, vault.WithFieldProvider(provider)).Password(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "from-mock", cred.Password)
	provider.AssertExpectations(t)
}
