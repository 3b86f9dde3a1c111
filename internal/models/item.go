package models

import "fmt"

// ItemKeySize is the length of the per-item key blob: AES key || nonce.
const ItemKeySize = 48

// ListItem is one row of the item listing.
type ListItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func (i ListItem) String() string {
	return fmt.Sprintf("%d\t%s", i.ID, i.Title)
}

// ItemDetails carries what is needed to decrypt an item's fields.
// It is fetched on demand and never cached.
type ItemDetails struct {
	UUID string
	Key  []byte
}

// Credential is the username/password pair of an item.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credential) String() string {
	return fmt.Sprintf("%s\t%s", c.Username, c.Password)
}

// Field is a single item field, decrypted when applicable.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (f Field) String() string {
	return fmt.Sprintf("%s\t%s", f.Key, f.Value)
}

// Field types with special handling.
const (
	FieldUsername = "username"
	FieldPassword = "password"
	FieldTOTP     = "totp"
)
