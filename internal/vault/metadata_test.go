package vault_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/enpass/internal/events"
	"github.com/TheMichaelB/enpass/internal/models"
	"github.com/TheMichaelB/enpass/internal/vault"
)

func TestParseMetadata(t *testing.T) {
	defaults := models.DefaultMetadata()

	tests := []struct {
		name     string
		raw      string
		want     func(m *models.Metadata)
		warnings int
		errors   int
	}{
		{
			name:     "empty object",
			raw:      `{}`,
			want:     func(m *models.Metadata) {},
			warnings: 6,
		},
		{
			name:     "only iterations",
			raw:      `{"kdf_iter":50000}`,
			want:     func(m *models.Metadata) { m.KDFIter = 50000 },
			warnings: 5,
		},
		{
			name: "complete descriptor",
			raw: `{"encryption_algo":"aes-256-cbc","have_keyfile":0,"kdf_algo":"pbkdf2",
				"kdf_iter":320000,"vault_uuid":"abc-123","version":6,"vault_name":"Primary"}`,
			want: func(m *models.Metadata) {
				m.KDFIter = 320000
				m.VaultUUID = "abc-123"
			},
		},
		{
			name:     "wrong types",
			raw:      `{"encryption_algo":1,"have_keyfile":"yes","kdf_algo":[],"kdf_iter":"many","vault_uuid":{},"version":"six"}`,
			want:     func(m *models.Metadata) {},
			warnings: 6,
		},
		{
			name:     "null fields",
			raw:      `{"kdf_iter":null,"version":null}`,
			want:     func(m *models.Metadata) {},
			warnings: 6,
		},
		{
			name:     "iterations overflow",
			raw:      `{"encryption_algo":"aes-256-cbc","have_keyfile":0,"kdf_algo":"pbkdf2","kdf_iter":5000000000,"vault_uuid":"primary","version":6}`,
			want:     func(m *models.Metadata) {},
			warnings: 1,
		},
		{
			name:     "zero iterations",
			raw:      `{"encryption_algo":"aes-256-cbc","have_keyfile":0,"kdf_algo":"pbkdf2","kdf_iter":0,"vault_uuid":"primary","version":6}`,
			want:     func(m *models.Metadata) {},
			warnings: 1,
		},
		{
			name:     "fractional iterations",
			raw:      `{"encryption_algo":"aes-256-cbc","have_keyfile":0,"kdf_algo":"pbkdf2","kdf_iter":1.5,"vault_uuid":"primary","version":6}`,
			want:     func(m *models.Metadata) {},
			warnings: 1,
		},
		{
			name:     "negative version",
			raw:      `{"encryption_algo":"aes-256-cbc","have_keyfile":0,"kdf_algo":"pbkdf2","kdf_iter":1000,"vault_uuid":"primary","version":-1}`,
			want:     func(m *models.Metadata) { m.KDFIter = 1000 },
			warnings: 1,
		},
		{
			name: "keyfile flag",
			raw:  `{"encryption_algo":"aes-256-cbc","have_keyfile":1,"kdf_algo":"pbkdf2","kdf_iter":1000,"vault_uuid":"primary","version":6}`,
			want: func(m *models.Metadata) {
				m.KDFIter = 1000
				m.HaveKeyfile = true
			},
			warnings: 1,
		},
		{
			name: "keyfile boolean",
			raw:  `{"encryption_algo":"aes-256-cbc","have_keyfile":false,"kdf_algo":"pbkdf2","kdf_iter":1000,"vault_uuid":"primary","version":6}`,
			want: func(m *models.Metadata) { m.KDFIter = 1000 },
		},
		{
			name: "unsupported algorithms accepted",
			raw:  `{"encryption_algo":"aes-256-gcm","have_keyfile":0,"kdf_algo":"argon2","kdf_iter":1000,"vault_uuid":"primary","version":7}`,
			want: func(m *models.Metadata) {
				m.EncryptionAlgo = "aes-256-gcm"
				m.KDFAlgo = "argon2"
				m.KDFIter = 1000
				m.Version = 7
			},
			warnings: 1,
		},
		{
			name:   "not json",
			raw:    `vault_uuid=primary`,
			want:   func(m *models.Metadata) {},
			errors: 1,
		},
		{
			name:   "array document",
			raw:    `[1,2,3]`,
			want:   func(m *models.Metadata) {},
			errors: 1,
		},
		{
			name:   "null document",
			raw:    `null`,
			want:   func(m *models.Metadata) {},
			errors: 1,
		},
		{
			name:   "empty text",
			raw:    ``,
			want:   func(m *models.Metadata) {},
			errors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := events.NewRecorder()

			got := vault.ParseMetadata(tt.raw, rec)

			want := defaults
			tt.want(&want)
			assert.Equal(t, want, got)
			assert.Len(t, rec.AtLevel(events.WarnLevel), tt.warnings)
			assert.Len(t, rec.AtLevel(events.ErrorLevel), tt.errors)
		})
	}
}

func TestParseMetadataNamesMissingFields(t *testing.T) {
	rec := events.NewRecorder()
	vault.ParseMetadata(`{"kdf_iter":50000}`, rec)

	var fields []interface{}
	for _, entry := range rec.AtLevel(events.WarnLevel) {
		fields = append(fields, entry.Fields["field"])
	}
	assert.ElementsMatch(t, []interface{}{
		"encryption_algo", "have_keyfile", "kdf_algo", "vault_uuid", "version",
	}, fields)
}

func TestParseMetadataUnsupportedWarning(t *testing.T) {
	rec := events.NewRecorder()
	vault.ParseMetadata(`{"encryption_algo":"aes-256-gcm","have_keyfile":0,"kdf_algo":"pbkdf2","kdf_iter":1,"vault_uuid":"x","version":6}`, rec)

	warnings := rec.AtLevel(events.WarnLevel)
	if assert.Len(t, warnings, 1) {
		assert.Contains(t, warnings[0].Message, "unsupported")
		assert.Equal(t, "encryption_algo=aes-256-gcm", warnings[0].Fields["settings"])
	}
}

func TestParseMetadataNilReporter(t *testing.T) {
	assert.NotPanics(t, func() {
		vault.ParseMetadata(`{}`, nil)
	})
}
