package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
type Config struct {
	// Vault location and passphrase handling
	Vault VaultConfig `mapstructure:"vault" json:"vault"`

	// Page store access
	Store StoreConfig `mapstructure:"store" json:"store"`

	// Command output
	Output OutputConfig `mapstructure:"output" json:"output"`

	// Logging
	Log LogConfig `mapstructure:"log" json:"log"`
}

// VaultConfig locates the vault.
type VaultConfig struct {
	Path string `mapstructure:"path" json:"path"`

	// Environment variable holding the passphrase; empty means prompt.
	PassphraseEnv string `mapstructure:"passphrase_env" json:"passphrase_env"`
}

// StoreConfig carries the cipher parameters applied to the page store.
type StoreConfig struct {
	Driver              string `mapstructure:"driver" json:"driver" validate:"required"`
	MemVFSExtension     string `mapstructure:"memvfs_extension" json:"memvfs_extension"`
	CipherCompatibility int    `mapstructure:"cipher_compatibility" json:"cipher_compatibility" validate:"min=1,max=4"`
	CipherPageSize      int    `mapstructure:"cipher_page_size" json:"cipher_page_size" validate:"min=512,max=65536"`
	VerifyOnUnlock      bool   `mapstructure:"verify_on_unlock" json:"verify_on_unlock"`
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	JSON           bool          `mapstructure:"json" json:"json"`
	Color          bool          `mapstructure:"color" json:"color"`
	Spinner        bool          `mapstructure:"spinner" json:"spinner"`
	ClipboardClear time.Duration `mapstructure:"clipboard_clear" json:"clipboard_clear" validate:"min=0"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level     string `mapstructure:"level" json:"level" validate:"oneof=debug info warn error"`   // debug, info, warn, error
	Format    string `mapstructure:"format" json:"format" validate:"oneof=text json"`             // text, json
	File      string `mapstructure:"file" json:"file"`                                            // Log file path (empty = stderr)
	Color     bool   `mapstructure:"color" json:"color"`                                          // Enable colored output
	Timestamp bool   `mapstructure:"timestamp" json:"timestamp"`                                  // Include timestamps
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:              "sqlite3",
			MemVFSExtension:     "libmemvfs",
			CipherCompatibility: 3,
			CipherPageSize:      1024,
			VerifyOnUnlock:      false,
		},
		Output: OutputConfig{
			JSON:           false,
			Color:          true,
			Spinner:        true,
			ClipboardClear: 0,
		},
		Log: LogConfig{
			Level:     "warn",
			Format:    "text",
			File:      "",
			Color:     true,
			Timestamp: false,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks configuration validity.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	name := fieldName(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("invalid %s: %v", name, fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s out of range: %v", name, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}

// fieldName turns "Config.Log.Level" into "log level".
func fieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, " ")
}
