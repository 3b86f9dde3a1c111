package models

import (
	"errors"
	"fmt"
)

// Error codes for structured error handling.
const (
	ErrCodeIO           = "IO_ERROR"
	ErrCodeStore        = "STORE_ERROR"
	ErrCodeItemNotFound = "ITEM_NOT_FOUND"
	ErrCodeHex          = "HEX_ERROR"
	ErrCodeKeyLength    = "KEY_LENGTH_ERROR"
	ErrCodeAuth         = "AUTHENTICATION_ERROR"
	ErrCodeUTF8         = "UTF8_ERROR"
	ErrCodeConfig       = "CONFIG_ERROR"
)

// Sentinel errors
var (
	ErrIO               = errors.New("vault file i/o failed")
	ErrStore            = errors.New("store failure")
	ErrItemNotFound     = errors.New("item not found")
	ErrInvalidHex       = errors.New("invalid hex data")
	ErrInvalidKeyLength = errors.New("invalid key length")
	ErrAuthentication   = errors.New("authentication failed")
	ErrInvalidUTF8      = errors.New("plaintext is not valid utf-8")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

var codeSentinels = map[string]error{
	ErrCodeIO:           ErrIO,
	ErrCodeStore:        ErrStore,
	ErrCodeItemNotFound: ErrItemNotFound,
	ErrCodeHex:          ErrInvalidHex,
	ErrCodeKeyLength:    ErrInvalidKeyLength,
	ErrCodeAuth:         ErrAuthentication,
	ErrCodeUTF8:         ErrInvalidUTF8,
	ErrCodeConfig:       ErrInvalidConfig,
}

// VaultError describes a failed vault operation.
type VaultError struct {
	Code string
	Op   string
	Path string
	Err  error
}

func (e *VaultError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s [%s]: %v", e.Op, e.Path, e.Code, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Code, e.Err)
}

func (e *VaultError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for the error's code.
func (e *VaultError) Is(target error) bool {
	sentinel, ok := codeSentinels[e.Code]
	return ok && sentinel == target
}

// NewIOError wraps a file system failure.
func NewIOError(op, path string, err error) *VaultError {
	return &VaultError{Code: ErrCodeIO, Op: op, Path: path, Err: err}
}

// NewStoreError wraps a failure of the relational store.
func NewStoreError(op string, err error) *VaultError {
	return &VaultError{Code: ErrCodeStore, Op: op, Err: err}
}

// DecryptError represents a field decryption failure.
type DecryptError struct {
	UUID   string
	Reason string
	Err    error
}

func (e *DecryptError) Error() string {
	if e.UUID != "" {
		return fmt.Sprintf("decrypt item %s: %s: %v", e.UUID, e.Reason, e.Err)
	}
	return fmt.Sprintf("decrypt: %s: %v", e.Reason, e.Err)
}

func (e *DecryptError) Unwrap() error {
	return e.Err
}

// ItemNotFoundError is returned when an item id does not resolve.
type ItemNotFoundError struct {
	ID uint32
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %d not found", e.ID)
}

func (e *ItemNotFoundError) Is(target error) bool {
	return target == ErrItemNotFound
}

// CauseChain flattens an error and everything it wraps, outermost first.
// Joined errors are walked depth first.
func CauseChain(err error) []string {
	var chain []string
	var walk func(error)
	walk = func(e error) {
		for e != nil {
			chain = append(chain, e.Error())
			if joined, ok := e.(interface{ Unwrap() []error }); ok {
				for _, inner := range joined.Unwrap() {
					walk(inner)
				}
				return
			}
			e = errors.Unwrap(e)
		}
	}
	walk(err)
	return chain
}

// LikelyWrongPassphrase reports whether err is the kind of failure a wrong
// passphrase produces. The key is never checked at unlock time, so a bad
// passphrase shows up as a store error or an AEAD failure on first access.
func LikelyWrongPassphrase(err error) bool {
	return errors.Is(err, ErrStore) || errors.Is(err, ErrAuthentication)
}
