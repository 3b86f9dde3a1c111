package platform

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
)

// Clipboard is the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// NewClipboard returns the system clipboard.
func NewClipboard() Clipboard {
	return systemClipboard{}
}

// CopyAndClear writes text and, when ttl is positive, blocks until ttl has
// passed or ctx is done, then clears the clipboard.
func CopyAndClear(ctx context.Context, cb Clipboard, text string, ttl time.Duration) error {
	if err := cb.WriteAll(text); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	timer := time.NewTimer(ttl)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	return cb.WriteAll("")
}
