package store

import (
	"context"
	"fmt"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

// ProbeStatus is the outcome of an extension capability check.
type ProbeStatus int

const (
	// ProbeNotRequired means the open mode needs no extension.
	ProbeNotRequired ProbeStatus = iota
	// ProbeAvailable means the extension loaded.
	ProbeAvailable
	// ProbeUnavailable means loading failed; Err says why.
	ProbeUnavailable
)

func (s ProbeStatus) String() string {
	switch s {
	case ProbeNotRequired:
		return "not-required"
	case ProbeAvailable:
		return "available"
	case ProbeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ProbeResult reports whether a loadable extension can be used.
type ProbeResult struct {
	Status    ProbeStatus
	Extension string
	Err       error
}

// NotRequired is the result for modes that need no extension.
func NotRequired() ProbeResult {
	return ProbeResult{Status: ProbeNotRequired}
}

// Available reports whether the extension can be used.
func (r ProbeResult) Available() bool {
	return r.Status == ProbeAvailable
}

// ProbeExtension loads extension into a scratch in-memory connection. A
// successful load also registers any VFS the extension provides for the
// rest of the process.
func ProbeExtension(ctx context.Context, extension string) ProbeResult {
	result := ProbeResult{Status: ProbeUnavailable, Extension: extension}

	if extension == "" {
		result.Err = fmt.Errorf("no extension configured")
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	d := &sqlite3.SQLiteDriver{Extensions: []string{extension}}
	conn, err := d.Open(":memory:")
	if err != nil {
		result.Err = fmt.Errorf("load extension %s: %w", extension, err)
		return result
	}
	_ = conn.Close()

	result.Status = ProbeAvailable
	return result
}
