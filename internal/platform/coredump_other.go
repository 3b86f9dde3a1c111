//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package platform

// DisableCoreDumps is a no-op where core limits cannot be set.
func DisableCoreDumps() error { return nil }
