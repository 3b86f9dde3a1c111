//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package vault

import "errors"

func mapFile(path string) ([]byte, func() error, error) {
	return nil, nil, errors.New("memory mapping is not supported on this platform")
}
