package vault

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/TheMichaelB/enpass/internal/crypto"
	"github.com/TheMichaelB/enpass/internal/events"
	"github.com/TheMichaelB/enpass/internal/models"
)

// Vault file extensions.
const (
	ExtDescriptor = ".json"
	ExtDatabase   = ".enpassdb"
	ExtSync       = ".enpassdbsync"
)

// SegmentOffset is where the database starts inside a sync container.
const SegmentOffset = 0x400

// Handle identifies a located vault. It holds no open resources.
type Handle struct {
	Path     string
	Salt     [crypto.SaltSize]byte
	Mode     models.OpenMode
	Metadata models.Metadata
}

// SaltHex returns the salt in hex, for diagnostics.
func (h *Handle) SaltHex() string {
	return hex.EncodeToString(h.Salt[:])
}

// Offset returns where the database begins in the vault file.
func (h *Handle) Offset() int64 {
	if h.Mode == models.Segmented {
		return SegmentOffset
	}
	return 0
}

// Locate resolves the file to open from a user supplied path, picks the
// open mode, loads the descriptor and reads the KDF salt.
//
//	vault.json         -> vault.enpassdb, direct, descriptor from the .json
//	vault.enpassdb     -> itself, direct, sibling .json when readable
//	vault.enpassdbsync -> itself, segmented, descriptor from its header
//	anything else      -> itself, direct, default descriptor
func Locate(path string, r events.Reporter) (*Handle, error) {
	r = events.OrDiscard(r)

	h := &Handle{Path: path, Mode: models.Direct}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	switch ext {
	case ExtDescriptor:
		raw, err := readDescriptor(path)
		if err != nil {
			return nil, models.NewIOError("read descriptor", path, err)
		}
		h.Path = stem + ExtDatabase
		h.Metadata = ParseMetadata(raw, r)

	case ExtDatabase:
		sibling := stem + ExtDescriptor
		raw, err := readDescriptor(sibling)
		if err != nil {
			r.Report(events.WarnLevel, "Missing vault descriptor, using defaults", events.Fields{
				"path":  sibling,
				"error": err,
			})
			h.Metadata = models.DefaultMetadata()
		} else {
			h.Metadata = ParseMetadata(raw, r)
		}

	case ExtSync:
		raw, err := readDescriptor(path)
		if err != nil {
			return nil, models.NewIOError("read descriptor", path, err)
		}
		h.Mode = models.Segmented
		h.Metadata = ParseMetadata(raw, r)

	default:
		r.Report(events.WarnLevel, "Unknown vault extension, using default descriptor", events.Fields{
			"path":      path,
			"extension": ext,
		})
		h.Metadata = models.DefaultMetadata()
	}

	if err := readSalt(h.Path, h.Offset(), h.Salt[:]); err != nil {
		return nil, err
	}

	r.Report(events.DebugLevel, "Located vault", events.Fields{
		"path": h.Path,
		"mode": h.Mode.String(),
		"salt": h.SaltHex(),
	})

	return h, nil
}

func readSalt(path string, offset int64, salt []byte) error {
	f, err := os.Open(path)
	if err != nil {
		return models.NewIOError("open vault", path, err)
	}
	defer f.Close()

	if _, err := f.ReadAt(salt, offset); err != nil {
		if err == io.EOF {
			err = fmt.Errorf("file too short for salt at offset %#x", offset)
		}
		return models.NewIOError("read salt", path, err)
	}
	return nil
}
