package vault

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/TheMichaelB/enpass/internal/events"
	"github.com/TheMichaelB/enpass/internal/models"
)

// DescriptorSize bounds the descriptor text; the sync container reserves
// this much header space for it.
const DescriptorSize = 0x400

// ParseMetadata reads a vault descriptor. It never fails: anything that
// cannot be used is reported and replaced by its default.
func ParseMetadata(raw string, r events.Reporter) models.Metadata {
	r = events.OrDiscard(r)
	meta := models.DefaultMetadata()

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc == nil {
		if err == nil {
			err = errors.New("descriptor is not an object")
		}
		r.Report(events.ErrorLevel, "Unreadable vault descriptor, using defaults", events.Fields{"error": err})
		return meta
	}

	p := descriptorParser{doc: doc, reporter: r}
	p.string("encryption_algo", &meta.EncryptionAlgo)
	p.keyfile(&meta.HaveKeyfile)
	p.string("kdf_algo", &meta.KDFAlgo)
	p.iterations(&meta.KDFIter)
	p.string("vault_uuid", &meta.VaultUUID)
	p.version(&meta.Version)

	if unsupported := meta.Unsupported(); len(unsupported) > 0 {
		r.Report(events.WarnLevel, "Vault descriptor names unsupported settings", events.Fields{
			"settings": strings.Join(unsupported, ", "),
		})
	}

	return meta
}

type descriptorParser struct {
	doc      map[string]json.RawMessage
	reporter events.Reporter
}

func (p descriptorParser) lookup(field string, def interface{}) (json.RawMessage, bool) {
	value, ok := p.doc[field]
	if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		p.reporter.Report(events.WarnLevel, "Vault descriptor field missing, using default", events.Fields{
			"field":   field,
			"default": def,
		})
		return nil, false
	}
	return value, true
}

func (p descriptorParser) invalid(field string, def interface{}, err error) {
	p.reporter.Report(events.WarnLevel, "Vault descriptor field invalid, using default", events.Fields{
		"field":   field,
		"default": def,
		"error":   err,
	})
}

func (p descriptorParser) string(field string, dst *string) {
	value, ok := p.lookup(field, *dst)
	if !ok {
		return
	}

	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		p.invalid(field, *dst, err)
		return
	}
	*dst = s
}

// keyfile accepts the integer flag the vault writes, and a boolean.
func (p descriptorParser) keyfile(dst *bool) {
	const field = "have_keyfile"

	value, ok := p.lookup(field, *dst)
	if !ok {
		return
	}

	var flag int64
	if err := json.Unmarshal(value, &flag); err == nil {
		*dst = flag != 0
		return
	}

	var b bool
	if err := json.Unmarshal(value, &b); err != nil {
		p.invalid(field, *dst, fmt.Errorf("want integer, got %s", value))
		return
	}
	*dst = b
}

func (p descriptorParser) iterations(dst *uint32) {
	const field = "kdf_iter"

	value, ok := p.lookup(field, *dst)
	if !ok {
		return
	}

	var n uint32
	if err := json.Unmarshal(value, &n); err != nil {
		p.invalid(field, *dst, err)
		return
	}
	if n == 0 {
		p.invalid(field, *dst, errors.New("iteration count must be positive"))
		return
	}
	*dst = n
}

func (p descriptorParser) version(dst *uint) {
	const field = "version"

	value, ok := p.lookup(field, *dst)
	if !ok {
		return
	}

	var n uint
	if err := json.Unmarshal(value, &n); err != nil {
		p.invalid(field, *dst, err)
		return
	}
	*dst = n
}

// readDescriptor returns the text of the first DescriptorSize bytes of
// path, cut at the first NUL byte.
func readDescriptor(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, DescriptorSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}

	buf = buf[:n]
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), nil
}
