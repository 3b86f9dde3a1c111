package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/TheMichaelB/enpass/internal/config"
	"github.com/TheMichaelB/enpass/internal/crypto"
	"github.com/TheMichaelB/enpass/internal/events"
	"github.com/TheMichaelB/enpass/internal/models"
	"github.com/TheMichaelB/enpass/internal/store"
)

// MemVFSHelp points at instructions for building the memvfs extension.
const MemVFSHelp = "https://sqlite.org/loadext.html#compiling_a_loadable_extension"

// Unlocker turns a located vault and a passphrase into a Session.
type Unlocker struct {
	cfg      config.StoreConfig
	provider crypto.Provider
	reporter events.Reporter

	probe      func(ctx context.Context, extension string) store.ProbeResult
	openFile   func(path string, opts store.Options) (store.Store, error)
	openRegion func(data []byte, opts store.Options) (store.Store, error)
	mapFile    func(path string) ([]byte, func() error, error)
}

// Option configures an Unlocker.
type Option func(*Unlocker)

// WithProvider replaces the crypto provider.
func WithProvider(p crypto.Provider) Option {
	return func(u *Unlocker) {
		u.provider = p
	}
}

// NewUnlocker creates an unlocker for the given store settings.
func NewUnlocker(cfg config.StoreConfig, r events.Reporter, opts ...Option) *Unlocker {
	u := &Unlocker{
		cfg:      cfg,
		provider: crypto.NewProvider(),
		reporter: events.OrDiscard(r),
		probe:    store.ProbeExtension,
		openFile: func(path string, opts store.Options) (store.Store, error) {
			return store.OpenFile(path, opts)
		},
		openRegion: func(data []byte, opts store.Options) (store.Store, error) {
			return store.OpenRegion(data, opts)
		},
		mapFile: mapFile,
	}

	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Unlock derives the vault key and applies it to a read-only store. The key
// is not checked here unless verify_on_unlock is set; a wrong passphrase
// otherwise surfaces on the first query.
func (u *Unlocker) Unlock(ctx context.Context, h *Handle, passphrase []byte) (*Session, error) {
	if h == nil {
		return nil, errors.New("unlock: nil vault handle")
	}

	key := u.provider.DeriveKey(passphrase, h.Salt[:], h.Metadata.KDFIter)
	defer key.Wipe()

	u.reporter.Report(events.DebugLevel, "Derived vault key", events.Fields{
		"iterations": h.Metadata.KDFIter,
		"mode":       h.Mode.String(),
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st, err := u.openFile(h.Path, u.storeOptions(nil))
	if err != nil {
		return nil, err
	}

	session := &Session{
		handle:   h,
		store:    st,
		probe:    store.NotRequired(),
		reporter: u.reporter,
	}

	if h.Mode == models.Segmented {
		if err := u.openSegment(ctx, session); err != nil {
			_ = session.Close()
			return nil, err
		}
	}

	params := store.CipherParams{
		Compatibility: u.cfg.CipherCompatibility,
		PageSize:      u.cfg.CipherPageSize,
	}
	if err := session.store.ApplyKey(ctx, key.PageKeyHex(), params); err != nil {
		_ = session.Close()
		return nil, err
	}

	if u.cfg.VerifyOnUnlock {
		if err := session.store.Ping(ctx); err != nil {
			_ = session.Close()
			return nil, err
		}
	}

	u.reporter.Report(events.InfoLevel, "Vault unlocked", events.Fields{
		"path":   h.Path,
		"mode":   h.Mode.String(),
		"memvfs": session.probe.Status.String(),
	})

	return session, nil
}

// openSegment swaps the file-backed store for one over a read-only mapping
// of the database part of the sync container. Without the memvfs extension
// the file-backed store is kept.
func (u *Unlocker) openSegment(ctx context.Context, session *Session) error {
	h := session.handle

	session.probe = u.probe(ctx, u.cfg.MemVFSExtension)
	if !session.probe.Available() {
		u.reporter.Report(events.ErrorLevel, "Sync container needs the memvfs extension, reading the file directly", events.Fields{
			"extension": u.cfg.MemVFSExtension,
			"error":     session.probe.Err,
			"help":      MemVFSHelp,
		})
		return nil
	}

	if err := session.store.Close(); err != nil {
		return err
	}
	session.store = nil

	data, release, err := u.mapFile(h.Path)
	if err != nil {
		return models.NewIOError("map vault", h.Path, err)
	}
	if len(data) <= SegmentOffset {
		_ = release()
		return models.NewIOError("map vault", h.Path, fmt.Errorf("no database after %#x byte header", SegmentOffset))
	}

	st, err := u.openRegion(data[SegmentOffset:], u.storeOptions([]string{u.cfg.MemVFSExtension}))
	if err != nil {
		_ = release()
		return err
	}

	session.store = st
	session.mapping = data
	session.release = release

	u.reporter.Report(events.DebugLevel, "Mapped sync container", events.Fields{
		"path": h.Path,
		"size": len(data),
	})
	return nil
}

func (u *Unlocker) storeOptions(extensions []string) store.Options {
	return store.Options{
		Driver:     u.cfg.Driver,
		Extensions: extensions,
		Reporter:   u.reporter,
	}
}

// Session is an unlocked vault. It owns the store and, for a mapped sync
// container, the mapping the store reads from.
type Session struct {
	handle   *Handle
	store    store.Store
	probe    store.ProbeResult
	reporter events.Reporter

	mapping []byte
	release func() error

	closeOnce sync.Once
	closeErr  error
}

// Handle returns the vault the session was opened from.
func (s *Session) Handle() *Handle {
	return s.handle
}

// Store returns the keyed store.
func (s *Session) Store() store.Store {
	return s.store
}

// Probe returns the memvfs capability check result.
func (s *Session) Probe() store.ProbeResult {
	return s.probe
}

// Mapped reports whether the store reads from a memory mapping.
func (s *Session) Mapped() bool {
	return s.mapping != nil
}

// Items returns the item reader for this session.
func (s *Session) Items(opts ...ItemsOption) *Items {
	return NewItems(s.store, opts...)
}

// Close closes the store and then releases the mapping. It is safe to call
// more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error

		if s.store != nil {
			if err := s.store.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		if s.release != nil {
			if err := s.release(); err != nil {
				errs = append(errs, models.NewIOError("unmap vault", s.handle.Path, err))
			}
			s.mapping = nil
			s.release = nil
		}

		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
