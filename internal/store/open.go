package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendFile   = "file"
)

// Options selects and configures a backend.
type Options struct {
	Backend string

	// Path is the SQLite file, or the Badger or file-store directory.
	Path string

	// InMemory runs Badger without disk persistence.
	InMemory bool

	// Seal wraps the backend in a Sealed store keyed from SecretFile.
	Seal       bool
	SecretFile string

	Logger *slog.Logger
}

// Open builds the configured backend.
func Open(opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Backend {
	case BackendMemory, "":
		s = NewMemory()
	case BackendSQLite:
		s, err = OpenSQLite(opts.Path)
	case BackendBadger:
		s, err = OpenBadger(BadgerOptions{Dir: opts.Path, InMemory: opts.InMemory, Logger: opts.Logger})
	case BackendFile:
		s, err = OpenFile(opts.Path)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	if !opts.Seal {
		return s, nil
	}
	secretFile := opts.SecretFile
	if secretFile == "" {
		secretFile = filepath.Join(filepath.Dir(opts.Path), "seal.key")
	}
	secret, err := LoadOrCreateSecret(secretFile)
	if err != nil {
		s.Close()
		return nil, err
	}
	sealed, err := NewSealed(s, secret, []byte(opts.Backend))
	if err != nil {
		s.Close()
		return nil, err
	}
	return sealed, nil
}
