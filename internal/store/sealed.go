package store

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

const (
	sealTagSize  = sha256.Size
	sealKeySize  = 32
	sealInfo     = "sesame-pattern-seal-v1"
	minSecretLen = 16
)

// Sealed wraps a Store and appends an HMAC-SHA256 tag to every value. The
// tag covers the key as well as the value, so records cannot be swapped
// between modalities. Sealing detects tampering; it does not hide values.
type Sealed struct {
	inner Store
	key   []byte
}

// NewSealed derives a sealing key from secret with HKDF and wraps inner.
func NewSealed(inner Store, secret, salt []byte) (*Sealed, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("store: seal secret must be at least %d bytes", minSecretLen)
	}
	key := make([]byte, sealKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}
	return &Sealed{inner: inner, key: key}, nil
}

func (s *Sealed) tag(key string, value []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(key))
	mac.Write([]byte{0})
	mac.Write(value)
	return mac.Sum(nil)
}

func (s *Sealed) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(raw) < sealTagSize {
		return nil, fmt.Errorf("%w: %s: record too short", ErrTampered, key)
	}
	value, tag := raw[:len(raw)-sealTagSize], raw[len(raw)-sealTagSize:]
	if !hmac.Equal(tag, s.tag(key, value)) {
		return nil, fmt.Errorf("%w: %s", ErrTampered, key)
	}
	return value, nil
}

func (s *Sealed) Set(ctx context.Context, key string, value []byte) error {
	sealed := make([]byte, 0, len(value)+sealTagSize)
	sealed = append(sealed, value...)
	sealed = append(sealed, s.tag(key, value)...)
	return s.inner.Set(ctx, key, sealed)
}

func (s *Sealed) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *Sealed) Close() error {
	return s.inner.Close()
}

// LoadOrCreateSecret reads the seal secret at path, generating a random one
// with owner-only permissions if the file does not exist.
func LoadOrCreateSecret(path string) ([]byte, error) {
	secret, err := os.ReadFile(path)
	if err == nil {
		if len(secret) < minSecretLen {
			return nil, fmt.Errorf("store: seal secret %s is too short", path)
		}
		return secret, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read seal secret: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create secret directory: %w", err)
	}
	secret = make([]byte, sealKeySize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate seal secret: %w", err)
	}
	if err := os.WriteFile(path, secret, 0600); err != nil {
		return nil, fmt.Errorf("write seal secret: %w", err)
	}
	return secret, nil
}
