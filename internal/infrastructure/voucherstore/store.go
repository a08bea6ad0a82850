// Package voucherstore keeps rendered voucher documents on the configured disk.
package voucherstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/example/themepark-booking/internal/internaltypes"
)

type Disk string

const (
	DiskLocal Disk = "local"
	DiskS3    Disk = "s3"
	DiskGCS   Disk = "gcs"
)

// Store persists voucher artifacts under slash-separated keys such as
// "vouchers/redeam/voucher-VCH-1A2B3C-BK01.html".
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type Config struct {
	Disk      Disk
	LocalRoot string
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
}

func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Disk {
	case DiskLocal, "":
		root := cfg.LocalRoot
		if root == "" {
			root = "storage"
		}
		return NewLocal(root)
	case DiskS3:
		if cfg.Bucket == "" {
			return nil, errors.New("VOUCHER_BUCKET is required for s3 storage")
		}
		return NewS3(ctx, cfg)
	case DiskGCS:
		if cfg.Bucket == "" {
			return nil, errors.New("VOUCHER_BUCKET is required for gcs storage")
		}
		return newGCS(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported voucher disk: %s", cfg.Disk)
	}
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.TrimSpace(key))[1:]
	if k == "" || k == "." {
		return "", fmt.Errorf("invalid voucher key %q", key)
	}
	return k, nil
}

type Local struct {
	root string
	mu   sync.RWMutex
}

func NewLocal(root string) (*Local, error) {
	//nolint:gosec // vouchers are served back by the web process
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure voucher dir: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) Root() string { return l.root }

func (l *Local) path(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(k)), nil
}

func (l *Local) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	//nolint:gosec
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		return err
	}
	return os.Rename(tmp, p)
}

func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, internaltypes.ErrNotFound
	}
	return b, err
}

func (l *Local) Exists(_ context.Context, key string) (bool, error) {
	p, err := l.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
