package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/sharebox/internal/config"
	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = appErr.Internal(errors.New("invalid file key"))
	ErrInvalidTTL     = appErr.Internal(errors.New("download ttl must be positive"))
)

// Store is the blob backend. SignedDownloadURL hands out a short-lived
// capability so callers never proxy bytes themselves.
type Store interface {
	Type() string
	Put(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	SignedDownloadURL(ctx context.Context, key string, ttl time.Duration, filename string) (string, error)
}

// SignatureVerifier is implemented by stores whose capability URLs are
// served by this process.
type SignatureVerifier interface {
	VerifyDownload(key, signature string) (filename string, err error)
}

type Factory func(args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.FileStoreConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("file_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported file store type: %s", cfg.Type)
	}
	return factory(cfg.Data)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode store config: %w", err)
	}
	return nil
}

func validKey(key string) bool {
	return key != "" && !strings.Contains(key, "/") && !strings.Contains(key, "\\") && key != "." && key != ".."
}
