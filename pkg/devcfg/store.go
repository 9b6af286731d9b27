package devcfg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/arunika/dollcore/pkg/kv"
)

// ConfigKey is where the blob lives in the kv store.
var ConfigKey = kv.Key{"device", "config"}

// ErrNoBacking is returned by Save when the store has neither a file path
// nor a kv backend.
var ErrNoBacking = errors.New("devcfg: no backing store")

// Store persists the configuration blob. Path takes precedence over KV when
// both are set, so an operator can point the firmware at a blob on disk.
type Store struct {
	Path string
	KV   kv.Store
}

// Load reads and decodes the blob. A missing or corrupt blob is not an
// error: Load falls back to Default and reports it through the second
// return. Only real I/O failures (an unreadable explicit path, a kv fault)
// surface as errors.
func (s *Store) Load(ctx context.Context) (Config, bool, error) {
	blob, err := s.read(ctx)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, kv.ErrNotFound):
		return Default(), true, nil
	default:
		return Config{}, false, fmt.Errorf("devcfg: load: %w", err)
	}

	c, err := UnmarshalBlob(blob)
	if err != nil {
		// Corrupt flash must never brick the device.
		return Default(), true, nil
	}
	return c, false, nil
}

// Save validates, encodes, and writes the blob. The controller calls this
// only from the idle state.
func (s *Store) Save(ctx context.Context, c Config) error {
	blob, err := c.MarshalBlob()
	if err != nil {
		return err
	}
	switch {
	case s.Path != "":
		if err := os.WriteFile(s.Path, blob, 0o600); err != nil {
			return fmt.Errorf("devcfg: save: %w", err)
		}
		return nil
	case s.KV != nil:
		if err := s.KV.Set(ctx, ConfigKey, blob); err != nil {
			return fmt.Errorf("devcfg: save: %w", err)
		}
		return nil
	default:
		return ErrNoBacking
	}
}

func (s *Store) read(ctx context.Context) ([]byte, error) {
	switch {
	case s.Path != "":
		return os.ReadFile(s.Path)
	case s.KV != nil:
		return s.KV.Get(ctx, ConfigKey)
	default:
		return nil, fs.ErrNotExist
	}
}
