// Package kv is the small key-value layer the firmware persists through:
// the device configuration blob and the on-device event journal. Keys are
// hierarchical string slices (e.g. ["journal", "rec", "20260314"]) encoded
// with a configurable separator byte, ':' by default.
//
// Two backends are provided: Badger for on-flash persistence and Memory for
// tests and the simulated device.
package kv

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Key is a hierarchical path represented as a slice of string segments.
// Key{"journal", "rec", "20260314"} encodes to "journal:rec:20260314" with
// the default separator.
//
// Segments must not contain the configured separator byte; encoding a key
// that does panics.
type Key []string

// String returns the key joined with ':' for display and logging. Storage
// encoding goes through Options instead and honors a custom separator.
func (k Key) String() string {
	return strings.Join(k, ":")
}

// Entry is a key-value pair yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a byte-oriented key-value store with path-based keys.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key Key) error

	// List iterates entries whose key starts with the given prefix, in
	// lexicographic order of the encoded key. A nil prefix lists everything.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases any resources held by the store.
	Close() error
}

// DefaultSeparator joins key segments in the encoded representation.
const DefaultSeparator byte = ':'

// Options configures key encoding for a store.
type Options struct {
	// Separator overrides the byte used to join key segments. Zero means
	// DefaultSeparator.
	Separator byte
}

func (o *Options) sep() byte {
	if o != nil && o.Separator != 0 {
		return o.Separator
	}
	return DefaultSeparator
}

// encode converts a Key to its stored byte form. Panics if a segment
// contains the separator, since that would corrupt prefix scans.
func (o *Options) encode(k Key) []byte {
	s := o.sep()
	n := 0
	for i, seg := range k {
		if strings.IndexByte(seg, s) >= 0 {
			panic("kv: key segment " + strconv.Quote(seg) + " contains separator")
		}
		if i > 0 {
			n++
		}
		n += len(seg)
	}
	buf := make([]byte, 0, n)
	for i, seg := range k {
		if i > 0 {
			buf = append(buf, s)
		}
		buf = append(buf, seg...)
	}
	return buf
}

// decode splits a stored byte form back into a Key.
func (o *Options) decode(b []byte) Key {
	parts := bytes.Split(b, []byte{o.sep()})
	k := make(Key, len(parts))
	for i, p := range parts {
		k[i] = string(p)
	}
	return k
}
