package kv

import (
	"bytes"
	"context"
	"iter"
	"sort"
	"sync"
)

// Memory is an in-memory Store backed by a map. It is safe for concurrent
// use and backs the simulated device and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	opts *Options
}

// NewMemory creates an empty in-memory Store. Pass nil for default options.
func NewMemory(opts *Options) *Memory {
	return &Memory{
		data: make(map[string][]byte),
		opts: opts,
	}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	k := string(m.opts.encode(key))
	m.mu.RLock()
	v, ok := m.data[k]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *Memory) Set(_ context.Context, key Key, value []byte) error {
	k := string(m.opts.encode(key))
	cp := bytes.Clone(value)
	m.mu.Lock()
	m.data[k] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	k := string(m.opts.encode(key))
	m.mu.Lock()
	delete(m.data, k)
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	p := m.opts.encode(prefix)
	// Scope the scan to "p:"-prefixed keys so "journal:re" cannot match
	// "journal:rec". An empty prefix scans everything.
	var scan []byte
	if len(p) > 0 {
		scan = append(p, m.opts.sep())
	}

	m.mu.RLock()
	matches := make([]string, 0, len(m.data))
	for k := range m.data {
		if len(scan) == 0 || bytes.HasPrefix([]byte(k), scan) {
			matches = append(matches, k)
		}
	}
	m.mu.RUnlock()
	sort.Strings(matches)

	return func(yield func(Entry, error) bool) {
		for _, k := range matches {
			m.mu.RLock()
			v, ok := m.data[k]
			if ok {
				v = bytes.Clone(v)
			}
			m.mu.RUnlock()
			if !ok {
				// Deleted between snapshot and yield.
				continue
			}
			if !yield(Entry{Key: m.opts.decode([]byte(k)), Value: v}, nil) {
				return
			}
		}
	}
}

func (m *Memory) Close() error {
	return nil
}
