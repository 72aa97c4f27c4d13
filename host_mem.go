package cstore

import (
	"bytes"
	"slices"
	"sort"
	"sync"
)

// MemHost is a transient in-memory Host, intended for tests.
type MemHost struct {
	mu     sync.Mutex
	items  []memKV // sorted by key
	closed bool
}

type memKV struct {
	key   StorageKey
	value []byte
}

var _ Host = (*MemHost)(nil)

func NewMemHost() *MemHost {
	return &MemHost{}
}

func (h *MemHost) GetStorage(key StorageKey) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	i, ok := h.find(key)
	if !ok {
		return nil, nil
	}
	return h.items[i].value, nil
}

func (h *MemHost) SetStorage(key StorageKey, value []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	value = append([]byte{}, value...)

	i, ok := h.find(key)
	if ok {
		h.items[i].value = value
		return nil
	}
	h.items = slices.Insert(h.items, i, memKV{key: key, value: value})
	return nil
}

// Keys returns every key ever written, in ascending order.
func (h *MemHost) Keys() []StorageKey {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]StorageKey, len(h.items))
	for i, kv := range h.items {
		keys[i] = kv.key
	}
	return keys
}

func (h *MemHost) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

func (h *MemHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.items = nil
	return nil
}

func (h *MemHost) find(key StorageKey) (idx int, ok bool) {
	items := h.items
	i := sort.Search(len(items), func(i int) bool {
		return bytes.Compare(items[i].key[:], key[:]) >= 0
	})
	if i < len(items) && items[i].key == key {
		return i, true
	}
	return i, false
}
