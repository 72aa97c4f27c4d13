package cstore

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"maps"
)

type MapState int

const (
	// Unbound is a freshly constructed map that has not read the store.
	Unbound MapState = iota
	// Loaded means the entries match what the store held at the last load or
	// flush.
	Loaded
	// Dirty means the map was changed since the last load or flush.
	Dirty
)

func (s MapState) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Loaded:
		return "loaded"
	case Dirty:
		return "dirty"
	default:
		return fmt.Sprintf("MapState(%d)", int(s))
	}
}

// Map is an in-memory hash map persisted as a single record under one
// StorageKey.
//
// All reads and mutations happen in memory. Nothing reaches the store until
// Flush, which rewrites the whole record; unflushed changes are lost when the
// map is dropped. A Map must not be used from multiple goroutines at once.
//
// The zero Map is an empty detached map without codecs: it can be read and
// mutated, but not encoded or flushed. Use NewMap, LoadMap, LoadOrCreateMap or
// NestedMap to get a usable one.
type Map[K comparable, V any] struct {
	key   StorageKey
	store *Store
	kc    Codec[K]
	vc    Codec[V]
	items map[K]V
	state MapState
}

// NewMap returns an empty map bound to key. It does not touch the store, so
// flushing it overwrites any record already stored under key.
func NewMap[K comparable, V any](st *Store, key StorageKey, kc Codec[K], vc Codec[V]) *Map[K, V] {
	return &Map[K, V]{
		key:   key,
		store: st,
		kc:    kc,
		vc:    vc,
		items: make(map[K]V),
	}
}

// LoadMap reads the map stored under key. It fails with ErrUnavailable if the
// key holds no record (or a cleared one), and with a *DecodeError if the record
// is malformed.
func LoadMap[K comparable, V any](st *Store, key StorageKey, kc Codec[K], vc Codec[V]) (*Map[K, V], error) {
	m, found, err := loadMap(st, key, kc, vc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, keyErrf(key, "load", ErrUnavailable, "")
	}
	return m, nil
}

// LoadOrCreateMap is like LoadMap, but returns an empty map when key holds no
// record. Malformed records are still an error.
func LoadOrCreateMap[K comparable, V any](st *Store, key StorageKey, kc Codec[K], vc Codec[V]) (*Map[K, V], error) {
	m, found, err := loadMap(st, key, kc, vc)
	if err != nil {
		return nil, err
	}
	if !found {
		if st.verbose {
			st.logger.LogAttrs(context.Background(), slog.LevelDebug, "cstore: LOAD.NOTFOUND", keyAttr(key))
		}
		return NewMap(st, key, kc, vc), nil
	}
	return m, nil
}

func loadMap[K comparable, V any](st *Store, key StorageKey, kc Codec[K], vc Codec[V]) (*Map[K, V], bool, error) {
	raw, err := st.GetKV(key)
	if err != nil {
		return nil, false, err
	}
	if raw == nil || IsSentinel(raw) {
		return nil, false, nil
	}
	m, err := DecodeMap(raw, kc, vc)
	if err != nil {
		st.logger.LogAttrs(context.Background(), slog.LevelWarn, "cstore: invalid map record", keyAttr(key), slog.Int("size", len(raw)), slog.Any("err", err))
		return nil, false, keyErrf(key, "load", err, "")
	}
	m.key = key
	m.store = st
	m.state = Loaded
	if st.verbose {
		st.logger.LogAttrs(context.Background(), slog.LevelDebug, "cstore: LOAD", keyAttr(key), slog.Int("entries", len(m.items)), slog.Int("size", len(raw)))
	}
	return m, true, nil
}

// Key returns the key the map is flushed under.
func (m *Map[K, V]) Key() StorageKey {
	return m.key
}

func (m *Map[K, V]) Store() *Store {
	return m.store
}

func (m *Map[K, V]) State() MapState {
	return m.state
}

func (m *Map[K, V]) Len() int {
	return len(m.items)
}

func (m *Map[K, V]) IsEmpty() bool {
	return len(m.items) == 0
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	v, ok := m.items[key]
	return v, ok
}

// MustGet returns the value under key and panics if there is none.
func (m *Map[K, V]) MustGet(key K) V {
	v, ok := m.items[key]
	if !ok {
		panic(fmt.Errorf("cstore: map %s: key %v not found", m.key.Name(), key))
	}
	return v
}

func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.items[key]
	return ok
}

// All iterates over entries in no particular order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return maps.All(m.items)
}

func (m *Map[K, V]) Keys() iter.Seq[K] {
	return maps.Keys(m.items)
}

func (m *Map[K, V]) Values() iter.Seq[V] {
	return maps.Values(m.items)
}

func (m *Map[K, V]) Insert(key K, value V) {
	if m.items == nil {
		m.items = make(map[K]V)
	}
	m.items[key] = value
	m.state = Dirty
}

// Remove deletes key from the map and reports whether it was present.
// Removing a missing key changes nothing.
func (m *Map[K, V]) Remove(key K) bool {
	if _, ok := m.items[key]; !ok {
		return false
	}
	delete(m.items, key)
	m.state = Dirty
	return true
}

// Update calls f with a pointer to the value under key and stores the result.
// It returns false, without calling f, if key is missing.
func (m *Map[K, V]) Update(key K, f func(v *V)) bool {
	v, ok := m.items[key]
	if !ok {
		return false
	}
	f(&v)
	m.items[key] = v
	m.state = Dirty
	return true
}

// Upsert is like Update, but also calls f for a missing key, passing a zero
// value and found == false.
func (m *Map[K, V]) Upsert(key K, f func(v *V, found bool)) {
	v, ok := m.items[key]
	f(&v, ok)
	if m.items == nil {
		m.items = make(map[K]V)
	}
	m.items[key] = v
	m.state = Dirty
}

// Clear removes all entries.
func (m *Map[K, V]) Clear() {
	clear(m.items)
	m.state = Dirty
}

// MarkDirty records a change made through a pointer-typed value, e.g. to a
// nested map obtained via Get. Flush does not depend on it.
func (m *Map[K, V]) MarkDirty() {
	m.state = Dirty
}

// Clone returns a detached copy with the same key, store and entries. Values
// are copied shallowly.
func (m *Map[K, V]) Clone() *Map[K, V] {
	c := *m
	c.items = maps.Clone(m.items)
	if c.items == nil {
		c.items = make(map[K]V)
	}
	return &c
}

// Flush encodes every entry and writes the record under Key in a single PutKV
// call.
func (m *Map[K, V]) Flush() error {
	if m.store == nil {
		return keyErrf(m.key, "flush", ErrNoStore, "")
	}
	buf := acquireRecordBytes()
	defer releaseRecordBytes(buf)
	*buf = m.Encode(*buf)
	err := m.store.PutKV(m.key, *buf)
	if err != nil {
		return err
	}
	m.state = Loaded
	if m.store.verbose {
		m.store.logger.LogAttrs(context.Background(), slog.LevelDebug, "cstore: FLUSH", keyAttr(m.key), slog.Int("entries", len(m.items)), slog.Int("size", len(*buf)))
	}
	return nil
}

func (m *Map[K, V]) String() string {
	return fmt.Sprintf("Map(%s, %d entries, %s)", m.key.Name(), len(m.items), m.state)
}
