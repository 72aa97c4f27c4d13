package cstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// SentinelSize is the length of the value written in place of a deletion.
const SentinelSize = KeySize

// Sentinel is the all-zero value that clearing a key leaves behind. The
// underlying store has no delete primitive.
var Sentinel = make([]byte, SentinelSize)

// IsSentinel reports whether value is the record left behind by Clear.
func IsSentinel(value []byte) bool {
	if len(value) != SentinelSize {
		return false
	}
	for _, b := range value {
		if b != 0 {
			return false
		}
	}
	return true
}

// Host is the external key-value collaborator. It has no delete operation.
//
// GetStorage returns nil and no error for a key that was never written. Hosts
// must not retain value after SetStorage returns, and callers must not modify
// slices returned by GetStorage.
type Host interface {
	GetStorage(key StorageKey) ([]byte, error)
	SetStorage(key StorageKey, value []byte) error
}

type Options struct {
	Logger  *slog.Logger
	Verbose bool
}

// Store adapts a Host to the two operations the rest of the package relies
// on, GetKV and PutKV.
type Store struct {
	host    Host
	logger  *slog.Logger
	verbose bool

	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
}

func NewStore(host Host, o Options) *Store {
	if host == nil {
		panic("nil host")
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Store{
		host:    host,
		logger:  o.Logger,
		verbose: o.Verbose,
	}
}

func (st *Store) Host() Host {
	return st.host
}

func (st *Store) Logger() *slog.Logger {
	return st.logger
}

// GetKV returns the bytes stored under key, or nil if the key was never
// written. A cleared key is returned as is, i.e. as Sentinel; use IsSentinel
// to tell it apart.
func (st *Store) GetKV(key StorageKey) ([]byte, error) {
	st.ReadCount.Add(1)
	value, err := st.host.GetStorage(key)
	if err != nil {
		return nil, keyErrf(key, "get", err, "")
	}
	if st.verbose {
		st.logger.LogAttrs(context.Background(), slog.LevelDebug, "cstore: GET", keyAttr(key), hexAttr("value", value))
	}
	return value, nil
}

// PutKV stores value under key, replacing whatever was there. A nil value
// writes Sentinel.
func (st *Store) PutKV(key StorageKey, value []byte) error {
	op := "put"
	if value == nil {
		op, value = "clear", Sentinel
	}
	st.WriteCount.Add(1)
	err := st.host.SetStorage(key, value)
	if err != nil {
		return keyErrf(key, op, err, "")
	}
	if st.verbose {
		st.logger.LogAttrs(context.Background(), slog.LevelDebug, "cstore: "+op, keyAttr(key), slog.Int("size", len(value)))
	}
	return nil
}

// Clear overwrites the record under key with Sentinel.
func (st *Store) Clear(key StorageKey) error {
	return st.PutKV(key, nil)
}

// Put stores a single encoded value under key. An empty encoding is stored
// as an empty record, never as a clear.
func Put[V any](st *Store, key StorageKey, c Codec[V], v V) error {
	data := c.Append(nil, v)
	if data == nil {
		data = []byte{}
	}
	return st.PutKV(key, data)
}

// Get loads a single value stored by Put. Missing and cleared keys both
// report ok == false.
func Get[V any](st *Store, key StorageKey, c Codec[V]) (v V, ok bool, err error) {
	raw, err := st.GetKV(key)
	if err != nil || raw == nil || IsSentinel(raw) {
		return v, false, err
	}
	v, err = Decode(c, raw)
	if err != nil {
		st.logger.LogAttrs(context.Background(), slog.LevelWarn, "cstore: invalid value", keyAttr(key), slog.Any("err", err))
		return v, false, keyErrf(key, "get", err, "")
	}
	return v, true, nil
}

// Remove clears key. The store keeps a Sentinel record, which Get and
// LoadMap report as absent.
func Remove(st *Store, key StorageKey) error {
	return st.Clear(key)
}

func (st *Store) String() string {
	return fmt.Sprintf("cstore.Store(%T)", st.host)
}
