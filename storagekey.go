package cstore

import (
	"encoding/hex"
	"fmt"
)

// KeySize is the size of every key in the underlying store.
const KeySize = 32

// StorageKey identifies a single record in the underlying store.
type StorageKey [KeySize]byte

// DeriveKey maps an arbitrary byte string to a StorageKey. Inputs of KeySize
// bytes or more are truncated to their first KeySize bytes; shorter inputs are
// left-aligned and zero-padded.
//
// Two inputs that agree on their first 32 bytes (after padding) derive the same
// key, and so do "a" and "a\x00". Nothing detects such collisions; callers
// pick names that are short and distinct enough. The empty input derives
// ZeroKey.
func DeriveKey(input []byte) StorageKey {
	var k StorageKey
	copy(k[:], input)
	return k
}

// Key derives a StorageKey from a human-readable name.
func Key(name string) StorageKey {
	var k StorageKey
	copy(k[:], name)
	return k
}

// ZeroKey returns the all-zero key.
func ZeroKey() StorageKey {
	return StorageKey{}
}

func ParseKey(s string) (StorageKey, error) {
	var k StorageKey
	if hex.DecodedLen(len(s)) != KeySize {
		return k, fmt.Errorf("invalid storage key %q: got %d hex digits, wanted %d", s, len(s), 2*KeySize)
	}
	_, err := hex.Decode(k[:], []byte(s))
	if err != nil {
		return k, fmt.Errorf("invalid storage key %q: %w", s, err)
	}
	return k, nil
}

func (k StorageKey) IsZero() bool {
	return k == StorageKey{}
}

func (k StorageKey) Bytes() []byte {
	return k[:]
}

func (k StorageKey) String() string {
	return hex.EncodeToString(k[:])
}

// Name returns the printable prefix of the key when it was derived from a
// short name, or its hex form otherwise. Only meant for logs.
func (k StorageKey) Name() string {
	n := 0
	for n < KeySize && k[n] != 0 {
		if k[n] < 0x20 || k[n] > 0x7E {
			return k.String()
		}
		n++
	}
	for _, b := range k[n:] {
		if b != 0 {
			return k.String()
		}
	}
	if n == 0 {
		return "<zero>"
	}
	return string(k[:n])
}
