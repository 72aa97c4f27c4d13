// Package mmap maps files into memory read-only and syncs file data.
package mmap

import (
	"fmt"
	"os"
)

type Options uint

const (
	// SequentialAccess is a hint requesting aggressive read-ahead.
	// Incompatible with RandomAccess. Maps to MADV_SEQUENTIAL on Unix.
	SequentialAccess Options = 1 << iota

	// RandomAccess is a hint that read ahead is less useful than normally.
	// Incompatible with SequentialAccess. Maps to MADV_RANDOM on Unix.
	RandomAccess
)

func (o Options) Has(v Options) bool {
	return o&v != 0
}

// Map maps the first size bytes of f into memory, read-only. The returned
// slice must not be written to, and must be released with Unmap.
func Map(f *os.File, size int, opt Options) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmap: invalid size %d", size)
	}
	if uint64(size) > MaxSize {
		return nil, fmt.Errorf("mmap: size %d exceeds %d", size, uint64(MaxSize))
	}
	return mmap(f, size, opt)
}

// Unmap releases a slice returned by Map.
func Unmap(b []byte) error {
	return munmap(b)
}

// ReadFile returns the contents of f, mapped into memory when possible. The
// release func must be called once the data is no longer needed.
func ReadFile(f *os.File) (data []byte, release func() error, err error) {
	st, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := st.Size()
	if size == 0 {
		return nil, func() error { return nil }, nil
	}
	if uint64(size) > MaxSize {
		return nil, nil, fmt.Errorf("mmap: %s is too large to map (%d bytes)", f.Name(), size)
	}
	b, err := Map(f, int(size), SequentialAccess)
	if err != nil {
		return nil, nil, err
	}
	return b, func() error { return Unmap(b) }, nil
}
