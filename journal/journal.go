// Package journal implements a cstore.Host on top of a single append-only file.
//
// Every SetStorage call appends one record; opening the file replays all
// records into an in-memory index, so reads never touch the disk. A crash in
// the middle of an append leaves a torn record at the end of the file, which
// is detected by its checksum and trimmed on the next open.
//
// File format:
//
//   - file = header record*
//   - header = magic:64 version:8 reserved:56
//   - record = key:256 size:uvarint value:size*8 checksum:64
//
// The checksum is the xxhash64 of key, size and value. All fixed-width
// integers are big-endian.
package journal

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/andreyvit/cstore"
	"github.com/andreyvit/cstore/mmap"
	"github.com/cespare/xxhash/v2"
)

var (
	ErrIncompatible       = fmt.Errorf("incompatible journal")
	ErrUnsupportedVersion = fmt.Errorf("unsupported journal version")
)

const (
	magic          = 0x434353544a524e4c // "CCSTJRNL" as big-endian uint64
	version0 uint8 = 0

	headerSize   = 16
	checksumSize = 8
)

type Options struct {
	Context   context.Context
	DebugName string
	Logger    *slog.Logger
	Verbose   bool

	// Sync calls fdatasync after every append.
	Sync bool
}

// Host is a cstore.Host backed by a journal file.
type Host struct {
	context   context.Context
	path      string
	debugName string
	logger    *slog.Logger
	verbose   bool
	sync      bool

	mu      sync.Mutex
	f       *os.File
	size    int64
	records int
	index   map[cstore.StorageKey][]byte
	closed  bool
}

var _ cstore.Host = (*Host)(nil)

// Open opens or creates the journal file at path and replays it.
func Open(path string, o Options) (*Host, error) {
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.DebugName == "" {
		o.DebugName = "journal"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	h := &Host{
		context:   o.Context,
		path:      path,
		debugName: o.DebugName,
		logger:    o.Logger,
		verbose:   o.Verbose,
		sync:      o.Sync,
		index:     make(map[cstore.StorageKey][]byte),
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	err = h.load(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	h.f = f
	return h, nil
}

func (h *Host) String() string {
	return h.debugName
}

// load replays the file through a read-only mapping. Values are copied out of
// the mapping, which is released before the file is trimmed or rewritten.
func (h *Host) load(f *os.File) error {
	data, release, err := mmap.ReadFile(f)
	if err != nil {
		return fmt.Errorf("%s: %w", h.debugName, err)
	}
	size := len(data)
	off, err := h.replay(data)
	if rerr := release(); err == nil {
		err = rerr
	}
	if err != nil {
		return err
	}

	if off < 0 {
		if size != 0 {
			h.logger.LogAttrs(h.context, slog.LevelWarn, "journal: rewriting torn header", slog.String("jrnl", h.debugName), slog.Int("size", size))
		}
		return h.reset(f)
	}
	if off < size {
		h.logger.LogAttrs(h.context, slog.LevelWarn, "journal: trimming corrupted tail", slog.String("jrnl", h.debugName), slog.Int("off", off), slog.Int("size", size))
		if err := f.Truncate(int64(off)); err != nil {
			return fmt.Errorf("journal: failed to trim corrupted tail: %w", err)
		}
	}
	h.size = int64(off)
	if _, err := f.Seek(h.size, io.SeekStart); err != nil {
		return err
	}
	if h.verbose {
		h.logger.LogAttrs(h.context, slog.LevelDebug, "journal: loaded", slog.String("jrnl", h.debugName), slog.Int("records", h.records), slog.Int("keys", len(h.index)))
	}
	return nil
}

// replay indexes every intact record and returns the offset just past the last
// one, or -1 if the file holds nothing but a prefix of the header.
func (h *Host) replay(data []byte) (int, error) {
	if len(data) < headerSize {
		if !bytes.HasPrefix(appendHeader(nil), data) {
			return 0, fmt.Errorf("%s: %w", h.debugName, ErrIncompatible)
		}
		return -1, nil
	}
	if binary.BigEndian.Uint64(data) != magic {
		return 0, fmt.Errorf("%s: %w", h.debugName, ErrIncompatible)
	}
	if v := data[8]; v != version0 {
		return 0, fmt.Errorf("%s: %w %d", h.debugName, ErrUnsupportedVersion, v)
	}

	off := headerSize
	for off < len(data) {
		key, value, n, ok := decodeRecord(data[off:])
		if !ok {
			break
		}
		h.index[key] = value
		h.records++
		off += n
	}
	return off, nil
}

func (h *Host) reset(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt(appendHeader(nil), 0); err != nil {
		return err
	}
	h.size = headerSize
	_, err := f.Seek(h.size, io.SeekStart)
	return err
}

func appendHeader(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint64(buf, magic)
	buf = append(buf, version0)
	return append(buf, make([]byte, headerSize-9)...)
}

func appendRecord(buf []byte, key cstore.StorageKey, value []byte) []byte {
	start := len(buf)
	buf = append(buf, key[:]...)
	buf = binary.AppendUvarint(buf, uint64(len(value)))
	buf = append(buf, value...)
	return binary.BigEndian.AppendUint64(buf, xxhash.Sum64(buf[start:]))
}

// decodeRecord returns ok == false for short or corrupted records.
func decodeRecord(data []byte) (key cstore.StorageKey, value []byte, n int, ok bool) {
	if len(data) < cstore.KeySize+1+checksumSize {
		return key, nil, 0, false
	}
	copy(key[:], data)
	size, vn := binary.Uvarint(data[cstore.KeySize:])
	if vn <= 0 {
		return key, nil, 0, false
	}
	start := cstore.KeySize + vn
	rem := len(data) - start - checksumSize
	if rem < 0 || size > uint64(rem) {
		return key, nil, 0, false
	}
	end := start + int(size)
	if xxhash.Sum64(data[:end]) != binary.BigEndian.Uint64(data[end:]) {
		return key, nil, 0, false
	}
	return key, append([]byte{}, data[start:end]...), end + checksumSize, true
}

func (h *Host) GetStorage(key cstore.StorageKey) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, cstore.ErrClosed
	}
	return h.index[key], nil
}

func (h *Host) SetStorage(key cstore.StorageKey, value []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return cstore.ErrClosed
	}
	if value == nil {
		value = []byte{}
	}

	rec := appendRecord(nil, key, value)
	n, err := h.f.Write(rec)
	if err != nil {
		return h.fail(err, n)
	}
	if h.sync {
		if err := mmap.Fdatasync(h.f); err != nil {
			return h.fail(err, n)
		}
	}
	h.size += int64(len(rec))
	h.records++
	h.index[key] = append([]byte{}, value...)
	return nil
}

// fail trims a partially written record so that later appends stay readable.
func (h *Host) fail(err error, written int) error {
	h.logger.LogAttrs(h.context, slog.LevelError, "journal: append failed", slog.String("jrnl", h.debugName), slog.Any("err", err))
	if written > 0 {
		if terr := h.f.Truncate(h.size); terr == nil {
			_, _ = h.f.Seek(h.size, io.SeekStart)
		}
	}
	return fmt.Errorf("%s: %w", h.debugName, err)
}

// Stats reports the number of appended records and of distinct keys. Records
// exceeding keys are garbage that Compact would drop.
func (h *Host) Stats() (records, keys int, size int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.records, len(h.index), h.size
}

// Compact rewrites the file so that it holds one record per key.
func (h *Host) Compact() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return cstore.ErrClosed
	}

	buf := appendHeader(nil)
	for k, v := range h.index {
		buf = appendRecord(buf, k, v)
	}

	tmp := h.path + ".tmp"
	err := writeFileSync(tmp, buf)
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("journal: compacting: %w", err)
	}
	if err := os.Rename(tmp, h.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("journal: compacting: %w", err)
	}

	f, err := os.OpenFile(h.path, os.O_RDWR, 0o666)
	if err != nil {
		h.closed = true
		h.f.Close()
		return fmt.Errorf("journal: reopening after compaction: %w", err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return err
	}
	h.f.Close()
	h.f = f
	h.size = int64(len(buf))
	if h.verbose {
		h.logger.LogAttrs(h.context, slog.LevelDebug, "journal: compacted", slog.String("jrnl", h.debugName), slog.Int("from_records", h.records), slog.Int("to_records", len(h.index)))
	}
	h.records = len(h.index)
	return nil
}

func writeFileSync(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if err == nil {
		err = mmap.Fdatasync(f)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.index = nil
	return h.f.Close()
}
