package journal_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/andreyvit/cstore"
	"github.com/andreyvit/cstore/cstoretest"
	"github.com/andreyvit/cstore/journal"
)

var (
	bytesEq = cstoretest.BytesEq
	must    = cstoretest.Must[*journal.Host]
	ensure  = cstoretest.Ensure
)

const header = "'CCSTJRNL 00/ver 00*7/reserved"

func open(t *testing.T, path string) *journal.Host {
	h := must(journal.Open(path, journal.Options{
		Logger:  cstoretest.Logger(t),
		Verbose: true,
	}))
	t.Cleanup(func() { h.Close() })
	return h
}

func TestJournal_trivial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.wal")
	h := open(t, path)
	ensure(h.SetStorage(cstore.Key("k"), []byte("hello")))
	ensure(h.Close())

	data := read(t, path)
	expected := cstoretest.Expand(header, "'k 00*31/key #5 'hello")
	if len(data) != len(expected)+8 {
		t.Fatalf("file size = %d, wanted %d", len(data), len(expected)+8)
	}
	bytesEq(t, data[:len(expected)], expected)
}

func TestJournal_ReplaysLastWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.wal")
	h := open(t, path)
	ensure(h.SetStorage(cstore.Key("a"), []byte{1}))
	ensure(h.SetStorage(cstore.Key("b"), []byte{2}))
	ensure(h.SetStorage(cstore.Key("a"), []byte{3}))
	ensure(h.SetStorage(cstore.Key("e"), nil))
	ensure(h.Close())

	h = open(t, path)
	bytesEq(t, cstoretest.Must(h.GetStorage(cstore.Key("a"))), []byte{3})
	bytesEq(t, cstoretest.Must(h.GetStorage(cstore.Key("b"))), []byte{2})
	if v := cstoretest.Must(h.GetStorage(cstore.Key("e"))); v == nil || len(v) != 0 {
		t.Fatalf("empty value = %#v, wanted empty non-nil", v)
	}
	if v := cstoretest.Must(h.GetStorage(cstore.Key("zzz"))); v != nil {
		t.Fatalf("missing key = %x, wanted nil", v)
	}
	records, keys, _ := h.Stats()
	if records != 4 || keys != 3 {
		t.Fatalf("Stats = (%d, %d), wanted (4, 3)", records, keys)
	}
}

func TestJournal_TrimsCorruptedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.wal")
	h := open(t, path)
	ensure(h.SetStorage(cstore.Key("a"), []byte("good")))
	ensure(h.SetStorage(cstore.Key("b"), []byte("torn")))
	_, _, goodSize := h.Stats()
	ensure(h.Close())

	data := read(t, path)
	// simulate a crash in the middle of the second append
	ensure(os.WriteFile(path, data[:len(data)-3], 0o644))

	h = open(t, path)
	bytesEq(t, cstoretest.Must(h.GetStorage(cstore.Key("a"))), []byte("good"))
	if v := cstoretest.Must(h.GetStorage(cstore.Key("b"))); v != nil {
		t.Fatalf("torn record = %q, wanted nil", v)
	}
	records, _, size := h.Stats()
	if records != 1 || size >= goodSize {
		t.Fatalf("Stats = (%d, size %d), wanted 1 record below %d bytes", records, size, goodSize)
	}

	// appends after trimming must stay readable
	ensure(h.SetStorage(cstore.Key("c"), []byte("after")))
	ensure(h.Close())
	h = open(t, path)
	bytesEq(t, cstoretest.Must(h.GetStorage(cstore.Key("c"))), []byte("after"))
}

func TestJournal_FlippedByteTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.wal")
	h := open(t, path)
	ensure(h.SetStorage(cstore.Key("a"), []byte("value")))
	ensure(h.Close())

	data := read(t, path)
	data[len(data)-10] ^= 0xFF
	ensure(os.WriteFile(path, data, 0o644))

	h = open(t, path)
	if v := cstoretest.Must(h.GetStorage(cstore.Key("a"))); v != nil {
		t.Fatalf("corrupted record = %q, wanted nil", v)
	}
}

func TestJournal_Incompatible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.wal")
	ensure(os.WriteFile(path, cstoretest.Expand("'NOTAJRNL 00*8"), 0o644))
	_, err := journal.Open(path, journal.Options{Logger: cstoretest.Logger(t)})
	if !errors.Is(err, journal.ErrIncompatible) {
		t.Fatalf("Open err = %v, wanted ErrIncompatible", err)
	}

	ensure(os.WriteFile(path, cstoretest.Expand("'CCSTJRNL 07 00*7"), 0o644))
	_, err = journal.Open(path, journal.Options{Logger: cstoretest.Logger(t)})
	if !errors.Is(err, journal.ErrUnsupportedVersion) {
		t.Fatalf("Open err = %v, wanted ErrUnsupportedVersion", err)
	}
}

func TestJournal_TornHeaderIsRewritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.wal")
	ensure(os.WriteFile(path, cstoretest.Expand("'CCST"), 0o644))

	h := open(t, path)
	ensure(h.SetStorage(cstore.Key("k"), []byte("v")))
	ensure(h.Close())

	h = open(t, path)
	bytesEq(t, cstoretest.Must(h.GetStorage(cstore.Key("k"))), []byte("v"))
}

func TestJournal_ShortForeignFileIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	ensure(os.WriteFile(path, []byte("hello"), 0o644))

	_, err := journal.Open(path, journal.Options{Logger: cstoretest.Logger(t)})
	if !errors.Is(err, journal.ErrIncompatible) {
		t.Fatalf("Open err = %v, wanted ErrIncompatible", err)
	}
	bytesEq(t, read(t, path), []byte("hello"))
}

func TestJournal_Compact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.wal")
	h := open(t, path)
	for i := range 10 {
		ensure(h.SetStorage(cstore.Key("hot"), []byte{byte(i)}))
	}
	ensure(h.SetStorage(cstore.Key("cold"), []byte("x")))
	_, _, before := h.Stats()

	ensure(h.Compact())
	records, keys, after := h.Stats()
	if records != 2 || keys != 2 || after >= before {
		t.Fatalf("Stats after Compact = (%d, %d, %d), wanted (2, 2, <%d)", records, keys, after, before)
	}

	ensure(h.SetStorage(cstore.Key("new"), []byte("y")))
	ensure(h.Close())

	h = open(t, path)
	bytesEq(t, cstoretest.Must(h.GetStorage(cstore.Key("hot"))), []byte{9})
	bytesEq(t, cstoretest.Must(h.GetStorage(cstore.Key("cold"))), []byte("x"))
	bytesEq(t, cstoretest.Must(h.GetStorage(cstore.Key("new"))), []byte("y"))
}

func TestJournal_BacksPersistentMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.wal")
	h := open(t, path)
	st := cstore.NewStore(h, cstore.Options{Logger: cstoretest.Logger(t), Verbose: true})

	m := cstoretest.Must(cstore.LoadOrCreateMap(st, cstore.Key("my map"), cstore.Uint32, cstore.String))
	m.Insert(1, "one")
	ensure(m.Flush())
	ensure(h.Close())

	h = open(t, path)
	st = cstore.NewStore(h, cstore.Options{Logger: cstoretest.Logger(t)})
	m = cstoretest.Must(cstore.LoadMap(st, cstore.Key("my map"), cstore.Uint32, cstore.String))
	if v, _ := m.Get(1); v != "one" {
		t.Fatalf("Get(1) = %q, wanted one", v)
	}
}

func TestJournal_Closed(t *testing.T) {
	h := open(t, filepath.Join(t.TempDir(), "j.wal"))
	ensure(h.Close())
	if _, err := h.GetStorage(cstore.Key("a")); !errors.Is(err, cstore.ErrClosed) {
		t.Fatalf("GetStorage after Close = %v, wanted ErrClosed", err)
	}
	if err := h.SetStorage(cstore.Key("a"), nil); !errors.Is(err, cstore.ErrClosed) {
		t.Fatalf("SetStorage after Close = %v, wanted ErrClosed", err)
	}
}

func read(t *testing.T, path string) []byte {
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestJournal_SyncedAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.wal")
	h := must(journal.Open(path, journal.Options{
		Logger: cstoretest.Logger(t),
		Sync:   true,
	}))
	ensure(h.SetStorage(cstore.Key("a"), []byte("1")))
	ensure(h.SetStorage(cstore.Key("a"), []byte("2")))
	ensure(h.Close())

	h = open(t, path)
	bytesEq(t, cstoretest.Must(h.GetStorage(cstore.Key("a"))), []byte("2"))
	records, keys, _ := h.Stats()
	if records != 2 || keys != 1 {
		t.Fatalf("Stats() = (%d records, %d keys), wanted (2, 1)", records, keys)
	}
}
