// Package cstoretest provides helpers for testing code built on cstore.
package cstoretest

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/andreyvit/cstore"
)

// Logger returns a logger that writes into the test log.
func Logger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(&logWriter{t}, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
	}))
}

// NewStore returns a verbose Store over a fresh MemHost.
func NewStore(t testing.TB) (*cstore.Store, *cstore.MemHost) {
	host := cstore.NewMemHost()
	st := cstore.NewStore(host, cstore.Options{
		Logger:  Logger(t),
		Verbose: true,
	})
	t.Cleanup(func() {
		host.Close()
	})
	return st, host
}

type logWriter struct{ t testing.TB }

func (c *logWriter) Write(buf []byte) (int, error) {
	msg := string(buf)
	origLen := len(msg)
	msg = strings.TrimSuffix(msg, "\n")
	c.t.Log(msg)
	return origLen, nil
}

func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func Ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func DeepEq[T any](t testing.TB, a, e T) bool {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
		return false
	}
	return true
}

// Expand builds a byte string from whitespace-separated tokens: hex bytes
// ("0a0b"), "#N" for a uvarint, "'text" for raw text. A "*N" suffix repeats a
// token and anything after "/" is a comment.
func Expand(lines ...string) []byte {
	var b []byte
	for _, line := range lines {
		for _, tok := range strings.Fields(line) {
			tok, _, _ = strings.Cut(tok, "/")
			if tok == "" {
				continue
			}
			tok, repeat, hasRepeat := strings.Cut(tok, "*")
			n := 1
			if hasRepeat {
				n = must(strconv.Atoi(repeat))
			}
			chunk := expandToken(tok)
			for range n {
				b = append(b, chunk...)
			}
		}
	}
	return b
}

func expandToken(tok string) []byte {
	if num, ok := strings.CutPrefix(tok, "#"); ok {
		return binary.AppendUvarint(nil, must(strconv.ParseUint(num, 10, 64)))
	}
	if text, ok := strings.CutPrefix(tok, "'"); ok {
		return []byte(text)
	}
	return must(hex.DecodeString(tok))
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Errorf("cstoretest: %w", err))
	}
	return v
}

// BytesEq reports a hex dump of both sides and the first differing offset.
func BytesEq(t testing.TB, a, e []byte) bool {
	if bytes.Equal(a, e) {
		return true
	}
	off := min(len(a), len(e))
	for i := range off {
		if a[i] != e[i] {
			off = i
			break
		}
	}
	t.Helper()
	t.Errorf("** got:\n%swanted:\n%sfirst difference at 0x%x (%d)", hex.Dump(a), hex.Dump(e), off, off)
	return false
}
