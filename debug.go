package cstore

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

type DumpFlags uint64

const (
	DumpHeader = DumpFlags(1 << iota)
	DumpEntries
	DumpHex

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)

	indentStep = "  "
)

var dumpSep = strings.Repeat("=", 80)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the map for debugging. Entries are listed in the byte order of
// their encoded keys, so equal maps always dump identically.
func (m *Map[K, V]) Dump(f DumpFlags) string {
	type entry struct {
		rawKey []byte
		k      K
		v      V
	}
	entries := make([]entry, 0, len(m.items))
	for k, v := range m.items {
		entries = append(entries, entry{m.kc.Append(nil, k), k, v})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		return bytes.Compare(a.rawKey, b.rawKey)
	})

	var buf strings.Builder
	if f.Contains(DumpHeader) {
		fmt.Fprintln(&buf, dumpSep)
		fmt.Fprintf(&buf, "%s (%d entries, %s)\n", m.key.Name(), len(entries), m.state)
	}
	if f.Contains(DumpEntries) {
		for _, e := range entries {
			fmt.Fprintf(&buf, "%s%v => %+v\n", indentStep, e.k, e.v)
			if f.Contains(DumpHex) {
				fmt.Fprintf(&buf, "%s%s%s => %s\n", indentStep, indentStep, hexstr(e.rawKey), hexstr(m.vc.Append(nil, e.v)))
			}
		}
	}
	return buf.String()
}
