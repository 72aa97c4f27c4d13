package cstore

import (
	"strings"
	"testing"
)

func TestMap_Dump(t *testing.T) {
	m := NewMap[uint32, string](nil, Key("names"), Uint32, String)
	m.Insert(2, "two")
	m.Insert(1, "one")

	got := m.Dump(DumpEntries | DumpHex)
	want := strings.Join([]string{
		"  1 => one",
		"    00000001 => 036f6e65",
		"  2 => two",
		"    00000002 => 0374776f",
		"",
	}, "\n")
	deepEqual(t, got, want)

	got = m.Dump(DumpAll)
	if !strings.Contains(got, "names (2 entries, dirty)") {
		t.Fatalf("Dump(DumpAll) = %q, wanted header", got)
	}
}
