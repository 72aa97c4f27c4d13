package cstore

import (
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestBytesBuilder_Basics(t *testing.T) {
	var bb bytesBuilder
	off := bb.Grow(3)
	copy(bb.Buf[off:], []byte{1, 2, 3})
	_, _ = bb.Write([]byte{9, 8})
	_ = bb.WriteByte(7)
	if !reflect.DeepEqual(bb.Buf, []byte{1, 2, 3, 9, 8, 7}) {
		t.Fatalf("bb.Buf = %x, wanted 010203090807", bb.Buf)
	}
}

func TestByteUtil_AppendHelpers(t *testing.T) {
	src := []byte{0xAA, 0xBB, 0xCC}
	buf := appendRaw(nil, src)
	if !reflect.DeepEqual(buf, src) {
		t.Fatalf("appendRaw = %x, wanted %x", buf, src)
	}

	got := appendVarbytes(nil, []byte("hi"))
	d := NewDecoder(got)
	v, err := d.VarBytes()
	if err != nil || string(v) != "hi" || d.Remaining() != 0 {
		t.Fatalf("VarBytes = (%q, %v), remaining=%d, wanted (\"hi\", nil), remaining=0", v, err, d.Remaining())
	}

	deepEqual(t, appendUvarint(nil, 300), []byte{0xAC, 0x02})
}

func TestBigEndianHelpers(t *testing.T) {
	deepEqual(t, Uint32Bytes(0x01020304), [4]byte{1, 2, 3, 4})
	deepEqual(t, Uint64Bytes(0x0102030405060708), [8]byte{1, 2, 3, 4, 5, 6, 7, 8})
}

func TestDecoder_FixedWidth(t *testing.T) {
	d := NewDecoder(x("ff 0102 01020304 0102030405060708"))
	deepEqual(t, must(d.Byte()), byte(0xFF))
	deepEqual(t, must(d.Uint16()), uint16(0x0102))
	deepEqual(t, must(d.Uint32()), uint32(0x01020304))
	deepEqual(t, must(d.Uint64()), uint64(0x0102030405060708))
	if err := d.Finish(); err != nil {
		t.Fatalf("Finish = %v, wanted nil", err)
	}
}

func TestDecoder_Errors(t *testing.T) {
	t.Run("invalid uvarint", func(t *testing.T) {
		d := NewDecoder([]byte{0x80}) // continuation bit with no terminator
		_, err := d.Uvarint()
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("Uvarint err = %T %v, wanted *DecodeError", err, err)
		}
		if de.Off != 0 {
			t.Fatalf("DecodeError.Off = %d, wanted 0", de.Off)
		}
	})

	t.Run("uvarint overflows int", func(t *testing.T) {
		var b [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(b[:], uint64(math.MaxInt)+1)
		d := NewDecoder(b[:n])
		_, err := d.Uvarinti()
		if err == nil {
			t.Fatalf("Uvarinti err = nil, wanted error")
		}
	})

	t.Run("Raw not enough data", func(t *testing.T) {
		d := NewDecoder([]byte{1, 2})
		_, err := d.Raw(3)
		if err == nil {
			t.Fatalf("Raw err = nil, wanted error")
		}
	})

	t.Run("trailing bytes", func(t *testing.T) {
		d := NewDecoder([]byte{1, 2})
		_, _ = d.Byte()
		err := d.Finish()
		var de *DecodeError
		if !errors.As(err, &de) || de.Off != 1 {
			t.Fatalf("Finish = %v, wanted *DecodeError at 1", err)
		}
	})
}
