package cstore

import "encoding/binary"

// Fixed-width integers are big-endian. Strings and byte slices carry a uvarint
// length prefix.
var (
	Uint8   Codec[uint8]      = uint8Codec{}
	Uint16  Codec[uint16]     = uint16Codec{}
	Uint32  Codec[uint32]     = uint32Codec{}
	Uint64  Codec[uint64]     = uint64Codec{}
	Int32   Codec[int32]      = int32Codec{}
	Int64   Codec[int64]      = int64Codec{}
	Bool    Codec[bool]       = boolCodec{}
	String  Codec[string]     = stringCodec{}
	Bytes   Codec[[]byte]     = bytesCodec{}
	Fixed32 Codec[[32]byte]   = fixed32Codec{}
	KeyOf   Codec[StorageKey] = keyCodec{}
)

type uint8Codec struct{}

func (uint8Codec) Append(buf []byte, v uint8) []byte { return append(buf, v) }
func (uint8Codec) Decode(d *Decoder) (uint8, error)  { return d.Byte() }

type uint16Codec struct{}

func (uint16Codec) Append(buf []byte, v uint16) []byte { return binary.BigEndian.AppendUint16(buf, v) }
func (uint16Codec) Decode(d *Decoder) (uint16, error)  { return d.Uint16() }

type uint32Codec struct{}

func (uint32Codec) Append(buf []byte, v uint32) []byte { return binary.BigEndian.AppendUint32(buf, v) }
func (uint32Codec) Decode(d *Decoder) (uint32, error)  { return d.Uint32() }

type uint64Codec struct{}

func (uint64Codec) Append(buf []byte, v uint64) []byte { return binary.BigEndian.AppendUint64(buf, v) }
func (uint64Codec) Decode(d *Decoder) (uint64, error)  { return d.Uint64() }

type int32Codec struct{}

func (int32Codec) Append(buf []byte, v int32) []byte {
	return binary.BigEndian.AppendUint32(buf, uint32(v))
}

func (int32Codec) Decode(d *Decoder) (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

type int64Codec struct{}

func (int64Codec) Append(buf []byte, v int64) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(v))
}

func (int64Codec) Decode(d *Decoder) (int64, error) {
	v, err := d.Uint64()
	return int64(v), err
}

type boolCodec struct{}

func (boolCodec) Append(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func (boolCodec) Decode(d *Decoder) (bool, error) {
	off := d.Off()
	b, err := d.Byte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, decodeErrf(d.Orig, off, nil, "invalid bool %d", b)
	}
}

type stringCodec struct{}

func (stringCodec) Append(buf []byte, v string) []byte {
	buf = appendUvarint(buf, uint64(len(v)))
	return append(buf, v...)
}

func (stringCodec) Decode(d *Decoder) (string, error) {
	b, err := d.VarBytes()
	return string(b), err
}

type bytesCodec struct{}

func (bytesCodec) Append(buf []byte, v []byte) []byte { return appendVarbytes(buf, v) }

// Decode copies, so decoded values never alias the store's buffer.
func (bytesCodec) Decode(d *Decoder) ([]byte, error) {
	b, err := d.VarBytes()
	if err != nil {
		return nil, err
	}
	return append([]byte{}, b...), nil
}

type fixed32Codec struct{}

func (fixed32Codec) Append(buf []byte, v [32]byte) []byte { return append(buf, v[:]...) }

func (fixed32Codec) Decode(d *Decoder) ([32]byte, error) {
	var v [32]byte
	b, err := d.Raw(32)
	if err != nil {
		return v, err
	}
	copy(v[:], b)
	return v, nil
}

type keyCodec struct{}

func (keyCodec) Append(buf []byte, v StorageKey) []byte { return append(buf, v[:]...) }

func (keyCodec) Decode(d *Decoder) (StorageKey, error) {
	var k StorageKey
	b, err := d.Raw(KeySize)
	if err != nil {
		return k, err
	}
	copy(k[:], b)
	return k, nil
}
