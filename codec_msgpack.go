package cstore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

type encodingMethod int

const (
	MsgPackEncoding encodingMethod = iota
	JSONEncoding
)

func (enc encodingMethod) String() string {
	switch enc {
	case MsgPackEncoding:
		return "msgpack"
	case JSONEncoding:
		return "JSON"
	default:
		return fmt.Sprintf("encoding(%d)", int(enc))
	}
}

// MsgPack encodes arbitrary structs with msgpack, length-prefixed so that the
// value can sit inside a record. Map keys are sorted, so equal values always
// produce equal bytes.
func MsgPack[T any]() Codec[T] {
	return structCodec[T]{MsgPackEncoding}
}

// JSON is like MsgPack, but stores values as JSON text.
func JSON[T any]() Codec[T] {
	return structCodec[T]{JSONEncoding}
}

type structCodec[T any] struct {
	enc encodingMethod
}

func (c structCodec[T]) Append(buf []byte, v T) []byte {
	raw := c.enc.encodeValue(nil, &v)
	return appendVarbytes(buf, raw)
}

func (c structCodec[T]) Decode(d *Decoder) (T, error) {
	var v T
	off := d.Off()
	raw, err := d.VarBytes()
	if err != nil {
		return v, err
	}
	err = c.enc.decodeValue(raw, &v)
	if err != nil {
		return v, decodeErrf(d.Orig, off, err, "failed to decode %s into %T", c.enc, v)
	}
	return v, nil
}

func (enc encodingMethod) encodeValue(buf []byte, ptr any) []byte {
	switch enc {
	case MsgPackEncoding:
		bb := bytesBuilder{buf}
		e := msgpack.GetEncoder()
		e.ResetDict(&bb, nil)
		e.SetSortMapKeys(true)
		err := e.Encode(ptr)
		msgpack.PutEncoder(e)
		if err != nil {
			panic(fmt.Errorf("failed to encode %T using MsgPack: %w", ptr, err))
		}
		return bb.Buf
	case JSONEncoding:
		raw, err := json.Marshal(ptr)
		if err != nil {
			panic(fmt.Errorf("failed to encode %T to JSON: %w", ptr, err))
		}
		return appendRaw(buf, raw)
	default:
		panic("unsupported encoding")
	}
}

func (enc encodingMethod) decodeValue(buf []byte, ptr any) error {
	switch enc {
	case MsgPackEncoding:
		var r bytes.Reader
		r.Reset(buf)
		dec := msgpack.GetDecoder()
		dec.ResetDict(&r, nil)
		err := dec.Decode(ptr)
		msgpack.PutDecoder(dec)
		if err != nil {
			return err
		}
		if r.Len() != 0 {
			return fmt.Errorf("%d trailing bytes after msgpack value", r.Len())
		}
		return nil
	case JSONEncoding:
		return json.Unmarshal(buf, ptr)
	default:
		panic("unsupported encoding")
	}
}
