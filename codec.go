package cstore

// Codec defines the binary encoding of one Go type. Encodings must be
// self-delimiting: Decode consumes exactly the bytes that Append produced,
// which is what lets codecs nest inside records, slices and other maps.
type Codec[T any] interface {
	Append(buf []byte, v T) []byte
	Decode(d *Decoder) (T, error)
}

// Encode returns the encoding of v on its own.
func Encode[T any](c Codec[T], v T) []byte {
	return c.Append(nil, v)
}

// Decode decodes a single value that must span the entire buffer.
func Decode[T any](c Codec[T], data []byte) (T, error) {
	d := NewDecoder(data)
	v, err := c.Decode(d)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := d.Finish(); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// CodecFuncs adapts a pair of functions into a Codec, which is the usual way
// to encode a struct field by field.
type CodecFuncs[T any] struct {
	AppendFunc func(buf []byte, v T) []byte
	DecodeFunc func(d *Decoder) (T, error)
}

func (c CodecFuncs[T]) Append(buf []byte, v T) []byte { return c.AppendFunc(buf, v) }

func (c CodecFuncs[T]) Decode(d *Decoder) (T, error) { return c.DecodeFunc(d) }

type sliceCodec[T any] struct {
	elem Codec[T]
}

// Slice encodes a uvarint element count followed by each element.
func Slice[T any](elem Codec[T]) Codec[[]T] {
	return sliceCodec[T]{elem}
}

func (c sliceCodec[T]) Append(buf []byte, v []T) []byte {
	buf = appendUvarint(buf, uint64(len(v)))
	for _, el := range v {
		buf = c.elem.Append(buf, el)
	}
	return buf
}

func (c sliceCodec[T]) Decode(d *Decoder) ([]T, error) {
	n, err := d.Uvarinti()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, min(n, d.Remaining()))
	for i := 0; i < n; i++ {
		el, err := c.elem.Decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

type optionalCodec[T any] struct {
	elem Codec[T]
}

// Optional encodes a nil pointer as a single 0 byte, and anything else as 1
// followed by the value.
func Optional[T any](elem Codec[T]) Codec[*T] {
	return optionalCodec[T]{elem}
}

func (c optionalCodec[T]) Append(buf []byte, v *T) []byte {
	if v == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return c.elem.Append(buf, *v)
}

func (c optionalCodec[T]) Decode(d *Decoder) (*T, error) {
	off := d.Off()
	flag, err := d.Byte()
	if err != nil {
		return nil, err
	}
	switch flag {
	case 0:
		return nil, nil
	case 1:
		v, err := c.elem.Decode(d)
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, decodeErrf(d.Orig, off, nil, "invalid optional flag %d", flag)
	}
}
