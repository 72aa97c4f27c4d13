package cstore

// Encode appends the record encoding of the map to buf: a uvarint entry count
// followed by each key and value in map iteration order.
func (m *Map[K, V]) Encode(buf []byte) []byte {
	buf = appendUvarint(buf, uint64(len(m.items)))
	for k, v := range m.items {
		buf = m.kc.Append(buf, k)
		buf = m.vc.Append(buf, v)
	}
	return buf
}

// EncodeMap returns the record encoding of m.
func EncodeMap[K comparable, V any](m *Map[K, V]) []byte {
	return m.Encode(nil)
}

// DecodeMap decodes a record produced by EncodeMap. The record must span the
// entire buffer. The result is not attached to any store or key.
func DecodeMap[K comparable, V any](data []byte, kc Codec[K], vc Codec[V]) (*Map[K, V], error) {
	d := NewDecoder(data)
	m, err := decodeEntries(d, kc, vc)
	if err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeEntries[K comparable, V any](d *Decoder, kc Codec[K], vc Codec[V]) (*Map[K, V], error) {
	n, err := d.Uvarinti()
	if err != nil {
		return nil, err
	}
	m := &Map[K, V]{
		kc:    kc,
		vc:    vc,
		items: make(map[K]V, min(n, d.Remaining())),
	}
	for i := 0; i < n; i++ {
		k, err := kc.Decode(d)
		if err != nil {
			return nil, err
		}
		v, err := vc.Decode(d)
		if err != nil {
			return nil, err
		}
		m.items[k] = v
	}
	return m, nil
}

type mapCodec[K comparable, V any] struct {
	kc Codec[K]
	vc Codec[V]
}

// MapCodec encodes a Map as a value of another map, using the same record
// format. Decoded nested maps are detached: they have a zero key and no store.
// A nil map encodes as an empty one.
func MapCodec[K comparable, V any](kc Codec[K], vc Codec[V]) Codec[*Map[K, V]] {
	return mapCodec[K, V]{kc, vc}
}

func (c mapCodec[K, V]) Append(buf []byte, m *Map[K, V]) []byte {
	if m == nil {
		return appendUvarint(buf, 0)
	}
	buf = appendUvarint(buf, uint64(len(m.items)))
	for k, v := range m.items {
		buf = c.kc.Append(buf, k)
		buf = c.vc.Append(buf, v)
	}
	return buf
}

func (c mapCodec[K, V]) Decode(d *Decoder) (*Map[K, V], error) {
	return decodeEntries(d, c.kc, c.vc)
}

// NestedMap returns an empty detached map for use as a value of another map.
func NestedMap[K comparable, V any](kc Codec[K], vc Codec[V]) *Map[K, V] {
	return NewMap[K, V](nil, StorageKey{}, kc, vc)
}
