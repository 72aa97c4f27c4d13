/*
Package cstore implements typed, persistent maps on top of a minimal key-value
store that offers exactly two operations: read the bytes stored under a 32-byte
key, and write bytes under a 32-byte key. There is no delete.

We implement:

1. Storage keys, derived from human-readable names by truncating or
zero-padding to 32 bytes (DeriveKey, Key).

2. A store adapter (Store) over an injected Host, with GetKV, PutKV and Clear.
Clearing writes Sentinel, a run of 32 zero bytes, in place of a deletion.

3. Codecs for scalars, strings, slices, structs (msgpack or JSON) and nested
maps.

4. Map, an in-memory hash map bound to one storage key, loaded in full and
written back in full by Flush.

Hosts: MemHost for tests, BoltHost on a Bolt file, and journal.Host on an
append-only file.

# Technical Details

**Key derivation.**
Names of 32 bytes or longer keep their first 32 bytes; shorter names are
left-aligned and padded with zero bytes. Distinct names may therefore derive
the same key ("a" and "a\x00", or any two names sharing a 32-byte prefix), and
the empty name derives the all-zero key. Such collisions are not detected.

**Cleared records.**
GetKV returns a cleared record as is. Get and LoadMap treat it as absent,
exactly like a key that was never written. A cleared record cannot be mistaken
for a map record, since a valid record never consists of 32 zero bytes.

**Sync.**
A Map never talks to the store between LoadMap and Flush. Flush rewrites the
entire record in a single PutKV call; there are no partial writes. Unflushed
changes are simply lost.

## Binary encoding

All fixed-width integers are big-endian. Counts and lengths are uvarints.

**Map record**:
1. Number of entries (uvarint).
2. For each entry, in map iteration order: key encoding, value encoding.

A top-level record must be consumed exactly; trailing bytes are an error.
Duplicate keys are accepted on decode, the last one wins.

**Scalars**: uint8/16/32/64 and int32/64 as fixed-width big-endian; bool as a
single 0 or 1 byte; string and []byte as length (uvarint) + raw bytes; [32]byte
and StorageKey as 32 raw bytes.

**Composites**: slices as count (uvarint) + elements; optional values as a 0 or
1 flag byte + value; nested maps use the map record format recursively;
msgpack and JSON values are length (uvarint) + encoded bytes.
*/
package cstore
