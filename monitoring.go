package cstore

import "go.etcd.io/bbolt"

type BoltStats struct {
	Records int

	DataSize  int
	DataAlloc int
}

// Stats reports the number of records in the host's bucket and the space
// they occupy. Cleared records count, since they are never deleted.
//
// A small bucket lives inline in its parent page until it outgrows it, and
// bbolt accounts for it separately then.
func (h *BoltHost) Stats() (BoltStats, error) {
	var result BoltStats
	err := h.bdb.View(func(btx *bbolt.Tx) error {
		bs := btx.Bucket(h.bucket).Stats()
		result = BoltStats{
			Records:   bs.KeyN,
			DataSize:  bs.LeafInuse + bs.InlineBucketInuse,
			DataAlloc: bs.BranchAlloc + bs.LeafAlloc,
		}
		if bs.InlineBucketN > 0 {
			result.DataAlloc += bs.InlineBucketInuse
		}
		return nil
	})
	return result, err
}
