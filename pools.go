package cstore

import "sync"

const maxPooledRecordSize = 65536

var recordBytesPool = &sync.Pool{
	New: func() any {
		b := make([]byte, 0, 4096)
		return &b
	},
}

func acquireRecordBytes() *[]byte {
	return recordBytesPool.Get().(*[]byte)
}

// releaseRecordBytes returns a buffer to the pool. Hosts never retain values
// passed to SetStorage, so a flushed record can be reused right away.
func releaseRecordBytes(b *[]byte) {
	if cap(*b) > maxPooledRecordSize {
		return
	}
	*b = (*b)[:0]
	recordBytesPool.Put(b)
}
