package cstore

import (
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const DefaultBucket = "storage"

type BoltOptions struct {
	Bucket    string // defaults to DefaultBucket
	Timeout   time.Duration
	IsTesting bool
	MmapSize  int
}

// BoltHost is a durable Host that keeps all records in a single Bolt bucket.
// Each call runs in its own Bolt transaction.
type BoltHost struct {
	bdb    *bbolt.DB
	bucket []byte
}

var _ Host = (*BoltHost)(nil)

func OpenBoltHost(path string, opt BoltOptions) (*BoltHost, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}
	if opt.Bucket == "" {
		opt.Bucket = DefaultBucket
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("cstore: %w", err)
	}
	h := &BoltHost{
		bdb:    bdb,
		bucket: []byte(opt.Bucket),
	}
	err = bdb.Update(func(btx *bbolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(h.bucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("cstore: creating bucket %q: %w", opt.Bucket, err)
	}
	return h, nil
}

func (h *BoltHost) Bolt() *bbolt.DB {
	return h.bdb
}

func (h *BoltHost) GetStorage(key StorageKey) ([]byte, error) {
	var value []byte
	err := h.bdb.View(func(btx *bbolt.Tx) error {
		v := btx.Bucket(h.bucket).Get(key[:])
		if v != nil {
			// Bolt memory is only valid inside the tx.
			value = append([]byte{}, v...)
		}
		return nil
	})
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return nil, ErrClosed
	}
	return value, err
}

func (h *BoltHost) SetStorage(key StorageKey, value []byte) error {
	err := h.bdb.Update(func(btx *bbolt.Tx) error {
		return btx.Bucket(h.bucket).Put(key[:], value)
	})
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

// Keys returns every stored key in ascending order.
func (h *BoltHost) Keys() ([]StorageKey, error) {
	var keys []StorageKey
	err := h.bdb.View(func(btx *bbolt.Tx) error {
		c := btx.Bucket(h.bucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if len(k) != KeySize {
				return fmt.Errorf("cstore: invalid key %x in bucket %q", k, h.bucket)
			}
			keys = append(keys, StorageKey(k))
		}
		return nil
	})
	return keys, err
}

func (h *BoltHost) Close() error {
	return h.bdb.Close()
}
