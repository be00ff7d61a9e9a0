package kv

import (
	"bytes"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var boltBucket = []byte("ddblite")

type boltEngine struct {
	bdb *bbolt.DB
}

// OpenBolt opens a bbolt-backed engine storing everything in one bucket of
// the file at opts.Path.
func OpenBolt(opts Options) (Engine, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("bolt engine requires a path")
	}
	bdb, err := bbolt.Open(opts.Path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = bdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &boltEngine{bdb: bdb}, nil
}

func (e *boltEngine) Update(fn func(Txn) error) error {
	return e.bdb.Update(func(tx *bbolt.Tx) error {
		return fn(boltTxn{tx.Bucket(boltBucket)})
	})
}

func (e *boltEngine) View(fn func(Reader) error) error {
	return e.bdb.View(func(tx *bbolt.Tx) error {
		return fn(boltTxn{tx.Bucket(boltBucket)})
	})
}

func (e *boltEngine) Close() error {
	return e.bdb.Close()
}

type boltTxn struct {
	b *bbolt.Bucket
}

func (t boltTxn) Get(key []byte) ([]byte, error) {
	v := t.b.Get(key)
	if v == nil {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

func (t boltTxn) Set(key, value []byte) error {
	// Bolt keeps references to key and value until the transaction ends.
	return t.b.Put(bytes.Clone(key), bytes.Clone(value))
}

func (t boltTxn) Delete(key []byte) error {
	return t.b.Delete(key)
}

func (t boltTxn) Range(r Range, fn func(key, value []byte) (bool, error)) error {
	c := t.b.Cursor()

	var k, v []byte
	next := c.Next
	if r.Reverse {
		next = c.Prev
		if r.Upper != nil {
			k, v = c.Seek(r.Upper)
			if k == nil {
				k, v = c.Last()
			} else {
				// Seek found the first key >= Upper; step back below it.
				k, v = c.Prev()
			}
		} else {
			k, v = c.Last()
		}
	} else if r.Lower != nil {
		k, v = c.Seek(r.Lower)
	} else {
		k, v = c.First()
	}

	for ; k != nil; k, v = next() {
		if !r.contains(k) {
			return nil
		}
		cont, err := fn(k, v)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}
