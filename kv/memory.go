package kv

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

type memItem struct {
	key   []byte
	value []byte
}

func memLess(a, b memItem) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// memEngine keeps everything in a copy-on-write B-tree. Writers mutate a
// lazy clone and publish it on commit, so readers keep a stable snapshot
// without locks for as long as they need it.
type memEngine struct {
	writeMu sync.Mutex // serializes Update
	mu      sync.RWMutex
	tree    *btree.BTreeG[memItem]
}

// NewMemory returns a transient in-memory engine.
func NewMemory() Engine {
	return &memEngine{tree: btree.NewG(32, memLess)}
}

func (e *memEngine) snapshot() *btree.BTreeG[memItem] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree
}

func (e *memEngine) Update(fn func(Txn) error) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	// Only writers touch the published tree's copy-on-write context, and
	// they hold writeMu.
	work := e.snapshot().Clone()
	if err := fn(memTxn{work}); err != nil {
		return err
	}

	e.mu.Lock()
	e.tree = work
	e.mu.Unlock()
	return nil
}

func (e *memEngine) View(fn func(Reader) error) error {
	return fn(memTxn{e.snapshot()})
}

func (e *memEngine) Close() error {
	return nil
}

type memTxn struct {
	tree *btree.BTreeG[memItem]
}

func (t memTxn) Get(key []byte) ([]byte, error) {
	item, ok := t.tree.Get(memItem{key: key})
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(item.value), nil
}

func (t memTxn) Set(key, value []byte) error {
	t.tree.ReplaceOrInsert(memItem{key: bytes.Clone(key), value: bytes.Clone(value)})
	return nil
}

func (t memTxn) Delete(key []byte) error {
	t.tree.Delete(memItem{key: key})
	return nil
}

func (t memTxn) Range(r Range, fn func(key, value []byte) (bool, error)) error {
	var err error
	visit := func(item memItem) bool {
		if !r.contains(item.key) {
			// Reverse iteration starts at Upper inclusive; skip it.
			return r.Reverse && r.Upper != nil && bytes.Equal(item.key, r.Upper)
		}
		var cont bool
		cont, err = fn(item.key, item.value)
		return err == nil && cont
	}

	switch {
	case r.Reverse && r.Upper != nil:
		t.tree.DescendLessOrEqual(memItem{key: r.Upper}, visit)
	case r.Reverse:
		t.tree.Descend(visit)
	case r.Lower != nil:
		t.tree.AscendGreaterOrEqual(memItem{key: r.Lower}, visit)
	default:
		t.tree.Ascend(visit)
	}
	return err
}
