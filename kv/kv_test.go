package kv

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engines(t *testing.T) map[string]Engine {
	t.Helper()
	open := func(opts Options) Engine {
		e, err := Open(opts)
		require.NoError(t, err)
		t.Cleanup(func() { e.Close() })
		return e
	}
	return map[string]Engine{
		"badger": open(Options{Engine: "badger", InMemory: true}),
		"bolt":   open(Options{Engine: "bolt", Path: filepath.Join(t.TempDir(), "kv.bolt")}),
		"memory": open(Options{Engine: "memory"}),
	}
}

func collect(t *testing.T, e Engine, r Range) []string {
	t.Helper()
	var keys []string
	err := e.View(func(rd Reader) error {
		return rd.Range(r, func(k, _ []byte) (bool, error) {
			keys = append(keys, string(k))
			return true, nil
		})
	})
	require.NoError(t, err)
	return keys
}

func TestEngines(t *testing.T) {
	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			err := e.Update(func(txn Txn) error {
				for _, k := range []string{"a", "b1", "b2", "b3", "c"} {
					if err := txn.Set([]byte(k), []byte("v"+k)); err != nil {
						return err
					}
				}
				return nil
			})
			require.NoError(t, err)

			t.Run("get", func(t *testing.T) {
				err := e.View(func(rd Reader) error {
					v, err := rd.Get([]byte("b2"))
					require.NoError(t, err)
					assert.Equal(t, "vb2", string(v))
					_, err = rd.Get([]byte("zz"))
					assert.ErrorIs(t, err, ErrKeyNotFound)
					return nil
				})
				require.NoError(t, err)
			})

			t.Run("forward range", func(t *testing.T) {
				assert.Equal(t, []string{"b1", "b2", "b3"}, collect(t, e, Range{Lower: []byte("b"), Upper: []byte("c")}))
				assert.Equal(t, []string{"b2", "b3"}, collect(t, e, Range{Lower: []byte("b2"), Upper: []byte("c")}))
				assert.Equal(t, []string{"a", "b1", "b2", "b3", "c"}, collect(t, e, Range{}))
			})

			t.Run("reverse range excludes upper", func(t *testing.T) {
				assert.Equal(t, []string{"b2", "b1"}, collect(t, e, Range{Lower: []byte("b"), Upper: []byte("b3"), Reverse: true}))
				assert.Equal(t, []string{"c", "b3", "b2", "b1", "a"}, collect(t, e, Range{Reverse: true}))
				assert.Equal(t, []string{"c", "b3"}, collect(t, e, Range{Lower: []byte("b3"), Upper: []byte("d"), Reverse: true}))
			})

			t.Run("early stop", func(t *testing.T) {
				var seen int
				err := e.View(func(rd Reader) error {
					return rd.Range(Range{}, func(_, _ []byte) (bool, error) {
						seen++
						return seen < 2, nil
					})
				})
				require.NoError(t, err)
				assert.Equal(t, 2, seen)
			})

			t.Run("failed update is discarded", func(t *testing.T) {
				boom := errors.New("boom")
				err := e.Update(func(txn Txn) error {
					require.NoError(t, txn.Set([]byte("b4"), []byte("x")))
					require.NoError(t, txn.Delete([]byte("a")))
					return boom
				})
				require.ErrorIs(t, err, boom)
				assert.Equal(t, []string{"a", "b1", "b2", "b3", "c"}, collect(t, e, Range{}))
			})

			t.Run("delete", func(t *testing.T) {
				require.NoError(t, e.Update(func(txn Txn) error { return txn.Delete([]byte("c")) }))
				assert.Equal(t, []string{"a", "b1", "b2", "b3"}, collect(t, e, Range{}))
			})
		})
	}
}

func TestMemorySnapshotIsolation(t *testing.T) {
	e := NewMemory()
	require.NoError(t, e.Update(func(txn Txn) error { return txn.Set([]byte("k"), []byte("1")) }))

	err := e.View(func(rd Reader) error {
		require.NoError(t, e.Update(func(txn Txn) error { return txn.Set([]byte("k"), []byte("2")) }))
		v, err := rd.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, "1", string(v))
		return nil
	})
	require.NoError(t, err)
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("ab"), PrefixEnd([]byte("aa")))
	assert.Equal(t, []byte{0x01}, PrefixEnd([]byte{0x00, 0xFF}))
	assert.Nil(t, PrefixEnd([]byte{0xFF, 0xFF}))
}

func TestOpenUnknownEngine(t *testing.T) {
	_, err := Open(Options{Engine: "leveldb"})
	assert.Error(t, err)
}
