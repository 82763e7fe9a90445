package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, it Iterator) []Model {
	t.Helper()
	defer it.Close()
	var res []Model
	for ; it.Valid(); require.NoError(t, it.Next()) {
		res = append(res, Model{Key: it.Key(), Value: it.Value()})
	}
	return res
}

func TestCacheWrapGetSetDelete(t *testing.T) {
	base := MemStore()
	require.NoError(t, base.Set([]byte("a"), []byte("1")))
	require.NoError(t, base.Set([]byte("b"), []byte("2")))

	cache := base.CacheWrap()
	require.NoError(t, cache.Set([]byte("c"), []byte("3")))
	require.NoError(t, cache.Delete([]byte("a")))

	v, err := cache.Get([]byte("a"))
	require.NoError(t, err)
	assert.Nil(t, v, "deleted in cache")

	has, err := cache.Has([]byte("b"))
	require.NoError(t, err)
	assert.True(t, has, "falls through to parent")

	v, err = base.Get([]byte("c"))
	require.NoError(t, err)
	assert.Nil(t, v, "parent untouched before write")

	require.NoError(t, cache.Write())

	v, err = base.Get([]byte("c"))
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)
	has, err = base.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCacheWrapDiscard(t *testing.T) {
	base := MemStore()
	require.NoError(t, base.Set([]byte("nonce"), []byte{1}))

	dry := base.CacheWrap()
	require.NoError(t, dry.Set([]byte("nonce"), []byte{2}))
	require.NoError(t, dry.Set([]byte("note"), []byte{3}))
	dry.Discard()

	v, err := base.Get([]byte("nonce"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, v)
	has, err := base.Has([]byte("note"))
	require.NoError(t, err)
	assert.False(t, has)

	// a write after discard must not replay discarded operations
	require.NoError(t, dry.Write())
	v, err = base.Get([]byte("nonce"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, v)
}

func TestCacheWrapIterator(t *testing.T) {
	base := MemStore()
	for _, k := range []string{"k1", "k3", "k5", "k7"} {
		require.NoError(t, base.Set([]byte(k), []byte("base-"+k)))
	}
	cache := base.CacheWrap()
	require.NoError(t, cache.Set([]byte("k2"), []byte("cache-k2")))
	require.NoError(t, cache.Set([]byte("k5"), []byte("cache-k5")))
	require.NoError(t, cache.Delete([]byte("k3")))
	require.NoError(t, cache.Delete([]byte("k9")))

	cases := map[string]struct {
		start, end []byte
		reverse    bool
		wantKeys   []string
		wantValues []string
	}{
		"full range": {
			wantKeys:   []string{"k1", "k2", "k5", "k7"},
			wantValues: []string{"base-k1", "cache-k2", "cache-k5", "base-k7"},
		},
		"bounded range": {
			start:      []byte("k2"),
			end:        []byte("k7"),
			wantKeys:   []string{"k2", "k5"},
			wantValues: []string{"cache-k2", "cache-k5"},
		},
		"reverse": {
			reverse:    true,
			wantKeys:   []string{"k7", "k5", "k2", "k1"},
			wantValues: []string{"base-k7", "cache-k5", "cache-k2", "base-k1"},
		},
		"reverse bounded": {
			start:      []byte("k1"),
			end:        []byte("k5"),
			reverse:    true,
			wantKeys:   []string{"k2", "k1"},
			wantValues: []string{"cache-k2", "base-k1"},
		},
		"only deleted keys": {
			start: []byte("k3"),
			end:   []byte("k4"),
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			var (
				it  Iterator
				err error
			)
			if tc.reverse {
				it, err = cache.ReverseIterator(tc.start, tc.end)
			} else {
				it, err = cache.Iterator(tc.start, tc.end)
			}
			require.NoError(t, err)

			var keys, values []string
			for _, m := range collect(t, it) {
				keys = append(keys, string(m.Key))
				values = append(values, string(m.Value))
			}
			assert.Equal(t, tc.wantKeys, keys)
			assert.Equal(t, tc.wantValues, values)
		})
	}
}

func TestNestedCacheWrap(t *testing.T) {
	base := MemStore()
	outer := base.CacheWrap()
	inner := outer.CacheWrap()

	require.NoError(t, inner.Set([]byte("x"), []byte("y")))
	v, err := outer.Get([]byte("x"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, inner.Write())
	v, err = outer.Get([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), v)

	v, err = base.Get([]byte("x"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, outer.Write())
	v, err = base.Get([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), v)
}

func TestSliceIteratorPastEnd(t *testing.T) {
	it := NewSliceIterator([]Model{{Key: []byte("a"), Value: []byte("b")}})
	require.True(t, it.Valid())
	require.NoError(t, it.Next())
	assert.False(t, it.Valid())
	assert.Error(t, it.Next())
}
