package iavl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitStoreVersions(t *testing.T) {
	s := MockCommitStore()
	require.NoError(t, s.LoadLatestVersion())

	id, err := s.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(0), id.Version)

	c := s.CacheWrap()
	require.NoError(t, c.Set([]byte("acct:1"), []byte("one")))
	require.NoError(t, c.Set([]byte("acct:2"), []byte("two")))
	require.NoError(t, c.Write())

	id, err = s.Commit()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.Version)
	assert.NotEmpty(t, id.Hash)

	v, err := s.Get([]byte("acct:1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), v)

	latest, err := s.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, id, latest)
}

func TestCommitStoreDiscardedCacheLeavesNoTrace(t *testing.T) {
	s := MockCommitStore()

	c := s.CacheWrap()
	require.NoError(t, c.Set([]byte("k"), []byte("v1")))
	require.NoError(t, c.Write())
	first, err := s.Commit()
	require.NoError(t, err)

	dry := s.CacheWrap()
	require.NoError(t, dry.Set([]byte("k"), []byte("v2")))
	require.NoError(t, dry.Delete([]byte("k")))
	dry.Discard()

	v, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	latest, err := s.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, first.Hash, latest.Hash)
}

func TestCommitStoreRollback(t *testing.T) {
	s := MockCommitStore()

	c := s.CacheWrap()
	require.NoError(t, c.Set([]byte("k"), []byte("v1")))
	require.NoError(t, c.Write())
	first, err := s.Commit()
	require.NoError(t, err)

	c = s.CacheWrap()
	require.NoError(t, c.Set([]byte("k"), []byte("v2")))
	require.NoError(t, c.Set([]byte("other"), []byte("x")))
	require.NoError(t, c.Write())
	s.Rollback()

	v, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)
	v, err = s.Get([]byte("other"))
	require.NoError(t, err)
	assert.Nil(t, v)

	latest, err := s.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, first, latest)
}

func TestCommitStoreIterator(t *testing.T) {
	s := MockCommitStore()
	c := s.CacheWrap()
	for _, k := range []string{"n:a", "n:b", "n:c", "o:a"} {
		require.NoError(t, c.Set([]byte(k), []byte(k)))
	}
	require.NoError(t, c.Write())
	_, err := s.Commit()
	require.NoError(t, err)

	view := s.CacheWrap()
	require.NoError(t, view.Delete([]byte("n:b")))

	it, err := view.Iterator([]byte("n:"), []byte("n;"))
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for ; it.Valid(); require.NoError(t, it.Next()) {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"n:a", "n:c"}, keys)
}
