package orm

import (
	"bytes"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
)

// Index is a secondary index on the objects of a bucket.
type Index interface {
	// Update updates the index. It should be called when any of the bucket
	// entities has changed in the store.
	//
	// prev == nil means insert
	// save == nil means delete
	// both == nil is error
	// if both != nil and prev.Key() != save.Key() this is an error
	Update(db quorum.KVStore, prev Object, save Object) error

	// GetAt returns the primary keys of all objects indexed under value.
	GetAt(db quorum.ReadOnlyKVStore, value []byte) ([][]byte, error)
}

const compactIdxPrefix = "_i."

// Indexer calculates the secondary index key for a given object. A nil
// key means the object is not indexed.
type Indexer func(Object) ([]byte, error)

// compactIndex stores all primary keys indexed under one value as a single
// MultiRef. It should be used only for small sized index collections.
type compactIndex struct {
	id     []byte
	unique bool
	index  Indexer
}

var _ Index = compactIndex{}

func newCompactIndex(name string, indexer Indexer, unique bool) compactIndex {
	return compactIndex{
		id:     []byte(compactIdxPrefix + name + ":"),
		index:  indexer,
		unique: unique,
	}
}

// indexKey is the full key we store in the db, including prefix
func (i compactIndex) indexKey(key []byte) []byte {
	l := len(i.id)
	out := make([]byte, l+len(key))
	copy(out, i.id)
	copy(out[l:], key)
	return out
}

// Update handles updating the reference to the object in
// the secondary index.
func (i compactIndex) Update(db quorum.KVStore, prev Object, save Object) error {
	switch {
	case prev == nil && save == nil:
		return errors.Wrap(errors.ErrHuman, "update requires at least one non-nil object")
	case prev == nil:
		key, err := i.index(save)
		if err != nil || key == nil {
			return err
		}
		return i.insert(db, key, save.Key())
	case save == nil:
		key, err := i.index(prev)
		if err != nil || key == nil {
			return err
		}
		return i.remove(db, key, prev.Key())
	}

	if !bytes.Equal(prev.Key(), save.Key()) {
		return errors.Wrap(errors.ErrHuman, "cannot modify the primary key of an object")
	}
	oldKey, err := i.index(prev)
	if err != nil {
		return err
	}
	newKey, err := i.index(save)
	if err != nil {
		return err
	}
	if bytes.Equal(oldKey, newKey) {
		return nil
	}
	if oldKey != nil {
		if err := i.remove(db, oldKey, prev.Key()); err != nil {
			return err
		}
	}
	if newKey != nil {
		return i.insert(db, newKey, save.Key())
	}
	return nil
}

// GetAt returns a list of all pk at that index
func (i compactIndex) GetAt(db quorum.ReadOnlyKVStore, index []byte) ([][]byte, error) {
	refs, err := i.load(db, index)
	if err != nil {
		return nil, err
	}
	return refs.Refs, nil
}

func (i compactIndex) load(db quorum.ReadOnlyKVStore, index []byte) (*MultiRef, error) {
	var refs MultiRef
	raw, err := db.Get(i.indexKey(index))
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	if raw == nil {
		return &refs, nil
	}
	if err := proto.Unmarshal(raw, &refs); err != nil {
		return nil, errors.Wrapf(errors.ErrModel, "index refs: %s", err)
	}
	return &refs, nil
}

func (i compactIndex) store(db quorum.KVStore, index []byte, refs *MultiRef) error {
	key := i.indexKey(index)
	if len(refs.Refs) == 0 {
		return db.Delete(key)
	}
	raw, err := proto.Marshal(refs)
	if err != nil {
		return errors.Wrapf(errors.ErrModel, "index refs: %s", err)
	}
	return db.Set(key, raw)
}

func (i compactIndex) insert(db quorum.KVStore, index []byte, pk []byte) error {
	refs, err := i.load(db, index)
	if err != nil {
		return err
	}
	if i.unique && len(refs.Refs) > 0 {
		return errors.Wrapf(errors.ErrDuplicate, "unique index %s", i.id)
	}
	if err := refs.Add(pk); err != nil {
		return err
	}
	return i.store(db, index, refs)
}

func (i compactIndex) remove(db quorum.KVStore, index []byte, pk []byte) error {
	refs, err := i.load(db, index)
	if err != nil {
		return err
	}
	if err := refs.Remove(pk); err != nil {
		return errors.Wrapf(err, "index %s", i.id)
	}
	return i.store(db, index, refs)
}
