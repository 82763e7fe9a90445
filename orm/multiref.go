package orm

import (
	"bytes"
	"sort"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quorum/errors"
)

// MultiRef is the value stored under a secondary index key: the sorted set
// of primary keys indexed under it.
type MultiRef struct {
	Refs [][]byte `protobuf:"bytes,1,rep,name=refs,proto3" json:"refs,omitempty"`
}

func (m *MultiRef) Reset()         { *m = MultiRef{} }
func (m *MultiRef) String() string { return proto.CompactTextString(m) }
func (*MultiRef) ProtoMessage()    {}

// Validate requires the refs to be sorted and unique.
func (m *MultiRef) Validate() error {
	for i := 1; i < len(m.Refs); i++ {
		if bytes.Compare(m.Refs[i-1], m.Refs[i]) >= 0 {
			return errors.Wrap(errors.ErrState, "refs not sorted")
		}
	}
	return nil
}

// Add inserts a ref, keeping the set sorted. Returns ErrDuplicate if the
// ref is already present.
func (m *MultiRef) Add(ref []byte) error {
	i := m.search(ref)
	if i < len(m.Refs) && bytes.Equal(m.Refs[i], ref) {
		return errors.Wrap(errors.ErrDuplicate, "ref already present")
	}
	m.Refs = append(m.Refs, nil)
	copy(m.Refs[i+1:], m.Refs[i:])
	m.Refs[i] = ref
	return nil
}

// Remove deletes a ref. Returns ErrNotFound if it was not present.
func (m *MultiRef) Remove(ref []byte) error {
	i := m.search(ref)
	if i == len(m.Refs) || !bytes.Equal(m.Refs[i], ref) {
		return errors.Wrap(errors.ErrNotFound, "ref not present")
	}
	m.Refs = append(m.Refs[:i], m.Refs[i+1:]...)
	return nil
}

func (m *MultiRef) search(ref []byte) int {
	return sort.Search(len(m.Refs), func(i int) bool {
		return bytes.Compare(m.Refs[i], ref) >= 0
	})
}
