package orm

import (
	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quorum"
)

// Model is the data stored under a key. It is serialized with protobuf and
// must validate itself before it is written.
type Model interface {
	proto.Message
	Validate() error
}

// Object is what is stored in the bucket
// Key is joined with the prefix to set the full key
// Value is the data stored
type Object interface {
	Keyed
	// Validate returns error if the object is not in a valid
	// state to save to the db (eg. field missing, out of range, ...)
	Validate() error
	Value() Model
}

// Keyed is anything that can identify itself
type Keyed interface {
	Key() []byte
	SetKey([]byte)
}

// Reader defines an interface that allows reading objects from the db
type Reader interface {
	Get(db quorum.ReadOnlyKVStore, key []byte) (Object, error)
}
