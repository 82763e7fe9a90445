package ledger

import (
	"bytes"
	"sort"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/orm"
)

const (
	accountBucketName = "accounts"
	noteBucketName    = "notes"
	txBucketName      = "txs"
)

// AccountBucket is a type-safe wrapper around orm.Bucket
type AccountBucket struct {
	orm.Bucket
}

// NewAccountBucket initializes an AccountBucket with default name
func NewAccountBucket() AccountBucket {
	return AccountBucket{
		Bucket: orm.NewBucket(accountBucketName, func() orm.Model { return &Account{} }),
	}
}

// GetAccount returns the account with given id or ErrNotFound.
func (b AccountBucket) GetAccount(db quorum.ReadOnlyKVStore, id quorum.AccountID) (*Account, error) {
	var acc Account
	if err := b.One(db, id[:], &acc); err != nil {
		return nil, errors.Wrapf(err, "account %s", id)
	}
	return &acc, nil
}

// SaveAccount persists given account.
func (b AccountBucket) SaveAccount(db quorum.KVStore, acc *Account) error {
	return b.Save(db, orm.NewSimpleObj(acc.ID, acc))
}

// NoteBucket stores notes, indexed by their target account.
type NoteBucket struct {
	orm.Bucket
}

// NewNoteBucket initializes a NoteBucket with default name
func NewNoteBucket() NoteBucket {
	b := orm.NewBucket(noteBucketName, func() orm.Model { return &Note{} }).
		WithIndex("target", noteTarget, false)
	return NoteBucket{Bucket: b}
}

func noteTarget(obj orm.Object) ([]byte, error) {
	n, ok := obj.Value().(*Note)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", obj.Value())
	}
	return n.Target, nil
}

// GetNote returns the note with given id or ErrNotFound.
func (b NoteBucket) GetNote(db quorum.ReadOnlyKVStore, id quorum.Word) (*Note, error) {
	var n Note
	if err := b.One(db, id.Bytes(), &n); err != nil {
		return nil, errors.Wrapf(err, "note %s", id)
	}
	return &n, nil
}

// SaveNote persists given note.
func (b NoteBucket) SaveNote(db quorum.KVStore, n *Note) error {
	return b.Save(db, orm.NewSimpleObj(n.ID, n))
}

// ByTarget returns all notes targeted at given account ordered by creation
// height and id.
func (b NoteBucket) ByTarget(db quorum.ReadOnlyKVStore, target quorum.AccountID) ([]*Note, error) {
	objs, err := b.GetIndexed(db, "target", target[:])
	if err != nil {
		return nil, err
	}
	notes := make([]*Note, 0, len(objs))
	for _, o := range objs {
		n, ok := o.Value().(*Note)
		if !ok {
			return nil, errors.Wrapf(errors.ErrType, "%T", o.Value())
		}
		notes = append(notes, n)
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Height != notes[j].Height {
			return notes[i].Height < notes[j].Height
		}
		return bytes.Compare(notes[i].ID, notes[j].ID) < 0
	})
	return notes, nil
}

// TransactionBucket stores executed transactions, indexed by account.
type TransactionBucket struct {
	orm.Bucket
}

// NewTransactionBucket initializes a TransactionBucket with default name
func NewTransactionBucket() TransactionBucket {
	b := orm.NewBucket(txBucketName, func() orm.Model { return &Transaction{} }).
		WithIndex("account", txAccount, false)
	return TransactionBucket{Bucket: b}
}

func txAccount(obj orm.Object) ([]byte, error) {
	tx, ok := obj.Value().(*Transaction)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", obj.Value())
	}
	return tx.Account, nil
}

// GetTransaction returns the transaction with given id or ErrNotFound.
func (b TransactionBucket) GetTransaction(db quorum.ReadOnlyKVStore, id quorum.Word) (*Transaction, error) {
	var tx Transaction
	if err := b.One(db, id.Bytes(), &tx); err != nil {
		return nil, errors.Wrapf(err, "transaction %s", id)
	}
	return &tx, nil
}

// SaveTransaction persists given transaction.
func (b TransactionBucket) SaveTransaction(db quorum.KVStore, tx *Transaction) error {
	return b.Save(db, orm.NewSimpleObj(tx.ID, tx))
}
