package multisig

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/crypto"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/x/ledger"
)

// MaxApprovers is the maximum number of approver slots of an account.
const MaxApprovers = 255

// NewStorage returns the storage layout of a multisig account. Slot 0 holds
// [threshold, count, 0, 0], slot 1 maps [i, 0, 0, 0] to the commitment of
// approver i.
func NewStorage(approvers []crypto.PublicKey, threshold uint64) ([]*ledger.StorageSlot, error) {
	n := uint64(len(approvers))
	switch {
	case n == 0:
		return nil, errors.Wrap(errors.ErrEmpty, "no approvers")
	case n > MaxApprovers:
		return nil, errors.Wrapf(errors.ErrInput, "at most %d approvers allowed", MaxApprovers)
	case threshold == 0 || threshold > n:
		return nil, errors.Wrapf(errors.ErrInput, "threshold must be between 1 and %d", n)
	}

	seen := make(map[crypto.PublicKey]int, n)
	slot := &ledger.StorageSlot{Index: ledger.ApproverSlot}
	for i, pk := range approvers {
		if j, ok := seen[pk]; ok {
			return nil, errors.Wrapf(errors.ErrDuplicate, "approvers %d and %d share a key", j, i)
		}
		seen[pk] = i
		slot.SetItem(approverKey(uint64(i)), crypto.KeyCommitment(pk))
	}
	return []*ledger.StorageSlot{
		ledger.NewValueSlot(ledger.ThresholdSlot, quorum.NewWord(threshold, n, 0, 0)),
		slot,
	}, nil
}

func approverKey(i uint64) quorum.Word {
	return quorum.NewWord(i, 0, 0, 0)
}

// Approvers returns the threshold and the number of approver slots of an
// account.
func Approvers(acc *ledger.Account) (threshold, count uint64, err error) {
	cfg, err := acc.SlotValue(ledger.ThresholdSlot)
	if err != nil {
		return 0, 0, errors.Wrap(err, "not a multisig account")
	}
	return cfg[0].Uint64(), cfg[1].Uint64(), nil
}

// ApproverCommitment returns the key commitment bound to slot i.
func ApproverCommitment(acc *ledger.Account, i uint64) (quorum.Word, error) {
	c, err := acc.MapItem(ledger.ApproverSlot, approverKey(i))
	if err != nil {
		return quorum.EmptyWord, errors.Wrapf(err, "approver %d", i)
	}
	return c, nil
}

// AdviceKey returns the advice map key under which the signature of the
// approver bound to commitment is expected.
func AdviceKey(commitment, message quorum.Word) quorum.Word {
	return quorum.Merge(commitment, message)
}
