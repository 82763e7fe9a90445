package multisig

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/x/ledger"
)

// Intent describes an operation to perform on a multisig account.
type Intent interface {
	// Request builds the ledger request carrying out the intent.
	Request() (*ledger.TransactionRequest, error)
}

// Consume moves the assets of given notes into the account vault.
type Consume struct {
	Notes []quorum.Word
}

var _ Intent = Consume{}

func (c Consume) Request() (*ledger.TransactionRequest, error) {
	if len(c.Notes) == 0 {
		return nil, errors.Wrap(errors.ErrProposal, "no notes to consume")
	}
	req := &ledger.TransactionRequest{}
	for _, id := range c.Notes {
		req.AddInputNote(id)
	}
	return req, nil
}

// Pay sends an amount of a faucet asset to a single recipient.
type Pay struct {
	Recipient quorum.AccountID
	Faucet    quorum.AccountID
	Amount    uint64
}

var _ Intent = Pay{}

func (p Pay) Request() (*ledger.TransactionRequest, error) {
	return BatchPay{Payments: []Pay{p}}.Request()
}

func (p Pay) note() (*ledger.OutputNote, error) {
	if p.Recipient.IsZero() {
		return nil, errors.Wrap(errors.ErrProposal, "missing recipient")
	}
	if p.Faucet.IsZero() {
		return nil, errors.Wrap(errors.ErrProposal, "missing faucet")
	}
	if p.Amount == 0 {
		return nil, errors.Wrap(errors.ErrProposal, "amount must be positive")
	}
	return ledger.NewPayToID(p.Recipient, ledger.NewAsset(p.Faucet, p.Amount)), nil
}

// BatchPay sends one note per payment in a single transaction.
type BatchPay struct {
	Payments []Pay
}

var _ Intent = BatchPay{}

func (b BatchPay) Request() (*ledger.TransactionRequest, error) {
	if len(b.Payments) == 0 {
		return nil, errors.Wrap(errors.ErrProposal, "no recipients")
	}
	req := &ledger.TransactionRequest{}
	for i, p := range b.Payments {
		n, err := p.note()
		if err != nil {
			return nil, errors.Wrapf(err, "payment %d", i)
		}
		req.OutputNotes = append(req.OutputNotes, n)
	}
	return req, nil
}
