package client

import (
	"context"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/crypto"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/x/ledger"
	"github.com/iov-one/quorum/x/multisig"
)

// Handle sends commands to the actor. The zero value is not usable, get one
// from Start. Copies share the same queue.
type Handle struct {
	queue chan<- command
	// done is closed when the actor stops.
	done <-chan struct{}
}

// ExecuteRequest is the input of Execute.
type ExecuteRequest struct {
	Account quorum.AccountID
	Request []byte
	Summary []byte
	// Signatures is indexed by approver slot, nil for slots without a
	// signature.
	Signatures [][]byte
	// PublicKeys optionally lists the approver keys, hex encoded. They are
	// checked against the account and mismatches logged, nothing more.
	PublicKeys []string
}

// ExecuteResult reports the outcome of an execution the ledger accepted to
// process. A rejected transaction is not an error.
type ExecuteResult struct {
	Success       bool
	TransactionID quorum.Word
	Error         string
}

func (h Handle) call(ctx context.Context, cmd command, replies <-chan reply) (interface{}, error) {
	select {
	case h.queue <- cmd:
	case <-h.done:
		return nil, errors.ErrResource.New("actor stopped")
	case <-ctx.Done():
		return nil, errors.Wrapf(errors.ErrResource, "enqueue %s: %s", cmd.name(), ctx.Err())
	}
	select {
	case r := <-replies:
		return r.value, r.err
	case <-h.done:
		// The command may have completed right before the actor stopped.
		select {
		case r := <-replies:
			return r.value, r.err
		default:
			return nil, errors.ErrResource.New("actor stopped")
		}
	case <-ctx.Done():
		return nil, errors.Wrapf(errors.ErrResource, "await %s: %s", cmd.name(), ctx.Err())
	}
}

// GetHeight returns the last height the ledger observed.
func (h Handle) GetHeight(ctx context.Context) (int64, error) {
	cmd := getHeightCmd{newReplier()}
	v, err := h.call(ctx, cmd, cmd.reply)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// SyncState refreshes the ledger state and returns the new height.
func (h Handle) SyncState(ctx context.Context) (int64, error) {
	cmd := syncStateCmd{newReplier()}
	v, err := h.call(ctx, cmd, cmd.reply)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// CreateAccount creates a threshold of len(approvers) multisig account.
func (h Handle) CreateAccount(ctx context.Context, approvers []crypto.PublicKey, threshold uint64) (quorum.AccountID, error) {
	cmd := createAccountCmd{replier: newReplier(), approvers: approvers, threshold: threshold}
	v, err := h.call(ctx, cmd, cmd.reply)
	if err != nil {
		return quorum.AccountID{}, err
	}
	return v.(quorum.AccountID), nil
}

// CreateFaucet creates a fungible faucet.
func (h Handle) CreateFaucet(ctx context.Context, symbol string, decimals uint32, maxSupply uint64) (quorum.AccountID, error) {
	cmd := createFaucetCmd{replier: newReplier(), symbol: symbol, decimals: decimals, maxSupply: maxSupply}
	v, err := h.call(ctx, cmd, cmd.reply)
	if err != nil {
		return quorum.AccountID{}, err
	}
	return v.(quorum.AccountID), nil
}

// ListConsumableNotes returns the notes the account can consume.
func (h Handle) ListConsumableNotes(ctx context.Context, account quorum.AccountID) ([]*ledger.Note, error) {
	cmd := listNotesCmd{replier: newReplier(), account: account}
	v, err := h.call(ctx, cmd, cmd.reply)
	if err != nil {
		return nil, err
	}
	return v.([]*ledger.Note), nil
}

// ProposeConsume proposes to consume given notes.
func (h Handle) ProposeConsume(ctx context.Context, account quorum.AccountID, notes []quorum.Word) (*multisig.Proposal, error) {
	return h.propose(ctx, multisig.KindConsume, account, multisig.Consume{Notes: notes})
}

// ProposeSend proposes a payment to a single recipient.
func (h Handle) ProposeSend(ctx context.Context, account quorum.AccountID, pay multisig.Pay) (*multisig.Proposal, error) {
	return h.propose(ctx, multisig.KindSend, account, pay)
}

// ProposeBatchSend proposes payments to many recipients in one transaction.
func (h Handle) ProposeBatchSend(ctx context.Context, account quorum.AccountID, payments []multisig.Pay) (*multisig.Proposal, error) {
	return h.propose(ctx, multisig.KindBatchSend, account, multisig.BatchPay{Payments: payments})
}

func (h Handle) propose(ctx context.Context, kind string, account quorum.AccountID, intent multisig.Intent) (*multisig.Proposal, error) {
	cmd := proposeCmd{replier: newReplier(), kind: kind, account: account, intent: intent}
	v, err := h.call(ctx, cmd, cmd.reply)
	if err != nil {
		return nil, err
	}
	return v.(*multisig.Proposal), nil
}

// Execute submits a proposal with the collected signatures. Undecodable
// input is returned as an error, a transaction the ledger refused is
// reported in the result.
func (h Handle) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	cmd := executeCmd{replier: newReplier(), req: req}
	v, err := h.call(ctx, cmd, cmd.reply)
	if err != nil {
		return nil, err
	}
	return v.(*ExecuteResult), nil
}

// GetBalances returns the vault of given account.
func (h Handle) GetBalances(ctx context.Context, account quorum.AccountID) ([]*ledger.Asset, error) {
	cmd := balancesCmd{replier: newReplier(), account: account}
	v, err := h.call(ctx, cmd, cmd.reply)
	if err != nil {
		return nil, err
	}
	return v.([]*ledger.Asset), nil
}

// Mint issues amount of the faucet asset to account. Faucets need no
// approvals.
func (h Handle) Mint(ctx context.Context, account, faucet quorum.AccountID, amount uint64) (quorum.Word, error) {
	cmd := mintCmd{replier: newReplier(), account: account, faucet: faucet, amount: amount}
	v, err := h.call(ctx, cmd, cmd.reply)
	if err != nil {
		return quorum.EmptyWord, err
	}
	return v.(quorum.Word), nil
}
