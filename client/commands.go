package client

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/crypto"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/x/ledger"
	"github.com/iov-one/quorum/x/multisig"
	"github.com/tendermint/tendermint/libs/log"
)

type reply struct {
	value interface{}
	err   error
}

// command is a unit of work for the actor. Every command carries the data
// it needs and the channel its reply is sent to.
type command interface {
	name() string
	needsSync() bool
	run(l Ledger, logger log.Logger) (interface{}, error)
	replyTo() chan<- reply
}

// replier is embedded by every command.
type replier struct {
	reply chan reply
}

func newReplier() replier {
	return replier{reply: make(chan reply, 1)}
}

func (r replier) replyTo() chan<- reply { return r.reply }

func (replier) needsSync() bool { return true }

type getHeightCmd struct{ replier }

func (getHeightCmd) name() string    { return "get_height" }
func (getHeightCmd) needsSync() bool { return false }

func (getHeightCmd) run(l Ledger, _ log.Logger) (interface{}, error) {
	return l.Height(), nil
}

type syncStateCmd struct{ replier }

func (syncStateCmd) name() string { return "sync_state" }

func (syncStateCmd) run(l Ledger, _ log.Logger) (interface{}, error) {
	return l.Height(), nil
}

type createAccountCmd struct {
	replier
	approvers []crypto.PublicKey
	threshold uint64
}

func (createAccountCmd) name() string { return "create_account" }

func (c createAccountCmd) run(l Ledger, _ log.Logger) (interface{}, error) {
	acc, err := multisig.CreateAccount(l, c.approvers, c.threshold)
	if err != nil {
		return nil, err
	}
	return acc.AccountID(), nil
}

type createFaucetCmd struct {
	replier
	symbol    string
	decimals  uint32
	maxSupply uint64
}

func (createFaucetCmd) name() string { return "create_faucet" }

func (c createFaucetCmd) run(l Ledger, _ log.Logger) (interface{}, error) {
	acc, err := l.CreateFaucet(c.symbol, c.decimals, c.maxSupply)
	if err != nil {
		return nil, err
	}
	return acc.AccountID(), nil
}

type listNotesCmd struct {
	replier
	account quorum.AccountID
}

func (listNotesCmd) name() string { return "list_consumable_notes" }

func (c listNotesCmd) run(l Ledger, _ log.Logger) (interface{}, error) {
	return l.ConsumableNotes(c.account)
}

type proposeCmd struct {
	replier
	kind    string
	account quorum.AccountID
	intent  multisig.Intent
}

func (c proposeCmd) name() string { return "propose_" + c.kind }

func (c proposeCmd) run(l Ledger, _ log.Logger) (interface{}, error) {
	return multisig.Propose(l, c.account, c.intent)
}

type executeCmd struct {
	replier
	req ExecuteRequest
}

func (executeCmd) name() string { return "execute" }

func (c executeCmd) run(l Ledger, logger log.Logger) (interface{}, error) {
	// An unknown account is a lookup failure whatever else the request
	// carries.
	if _, err := l.Account(c.req.Account); err != nil {
		return nil, err
	}
	if len(c.req.PublicKeys) != 0 {
		if err := checkPublicKeys(l, c.req.Account, c.req.PublicKeys, logger); err != nil {
			return nil, err
		}
	}
	txID, err := multisig.Execute(l, c.req.Account, c.req.Request, c.req.Summary, c.req.Signatures)
	switch {
	case err == nil:
		return &ExecuteResult{Success: true, TransactionID: txID}, nil
	case isInputError(err):
		return nil, err
	default:
		return &ExecuteResult{Success: false, Error: err.Error()}, nil
	}
}

// isInputError returns true for errors caused by undecodable caller input,
// as opposed to a ledger refusing the transaction.
func isInputError(err error) bool {
	return errors.ErrKeyEncoding.Is(err) ||
		errors.ErrSignatureEncoding.Is(err) ||
		errors.ErrInput.Is(err)
}

// checkPublicKeys compares the keys a caller claims to be the approvers with
// the account commitments. The ledger never relies on them, so a mismatch is
// only logged. Keys that cannot be decoded are an input error.
func checkPublicKeys(l Ledger, id quorum.AccountID, keys []string, logger log.Logger) error {
	pks, err := crypto.ParsePublicKeysHex(keys)
	if err != nil {
		return err
	}
	acc, err := l.Account(id)
	if err != nil {
		return err
	}
	_, count, err := multisig.Approvers(acc)
	if err != nil {
		return err
	}
	if uint64(len(pks)) != count {
		logger.Info("Approver count mismatch", "account", id, "keys", len(pks), "approvers", count)
	}
	for i, pk := range pks {
		if uint64(i) >= count {
			break
		}
		c, err := multisig.ApproverCommitment(acc, uint64(i))
		if err != nil {
			return err
		}
		if c != crypto.KeyCommitment(pk) {
			logger.Info("Approver key mismatch", "account", id, "slot", i, "key", pk.Hex())
		} else {
			logger.Debug("Approver key", "account", id, "slot", i, "key", pk.Hex())
		}
	}
	return nil
}

type balancesCmd struct {
	replier
	account quorum.AccountID
}

func (balancesCmd) name() string { return "get_balances" }

func (c balancesCmd) run(l Ledger, _ log.Logger) (interface{}, error) {
	return l.Balances(c.account)
}

type mintCmd struct {
	replier
	account quorum.AccountID
	faucet  quorum.AccountID
	amount  uint64
}

func (mintCmd) name() string { return "mint" }

func (c mintCmd) run(l Ledger, _ log.Logger) (interface{}, error) {
	res, err := l.Submit(c.faucet, ledger.NewMintRequest(c.faucet, c.account, c.amount))
	if err != nil {
		return nil, err
	}
	return res.ID, nil
}
