package ledger

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/crypto"
	"github.com/iov-one/quorum/errors"
	"github.com/tendermint/tendermint/libs/log"
)

const (
	// ThresholdSlot holds [threshold, approver count, 0, 0] for multisig
	// accounts.
	ThresholdSlot uint32 = 0
	// ApproverSlot maps [index, 0, 0, 0] to the approver key commitment.
	ApproverSlot uint32 = 1
)

// ExecutedTransaction is the outcome of a dry run or a submission.
type ExecutedTransaction struct {
	ID      quorum.Word
	Summary *TransactionSummary
	Outputs []*Note
	Height  int64
}

// Engine executes transactions against the ledger state. It is not safe for
// concurrent use. A single owner must serialize all calls.
type Engine struct {
	store    quorum.CommitKVStore
	network  quorum.Network
	logger   log.Logger
	random   io.Reader
	height   int64
	accounts AccountBucket
	notes    NoteBucket
	txs      TransactionBucket
}

// NewEngine returns an engine over given store. The store must be loaded.
func NewEngine(store quorum.CommitKVStore, network quorum.Network, logger log.Logger) *Engine {
	return &Engine{
		store:    store,
		network:  network,
		logger:   quorum.LoggerOrDefault(logger).With("module", "ledger"),
		random:   rand.Reader,
		accounts: NewAccountBucket(),
		notes:    NewNoteBucket(),
		txs:      NewTransactionBucket(),
	}
}

// Network returns the network the engine serves.
func (e *Engine) Network() quorum.Network {
	return e.network
}

// Sync refreshes the view of the latest committed state and returns its
// height.
func (e *Engine) Sync() (int64, error) {
	id, err := e.store.LatestVersion()
	if err != nil {
		return 0, errors.Wrap(err, "latest version")
	}
	e.height = id.Version
	return e.height, nil
}

// Height returns the height observed by the last Sync or commit.
func (e *Engine) Height() int64 {
	return e.height
}

// Account returns the state of given account.
func (e *Engine) Account(id quorum.AccountID) (*Account, error) {
	db := e.store.CacheWrap()
	defer db.Discard()
	return e.accounts.GetAccount(db, id)
}

// Note returns the note with given id.
func (e *Engine) Note(id quorum.Word) (*Note, error) {
	db := e.store.CacheWrap()
	defer db.Discard()
	return e.notes.GetNote(db, id)
}

// Transaction returns the record of an executed transaction.
func (e *Engine) Transaction(id quorum.Word) (*Transaction, error) {
	db := e.store.CacheWrap()
	defer db.Discard()
	return e.txs.GetTransaction(db, id)
}

// ConsumableNotes returns unconsumed notes targeted at given account.
func (e *Engine) ConsumableNotes(id quorum.AccountID) ([]*Note, error) {
	db := e.store.CacheWrap()
	defer db.Discard()
	if _, err := e.accounts.GetAccount(db, id); err != nil {
		return nil, err
	}
	notes, err := e.notes.ByTarget(db, id)
	if err != nil {
		return nil, err
	}
	res := notes[:0]
	for _, n := range notes {
		if !n.Consumed {
			res = append(res, n)
		}
	}
	return res, nil
}

// Balances returns the vault of given account.
func (e *Engine) Balances(id quorum.AccountID) ([]*Asset, error) {
	acc, err := e.Account(id)
	if err != nil {
		return nil, err
	}
	return acc.Vault, nil
}

// CreateAccount registers a new multisig account with given storage.
func (e *Engine) CreateAccount(slots []*StorageSlot) (*Account, error) {
	return e.create(&Account{Kind: KindMultisig, Slots: slots})
}

// CreateFaucet registers a new fungible faucet.
func (e *Engine) CreateFaucet(symbol string, decimals uint32, maxSupply uint64) (*Account, error) {
	return e.create(&Account{
		Kind: KindFaucet,
		Faucet: &FaucetInfo{
			Symbol:    symbol,
			Decimals:  decimals,
			MaxSupply: maxSupply,
		},
	})
}

func (e *Engine) create(acc *Account) (*Account, error) {
	err := e.commit(func(db quorum.KVStore) error {
		id, err := e.newAccountID(db)
		if err != nil {
			return err
		}
		acc.ID = id.Bytes()
		acc.Created = e.height + 1
		return e.accounts.SaveAccount(db, acc)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("Account created", "id", acc.AccountID(), "kind", acc.Kind)
	return acc, nil
}

func (e *Engine) newAccountID(db quorum.KVStore) (quorum.AccountID, error) {
	var id quorum.AccountID
	for {
		if _, err := io.ReadFull(e.random, id[:]); err != nil {
			return id, errors.Wrapf(errors.ErrHuman, "random: %s", err)
		}
		ok, err := e.accounts.Has(db, id[:])
		if err != nil {
			return id, err
		}
		if !ok && !id.IsZero() {
			return id, nil
		}
	}
}

// DryRun executes the request and discards all changes. It returns an
// UnauthorizedError when the auth procedure rejects the request.
func (e *Engine) DryRun(id quorum.AccountID, req *TransactionRequest) (*ExecutedTransaction, error) {
	db := e.store.CacheWrap()
	defer db.Discard()
	return e.execute(db, id, req)
}

// Submit executes the request and commits a new ledger version.
func (e *Engine) Submit(id quorum.AccountID, req *TransactionRequest) (*ExecutedTransaction, error) {
	var res *ExecutedTransaction
	err := e.commit(func(db quorum.KVStore) error {
		var err error
		res, err = e.execute(db, id, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Height = e.height
	e.logger.Info("Transaction submitted", "id", res.ID, "account", id, "height", e.height)
	return res, nil
}

// commit runs fn in a cache wrap and commits the changes if it succeeds.
func (e *Engine) commit(fn func(db quorum.KVStore) error) error {
	db := e.store.CacheWrap()
	if err := fn(db); err != nil {
		db.Discard()
		return err
	}
	if err := db.Write(); err != nil {
		e.store.Rollback()
		return errors.Wrap(err, "write cache")
	}
	cid, err := e.store.Commit()
	if err != nil {
		e.store.Rollback()
		return errors.Wrap(err, "commit")
	}
	e.height = cid.Version
	e.logger.Debug("Commit synced", "height", cid.Version, "hash", fmt.Sprintf("%X", cid.Hash))
	return nil
}

func (e *Engine) execute(db quorum.KVStore, id quorum.AccountID, req *TransactionRequest) (*ExecutedTransaction, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "request")
	}
	acc, err := e.accounts.GetAccount(db, id)
	if err != nil {
		return nil, err
	}
	summary := &TransactionSummary{
		Account:      acc.ID,
		InitialNonce: acc.Nonce,
	}
	height := e.height + 1

	for _, raw := range req.InputNotes {
		noteID, _ := quorum.WordFromBytes(raw)
		if err := e.consume(db, acc, noteID); err != nil {
			return nil, err
		}
		summary.InputNotes = append(summary.InputNotes, raw)
	}

	outputs := make([]*Note, 0, len(req.OutputNotes))
	for i, out := range req.OutputNotes {
		n, err := e.produce(acc, uint64(i), out, height)
		if err != nil {
			return nil, errors.Wrapf(err, "output note %d", i)
		}
		outputs = append(outputs, n)
		summary.OutputNotes = append(summary.OutputNotes, n.ID)
	}

	delta, err := proto.Marshal(acc)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrModel, "account delta: %s", err)
	}
	summary.Delta = quorum.Hash(delta).Bytes()
	message, err := summary.Commitment()
	if err != nil {
		return nil, err
	}

	if err := authenticate(acc, message, req.Advice, summary); err != nil {
		return nil, err
	}

	acc.Nonce++
	if err := e.accounts.SaveAccount(db, acc); err != nil {
		return nil, err
	}
	for _, n := range outputs {
		if err := e.notes.SaveNote(db, n); err != nil {
			return nil, err
		}
	}
	txID := TransactionID(message, acc.Nonce)
	tx := &Transaction{
		ID:           txID.Bytes(),
		Account:      acc.ID,
		Commitment:   message.Bytes(),
		InitialNonce: summary.InitialNonce,
		FinalNonce:   acc.Nonce,
		InputNotes:   summary.InputNotes,
		OutputNotes:  summary.OutputNotes,
		Advice:       req.Advice,
		Height:       height,
	}
	if err := e.txs.SaveTransaction(db, tx); err != nil {
		return nil, err
	}
	return &ExecutedTransaction{
		ID:      txID,
		Summary: summary,
		Outputs: outputs,
		Height:  height,
	}, nil
}

func (e *Engine) consume(db quorum.KVStore, acc *Account, id quorum.Word) error {
	n, err := e.notes.GetNote(db, id)
	if err != nil {
		return err
	}
	if n.Consumed {
		return errors.Wrapf(errors.ErrState, "note %s already consumed", id)
	}
	if !acc.AccountID().Equals(toID(n.Target)) {
		return errors.Wrapf(errors.ErrUnauthorized, "note %s is not targeted at this account", id)
	}
	if acc.Kind == KindFaucet {
		return errors.Wrap(errors.ErrInput, "faucets cannot consume notes")
	}
	for _, a := range n.Assets {
		if err := acc.deposit(a); err != nil {
			return err
		}
	}
	n.Consumed = true
	return e.notes.SaveNote(db, n)
}

func toID(raw []byte) quorum.AccountID {
	var id quorum.AccountID
	copy(id[:], raw)
	return id
}

func (e *Engine) produce(acc *Account, index uint64, out *OutputNote, height int64) (*Note, error) {
	for _, a := range out.Assets {
		if acc.Kind == KindFaucet {
			if err := issue(acc, a); err != nil {
				return nil, err
			}
			continue
		}
		if err := acc.withdraw(a); err != nil {
			return nil, err
		}
	}
	serial := noteSerial(acc, index, out)
	return &Note{
		ID:     quorum.Merge(serial, assetsCommitment(out.Assets)).Bytes(),
		Sender: acc.ID,
		Target: out.Target,
		Assets: out.Assets,
		Type:   out.Type,
		Serial: serial.Bytes(),
		Height: height,
	}, nil
}

func issue(faucet *Account, a *Asset) error {
	if !faucet.AccountID().Equals(a.FaucetID()) {
		return errors.Wrap(errors.ErrInput, "faucet can only issue its own asset")
	}
	issued := faucet.Faucet.Issued + a.Amount
	if issued < faucet.Faucet.Issued || issued > faucet.Faucet.MaxSupply {
		return errors.Wrapf(errors.ErrOverflow, "max supply %d exceeded", faucet.Faucet.MaxSupply)
	}
	faucet.Faucet.Issued = issued
	return nil
}

// noteSerial is derived from the sender state and the output position, so
// that the same request against the same state always yields the same notes.
func noteSerial(acc *Account, index uint64, out *OutputNote) quorum.Word {
	buf := make([]byte, 0, 64)
	buf = append(buf, acc.ID...)
	buf = appendUint64(buf, acc.Nonce)
	buf = appendUint64(buf, index)
	buf = append(buf, out.Target...)
	buf = appendUint64(buf, uint64(out.Type))
	return quorum.Merge(quorum.Hash(buf), assetsCommitment(out.Assets))
}

func assetsCommitment(assets []*Asset) quorum.Word {
	buf := make([]byte, 0, len(assets)*(quorum.AccountIDLen+8))
	for _, a := range assets {
		buf = append(buf, a.Faucet...)
		buf = appendUint64(buf, a.Amount)
	}
	return quorum.Hash(buf)
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// authenticate runs the account auth procedure. Multisig accounts need at
// least threshold approver slots with a valid prepared signature in the
// advice map, keyed by Merge(slot commitment, message).
func authenticate(acc *Account, message quorum.Word, advice []*AdviceEntry, summary *TransactionSummary) error {
	switch acc.Kind {
	case KindFaucet:
		return nil
	case KindMultisig:
	default:
		return errors.Wrapf(errors.ErrState, "no auth procedure for %s accounts", acc.Kind)
	}

	cfg, err := acc.SlotValue(ThresholdSlot)
	if err != nil {
		return errors.Wrap(err, "threshold config")
	}
	threshold, count := cfg[0].Uint64(), cfg[1].Uint64()
	if threshold == 0 || threshold > count {
		return errors.Wrapf(errors.ErrState, "invalid threshold %d of %d", threshold, count)
	}

	var valid uint64
	for i := uint64(0); i < count; i++ {
		commitment, err := acc.MapItem(ApproverSlot, quorum.NewWord(i, 0, 0, 0))
		if err != nil {
			return errors.Wrapf(err, "approver %d", i)
		}
		sig, ok := lookupAdvice(advice, quorum.Merge(commitment, message))
		if !ok {
			continue
		}
		if crypto.VerifyPreparedSignature(sig, message, commitment) {
			valid++
		}
	}
	if valid < threshold {
		return &UnauthorizedError{
			Summary:   summary,
			Valid:     valid,
			Threshold: threshold,
		}
	}
	return nil
}
