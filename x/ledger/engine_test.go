package ledger

import (
	"crypto/ecdsa"
	"testing"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/crypto"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/quorumtest"
	"github.com/iov-one/quorum/store/iavl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(iavl.MockCommitStore(), quorum.Testnet, nil)
	_, err := e.Sync()
	require.NoError(t, err)
	return e
}

// multisigSlots builds the storage layout of a multisig account.
func multisigSlots(threshold uint64, keys ...*ecdsa.PrivateKey) []*StorageSlot {
	approvers := &StorageSlot{Index: ApproverSlot}
	for i, k := range keys {
		approvers.SetItem(quorum.NewWord(uint64(i), 0, 0, 0), crypto.KeyCommitment(crypto.PublicKeyOf(k)))
	}
	return []*StorageSlot{
		NewValueSlot(ThresholdSlot, quorum.NewWord(threshold, uint64(len(keys)), 0, 0)),
		approvers,
	}
}

// fund mints amount to the account and consumes the note with signatures of
// given keys.
func fund(t *testing.T, e *Engine, acc *Account, faucet *Account, amount uint64, signers ...*ecdsa.PrivateKey) {
	t.Helper()
	minted, err := e.Submit(faucet.AccountID(), NewMintRequest(faucet.AccountID(), acc.AccountID(), amount))
	require.NoError(t, err)
	require.Len(t, minted.Outputs, 1)

	req := &TransactionRequest{}
	req.AddInputNote(minted.Outputs[0].NoteID())
	sign(t, e, acc, req, signers...)
	_, err = e.Submit(acc.AccountID(), req)
	require.NoError(t, err)
}

// sign dry runs the request and adds prepared signatures of all given keys.
func sign(t *testing.T, e *Engine, acc *Account, req *TransactionRequest, signers ...*ecdsa.PrivateKey) quorum.Word {
	t.Helper()
	_, err := e.DryRun(acc.AccountID(), req)
	u, ok := AsUnauthorized(err)
	require.True(t, ok, "unexpected dry run result: %v", err)
	msg, err := u.Summary.Commitment()
	require.NoError(t, err)
	for _, k := range signers {
		raw, err := crypto.DecodeExternalSignature(quorumtest.Sign(t, k, msg))
		require.NoError(t, err)
		felts, err := crypto.PrepareSignature(raw, msg)
		require.NoError(t, err)
		commitment := crypto.KeyCommitment(crypto.PublicKeyOf(k))
		req.SetAdvice(quorum.Merge(commitment, msg), felts)
	}
	return msg
}

func TestCreateAccounts(t *testing.T) {
	e := newTestEngine(t)
	keys := quorumtest.NewKeys(t, 2)

	acc, err := e.CreateAccount(multisigSlots(2, keys...))
	require.NoError(t, err)
	assert.Equal(t, KindMultisig, acc.Kind)
	assert.EqualValues(t, 1, e.Height())

	loaded, err := e.Account(acc.AccountID())
	require.NoError(t, err)
	cfg, err := loaded.SlotValue(ThresholdSlot)
	require.NoError(t, err)
	assert.Equal(t, quorum.NewWord(2, 2, 0, 0), cfg)
	c1, err := loaded.MapItem(ApproverSlot, quorum.NewWord(1, 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, crypto.KeyCommitment(crypto.PublicKeyOf(keys[1])), c1)

	faucet, err := e.CreateFaucet("POL", 8, 1000)
	require.NoError(t, err)
	assert.Equal(t, KindFaucet, faucet.Kind)
	assert.EqualValues(t, 2, e.Height())

	_, err = e.CreateFaucet("lower", 8, 1000)
	assert.True(t, errors.ErrInput.Is(err))

	_, err = e.Account(quorumtest.RandomAccountID(t))
	assert.True(t, errors.ErrNotFound.Is(err))
}

// brokenCommitStore fails Commit while broken is set.
type brokenCommitStore struct {
	iavl.CommitStore
	broken bool
}

func (s *brokenCommitStore) Commit() (quorum.CommitID, error) {
	if s.broken {
		return quorum.CommitID{}, errors.Wrap(errors.ErrDatabase, "disk full")
	}
	return s.CommitStore.Commit()
}

func TestFailedCommitLeavesNoTrace(t *testing.T) {
	db := &brokenCommitStore{CommitStore: iavl.MockCommitStore()}
	e := NewEngine(db, quorum.Testnet, nil)
	_, err := e.Sync()
	require.NoError(t, err)

	faucet, err := e.CreateFaucet("POL", 6, 1000)
	require.NoError(t, err)
	wallet, err := e.CreateAccount(multisigSlots(1, quorumtest.NewKey(t)))
	require.NoError(t, err)
	target := wallet.AccountID()

	db.broken = true
	_, err = e.Submit(faucet.AccountID(), NewMintRequest(faucet.AccountID(), target, 100))
	require.Error(t, err)
	assert.True(t, errors.ErrDatabase.Is(err))
	assert.EqualValues(t, 2, e.Height())

	notes, err := e.ConsumableNotes(target)
	require.NoError(t, err)
	assert.Empty(t, notes)
	loaded, err := e.Account(faucet.AccountID())
	require.NoError(t, err)
	assert.EqualValues(t, 0, loaded.Faucet.Issued)
	assert.Equal(t, faucet.Nonce, loaded.Nonce)

	db.broken = false
	_, err = e.Submit(faucet.AccountID(), NewMintRequest(faucet.AccountID(), target, 100))
	require.NoError(t, err)
	assert.EqualValues(t, 3, e.Height())
	notes, err = e.ConsumableNotes(target)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestMintAndConsume(t *testing.T) {
	e := newTestEngine(t)
	keys := quorumtest.NewKeys(t, 3)
	acc, err := e.CreateAccount(multisigSlots(2, keys...))
	require.NoError(t, err)
	faucet, err := e.CreateFaucet("POL", 8, 1000)
	require.NoError(t, err)

	minted, err := e.Submit(faucet.AccountID(), NewMintRequest(faucet.AccountID(), acc.AccountID(), 400))
	require.NoError(t, err)

	notes, err := e.ConsumableNotes(acc.AccountID())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, minted.Outputs[0].ID, notes[0].ID)
	assert.Equal(t, faucet.ID, notes[0].Sender)

	f, err := e.Account(faucet.AccountID())
	require.NoError(t, err)
	assert.EqualValues(t, 400, f.Faucet.Issued)
	assert.EqualValues(t, 1, f.Nonce)

	_, err = e.Submit(faucet.AccountID(), NewMintRequest(faucet.AccountID(), acc.AccountID(), 601))
	assert.True(t, errors.ErrOverflow.Is(err))

	req := &TransactionRequest{}
	req.AddInputNote(notes[0].NoteID())
	sign(t, e, acc, req, keys[0], keys[2])
	_, err = e.Submit(acc.AccountID(), req)
	require.NoError(t, err)

	balances, err := e.Balances(acc.AccountID())
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.EqualValues(t, 400, balances[0].Amount)

	notes, err = e.ConsumableNotes(acc.AccountID())
	require.NoError(t, err)
	assert.Empty(t, notes)

	_, err = e.DryRun(acc.AccountID(), req)
	assert.True(t, errors.ErrState.Is(err), "consumed twice: %v", err)
}

func TestMultisigAuth(t *testing.T) {
	e := newTestEngine(t)
	keys := quorumtest.NewKeys(t, 3)
	outsider := quorumtest.NewKey(t)
	acc, err := e.CreateAccount(multisigSlots(2, keys...))
	require.NoError(t, err)
	faucet, err := e.CreateFaucet("POL", 8, 1000)
	require.NoError(t, err)
	fund(t, e, acc, faucet, 500, keys[0], keys[1])

	recipient := quorumtest.RandomAccountID(t)
	pay := func() *TransactionRequest {
		return &TransactionRequest{
			OutputNotes: []*OutputNote{NewPayToID(recipient, NewAsset(faucet.AccountID(), 100))},
		}
	}

	cases := map[string]struct {
		signers []*ecdsa.PrivateKey
		wantErr *errors.Error
	}{
		"no signatures": {
			wantErr: errors.ErrUnauthorized,
		},
		"below threshold": {
			signers: keys[:1],
			wantErr: errors.ErrUnauthorized,
		},
		"outsider does not count": {
			signers: []*ecdsa.PrivateKey{keys[1], outsider},
			wantErr: errors.ErrUnauthorized,
		},
		"threshold": {
			signers: []*ecdsa.PrivateKey{keys[0], keys[2]},
		},
		"all approvers": {
			signers: keys,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			req := pay()
			sign(t, e, acc, req, tc.signers...)
			res, err := e.DryRun(acc.AccountID(), req)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tc.wantErr.Is(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, res.Outputs, 1)
		})
	}
}

func TestDryRunIsDeterministic(t *testing.T) {
	e := newTestEngine(t)
	keys := quorumtest.NewKeys(t, 2)
	acc, err := e.CreateAccount(multisigSlots(1, keys...))
	require.NoError(t, err)
	faucet, err := e.CreateFaucet("POL", 8, 1000)
	require.NoError(t, err)
	fund(t, e, acc, faucet, 500, keys[0])

	height := e.Height()
	req := &TransactionRequest{
		OutputNotes: []*OutputNote{NewPayToID(quorumtest.RandomAccountID(t), NewAsset(faucet.AccountID(), 10))},
	}
	_, err1 := e.DryRun(acc.AccountID(), req)
	_, err2 := e.DryRun(acc.AccountID(), req)
	u1, ok := AsUnauthorized(err1)
	require.True(t, ok)
	u2, ok := AsUnauthorized(err2)
	require.True(t, ok)
	c1, err := u1.Summary.Commitment()
	require.NoError(t, err)
	c2, err := u2.Summary.Commitment()
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
	assert.Equal(t, height, e.Height(), "dry run must not commit")

	balances, err := e.Balances(acc.AccountID())
	require.NoError(t, err)
	assert.EqualValues(t, 500, balances[0].Amount)
}

func TestSubmitRecordsTransaction(t *testing.T) {
	e := newTestEngine(t)
	keys := quorumtest.NewKeys(t, 2)
	acc, err := e.CreateAccount(multisigSlots(1, keys...))
	require.NoError(t, err)
	faucet, err := e.CreateFaucet("POL", 8, 1000)
	require.NoError(t, err)
	fund(t, e, acc, faucet, 300, keys[1])

	req := &TransactionRequest{
		OutputNotes: []*OutputNote{NewPayToID(quorumtest.RandomAccountID(t), NewAsset(faucet.AccountID(), 300))},
	}
	msg := sign(t, e, acc, req, keys[0])
	res, err := e.Submit(acc.AccountID(), req)
	require.NoError(t, err)
	assert.Equal(t, TransactionID(msg, 2), res.ID)

	tx, err := e.Transaction(res.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.Bytes(), tx.Commitment)
	assert.EqualValues(t, 1, tx.InitialNonce)
	assert.EqualValues(t, 2, tx.FinalNonce)
	assert.Len(t, tx.Advice, 1)
	assert.Equal(t, e.Height(), tx.Height)

	balances, err := e.Balances(acc.AccountID())
	require.NoError(t, err)
	assert.Empty(t, balances)

	_, err = e.DryRun(acc.AccountID(), req)
	assert.True(t, errors.ErrAmount.Is(err), "spent twice: %v", err)
}

func TestPersistentStore(t *testing.T) {
	db, cleanup := quorumtest.CommitStore(t)
	defer cleanup()

	e := NewEngine(db, quorum.Testnet, nil)
	faucet, err := e.CreateFaucet("POL", 2, 100)
	require.NoError(t, err)

	h, err := e.Sync()
	require.NoError(t, err)
	assert.EqualValues(t, 1, h)

	loaded, err := e.Account(faucet.AccountID())
	require.NoError(t, err)
	assert.Equal(t, "POL", loaded.Faucet.Symbol)
}
