package multisig

import (
	"crypto/ecdsa"
	"testing"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/crypto"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/quorumtest"
	"github.com/iov-one/quorum/store/iavl"
	"github.com/iov-one/quorum/x/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine  *ledger.Engine
	keys    []*ecdsa.PrivateKey
	account quorum.AccountID
	faucet  quorum.AccountID
}

// newFixture creates a funded threshold of n multisig account.
func newFixture(t *testing.T, threshold uint64, n int, funds uint64) fixture {
	t.Helper()
	e := ledger.NewEngine(iavl.MockCommitStore(), quorum.Testnet, nil)
	keys := quorumtest.NewKeys(t, n)
	acc, err := CreateAccount(e, quorumtest.PublicKeys(keys...), threshold)
	require.NoError(t, err)
	faucet, err := e.CreateFaucet("POL", 6, 1000000)
	require.NoError(t, err)
	f := fixture{
		engine:  e,
		keys:    keys,
		account: acc.AccountID(),
		faucet:  faucet.AccountID(),
	}
	if funds == 0 {
		return f
	}

	minted, err := e.Submit(f.faucet, ledger.NewMintRequest(f.faucet, f.account, funds))
	require.NoError(t, err)
	p, err := Propose(e, f.account, Consume{Notes: []quorum.Word{minted.Outputs[0].NoteID()}})
	require.NoError(t, err)
	sigs := make([][]byte, n)
	for i := 0; i < int(threshold); i++ {
		sigs[i] = quorumtest.Sign(t, keys[i], p.Commitment)
	}
	_, err = Execute(e, f.account, p.Request, p.Summary, sigs)
	require.NoError(t, err)
	return f
}

// sign returns a sparse signature set with signatures of given slots.
func (f fixture) sign(t *testing.T, p *Proposal, slots ...int) [][]byte {
	sigs := make([][]byte, len(f.keys))
	for _, s := range slots {
		sigs[s] = quorumtest.Sign(t, f.keys[s], p.Commitment)
	}
	return sigs
}

func TestProposeAndExecute(t *testing.T) {
	f := newFixture(t, 2, 3, 1000)
	recipient := quorumtest.RandomAccountID(t)

	cases := map[string]struct {
		slots   []int
		wantErr *errors.Error
	}{
		"no signatures": {
			wantErr: errors.ErrAuthorization,
		},
		"threshold minus one": {
			slots:   []int{1},
			wantErr: errors.ErrAuthorization,
		},
		"threshold": {
			slots: []int{0, 1},
		},
		"all": {
			slots: []int{0, 1, 2},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			p, err := Propose(f.engine, f.account, Pay{Recipient: recipient, Faucet: f.faucet, Amount: 10})
			require.NoError(t, err)

			txID, err := Execute(f.engine, f.account, p.Request, p.Summary, f.sign(t, p, tc.slots...))
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tc.wantErr.Is(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.False(t, txID.IsEmpty())
		})
	}
}

func TestTwoOfThreePayment(t *testing.T) {
	f := newFixture(t, 2, 3, 500)
	recipient := quorumtest.RandomAccountID(t)

	p, err := Propose(f.engine, f.account, Pay{Recipient: recipient, Faucet: f.faucet, Amount: 100})
	require.NoError(t, err)

	txID, err := Execute(f.engine, f.account, p.Request, p.Summary, f.sign(t, p, 0, 2))
	require.NoError(t, err)

	tx, err := f.engine.Transaction(txID)
	require.NoError(t, err)
	require.Len(t, tx.Advice, 2)

	acc, err := f.engine.Account(f.account)
	require.NoError(t, err)
	c0, err := ApproverCommitment(acc, 0)
	require.NoError(t, err)
	c2, err := ApproverCommitment(acc, 2)
	require.NoError(t, err)

	want := map[quorum.Word]bool{
		AdviceKey(c0, p.Commitment): true,
		AdviceKey(c2, p.Commitment): true,
	}
	for _, e := range tx.Advice {
		k, err := quorum.WordFromBytes(e.Key)
		require.NoError(t, err)
		assert.True(t, want[k], "unexpected advice key %s", k)
		delete(want, k)
	}
	assert.Empty(t, want)

	assert.EqualValues(t, 400, acc.Balance(f.faucet))
}

func TestProposeIsDeterministic(t *testing.T) {
	f := newFixture(t, 2, 3, 500)
	intent := BatchPay{Payments: []Pay{
		{Recipient: quorumtest.RandomAccountID(t), Faucet: f.faucet, Amount: 10},
		{Recipient: quorumtest.RandomAccountID(t), Faucet: f.faucet, Amount: 20},
	}}

	p1, err := Propose(f.engine, f.account, intent)
	require.NoError(t, err)
	p2, err := Propose(f.engine, f.account, intent)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestProposeErrors(t *testing.T) {
	f := newFixture(t, 1, 2, 50)

	cases := map[string]struct {
		account quorum.AccountID
		intent  Intent
		wantErr *errors.Error
	}{
		"faucet finalizes": {
			account: f.faucet,
			intent:  Pay{Recipient: f.account, Faucet: f.faucet, Amount: 5},
			wantErr: errors.ErrProtocolViolation,
		},
		"unknown note": {
			account: f.account,
			intent:  Consume{Notes: []quorum.Word{quorum.NewWord(1, 2, 3, 4)}},
			wantErr: errors.ErrProposal,
		},
		"no notes": {
			account: f.account,
			intent:  Consume{},
			wantErr: errors.ErrProposal,
		},
		"insufficient funds": {
			account: f.account,
			intent:  Pay{Recipient: f.faucet, Faucet: f.faucet, Amount: 51},
			wantErr: errors.ErrProposal,
		},
		"empty batch": {
			account: f.account,
			intent:  BatchPay{},
			wantErr: errors.ErrProposal,
		},
		"zero amount": {
			account: f.account,
			intent:  Pay{Recipient: f.faucet, Faucet: f.faucet},
			wantErr: errors.ErrProposal,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			_, err := Propose(f.engine, tc.account, tc.intent)
			require.Error(t, err)
			assert.True(t, tc.wantErr.Is(err), "unexpected error: %v", err)
		})
	}
}

func TestExecuteSignatureHandling(t *testing.T) {
	f := newFixture(t, 2, 3, 500)
	recipient := quorumtest.RandomAccountID(t)
	propose := func() *Proposal {
		p, err := Propose(f.engine, f.account, Pay{Recipient: recipient, Faucet: f.faucet, Amount: 1})
		require.NoError(t, err)
		return p
	}

	t.Run("slots beyond count are ignored", func(t *testing.T) {
		p := propose()
		sigs := append(f.sign(t, p, 0, 1), []byte("garbage"), []byte{0x01})
		_, err := Execute(f.engine, f.account, p.Request, p.Summary, sigs)
		require.NoError(t, err)
	})

	t.Run("short signature array", func(t *testing.T) {
		p := propose()
		sigs := f.sign(t, p, 0, 1)[:2]
		_, err := Execute(f.engine, f.account, p.Request, p.Summary, sigs)
		require.NoError(t, err)
	})

	t.Run("signature in wrong slot", func(t *testing.T) {
		p := propose()
		sigs := f.sign(t, p, 0)
		sigs[1] = quorumtest.Sign(t, f.keys[2], p.Commitment)
		_, err := Execute(f.engine, f.account, p.Request, p.Summary, sigs)
		assert.True(t, errors.ErrAuthorization.Is(err), "unexpected error: %v", err)
	})

	t.Run("malformed envelope", func(t *testing.T) {
		p := propose()
		sigs := f.sign(t, p, 0)
		sigs[1] = []byte{0x01, 0x02}
		_, err := Execute(f.engine, f.account, p.Request, p.Summary, sigs)
		assert.True(t, errors.ErrSignatureEncoding.Is(err), "unexpected error: %v", err)
	})

	t.Run("summary of another account", func(t *testing.T) {
		p := propose()
		_, err := Execute(f.engine, f.faucet, p.Request, p.Summary, f.sign(t, p, 0, 1))
		assert.True(t, errors.ErrInput.Is(err), "unexpected error: %v", err)
	})

	t.Run("replayed proposal", func(t *testing.T) {
		p := propose()
		_, err := Execute(f.engine, f.account, p.Request, p.Summary, f.sign(t, p, 1, 2))
		require.NoError(t, err)
		// The account nonce moved, the signed summary no longer matches.
		_, err = Execute(f.engine, f.account, p.Request, p.Summary, f.sign(t, p, 1, 2))
		assert.True(t, errors.ErrAuthorization.Is(err), "unexpected error: %v", err)
	})
}

func TestCreateAccount(t *testing.T) {
	e := ledger.NewEngine(iavl.MockCommitStore(), quorum.Testnet, nil)
	keys := quorumtest.PublicKeys(quorumtest.NewKeys(t, 3)...)

	acc, err := CreateAccount(e, keys, 2)
	require.NoError(t, err)
	threshold, count, err := Approvers(acc)
	require.NoError(t, err)
	assert.EqualValues(t, 2, threshold)
	assert.EqualValues(t, 3, count)
	for i, k := range keys {
		c, err := ApproverCommitment(acc, uint64(i))
		require.NoError(t, err)
		assert.Equal(t, crypto.KeyCommitment(k), c)
	}

	cases := map[string]struct {
		keys      []crypto.PublicKey
		threshold uint64
		wantErr   *errors.Error
	}{
		"no approvers": {
			threshold: 1,
			wantErr:   errors.ErrEmpty,
		},
		"zero threshold": {
			keys:    keys,
			wantErr: errors.ErrInput,
		},
		"threshold above count": {
			keys:      keys,
			threshold: 4,
			wantErr:   errors.ErrInput,
		},
		"duplicated key": {
			keys:      []crypto.PublicKey{keys[0], keys[1], keys[0]},
			threshold: 2,
			wantErr:   errors.ErrDuplicate,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			_, err := CreateAccount(e, tc.keys, tc.threshold)
			assert.True(t, tc.wantErr.Is(err), "unexpected error: %v", err)
		})
	}
}
