package ledger

import (
	"testing"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/quorumtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvice(t *testing.T) {
	var req TransactionRequest
	k1 := quorum.NewWord(1, 0, 0, 0)
	k2 := quorum.NewWord(2, 0, 0, 0)

	req.SetAdvice(k2, []quorum.Felt{1})
	req.SetAdvice(k1, []quorum.Felt{2})
	req.SetAdvice(k2, []quorum.Felt{3, 4})

	require.Len(t, req.Advice, 2)
	v, ok := req.GetAdvice(k2)
	require.True(t, ok)
	assert.Equal(t, []quorum.Felt{3, 4}, v)
	_, ok = req.GetAdvice(quorum.NewWord(3, 0, 0, 0))
	assert.False(t, ok)
}

func TestRequestValidate(t *testing.T) {
	target := quorumtest.RandomAccountID(t)
	faucet := quorumtest.RandomAccountID(t)
	note := quorum.NewWord(9, 9, 9, 9).Bytes()

	cases := map[string]struct {
		req     *TransactionRequest
		wantErr *errors.Error
	}{
		"pay": {
			req: NewMintRequest(faucet, target, 5),
		},
		"consume": {
			req: &TransactionRequest{InputNotes: [][]byte{note}},
		},
		"empty": {
			req:     &TransactionRequest{},
			wantErr: errors.ErrEmpty,
		},
		"duplicated input": {
			req:     &TransactionRequest{InputNotes: [][]byte{note, note}},
			wantErr: errors.ErrDuplicate,
		},
		"zero amount": {
			req:     NewMintRequest(faucet, target, 0),
			wantErr: errors.ErrAmount,
		},
		"bad note id": {
			req:     &TransactionRequest{InputNotes: [][]byte{{1, 2}}},
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.True(t, tc.wantErr.Is(err), "unexpected error: %v", err)
		})
	}
}

func TestDecodeRequest(t *testing.T) {
	req := NewMintRequest(quorumtest.RandomAccountID(t), quorumtest.RandomAccountID(t), 5)
	req.SetAdvice(quorum.NewWord(1, 2, 3, 4), []quorum.Felt{7})
	raw, err := EncodeRequest(req)
	require.NoError(t, err)

	got, err := DecodeRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, req.OutputNotes[0].Target, got.OutputNotes[0].Target)
	v, ok := got.GetAdvice(quorum.NewWord(1, 2, 3, 4))
	require.True(t, ok)
	assert.Equal(t, []quorum.Felt{7}, v)

	_, err = DecodeRequest([]byte{0xff, 0xff})
	assert.True(t, errors.ErrInput.Is(err))

	_, err = DecodeSummary([]byte{0x0a, 0x01, 0x01})
	assert.True(t, errors.ErrInput.Is(err))
}

func TestAsUnauthorized(t *testing.T) {
	s := &TransactionSummary{Account: make([]byte, quorum.AccountIDLen)}
	err := errors.Wrap(&UnauthorizedError{Summary: s, Threshold: 2}, "dry run")

	assert.True(t, errors.ErrUnauthorized.Is(err))
	u, ok := AsUnauthorized(err)
	require.True(t, ok)
	assert.Equal(t, s, u.Summary)

	_, ok = AsUnauthorized(errors.ErrUnauthorized)
	assert.False(t, ok)
}
