package crypto

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeExternalSignature(t *testing.T) {
	valid := make([]byte, EnvelopeLen)
	valid[0] = SchemeECDSA
	valid[1] = 0xaa
	valid[65] = 28

	badTag := append([]byte(nil), valid...)
	badTag[0] = 7

	badV := append([]byte(nil), valid...)
	badV[65] = 5

	long := append(append([]byte(nil), valid...), 1, 2, 3)

	cases := map[string]struct {
		wire    []byte
		wantV   byte
		wantErr *errors.Error
	}{
		"valid": {
			wire:  valid,
			wantV: 1,
		},
		"trailing bytes are ignored": {
			wire:  long,
			wantV: 1,
		},
		"empty": {
			wire:    nil,
			wantErr: errors.ErrSignatureEncoding,
		},
		"one byte short": {
			wire:    valid[:EnvelopeLen-1],
			wantErr: errors.ErrSignatureEncoding,
		},
		"unknown scheme": {
			wire:    badTag,
			wantErr: errors.ErrSignatureEncoding,
		},
		"invalid recovery id": {
			wire:    badV,
			wantErr: errors.ErrSignatureEncoding,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			sig, err := DecodeExternalSignature(tc.wire)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tc.wantErr.Is(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantV, sig.V())
			assert.Equal(t, byte(0xaa), sig.R()[0])
			assert.Len(t, sig.S(), 32)
		})
	}
}

func TestDecodeExternalSignatureHex(t *testing.T) {
	_, err := DecodeExternalSignatureHex("0xnothex")
	require.Error(t, err)
	assert.True(t, errors.ErrSignatureEncoding.Is(err))

	_, err = DecodeExternalSignatureHex("0x01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected at least 67 bytes")
}

func TestPrepareSignature(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	other, err := GenerateKey()
	require.NoError(t, err)

	msg := quorum.NewWord(1, 2, 3, 4)
	wire, err := SignEnvelope(key, msg)
	require.NoError(t, err)
	require.Len(t, wire, EnvelopeLen)

	sig, err := DecodeExternalSignatureHex("0x" + hex.EncodeToString(wire))
	require.NoError(t, err)

	felts, err := PrepareSignature(sig, msg)
	require.NoError(t, err)
	assert.Len(t, felts, PreparedSignatureLen)

	again, err := PrepareSignature(sig, msg)
	require.NoError(t, err)
	assert.Equal(t, felts, again)

	pk, _, err := UnpackPreparedSignature(felts)
	require.NoError(t, err)
	assert.Equal(t, PublicKeyOf(key), pk)

	commitment := KeyCommitment(PublicKeyOf(key))
	assert.True(t, VerifyPreparedSignature(felts, msg, commitment))
	assert.False(t, VerifyPreparedSignature(felts, quorum.NewWord(4, 3, 2, 1), commitment))
	assert.False(t, VerifyPreparedSignature(felts, msg, KeyCommitment(PublicKeyOf(other))))
	assert.False(t, VerifyPreparedSignature(felts[:3], msg, commitment))
}

func TestPrepareHighSSignature(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	msg := quorum.NewWord(9, 8, 7, 6)
	wire, err := SignEnvelope(key, msg)
	require.NoError(t, err)
	low, err := DecodeExternalSignature(wire)
	require.NoError(t, err)

	// Same signature with s replaced by N - s and the recovery id flipped.
	high := low
	s := new(big.Int).SetBytes(low.S())
	new(big.Int).Sub(curveN, s).FillBytes(high[32:64])
	high[64] = low.V() ^ 1
	require.True(t, new(big.Int).SetBytes(high.S()).Cmp(curveHalfN) > 0)

	lowFelts, err := PrepareSignature(low, msg)
	require.NoError(t, err)
	highFelts, err := PrepareSignature(high, msg)
	require.NoError(t, err)
	assert.Equal(t, lowFelts, highFelts)

	commitment := KeyCommitment(PublicKeyOf(key))
	assert.True(t, VerifyPreparedSignature(highFelts, msg, commitment))
}

func TestPackBytes(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5}
	felts := packBytes(raw)
	require.Len(t, felts, 2)
	assert.Equal(t, quorum.Felt(0x04030201), felts[0])
	assert.Equal(t, quorum.Felt(5), felts[1])

	back, err := unpackBytes(felts)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, back)

	_, err = unpackBytes([]quorum.Felt{1 << 40})
	assert.Error(t, err)
}
