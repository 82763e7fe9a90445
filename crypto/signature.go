package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
)

const (
	// SchemeECDSA is the envelope tag of secp256k1 ECDSA signatures.
	SchemeECDSA byte = 1

	// RawSignatureLen is the size of r || s || v || pad.
	RawSignatureLen = 66

	// EnvelopeLen is the minimal size of an external signature: the scheme
	// tag followed by the raw signature.
	EnvelopeLen = 1 + RawSignatureLen

	// recoverableLen is the size of r || s || v.
	recoverableLen = 65

	// PreparedSignatureLen is the number of felts of a prepared signature:
	// the compressed key and the recoverable signature, four bytes per felt.
	PreparedSignatureLen = (CompressedKeyLen + recoverableLen + 3) / 4
)

// RawSignature is r(32) || s(32) || v(1) || pad(1).
type RawSignature [RawSignatureLen]byte

// R returns the r component.
func (s RawSignature) R() []byte { return s[:32] }

// S returns the s component.
func (s RawSignature) S() []byte { return s[32:64] }

// V returns the recovery id normalized to 0 or 1.
func (s RawSignature) V() byte {
	if s[64] >= 27 {
		return s[64] - 27
	}
	return s[64]
}

var (
	curveN     = ethcrypto.S256().Params().N
	curveHalfN = new(big.Int).Rsh(curveN, 1)
)

// recoverable returns r || s || v with v normalized. A high s is replaced by
// N - s and the recovery id flipped, so that the result passes the low s
// check of verification.
func (s RawSignature) recoverable() []byte {
	out := make([]byte, recoverableLen)
	copy(out, s[:64])
	out[64] = s.V()

	sv := new(big.Int).SetBytes(out[32:64])
	if sv.Cmp(curveHalfN) > 0 {
		sv.Sub(curveN, sv)
		sv.FillBytes(out[32:64])
		out[64] ^= 1
	}
	return out
}

// DecodeExternalSignature unwraps the envelope produced by external signers.
// The first byte must be the ECDSA scheme tag and at least RawSignatureLen
// bytes must follow it.
func DecodeExternalSignature(wire []byte) (RawSignature, error) {
	var sig RawSignature
	if len(wire) < EnvelopeLen {
		return sig, errors.Wrapf(errors.ErrSignatureEncoding, "expected at least %d bytes, got %d", EnvelopeLen, len(wire))
	}
	if wire[0] != SchemeECDSA {
		return sig, errors.Wrapf(errors.ErrSignatureEncoding, "unsupported scheme tag %d", wire[0])
	}
	copy(sig[:], wire[1:EnvelopeLen])
	switch sig[64] {
	case 0, 1, 27, 28:
	default:
		return sig, errors.Wrapf(errors.ErrSignatureEncoding, "invalid recovery id %d", sig[64])
	}
	return sig, nil
}

// DecodeExternalSignatureHex decodes a hex encoded envelope, with or without
// the 0x prefix.
func DecodeExternalSignatureHex(s string) (RawSignature, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return RawSignature{}, errors.Wrap(errors.ErrSignatureEncoding, "signature is not hex encoded")
	}
	return DecodeExternalSignature(raw)
}

// PrepareSignature recovers the signer key from the signature and message
// and packs both into felts ready to be used as an advice value.
func PrepareSignature(sig RawSignature, message quorum.Word) ([]quorum.Felt, error) {
	rsv := sig.recoverable()
	pub, err := ethcrypto.SigToPub(SignDigest(message), rsv)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSignatureEncoding, "cannot recover public key: %s", err)
	}
	payload := append(ethcrypto.CompressPubkey(pub), rsv...)
	return packBytes(payload), nil
}

// UnpackPreparedSignature is the reverse of PrepareSignature. It returns the
// recovered key and the r || s || v signature.
func UnpackPreparedSignature(felts []quorum.Felt) (PublicKey, []byte, error) {
	var pk PublicKey
	if len(felts) != PreparedSignatureLen {
		return pk, nil, errors.Wrapf(errors.ErrSignatureEncoding, "expected %d elements, got %d", PreparedSignatureLen, len(felts))
	}
	raw, err := unpackBytes(felts)
	if err != nil {
		return pk, nil, err
	}
	copy(pk[:], raw[:CompressedKeyLen])
	sig := raw[CompressedKeyLen : CompressedKeyLen+recoverableLen]
	return pk, sig, nil
}

// VerifyPreparedSignature returns true if the prepared signature was made
// over message by the key bound to commitment.
func VerifyPreparedSignature(felts []quorum.Felt, message, commitment quorum.Word) bool {
	pk, sig, err := UnpackPreparedSignature(felts)
	if err != nil {
		return false
	}
	if KeyCommitment(pk) != commitment {
		return false
	}
	return ethcrypto.VerifySignature(pk[:], SignDigest(message), sig[:64])
}

// SignEnvelope signs message with given key and wraps the signature the way
// external signers do.
func SignEnvelope(key *ecdsa.PrivateKey, message quorum.Word) ([]byte, error) {
	rsv, err := ethcrypto.Sign(SignDigest(message), key)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "sign: %s", err)
	}
	wire := make([]byte, EnvelopeLen)
	wire[0] = SchemeECDSA
	copy(wire[1:], rsv)
	return wire, nil
}

// PublicKeyOf returns the compressed public key of a private key.
func PublicKeyOf(key *ecdsa.PrivateKey) PublicKey {
	var pk PublicKey
	copy(pk[:], ethcrypto.CompressPubkey(&key.PublicKey))
	return pk
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "generate key: %s", err)
	}
	return key, nil
}

// packBytes stores four bytes per felt, little endian, zero padding the last
// element.
func packBytes(b []byte) []quorum.Felt {
	felts := make([]quorum.Felt, (len(b)+3)/4)
	for i := range felts {
		var v uint64
		for j := 0; j < 4 && i*4+j < len(b); j++ {
			v |= uint64(b[i*4+j]) << (8 * uint(j))
		}
		felts[i] = quorum.Felt(v)
	}
	return felts
}

func unpackBytes(felts []quorum.Felt) ([]byte, error) {
	out := make([]byte, 0, 4*len(felts))
	for i, f := range felts {
		if f > 0xffffffff {
			return nil, errors.Wrapf(errors.ErrSignatureEncoding, "element %d out of range", i)
		}
		out = append(out, byte(f), byte(f>>8), byte(f>>16), byte(f>>24))
	}
	return out, nil
}
