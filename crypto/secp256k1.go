package crypto

import (
	"encoding/hex"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
)

const (
	// CompressedKeyLen is the size of a compressed public key,
	// 0x02|0x03 || X.
	CompressedKeyLen = 33

	// UncompressedKeyLen is the size of an uncompressed public key,
	// 0x04 || X || Y.
	UncompressedKeyLen = 65
)

// PublicKey is a compressed secp256k1 public key.
type PublicKey [CompressedKeyLen]byte

// NormalizePublicKey accepts a compressed or uncompressed public key and
// returns its compressed form. For uncompressed input the prefix is derived
// from the parity of the last byte of Y. The result must be a point on the
// curve.
func NormalizePublicKey(raw []byte) (PublicKey, error) {
	var pk PublicKey
	switch {
	case len(raw) == UncompressedKeyLen && raw[0] == 0x04:
		pk[0] = 0x02 | (raw[UncompressedKeyLen-1] & 1)
		copy(pk[1:], raw[1:33])
	case len(raw) == CompressedKeyLen && (raw[0] == 0x02 || raw[0] == 0x03):
		copy(pk[:], raw)
	case len(raw) == UncompressedKeyLen || len(raw) == CompressedKeyLen:
		return pk, errors.Wrapf(errors.ErrKeyEncoding, "unexpected prefix 0x%02x for %d byte key", raw[0], len(raw))
	default:
		return pk, errors.Wrapf(errors.ErrKeyEncoding, "expected %d or %d bytes, got %d", CompressedKeyLen, UncompressedKeyLen, len(raw))
	}
	if _, err := ethcrypto.DecompressPubkey(pk[:]); err != nil {
		return pk, errors.Wrap(errors.ErrKeyEncoding, "not a point on the curve")
	}
	return pk, nil
}

// ParsePublicKeyHex decodes a hex encoded key, with or without the 0x
// prefix, and normalizes it.
func ParsePublicKeyHex(s string) (PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return PublicKey{}, errors.Wrap(errors.ErrKeyEncoding, "key is not hex encoded")
	}
	return NormalizePublicKey(raw)
}

// ParsePublicKeysHex normalizes a list of hex encoded keys.
func ParsePublicKeysHex(keys []string) ([]PublicKey, error) {
	res := make([]PublicKey, 0, len(keys))
	for i, k := range keys {
		pk, err := ParsePublicKeyHex(k)
		if err != nil {
			return nil, errors.Wrapf(err, "key %d", i)
		}
		res = append(res, pk)
	}
	return res, nil
}

// Bytes returns a copy of the compressed key.
func (pk PublicKey) Bytes() []byte {
	return append([]byte(nil), pk[:]...)
}

// Hex returns the 0x prefixed hex form of the compressed key.
func (pk PublicKey) Hex() string {
	return "0x" + hex.EncodeToString(pk[:])
}

// Commitment is a shortcut for KeyCommitment(pk).
func (pk PublicKey) Commitment() quorum.Word {
	return KeyCommitment(pk)
}

// KeyCommitment returns the word an approver slot is bound to. Only the
// commitment is ever stored on the ledger, never the key itself.
func KeyCommitment(pk PublicKey) quorum.Word {
	return quorum.Hash(pk[:])
}

// SignDigest returns the 32 byte digest approvers sign for given message.
func SignDigest(message quorum.Word) []byte {
	return ethcrypto.Keccak256(message.Bytes())
}
