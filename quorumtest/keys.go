package quorumtest

import (
	"crypto/ecdsa"
	"encoding/hex"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/crypto"
)

// NewKey returns a new random secp256k1 private key.
func NewKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("cannot generate key: %s", err)
	}
	return key
}

// NewKeys returns n random keys.
func NewKeys(t testing.TB, n int) []*ecdsa.PrivateKey {
	t.Helper()
	keys := make([]*ecdsa.PrivateKey, n)
	for i := range keys {
		keys[i] = NewKey(t)
	}
	return keys
}

// PublicKey returns the compressed public key.
func PublicKey(key *ecdsa.PrivateKey) crypto.PublicKey {
	return crypto.PublicKeyOf(key)
}

// PublicKeys returns the compressed public keys of all given keys.
func PublicKeys(keys ...*ecdsa.PrivateKey) []crypto.PublicKey {
	res := make([]crypto.PublicKey, len(keys))
	for i, k := range keys {
		res[i] = crypto.PublicKeyOf(k)
	}
	return res
}

// UncompressedHex returns the hex form of the uncompressed public key, the
// way most external signers export it.
func UncompressedHex(key *ecdsa.PrivateKey) string {
	return "0x" + hex.EncodeToString(ethcrypto.FromECDSAPub(&key.PublicKey))
}

// Sign returns the signature envelope an external signer would produce for
// given message.
func Sign(t testing.TB, key *ecdsa.PrivateKey, message quorum.Word) []byte {
	t.Helper()
	wire, err := crypto.SignEnvelope(key, message)
	if err != nil {
		t.Fatalf("cannot sign: %s", err)
	}
	return wire
}

// SignHex is Sign returning a 0x prefixed hex string.
func SignHex(t testing.TB, key *ecdsa.PrivateKey, message quorum.Word) string {
	t.Helper()
	return "0x" + hex.EncodeToString(Sign(t, key, message))
}
