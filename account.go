package quorum

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/iov-one/quorum/crypto/bech32"
	"github.com/iov-one/quorum/errors"
)

// AccountIDLen is the size of an account identifier in bytes.
const AccountIDLen = 15

// AccountID identifies an account on the ledger. It is assigned at account
// creation and never changes.
type AccountID [AccountIDLen]byte

// NewAccountID copies raw bytes into an identifier.
func NewAccountID(raw []byte) (AccountID, error) {
	var id AccountID
	if len(raw) != AccountIDLen {
		return id, errors.Wrapf(errors.ErrInput, "account id must be %d bytes, got %d", AccountIDLen, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// Bytes returns a copy of the identifier bytes.
func (id AccountID) Bytes() []byte {
	return append([]byte(nil), id[:]...)
}

// IsZero returns true for the zero value.
func (id AccountID) IsZero() bool {
	return id == AccountID{}
}

// Equals compares two identifiers.
func (id AccountID) Equals(other AccountID) bool {
	return bytes.Equal(id[:], other[:])
}

// Hex returns 0x followed by the hex encoded identifier.
func (id AccountID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id AccountID) String() string {
	return id.Hex()
}

// Bech32 returns the human readable address of the account on given network.
func (id AccountID) Bech32(n Network) (string, error) {
	raw, err := bech32.Encode(n.HRP(), id[:])
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (id AccountID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Hex())
}

func (id *AccountID) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return errors.Wrap(errors.ErrInput, "account id must be a string")
	}
	v, err := ParseAccountID(s)
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// ParseAccountID accepts both the bech32 address form (mtst1..., mdev1...,
// mm1...) and the hex form, with or without the 0x prefix. Anything after an
// underscore is a routing parameter and is ignored.
func ParseAccountID(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '_'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return AccountID{}, errors.Wrap(errors.ErrEmpty, "account id")
	}
	for _, n := range Networks {
		if !strings.HasPrefix(s, n.HRP()+"1") {
			continue
		}
		hrp, payload, err := bech32.Decode(s)
		if err != nil {
			return AccountID{}, errors.Wrap(errors.ErrInput, err.Error())
		}
		if hrp != n.HRP() {
			return AccountID{}, errors.Wrapf(errors.ErrInput, "unexpected address prefix %q", hrp)
		}
		return NewAccountID(payload)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return AccountID{}, errors.Wrapf(errors.ErrInput, "account id %q is neither bech32 nor hex", s)
	}
	return NewAccountID(raw)
}

// Network selects the address prefix used when rendering account ids.
type Network string

const (
	Testnet Network = "testnet"
	Devnet  Network = "devnet"
	Mainnet Network = "mainnet"
)

// Networks lists all known networks.
var Networks = []Network{Testnet, Devnet, Mainnet}

// HRP returns the bech32 human readable part for the network.
func (n Network) HRP() string {
	switch n {
	case Mainnet:
		return "mm"
	case Devnet:
		return "mdev"
	default:
		return "mtst"
	}
}

// ParseNetwork returns the network for given name.
func ParseNetwork(name string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(name))); n {
	case Testnet, Devnet, Mainnet:
		return n, nil
	case "":
		return Testnet, nil
	default:
		return "", errors.Wrapf(errors.ErrInput, "unknown network %q", name)
	}
}
