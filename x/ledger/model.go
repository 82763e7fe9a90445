package ledger

import (
	"bytes"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/orm"
)

// AccountKind selects the auth procedure of an account.
type AccountKind int32

const (
	KindInvalid AccountKind = iota
	// KindMultisig accounts are wallets guarded by a k-of-n approver set.
	KindMultisig
	// KindFaucet accounts issue a single fungible asset. Their auth
	// procedure is permissionless.
	KindFaucet
)

func (k AccountKind) String() string {
	switch k {
	case KindMultisig:
		return "multisig"
	case KindFaucet:
		return "faucet"
	default:
		return "invalid"
	}
}

// NoteType tells whether the note content is published on chain.
type NoteType int32

const (
	NotePublic NoteType = iota
	NotePrivate
)

func (t NoteType) String() string {
	if t == NotePrivate {
		return "private"
	}
	return "public"
}

// Asset is a fungible amount issued by a faucet.
type Asset struct {
	Faucet []byte `protobuf:"bytes,1,opt,name=faucet,proto3" json:"faucet,omitempty"`
	Amount uint64 `protobuf:"varint,2,opt,name=amount,proto3" json:"amount,omitempty"`
}

func (m *Asset) Reset()         { *m = Asset{} }
func (m *Asset) String() string { return proto.CompactTextString(m) }
func (*Asset) ProtoMessage()    {}

// NewAsset returns an asset of given faucet.
func NewAsset(faucet quorum.AccountID, amount uint64) *Asset {
	return &Asset{Faucet: faucet.Bytes(), Amount: amount}
}

func (m *Asset) Validate() error {
	if len(m.Faucet) != quorum.AccountIDLen {
		return errors.Wrap(errors.ErrInput, "invalid faucet id")
	}
	if m.Amount == 0 {
		return errors.Wrap(errors.ErrAmount, "amount must be positive")
	}
	return nil
}

// FaucetID returns the issuing faucet.
func (m *Asset) FaucetID() quorum.AccountID {
	id, _ := quorum.NewAccountID(m.Faucet)
	return id
}

// MapEntry is a single item of a storage map. Both key and value are words.
type MapEntry struct {
	Key   []byte `protobuf:"bytes,1,opt,name=key,proto3" json:"key,omitempty"`
	Value []byte `protobuf:"bytes,2,opt,name=value,proto3" json:"value,omitempty"`
}

func (m *MapEntry) Reset()         { *m = MapEntry{} }
func (m *MapEntry) String() string { return proto.CompactTextString(m) }
func (*MapEntry) ProtoMessage()    {}

// StorageSlot holds a single word value and an optional map. Map entries are
// kept sorted by key.
type StorageSlot struct {
	Index   uint32      `protobuf:"varint,1,opt,name=index,proto3" json:"index,omitempty"`
	Value   []byte      `protobuf:"bytes,2,opt,name=value,proto3" json:"value,omitempty"`
	Entries []*MapEntry `protobuf:"bytes,3,rep,name=entries,proto3" json:"entries,omitempty"`
}

func (m *StorageSlot) Reset()         { *m = StorageSlot{} }
func (m *StorageSlot) String() string { return proto.CompactTextString(m) }
func (*StorageSlot) ProtoMessage()    {}

// NewValueSlot returns a slot holding a single word.
func NewValueSlot(index uint32, value quorum.Word) *StorageSlot {
	return &StorageSlot{Index: index, Value: value.Bytes()}
}

// SetItem inserts or replaces a map entry.
func (m *StorageSlot) SetItem(key, value quorum.Word) {
	k := key.Bytes()
	for i, e := range m.Entries {
		switch bytes.Compare(e.Key, k) {
		case 0:
			e.Value = value.Bytes()
			return
		case 1:
			m.Entries = append(m.Entries, nil)
			copy(m.Entries[i+1:], m.Entries[i:])
			m.Entries[i] = &MapEntry{Key: k, Value: value.Bytes()}
			return
		}
	}
	m.Entries = append(m.Entries, &MapEntry{Key: k, Value: value.Bytes()})
}

// Item returns the map value stored under key or an empty word.
func (m *StorageSlot) Item(key quorum.Word) (quorum.Word, error) {
	k := key.Bytes()
	for _, e := range m.Entries {
		if bytes.Equal(e.Key, k) {
			return quorum.WordFromBytes(e.Value)
		}
	}
	return quorum.EmptyWord, nil
}

func (m *StorageSlot) Validate() error {
	if len(m.Value) != 0 {
		if _, err := quorum.WordFromBytes(m.Value); err != nil {
			return errors.Wrapf(err, "slot %d value", m.Index)
		}
	}
	for i, e := range m.Entries {
		if _, err := quorum.WordFromBytes(e.Key); err != nil {
			return errors.Wrapf(err, "slot %d key %d", m.Index, i)
		}
		if _, err := quorum.WordFromBytes(e.Value); err != nil {
			return errors.Wrapf(err, "slot %d value %d", m.Index, i)
		}
		if i > 0 && bytes.Compare(m.Entries[i-1].Key, e.Key) >= 0 {
			return errors.Wrapf(errors.ErrModel, "slot %d entries not sorted", m.Index)
		}
	}
	return nil
}

// FaucetInfo describes the asset a faucet issues.
type FaucetInfo struct {
	Symbol    string `protobuf:"bytes,1,opt,name=symbol,proto3" json:"symbol,omitempty"`
	Decimals  uint32 `protobuf:"varint,2,opt,name=decimals,proto3" json:"decimals,omitempty"`
	MaxSupply uint64 `protobuf:"varint,3,opt,name=max_supply,json=maxSupply,proto3" json:"max_supply,omitempty"`
	Issued    uint64 `protobuf:"varint,4,opt,name=issued,proto3" json:"issued,omitempty"`
}

func (m *FaucetInfo) Reset()         { *m = FaucetInfo{} }
func (m *FaucetInfo) String() string { return proto.CompactTextString(m) }
func (*FaucetInfo) ProtoMessage()    {}

const maxDecimals = 12

func (m *FaucetInfo) Validate() error {
	if n := len(m.Symbol); n == 0 || n > 6 {
		return errors.Wrap(errors.ErrInput, "symbol must be 1 to 6 characters")
	}
	for _, c := range m.Symbol {
		if c < 'A' || c > 'Z' {
			return errors.Wrap(errors.ErrInput, "symbol must be upper case letters")
		}
	}
	if m.Decimals > maxDecimals {
		return errors.Wrapf(errors.ErrInput, "decimals must not be greater than %d", maxDecimals)
	}
	if m.MaxSupply == 0 {
		return errors.Wrap(errors.ErrAmount, "max supply must be positive")
	}
	if m.Issued > m.MaxSupply {
		return errors.Wrap(errors.ErrOverflow, "issued more than max supply")
	}
	return nil
}

// Account is the ledger state of one account.
type Account struct {
	ID      []byte         `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Kind    AccountKind    `protobuf:"varint,2,opt,name=kind,proto3" json:"kind,omitempty"`
	Nonce   uint64         `protobuf:"varint,3,opt,name=nonce,proto3" json:"nonce,omitempty"`
	Slots   []*StorageSlot `protobuf:"bytes,4,rep,name=slots,proto3" json:"slots,omitempty"`
	Vault   []*Asset       `protobuf:"bytes,5,rep,name=vault,proto3" json:"vault,omitempty"`
	Faucet  *FaucetInfo    `protobuf:"bytes,6,opt,name=faucet,proto3" json:"faucet,omitempty"`
	Created int64          `protobuf:"varint,7,opt,name=created,proto3" json:"created,omitempty"`
}

func (m *Account) Reset()         { *m = Account{} }
func (m *Account) String() string { return proto.CompactTextString(m) }
func (*Account) ProtoMessage()    {}

var _ orm.Model = (*Account)(nil)

func (m *Account) Validate() error {
	if len(m.ID) != quorum.AccountIDLen {
		return errors.Wrap(errors.ErrModel, "invalid account id")
	}
	switch m.Kind {
	case KindMultisig:
		if m.Faucet != nil {
			return errors.Wrap(errors.ErrModel, "wallet with faucet info")
		}
	case KindFaucet:
		if m.Faucet == nil {
			return errors.Wrap(errors.ErrModel, "missing faucet info")
		}
		if err := m.Faucet.Validate(); err != nil {
			return errors.Wrap(err, "faucet")
		}
	default:
		return errors.Wrapf(errors.ErrModel, "unknown account kind %d", m.Kind)
	}
	for i, s := range m.Slots {
		if err := s.Validate(); err != nil {
			return err
		}
		if i > 0 && m.Slots[i-1].Index >= s.Index {
			return errors.Wrap(errors.ErrModel, "slots not sorted")
		}
	}
	for i, a := range m.Vault {
		if err := a.Validate(); err != nil {
			return errors.Wrapf(err, "vault %d", i)
		}
		if i > 0 && bytes.Compare(m.Vault[i-1].Faucet, a.Faucet) >= 0 {
			return errors.Wrap(errors.ErrModel, "vault not sorted")
		}
	}
	return nil
}

// AccountID returns the typed id.
func (m *Account) AccountID() quorum.AccountID {
	id, _ := quorum.NewAccountID(m.ID)
	return id
}

// Slot returns the storage slot with given index.
func (m *Account) Slot(index uint32) (*StorageSlot, error) {
	for _, s := range m.Slots {
		if s.Index == index {
			return s, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "storage slot %d", index)
}

// SlotValue returns the word stored in given slot.
func (m *Account) SlotValue(index uint32) (quorum.Word, error) {
	s, err := m.Slot(index)
	if err != nil {
		return quorum.EmptyWord, err
	}
	if len(s.Value) == 0 {
		return quorum.EmptyWord, nil
	}
	return quorum.WordFromBytes(s.Value)
}

// MapItem returns the value stored under key in the map of given slot.
func (m *Account) MapItem(index uint32, key quorum.Word) (quorum.Word, error) {
	s, err := m.Slot(index)
	if err != nil {
		return quorum.EmptyWord, err
	}
	return s.Item(key)
}

// Balance returns the vault amount of given faucet asset.
func (m *Account) Balance(faucet quorum.AccountID) uint64 {
	for _, a := range m.Vault {
		if bytes.Equal(a.Faucet, faucet[:]) {
			return a.Amount
		}
	}
	return 0
}

func (m *Account) deposit(asset *Asset) error {
	for i, a := range m.Vault {
		switch bytes.Compare(a.Faucet, asset.Faucet) {
		case 0:
			sum := a.Amount + asset.Amount
			if sum < a.Amount {
				return errors.Wrap(errors.ErrOverflow, "vault balance")
			}
			a.Amount = sum
			return nil
		case 1:
			m.Vault = append(m.Vault, nil)
			copy(m.Vault[i+1:], m.Vault[i:])
			m.Vault[i] = &Asset{Faucet: asset.Faucet, Amount: asset.Amount}
			return nil
		}
	}
	m.Vault = append(m.Vault, &Asset{Faucet: asset.Faucet, Amount: asset.Amount})
	return nil
}

func (m *Account) withdraw(asset *Asset) error {
	for i, a := range m.Vault {
		if !bytes.Equal(a.Faucet, asset.Faucet) {
			continue
		}
		if a.Amount < asset.Amount {
			return errors.Wrapf(errors.ErrAmount, "insufficient funds: have %d, need %d", a.Amount, asset.Amount)
		}
		a.Amount -= asset.Amount
		if a.Amount == 0 {
			m.Vault = append(m.Vault[:i], m.Vault[i+1:]...)
		}
		return nil
	}
	return errors.Wrapf(errors.ErrAmount, "insufficient funds: no %x asset", asset.Faucet)
}

// Note is an asset transfer to a target account. It stays on the ledger
// until the target consumes it.
type Note struct {
	ID       []byte   `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Sender   []byte   `protobuf:"bytes,2,opt,name=sender,proto3" json:"sender,omitempty"`
	Target   []byte   `protobuf:"bytes,3,opt,name=target,proto3" json:"target,omitempty"`
	Assets   []*Asset `protobuf:"bytes,4,rep,name=assets,proto3" json:"assets,omitempty"`
	Type     NoteType `protobuf:"varint,5,opt,name=type,proto3" json:"type,omitempty"`
	Serial   []byte   `protobuf:"bytes,6,opt,name=serial,proto3" json:"serial,omitempty"`
	Consumed bool     `protobuf:"varint,7,opt,name=consumed,proto3" json:"consumed,omitempty"`
	Height   int64    `protobuf:"varint,8,opt,name=height,proto3" json:"height,omitempty"`
}

func (m *Note) Reset()         { *m = Note{} }
func (m *Note) String() string { return proto.CompactTextString(m) }
func (*Note) ProtoMessage()    {}

var _ orm.Model = (*Note)(nil)

func (m *Note) Validate() error {
	if _, err := quorum.WordFromBytes(m.ID); err != nil {
		return errors.Wrap(err, "note id")
	}
	if len(m.Sender) != quorum.AccountIDLen {
		return errors.Wrap(errors.ErrModel, "invalid sender")
	}
	if len(m.Target) != quorum.AccountIDLen {
		return errors.Wrap(errors.ErrModel, "invalid target")
	}
	if len(m.Assets) == 0 {
		return errors.Wrap(errors.ErrModel, "note without assets")
	}
	for i, a := range m.Assets {
		if err := a.Validate(); err != nil {
			return errors.Wrapf(err, "asset %d", i)
		}
	}
	return nil
}

// NoteID returns the typed note id.
func (m *Note) NoteID() quorum.Word {
	w, _ := quorum.WordFromBytes(m.ID)
	return w
}

// Transaction records an executed transaction.
type Transaction struct {
	ID           []byte         `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Account      []byte         `protobuf:"bytes,2,opt,name=account,proto3" json:"account,omitempty"`
	Commitment   []byte         `protobuf:"bytes,3,opt,name=commitment,proto3" json:"commitment,omitempty"`
	InitialNonce uint64         `protobuf:"varint,4,opt,name=initial_nonce,json=initialNonce,proto3" json:"initial_nonce,omitempty"`
	FinalNonce   uint64         `protobuf:"varint,5,opt,name=final_nonce,json=finalNonce,proto3" json:"final_nonce,omitempty"`
	InputNotes   [][]byte       `protobuf:"bytes,6,rep,name=input_notes,json=inputNotes,proto3" json:"input_notes,omitempty"`
	OutputNotes  [][]byte       `protobuf:"bytes,7,rep,name=output_notes,json=outputNotes,proto3" json:"output_notes,omitempty"`
	Advice       []*AdviceEntry `protobuf:"bytes,8,rep,name=advice,proto3" json:"advice,omitempty"`
	Height       int64          `protobuf:"varint,9,opt,name=height,proto3" json:"height,omitempty"`
}

func (m *Transaction) Reset()         { *m = Transaction{} }
func (m *Transaction) String() string { return proto.CompactTextString(m) }
func (*Transaction) ProtoMessage()    {}

var _ orm.Model = (*Transaction)(nil)

func (m *Transaction) Validate() error {
	if _, err := quorum.WordFromBytes(m.ID); err != nil {
		return errors.Wrap(err, "transaction id")
	}
	if len(m.Account) != quorum.AccountIDLen {
		return errors.Wrap(errors.ErrModel, "invalid account")
	}
	if m.FinalNonce != m.InitialNonce+1 {
		return errors.Wrap(errors.ErrModel, "nonce must be incremented by one")
	}
	return nil
}
