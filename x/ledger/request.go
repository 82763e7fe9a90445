package ledger

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
)

// OutputNote describes a note a transaction creates.
type OutputNote struct {
	Target []byte   `protobuf:"bytes,1,opt,name=target,proto3" json:"target,omitempty"`
	Assets []*Asset `protobuf:"bytes,2,rep,name=assets,proto3" json:"assets,omitempty"`
	Type   NoteType `protobuf:"varint,3,opt,name=type,proto3" json:"type,omitempty"`
}

func (m *OutputNote) Reset()         { *m = OutputNote{} }
func (m *OutputNote) String() string { return proto.CompactTextString(m) }
func (*OutputNote) ProtoMessage()    {}

// NewPayToID returns a public note paying given assets to target.
func NewPayToID(target quorum.AccountID, assets ...*Asset) *OutputNote {
	return &OutputNote{Target: target.Bytes(), Assets: assets}
}

func (m *OutputNote) Validate() error {
	if len(m.Target) != quorum.AccountIDLen {
		return errors.Wrap(errors.ErrInput, "invalid target")
	}
	if len(m.Assets) == 0 {
		return errors.Wrap(errors.ErrEmpty, "no assets")
	}
	for i, a := range m.Assets {
		if err := a.Validate(); err != nil {
			return errors.Wrapf(err, "asset %d", i)
		}
	}
	if m.Type != NotePublic && m.Type != NotePrivate {
		return errors.Wrapf(errors.ErrInput, "unknown note type %d", m.Type)
	}
	return nil
}

// AdviceEntry is a single advice map item: a word key and a list of felts.
type AdviceEntry struct {
	Key    []byte   `protobuf:"bytes,1,opt,name=key,proto3" json:"key,omitempty"`
	Values []uint64 `protobuf:"varint,2,rep,packed,name=values,proto3" json:"values,omitempty"`
}

func (m *AdviceEntry) Reset()         { *m = AdviceEntry{} }
func (m *AdviceEntry) String() string { return proto.CompactTextString(m) }
func (*AdviceEntry) ProtoMessage()    {}

// Felts returns the entry values.
func (m *AdviceEntry) Felts() []quorum.Felt {
	res := make([]quorum.Felt, len(m.Values))
	for i, v := range m.Values {
		res[i] = quorum.NewFelt(v)
	}
	return res
}

// TransactionRequest is everything needed to execute a transaction against
// an account. The advice map is auxiliary input for the auth procedure and
// does not change the transaction summary.
type TransactionRequest struct {
	InputNotes  [][]byte       `protobuf:"bytes,1,rep,name=input_notes,json=inputNotes,proto3" json:"input_notes,omitempty"`
	OutputNotes []*OutputNote  `protobuf:"bytes,2,rep,name=output_notes,json=outputNotes,proto3" json:"output_notes,omitempty"`
	Advice      []*AdviceEntry `protobuf:"bytes,3,rep,name=advice,proto3" json:"advice,omitempty"`
}

func (m *TransactionRequest) Reset()         { *m = TransactionRequest{} }
func (m *TransactionRequest) String() string { return proto.CompactTextString(m) }
func (*TransactionRequest) ProtoMessage()    {}

func (m *TransactionRequest) Validate() error {
	if len(m.InputNotes) == 0 && len(m.OutputNotes) == 0 {
		return errors.Wrap(errors.ErrEmpty, "transaction neither consumes nor creates notes")
	}
	seen := make(map[string]struct{}, len(m.InputNotes))
	for i, id := range m.InputNotes {
		if _, err := quorum.WordFromBytes(id); err != nil {
			return errors.Wrapf(err, "input note %d", i)
		}
		if _, ok := seen[string(id)]; ok {
			return errors.Wrapf(errors.ErrDuplicate, "input note %d", i)
		}
		seen[string(id)] = struct{}{}
	}
	for i, n := range m.OutputNotes {
		if err := n.Validate(); err != nil {
			return errors.Wrapf(err, "output note %d", i)
		}
	}
	for i, e := range m.Advice {
		if _, err := quorum.WordFromBytes(e.Key); err != nil {
			return errors.Wrapf(err, "advice key %d", i)
		}
		if i > 0 && bytes.Compare(m.Advice[i-1].Key, e.Key) >= 0 {
			return errors.Wrap(errors.ErrInput, "advice not sorted")
		}
	}
	return nil
}

// SetAdvice inserts an advice entry, replacing any previous value under the
// same key.
func (m *TransactionRequest) SetAdvice(key quorum.Word, values []quorum.Felt) {
	k := key.Bytes()
	raw := make([]uint64, len(values))
	for i, f := range values {
		raw[i] = f.Uint64()
	}
	i := sort.Search(len(m.Advice), func(i int) bool {
		return bytes.Compare(m.Advice[i].Key, k) >= 0
	})
	if i < len(m.Advice) && bytes.Equal(m.Advice[i].Key, k) {
		m.Advice[i].Values = raw
		return
	}
	m.Advice = append(m.Advice, nil)
	copy(m.Advice[i+1:], m.Advice[i:])
	m.Advice[i] = &AdviceEntry{Key: k, Values: raw}
}

// GetAdvice returns the advice stored under key.
func (m *TransactionRequest) GetAdvice(key quorum.Word) ([]quorum.Felt, bool) {
	return lookupAdvice(m.Advice, key)
}

func lookupAdvice(entries []*AdviceEntry, key quorum.Word) ([]quorum.Felt, bool) {
	k := key.Bytes()
	i := sort.Search(len(entries), func(i int) bool {
		return bytes.Compare(entries[i].Key, k) >= 0
	})
	if i < len(entries) && bytes.Equal(entries[i].Key, k) {
		return entries[i].Felts(), true
	}
	return nil, false
}

// AddInputNote appends a note to consume.
func (m *TransactionRequest) AddInputNote(id quorum.Word) {
	m.InputNotes = append(m.InputNotes, id.Bytes())
}

// NewMintRequest returns a request that, executed by a faucet, issues amount
// to target.
func NewMintRequest(faucet, target quorum.AccountID, amount uint64) *TransactionRequest {
	return &TransactionRequest{
		OutputNotes: []*OutputNote{NewPayToID(target, NewAsset(faucet, amount))},
	}
}

// EncodeRequest serializes a request.
func EncodeRequest(req *TransactionRequest) ([]byte, error) {
	raw, err := proto.Marshal(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "encode request: %s", err)
	}
	return raw, nil
}

// DecodeRequest deserializes and validates a request.
func DecodeRequest(raw []byte) (*TransactionRequest, error) {
	var req TransactionRequest
	if err := proto.Unmarshal(raw, &req); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "decode request: %s", err)
	}
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "request")
	}
	return &req, nil
}

// TransactionSummary is the signable outcome of a transaction: who executed
// it, from which state, which notes moved and how the account changed.
type TransactionSummary struct {
	Account      []byte   `protobuf:"bytes,1,opt,name=account,proto3" json:"account,omitempty"`
	InitialNonce uint64   `protobuf:"varint,2,opt,name=initial_nonce,json=initialNonce,proto3" json:"initial_nonce,omitempty"`
	InputNotes   [][]byte `protobuf:"bytes,3,rep,name=input_notes,json=inputNotes,proto3" json:"input_notes,omitempty"`
	OutputNotes  [][]byte `protobuf:"bytes,4,rep,name=output_notes,json=outputNotes,proto3" json:"output_notes,omitempty"`
	Delta        []byte   `protobuf:"bytes,5,opt,name=delta,proto3" json:"delta,omitempty"`
}

func (m *TransactionSummary) Reset()         { *m = TransactionSummary{} }
func (m *TransactionSummary) String() string { return proto.CompactTextString(m) }
func (*TransactionSummary) ProtoMessage()    {}

func (m *TransactionSummary) Validate() error {
	if len(m.Account) != quorum.AccountIDLen {
		return errors.Wrap(errors.ErrInput, "invalid account")
	}
	if _, err := quorum.WordFromBytes(m.Delta); err != nil {
		return errors.Wrap(err, "delta")
	}
	return nil
}

// AccountID returns the id of the executing account.
func (m *TransactionSummary) AccountID() quorum.AccountID {
	return toID(m.Account)
}

// Commitment hashes the encoded summary. It is the message approvers sign.
func (m *TransactionSummary) Commitment() (quorum.Word, error) {
	raw, err := EncodeSummary(m)
	if err != nil {
		return quorum.EmptyWord, err
	}
	return quorum.Hash(raw), nil
}

// EncodeSummary serializes a summary.
func EncodeSummary(s *TransactionSummary) ([]byte, error) {
	raw, err := proto.Marshal(s)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "encode summary: %s", err)
	}
	return raw, nil
}

// DecodeSummary deserializes and validates a summary.
func DecodeSummary(raw []byte) (*TransactionSummary, error) {
	var s TransactionSummary
	if err := proto.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "decode summary: %s", err)
	}
	if err := s.Validate(); err != nil {
		return nil, errors.Wrap(err, "summary")
	}
	return &s, nil
}

// TransactionID derives the id of an executed transaction from its summary
// commitment and the account nonce after execution.
func TransactionID(commitment quorum.Word, finalNonce uint64) quorum.Word {
	var nonce [8]byte
	binary.LittleEndian.PutUint64(nonce[:], finalNonce)
	return quorum.Merge(commitment, quorum.Hash(nonce[:]))
}
