package multisig

import (
	"encoding/hex"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/orm"
)

// ProposalStatus tracks a recorded proposal.
type ProposalStatus int32

const (
	StatusInvalid ProposalStatus = iota
	// StatusPending proposals collect signatures.
	StatusPending
	// StatusReady proposals have at least threshold signatures.
	StatusReady
	StatusExecuted
	StatusFailed
)

func (s ProposalStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusExecuted:
		return "executed"
	case StatusFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// SlotSignature is a signature collected for an approver slot.
type SlotSignature struct {
	Slot      uint32 `protobuf:"varint,1,opt,name=slot,proto3" json:"slot,omitempty"`
	Signature []byte `protobuf:"bytes,2,opt,name=signature,proto3" json:"signature,omitempty"`
}

func (m *SlotSignature) Reset()         { *m = SlotSignature{} }
func (m *SlotSignature) String() string { return proto.CompactTextString(m) }
func (*SlotSignature) ProtoMessage()    {}

// ProposalRecord is the bookkeeping state of a proposal. Signatures are kept
// sorted by slot.
type ProposalRecord struct {
	ID            []byte           `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Account       []byte           `protobuf:"bytes,2,opt,name=account,proto3" json:"account,omitempty"`
	Kind          string           `protobuf:"bytes,3,opt,name=kind,proto3" json:"kind,omitempty"`
	Threshold     uint32           `protobuf:"varint,4,opt,name=threshold,proto3" json:"threshold,omitempty"`
	ApproverCount uint32           `protobuf:"varint,5,opt,name=approver_count,json=approverCount,proto3" json:"approver_count,omitempty"`
	Summary       []byte           `protobuf:"bytes,6,opt,name=summary,proto3" json:"summary,omitempty"`
	Request       []byte           `protobuf:"bytes,7,opt,name=request,proto3" json:"request,omitempty"`
	Signatures    []*SlotSignature `protobuf:"bytes,8,rep,name=signatures,proto3" json:"signatures,omitempty"`
	Status        ProposalStatus   `protobuf:"varint,9,opt,name=status,proto3" json:"status,omitempty"`
	TransactionID []byte           `protobuf:"bytes,10,opt,name=transaction_id,json=transactionId,proto3" json:"transaction_id,omitempty"`
	Error         string           `protobuf:"bytes,11,opt,name=error,proto3" json:"error,omitempty"`
}

func (m *ProposalRecord) Reset()         { *m = ProposalRecord{} }
func (m *ProposalRecord) String() string { return proto.CompactTextString(m) }
func (*ProposalRecord) ProtoMessage()    {}

var _ orm.Model = (*ProposalRecord)(nil)

func (m *ProposalRecord) Validate() error {
	if _, err := quorum.WordFromBytes(m.ID); err != nil {
		return errors.Wrap(err, "id")
	}
	if len(m.Account) != quorum.AccountIDLen {
		return errors.Wrap(errors.ErrModel, "invalid account")
	}
	if m.ApproverCount == 0 || m.ApproverCount > MaxApprovers {
		return errors.Wrap(errors.ErrModel, "invalid approver count")
	}
	if m.Threshold == 0 || m.Threshold > m.ApproverCount {
		return errors.Wrap(errors.ErrModel, "invalid threshold")
	}
	if len(m.Summary) == 0 || len(m.Request) == 0 {
		return errors.Wrap(errors.ErrModel, "missing summary or request")
	}
	for i, s := range m.Signatures {
		if s.Slot >= m.ApproverCount {
			return errors.Wrapf(errors.ErrModel, "signature for slot %d", s.Slot)
		}
		if len(s.Signature) == 0 {
			return errors.Wrapf(errors.ErrModel, "empty signature for slot %d", s.Slot)
		}
		if i > 0 && m.Signatures[i-1].Slot >= s.Slot {
			return errors.Wrap(errors.ErrModel, "signatures not sorted")
		}
	}
	if m.Status < StatusPending || m.Status > StatusFailed {
		return errors.Wrapf(errors.ErrModel, "invalid status %d", m.Status)
	}
	return nil
}

// Commitment returns the proposal id, which is the message to sign.
func (m *ProposalRecord) Commitment() quorum.Word {
	w, _ := quorum.WordFromBytes(m.ID)
	return w
}

// AddSignature records the signature of given slot. A signature already
// present for the slot is replaced.
func (m *ProposalRecord) AddSignature(slot uint32, sig []byte) error {
	if slot >= m.ApproverCount {
		return errors.Wrapf(errors.ErrInput, "slot %d out of range, %d approvers", slot, m.ApproverCount)
	}
	if len(sig) == 0 {
		return errors.Wrap(errors.ErrEmpty, "signature")
	}
	switch m.Status {
	case StatusPending, StatusReady, StatusFailed:
	default:
		return errors.Wrapf(errors.ErrState, "proposal is %s", m.Status)
	}
	sig = append([]byte(nil), sig...)
	i := 0
	for ; i < len(m.Signatures); i++ {
		if m.Signatures[i].Slot == slot {
			m.Signatures[i].Signature = sig
			m.updateStatus()
			return nil
		}
		if m.Signatures[i].Slot > slot {
			break
		}
	}
	m.Signatures = append(m.Signatures, nil)
	copy(m.Signatures[i+1:], m.Signatures[i:])
	m.Signatures[i] = &SlotSignature{Slot: slot, Signature: sig}
	m.updateStatus()
	return nil
}

func (m *ProposalRecord) updateStatus() {
	if m.CheckThreshold() {
		m.Status = StatusReady
	} else {
		m.Status = StatusPending
	}
}

// CheckThreshold returns true if at least threshold slots have a
// signature. Signatures are not verified.
func (m *ProposalRecord) CheckThreshold() bool {
	return uint32(len(m.Signatures)) >= m.Threshold
}

// SignatureSet returns the collected signatures as a sparse array indexed by
// slot, the form Execute expects.
func (m *ProposalRecord) SignatureSet() [][]byte {
	res := make([][]byte, m.ApproverCount)
	for _, s := range m.Signatures {
		res[s.Slot] = s.Signature
	}
	return res
}

// SignaturesHex is SignatureSet with 0x prefixed hex strings. Unsigned slots
// are nil.
func (m *ProposalRecord) SignaturesHex() []*string {
	res := make([]*string, m.ApproverCount)
	for _, s := range m.Signatures {
		h := "0x" + hex.EncodeToString(s.Signature)
		res[s.Slot] = &h
	}
	return res
}

// ProposalBucket stores proposal records, indexed by account.
type ProposalBucket struct {
	orm.Bucket
}

// NewProposalBucket initializes a ProposalBucket with default name
func NewProposalBucket() ProposalBucket {
	b := orm.NewBucket("proposals", func() orm.Model { return &ProposalRecord{} }).
		WithIndex("account", proposalAccount, false)
	return ProposalBucket{Bucket: b}
}

func proposalAccount(obj orm.Object) ([]byte, error) {
	p, ok := obj.Value().(*ProposalRecord)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", obj.Value())
	}
	return p.Account, nil
}
