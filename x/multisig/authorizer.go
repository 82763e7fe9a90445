package multisig

import (
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/crypto"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/x/ledger"
)

// Ledger is the subset of the execution engine the authorizer drives.
type Ledger interface {
	Account(id quorum.AccountID) (*ledger.Account, error)
	CreateAccount(slots []*ledger.StorageSlot) (*ledger.Account, error)
	DryRun(id quorum.AccountID, req *ledger.TransactionRequest) (*ledger.ExecutedTransaction, error)
	Submit(id quorum.AccountID, req *ledger.TransactionRequest) (*ledger.ExecutedTransaction, error)
}

var _ Ledger = (*ledger.Engine)(nil)

// Proposal is a signable description of an operation. It is not stored by
// this package, the caller owns it.
type Proposal struct {
	// Commitment is the summary commitment and the message to sign.
	Commitment quorum.Word
	// Summary is the encoded transaction summary.
	Summary []byte
	// Request is the encoded transaction request, without advice.
	Request []byte
}

// CreateAccount registers a new multisig account for given approvers.
func CreateAccount(l Ledger, approvers []crypto.PublicKey, threshold uint64) (*ledger.Account, error) {
	slots, err := NewStorage(approvers, threshold)
	if err != nil {
		return nil, err
	}
	return l.CreateAccount(slots)
}

// Propose dry runs the intent against the account. The ledger must reject
// the dry run as unauthorized and hand back the summary to sign. A dry run
// that passes authorization means the operation would have finalized without
// approvals and is reported as ErrProtocolViolation.
func Propose(l Ledger, id quorum.AccountID, intent Intent) (*Proposal, error) {
	req, err := intent.Request()
	if err != nil {
		return nil, err
	}
	res, err := l.DryRun(id, req)
	if err == nil {
		return nil, errors.Wrapf(errors.ErrProtocolViolation, "dry run of account %s finalized transaction %s", id, res.ID)
	}
	u, ok := ledger.AsUnauthorized(err)
	if !ok {
		if errors.ErrDatabase.Is(err) || errors.ErrResource.Is(err) {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrProposal, err.Error())
	}

	commitment, err := u.Summary.Commitment()
	if err != nil {
		return nil, err
	}
	summary, err := ledger.EncodeSummary(u.Summary)
	if err != nil {
		return nil, err
	}
	request, err := ledger.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	return &Proposal{
		Commitment: commitment,
		Summary:    summary,
		Request:    request,
	}, nil
}

// Execute adds the collected signatures to the request and submits it.
//
// signatures is indexed by approver slot, a nil entry means the approver did
// not sign. Entries beyond the approver count are ignored. Each signature is
// an external envelope, see crypto.DecodeExternalSignature.
//
// Execute does not count signatures. When the ledger rejects the request
// for insufficient authorization ErrAuthorization is returned.
func Execute(l Ledger, id quorum.AccountID, request, summary []byte, signatures [][]byte) (quorum.Word, error) {
	s, err := ledger.DecodeSummary(summary)
	if err != nil {
		return quorum.EmptyWord, err
	}
	if !s.AccountID().Equals(id) {
		return quorum.EmptyWord, errors.Wrap(errors.ErrInput, "summary of another account")
	}
	message, err := s.Commitment()
	if err != nil {
		return quorum.EmptyWord, err
	}
	req, err := ledger.DecodeRequest(request)
	if err != nil {
		return quorum.EmptyWord, err
	}

	acc, err := l.Account(id)
	if err != nil {
		return quorum.EmptyWord, err
	}
	_, count, err := Approvers(acc)
	if err != nil {
		return quorum.EmptyWord, err
	}
	for i := uint64(0); i < count; i++ {
		commitment, err := ApproverCommitment(acc, i)
		if err != nil {
			return quorum.EmptyWord, err
		}
		key := AdviceKey(commitment, message)
		if i >= uint64(len(signatures)) || signatures[i] == nil {
			continue
		}
		raw, err := crypto.DecodeExternalSignature(signatures[i])
		if err != nil {
			return quorum.EmptyWord, errors.Wrapf(err, "signature %d", i)
		}
		prepared, err := crypto.PrepareSignature(raw, message)
		if err != nil {
			return quorum.EmptyWord, errors.Wrapf(err, "signature %d", i)
		}
		req.SetAdvice(key, prepared)
	}

	res, err := l.Submit(id, req)
	if err != nil {
		if u, ok := ledger.AsUnauthorized(err); ok {
			return quorum.EmptyWord, errors.Wrap(errors.ErrAuthorization, u.Error())
		}
		return quorum.EmptyWord, err
	}
	return res.ID, nil
}
