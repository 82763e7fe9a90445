package multisig

import (
	"sync"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/orm"
)

// Proposal kinds recorded by the store.
const (
	KindConsume   = "consume"
	KindSend      = "send"
	KindBatchSend = "batch_send"
)

// ProposalStore records proposals and their collected signatures. It is a
// passive record, nothing is verified against the ledger. It is safe for
// concurrent use.
type ProposalStore struct {
	mu     sync.Mutex
	db     quorum.KVStore
	bucket ProposalBucket
}

// NewProposalStore returns a store writing to db.
func NewProposalStore(db quorum.KVStore) *ProposalStore {
	return &ProposalStore{
		db:     db,
		bucket: NewProposalBucket(),
	}
}

// Create records a new pending proposal.
func (s *ProposalStore) Create(account quorum.AccountID, kind string, threshold, approvers uint32, p *Proposal) (*ProposalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := p.Commitment.Bytes()
	ok, err := s.bucket.Has(s.db, id)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, errors.Wrapf(errors.ErrDuplicate, "proposal %s", p.Commitment)
	}
	rec := &ProposalRecord{
		ID:            id,
		Account:       account.Bytes(),
		Kind:          kind,
		Threshold:     threshold,
		ApproverCount: approvers,
		Summary:       p.Summary,
		Request:       p.Request,
		Status:        StatusPending,
	}
	if err := s.save(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the proposal with given id.
func (s *ProposalStore) Get(id quorum.Word) (*ProposalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *ProposalStore) get(id quorum.Word) (*ProposalRecord, error) {
	var rec ProposalRecord
	if err := s.bucket.One(s.db, id.Bytes(), &rec); err != nil {
		return nil, errors.Wrapf(err, "proposal %s", id)
	}
	return &rec, nil
}

func (s *ProposalStore) save(rec *ProposalRecord) error {
	return s.bucket.Save(s.db, orm.NewSimpleObj(rec.ID, rec))
}

// ByAccount returns all proposals of given account.
func (s *ProposalStore) ByAccount(account quorum.AccountID) ([]*ProposalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objs, err := s.bucket.GetIndexed(s.db, "account", account.Bytes())
	if err != nil {
		return nil, err
	}
	return records(objs)
}

// All returns every recorded proposal, ordered by id.
func (s *ProposalStore) All() ([]*ProposalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objs, err := s.bucket.Scan(s.db, nil)
	if err != nil {
		return nil, err
	}
	return records(objs)
}

func records(objs []orm.Object) ([]*ProposalRecord, error) {
	res := make([]*ProposalRecord, 0, len(objs))
	for _, o := range objs {
		rec, ok := o.Value().(*ProposalRecord)
		if !ok {
			return nil, errors.Wrapf(errors.ErrType, "%T", o.Value())
		}
		res = append(res, rec)
	}
	return res, nil
}

// AddSignature records the signature of given approver slot. The last
// signature submitted for a slot wins.
func (s *ProposalStore) AddSignature(id quorum.Word, slot uint32, sig []byte) (*ProposalRecord, error) {
	return s.update(id, func(rec *ProposalRecord) error {
		return rec.AddSignature(slot, sig)
	})
}

// MarkExecuted records a successful execution.
func (s *ProposalStore) MarkExecuted(id, txID quorum.Word) (*ProposalRecord, error) {
	return s.update(id, func(rec *ProposalRecord) error {
		rec.Status = StatusExecuted
		rec.TransactionID = txID.Bytes()
		rec.Error = ""
		return nil
	})
}

// MarkFailed records a failed execution. Failed proposals accept further
// signatures, which move them back to pending or ready.
func (s *ProposalStore) MarkFailed(id quorum.Word, reason string) (*ProposalRecord, error) {
	return s.update(id, func(rec *ProposalRecord) error {
		if rec.Status == StatusExecuted {
			return errors.Wrap(errors.ErrState, "proposal already executed")
		}
		rec.Status = StatusFailed
		rec.Error = reason
		return nil
	})
}

func (s *ProposalStore) update(id quorum.Word, fn func(*ProposalRecord) error) (*ProposalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	if err := s.save(rec); err != nil {
		return nil, err
	}
	return rec, nil
}
