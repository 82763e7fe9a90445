package handlers

import (
	"net/http"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/x/ledger"
	"github.com/iov-one/quorum/x/multisig"
)

type proposalRecordResponse struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	Kind            string    `json:"kind"`
	Threshold       uint32    `json:"threshold"`
	ApproverCount   uint32    `json:"approver_count"`
	Status          string    `json:"status"`
	SummaryBytesHex string    `json:"summary_bytes_hex"`
	RequestBytesHex string    `json:"request_bytes_hex"`
	SignaturesHex   []*string `json:"signatures_hex"`
	Ready           bool      `json:"ready"`
	TransactionID   string    `json:"transaction_id,omitempty"`
	Error           string    `json:"error,omitempty"`
}

func (s *Service) proposalRecord(rec *multisig.ProposalRecord) proposalRecordResponse {
	account, _ := quorum.NewAccountID(rec.Account)
	res := proposalRecordResponse{
		ID:              rec.Commitment().Hex(),
		AccountID:       s.bech32(account),
		Kind:            rec.Kind,
		Threshold:       rec.Threshold,
		ApproverCount:   rec.ApproverCount,
		Status:          rec.Status.String(),
		SummaryBytesHex: encodeHex(rec.Summary),
		RequestBytesHex: encodeHex(rec.Request),
		SignaturesHex:   rec.SignaturesHex(),
		Ready:           rec.CheckThreshold(),
		Error:           rec.Error,
	}
	if len(rec.TransactionID) != 0 {
		tx, _ := quorum.WordFromBytes(rec.TransactionID)
		res.TransactionID = tx.Hex()
	}
	return res
}

func (s *Service) proposals() (*multisig.ProposalStore, error) {
	if s.Proposals == nil {
		return nil, errors.Wrap(errors.ErrNotFound, "proposal store disabled")
	}
	return s.Proposals, nil
}

func proposalKind(kind string) error {
	switch kind {
	case multisig.KindConsume, multisig.KindSend, multisig.KindBatchSend:
		return nil
	}
	return errors.Wrapf(errors.ErrInput, "unknown proposal kind %q", kind)
}

// CreateProposalHandler records a proposal returned by one of the propose
// routes so that approvers can attach their signatures.
type CreateProposalHandler struct {
	*Service
}

func (h *CreateProposalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, err := h.proposals()
	if err != nil {
		h.fail(w, err)
		return
	}
	var req struct {
		AccountID       string `json:"account_id"`
		Kind            string `json:"kind"`
		Threshold       uint32 `json:"threshold"`
		ApproverCount   uint32 `json:"approver_count"`
		SummaryBytesHex string `json:"summary_bytes_hex"`
		RequestBytesHex string `json:"request_bytes_hex"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := proposalKind(req.Kind); err != nil {
		h.fail(w, err)
		return
	}
	account, err := quorum.ParseAccountID(req.AccountID)
	if err != nil {
		h.fail(w, err)
		return
	}
	summary, err := decodeHex("summary_bytes_hex", req.SummaryBytesHex)
	if err != nil {
		h.fail(w, err)
		return
	}
	request, err := decodeHex("request_bytes_hex", req.RequestBytesHex)
	if err != nil {
		h.fail(w, err)
		return
	}
	if _, err := ledger.DecodeRequest(request); err != nil {
		h.fail(w, err)
		return
	}
	s, err := ledger.DecodeSummary(summary)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !s.AccountID().Equals(account) {
		h.fail(w, errors.Wrap(errors.ErrInput, "summary belongs to another account"))
		return
	}
	commitment, err := s.Commitment()
	if err != nil {
		h.fail(w, err)
		return
	}
	if req.ApproverCount == 0 || req.ApproverCount > multisig.MaxApprovers {
		h.fail(w, errors.Wrap(errors.ErrInput, "invalid approver count"))
		return
	}
	if req.Threshold == 0 || req.Threshold > req.ApproverCount {
		h.fail(w, errors.Wrap(errors.ErrInput, "invalid threshold"))
		return
	}

	rec, err := store.Create(account, req.Kind, req.Threshold, req.ApproverCount, &multisig.Proposal{
		Commitment: commitment,
		Summary:    summary,
		Request:    request,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	JSONResp(w, http.StatusCreated, h.proposalRecord(rec))
}

// ListProposalsHandler lists proposals of the account given by the
// account_id query parameter, or all proposals when it is not set.
type ListProposalsHandler struct {
	*Service
}

func (h *ListProposalsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, err := h.proposals()
	if err != nil {
		h.fail(w, err)
		return
	}
	var recs []*multisig.ProposalRecord
	if raw := r.URL.Query().Get("account_id"); raw == "" {
		recs, err = store.All()
	} else {
		account, perr := quorum.ParseAccountID(raw)
		if perr != nil {
			h.fail(w, perr)
			return
		}
		recs, err = store.ByAccount(account)
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	res := make([]proposalRecordResponse, 0, len(recs))
	for _, rec := range recs {
		res = append(res, h.proposalRecord(rec))
	}
	JSONResp(w, http.StatusOK, struct {
		Proposals []proposalRecordResponse `json:"proposals"`
	}{
		Proposals: res,
	})
}

type ProposalHandler struct {
	*Service
}

func (h *ProposalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, err := h.proposals()
	if err != nil {
		h.fail(w, err)
		return
	}
	id, err := quorum.ParseWordHex(r.PathValue("id"))
	if err != nil {
		h.fail(w, errors.Wrap(err, "proposal id"))
		return
	}
	rec, err := store.Get(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	JSONResp(w, http.StatusOK, h.proposalRecord(rec))
}

type AddSignatureHandler struct {
	*Service
}

func (h *AddSignatureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store, err := h.proposals()
	if err != nil {
		h.fail(w, err)
		return
	}
	id, err := quorum.ParseWordHex(r.PathValue("id"))
	if err != nil {
		h.fail(w, errors.Wrap(err, "proposal id"))
		return
	}
	var req struct {
		Slot         uint32 `json:"slot"`
		SignatureHex string `json:"signature_hex"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	sig, err := decodeHex("signature_hex", req.SignatureHex)
	if err != nil {
		h.fail(w, err)
		return
	}
	rec, err := store.AddSignature(id, req.Slot, sig)
	if err != nil {
		h.fail(w, err)
		return
	}
	JSONResp(w, http.StatusOK, h.proposalRecord(rec))
}
