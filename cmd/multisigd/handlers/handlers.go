package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/client"
	"github.com/iov-one/quorum/crypto"
	"github.com/iov-one/quorum/errors"
	"github.com/iov-one/quorum/x/ledger"
	"github.com/iov-one/quorum/x/multisig"
	"github.com/tendermint/tendermint/libs/log"
)

const (
	serviceName    = "Para Multisig Server"
	serviceVersion = "0.1.0"
)

// Service is shared by all handlers that talk to the ledger.
type Service struct {
	Client       client.Handle
	Proposals    *multisig.ProposalStore
	Network      quorum.Network
	NodeEndpoint string
	// Timeout limits a single ledger call.
	Timeout time.Duration
	// Debug exposes internal error details in responses.
	Debug  bool
	Logger log.Logger
}

func (s *Service) context(r *http.Request) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.Timeout)
}

func (s *Service) fail(w http.ResponseWriter, err error) {
	writeErr(w, s.Logger, s.Debug, err)
}

func (s *Service) bech32(id quorum.AccountID) string {
	addr, err := id.Bech32(s.Network)
	if err != nil {
		return id.Hex()
	}
	return addr
}

// Register adds all ledger routes to mux.
func Register(mux *http.ServeMux, s *Service) {
	mux.Handle("GET /{$}", &InfoHandler{})
	mux.Handle("GET /health", &HealthHandler{s})
	mux.Handle("POST /multisig/create-account", &CreateAccountHandler{s})
	mux.Handle("GET /multisig/{account_id}/notes", &NotesHandler{s})
	mux.Handle("GET /multisig/{account_id}/balances", &BalancesHandler{s})
	mux.Handle("POST /multisig/consume-proposal", &ConsumeProposalHandler{s})
	mux.Handle("POST /multisig/send-proposal", &SendProposalHandler{s})
	mux.Handle("POST /multisig/batch-send-proposal", &BatchSendProposalHandler{s})
	mux.Handle("POST /multisig/execute", &ExecuteHandler{s})
	mux.Handle("POST /mint", &MintHandler{s})
	mux.Handle("POST /faucet/create", &CreateFaucetHandler{s})
	mux.Handle("POST /proposals", &CreateProposalHandler{s})
	mux.Handle("GET /proposals", &ListProposalsHandler{s})
	mux.Handle("GET /proposals/{id}", &ProposalHandler{s})
	mux.Handle("POST /proposals/{id}/signatures", &AddSignatureHandler{s})
	mux.Handle("/", &DefaultHandler{})
}

// InfoHandler describes the service.
type InfoHandler struct{}

func (h *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	JSONResp(w, http.StatusOK, struct {
		Message string `json:"message"`
		Version string `json:"version"`
	}{
		Message: serviceName,
		Version: serviceVersion,
	})
}

// DefaultHandler is used to handle the request that no other handler wants.
type DefaultHandler struct{}

func (h *DefaultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	JSONErr(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

type HealthHandler struct {
	*Service
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()
	height, err := h.Client.SyncState(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	JSONResp(w, http.StatusOK, struct {
		Status       string `json:"status"`
		SyncHeight   int64  `json:"sync_height"`
		Network      string `json:"network"`
		NodeEndpoint string `json:"node_endpoint,omitempty"`
	}{
		Status:       "ok",
		SyncHeight:   height,
		Network:      string(h.Network),
		NodeEndpoint: h.NodeEndpoint,
	})
}

type accountResponse struct {
	AccountID    string `json:"account_id"`
	AccountIDHex string `json:"account_id_hex"`
}

type CreateAccountHandler struct {
	*Service
}

func (h *CreateAccountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Threshold  uint64   `json:"threshold"`
		PublicKeys []string `json:"public_keys"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	keys, err := crypto.ParsePublicKeysHex(req.PublicKeys)
	if err != nil {
		h.fail(w, err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()
	id, err := h.Client.CreateAccount(ctx, keys, req.Threshold)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.Logger.Info("Multisig account created", "account", id, "threshold", req.Threshold, "approvers", len(keys))
	JSONResp(w, http.StatusOK, accountResponse{
		AccountID:    h.bech32(id),
		AccountIDHex: id.Hex(),
	})
}

type CreateFaucetHandler struct {
	*Service
}

func (h *CreateFaucetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol    string `json:"symbol"`
		Decimals  uint32 `json:"decimals"`
		MaxSupply uint64 `json:"max_supply"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()
	id, err := h.Client.CreateFaucet(ctx, req.Symbol, req.Decimals, req.MaxSupply)
	if err != nil {
		h.fail(w, err)
		return
	}
	JSONResp(w, http.StatusOK, struct {
		FaucetID    string `json:"faucet_id"`
		FaucetIDHex string `json:"faucet_id_hex"`
	}{
		FaucetID:    h.bech32(id),
		FaucetIDHex: id.Hex(),
	})
}

type assetResponse struct {
	FaucetID string `json:"faucet_id"`
	Amount   uint64 `json:"amount"`
}

func (s *Service) assets(assets []*ledger.Asset) []assetResponse {
	res := make([]assetResponse, 0, len(assets))
	for _, a := range assets {
		res = append(res, assetResponse{
			FaucetID: s.bech32(a.FaucetID()),
			Amount:   a.Amount,
		})
	}
	return res
}

type NotesHandler struct {
	*Service
}

func (h *NotesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := quorum.ParseAccountID(r.PathValue("account_id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()
	notes, err := h.Client.ListConsumableNotes(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}

	type noteResponse struct {
		NoteID   string          `json:"note_id"`
		Assets   []assetResponse `json:"assets"`
		Sender   string          `json:"sender"`
		NoteType string          `json:"note_type"`
	}
	res := make([]noteResponse, 0, len(notes))
	for _, n := range notes {
		sender, _ := quorum.NewAccountID(n.Sender)
		res = append(res, noteResponse{
			NoteID:   n.NoteID().Hex(),
			Assets:   h.assets(n.Assets),
			Sender:   h.bech32(sender),
			NoteType: n.Type.String(),
		})
	}
	JSONResp(w, http.StatusOK, struct {
		Notes []noteResponse `json:"notes"`
	}{
		Notes: res,
	})
}

type BalancesHandler struct {
	*Service
}

func (h *BalancesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := quorum.ParseAccountID(r.PathValue("account_id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()
	assets, err := h.Client.GetBalances(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	JSONResp(w, http.StatusOK, struct {
		AccountID string          `json:"account_id"`
		Balances  []assetResponse `json:"balances"`
	}{
		AccountID: h.bech32(id),
		Balances:  h.assets(assets),
	})
}

type proposalResponse struct {
	SummaryCommitment string `json:"summary_commitment"`
	SummaryBytesHex   string `json:"summary_bytes_hex"`
	RequestBytesHex   string `json:"request_bytes_hex"`
}

func newProposalResponse(p *multisig.Proposal) proposalResponse {
	return proposalResponse{
		SummaryCommitment: p.Commitment.Hex(),
		SummaryBytesHex:   encodeHex(p.Summary),
		RequestBytesHex:   encodeHex(p.Request),
	}
}

type ConsumeProposalHandler struct {
	*Service
}

func (h *ConsumeProposalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string   `json:"account_id"`
		NoteIDs   []string `json:"note_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	id, err := quorum.ParseAccountID(req.AccountID)
	if err != nil {
		h.fail(w, err)
		return
	}
	notes := make([]quorum.Word, 0, len(req.NoteIDs))
	for _, n := range req.NoteIDs {
		note, err := quorum.ParseWordHex(n)
		if err != nil {
			h.fail(w, errors.Wrap(err, "note id"))
			return
		}
		notes = append(notes, note)
	}

	ctx, cancel := h.context(r)
	defer cancel()
	p, err := h.Client.ProposeConsume(ctx, id, notes)
	if err != nil {
		h.fail(w, err)
		return
	}
	JSONResp(w, http.StatusOK, newProposalResponse(p))
}

type payment struct {
	RecipientID string `json:"recipient_id"`
	FaucetID    string `json:"faucet_id"`
	Amount      uint64 `json:"amount"`
}

func (p payment) pay() (multisig.Pay, error) {
	recipient, err := quorum.ParseAccountID(p.RecipientID)
	if err != nil {
		return multisig.Pay{}, errors.Wrap(err, "recipient")
	}
	faucet, err := quorum.ParseAccountID(p.FaucetID)
	if err != nil {
		return multisig.Pay{}, errors.Wrap(err, "faucet")
	}
	return multisig.Pay{Recipient: recipient, Faucet: faucet, Amount: p.Amount}, nil
}

type SendProposalHandler struct {
	*Service
}

func (h *SendProposalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
		payment
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	id, err := quorum.ParseAccountID(req.AccountID)
	if err != nil {
		h.fail(w, err)
		return
	}
	pay, err := req.pay()
	if err != nil {
		h.fail(w, err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()
	p, err := h.Client.ProposeSend(ctx, id, pay)
	if err != nil {
		h.fail(w, err)
		return
	}
	JSONResp(w, http.StatusOK, newProposalResponse(p))
}

type BatchSendProposalHandler struct {
	*Service
}

func (h *BatchSendProposalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID  string    `json:"account_id"`
		Recipients []payment `json:"recipients"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	id, err := quorum.ParseAccountID(req.AccountID)
	if err != nil {
		h.fail(w, err)
		return
	}
	if len(req.Recipients) == 0 {
		h.fail(w, errors.Wrap(errors.ErrEmpty, "recipients"))
		return
	}
	payments := make([]multisig.Pay, 0, len(req.Recipients))
	for i, rc := range req.Recipients {
		pay, err := rc.pay()
		if err != nil {
			h.fail(w, errors.Wrapf(err, "recipient %d", i))
			return
		}
		payments = append(payments, pay)
	}

	ctx, cancel := h.context(r)
	defer cancel()
	p, err := h.Client.ProposeBatchSend(ctx, id, payments)
	if err != nil {
		h.fail(w, err)
		return
	}
	JSONResp(w, http.StatusOK, newProposalResponse(p))
}

type executeResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

type ExecuteHandler struct {
	*Service
}

func (h *ExecuteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID       string    `json:"account_id"`
		RequestBytesHex string    `json:"request_bytes_hex"`
		SummaryBytesHex string    `json:"summary_bytes_hex"`
		SignaturesHex   []*string `json:"signatures_hex"`
		PublicKeysHex   []string  `json:"public_keys_hex"`
		// ProposalID optionally names a stored proposal that is updated
		// with the outcome.
		ProposalID string `json:"proposal_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	id, err := quorum.ParseAccountID(req.AccountID)
	if err != nil {
		h.fail(w, err)
		return
	}
	request, err := decodeHex("request_bytes_hex", req.RequestBytesHex)
	if err != nil {
		h.fail(w, err)
		return
	}
	summary, err := decodeHex("summary_bytes_hex", req.SummaryBytesHex)
	if err != nil {
		h.fail(w, err)
		return
	}
	sigs := make([][]byte, len(req.SignaturesHex))
	for i, s := range req.SignaturesHex {
		if s == nil {
			continue
		}
		raw, err := decodeHex("signature", *s)
		if err != nil {
			h.fail(w, errors.Wrap(errors.ErrSignatureEncoding, err.Error()))
			return
		}
		sigs[i] = raw
	}
	var proposal quorum.Word
	if req.ProposalID != "" {
		if proposal, err = quorum.ParseWordHex(req.ProposalID); err != nil {
			h.fail(w, errors.Wrap(err, "proposal id"))
			return
		}
	}

	ctx, cancel := h.context(r)
	defer cancel()
	res, err := h.Client.Execute(ctx, client.ExecuteRequest{
		Account:    id,
		Request:    request,
		Summary:    summary,
		Signatures: sigs,
		PublicKeys: req.PublicKeysHex,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	if !proposal.IsEmpty() && h.Proposals != nil {
		h.record(proposal, res)
	}

	resp := executeResponse{Success: res.Success, Error: res.Error}
	if res.Success {
		resp.TransactionID = res.TransactionID.Hex()
	}
	JSONResp(w, http.StatusOK, resp)
}

// record stores the execution outcome. The ledger is the source of truth,
// a bookkeeping failure is only logged.
func (h *ExecuteHandler) record(id quorum.Word, res *client.ExecuteResult) {
	var err error
	if res.Success {
		_, err = h.Proposals.MarkExecuted(id, res.TransactionID)
	} else {
		_, err = h.Proposals.MarkFailed(id, res.Error)
	}
	if err != nil {
		h.Logger.Info("Cannot update proposal", "proposal", id, "err", err)
	}
}

type MintHandler struct {
	*Service
}

func (h *MintHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
		FaucetID  string `json:"faucet_id"`
		Amount    uint64 `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	account, err := quorum.ParseAccountID(req.AccountID)
	if err != nil {
		h.fail(w, err)
		return
	}
	faucet, err := quorum.ParseAccountID(req.FaucetID)
	if err != nil {
		h.fail(w, errors.Wrap(err, "faucet"))
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()
	txID, err := h.Client.Mint(ctx, account, faucet, req.Amount)
	if err != nil {
		h.fail(w, err)
		return
	}
	JSONResp(w, http.StatusOK, executeResponse{
		Success:       true,
		TransactionID: txID.Hex(),
	})
}
