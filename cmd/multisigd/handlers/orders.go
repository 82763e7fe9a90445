package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gogo/protobuf/proto"
	"github.com/google/uuid"
	"github.com/iov-one/quorum"
	"github.com/iov-one/quorum/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// SwapOrder is the note payload relayed to the AMM. The relay does not
// execute anything against the ledger.
type SwapOrder struct {
	OrderID      string `protobuf:"bytes,1,opt,name=order_id,json=orderId,proto3" json:"order_id,omitempty"`
	Creator      []byte `protobuf:"bytes,2,opt,name=creator,proto3" json:"creator,omitempty"`
	FaucetIn     []byte `protobuf:"bytes,3,opt,name=faucet_in,json=faucetIn,proto3" json:"faucet_in,omitempty"`
	AmountIn     uint64 `protobuf:"varint,4,opt,name=amount_in,json=amountIn,proto3" json:"amount_in,omitempty"`
	FaucetOut    []byte `protobuf:"bytes,5,opt,name=faucet_out,json=faucetOut,proto3" json:"faucet_out,omitempty"`
	MinAmountOut uint64 `protobuf:"varint,6,opt,name=min_amount_out,json=minAmountOut,proto3" json:"min_amount_out,omitempty"`
	Recipient    []byte `protobuf:"bytes,7,opt,name=recipient,proto3" json:"recipient,omitempty"`
	// Deadline is a unix timestamp in milliseconds.
	Deadline uint64 `protobuf:"varint,8,opt,name=deadline,proto3" json:"deadline,omitempty"`
	// Serial makes the note unique, derived from the order id.
	Serial []byte `protobuf:"bytes,9,opt,name=serial,proto3" json:"serial,omitempty"`
}

func (m *SwapOrder) Reset()         { *m = SwapOrder{} }
func (m *SwapOrder) String() string { return proto.CompactTextString(m) }
func (*SwapOrder) ProtoMessage()    {}

// OrderHandler relays swap orders to the AMM oracle.
type OrderHandler struct {
	// Endpoint is the AMM base URL.
	Endpoint string
	Client   *http.Client
	Logger   log.Logger
	Debug    bool
	// now is used to check the deadline, time.Now when nil.
	now func() time.Time
}

type submitOrderRequest struct {
	AccountID          string `json:"account_id"`
	FaucetIDIn         string `json:"faucet_id_in"`
	AmountIn           uint64 `json:"amount_in"`
	FaucetIDOut        string `json:"faucet_id_out"`
	MinAmountOut       uint64 `json:"min_amount_out"`
	RecipientAccountID string `json:"recipient_account_id"`
	Deadline           uint64 `json:"deadline"`
}

func (h *OrderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, h.Logger, h.Debug, err)
		return
	}
	order, err := h.order(req)
	if err != nil {
		writeErr(w, h.Logger, h.Debug, err)
		return
	}
	note, err := h.relay(r.Context(), order)
	if err != nil {
		writeErr(w, h.Logger, h.Debug, err)
		return
	}
	h.Logger.Info("Order relayed", "order", order.OrderID)
	JSONResp(w, http.StatusOK, struct {
		Success  bool   `json:"success"`
		Message  string `json:"message"`
		OrderID  string `json:"order_id"`
		P2IDNote string `json:"p2id_note"`
	}{
		Success:  true,
		Message:  "Order submitted successfully",
		OrderID:  order.OrderID,
		P2IDNote: note,
	})
}

func (h *OrderHandler) order(req submitOrderRequest) (*SwapOrder, error) {
	ids := make(map[string]quorum.AccountID, 4)
	for name, s := range map[string]string{
		"account_id":           req.AccountID,
		"faucet_id_in":         req.FaucetIDIn,
		"faucet_id_out":        req.FaucetIDOut,
		"recipient_account_id": req.RecipientAccountID,
	} {
		id, err := quorum.ParseAccountID(s)
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		ids[name] = id
	}
	if ids["faucet_id_in"].Equals(ids["faucet_id_out"]) {
		return nil, errors.Wrap(errors.ErrInput, "cannot swap an asset for itself")
	}
	if req.AmountIn == 0 {
		return nil, errors.Wrap(errors.ErrAmount, "amount_in must be positive")
	}
	if req.MinAmountOut == 0 {
		return nil, errors.Wrap(errors.ErrAmount, "min_amount_out must be positive")
	}
	now := time.Now
	if h.now != nil {
		now = h.now
	}
	if req.Deadline <= uint64(now().UnixMilli()) {
		return nil, errors.Wrap(errors.ErrInput, "deadline already passed")
	}

	oid := uuid.New()
	serial := quorum.Hash(oid[:])
	return &SwapOrder{
		OrderID:      "order_" + oid.String(),
		Creator:      ids["account_id"].Bytes(),
		FaucetIn:     ids["faucet_id_in"].Bytes(),
		AmountIn:     req.AmountIn,
		FaucetOut:    ids["faucet_id_out"].Bytes(),
		MinAmountOut: req.MinAmountOut,
		Recipient:    ids["recipient_account_id"].Bytes(),
		Deadline:     req.Deadline,
		Serial:       serial.Bytes(),
	}, nil
}

// relay posts the order note and returns the payback note reported by the
// AMM. All failures are ErrResource.
func (h *OrderHandler) relay(ctx context.Context, order *SwapOrder) (string, error) {
	raw, err := proto.Marshal(order)
	if err != nil {
		return "", errors.Wrap(err, "cannot encode order")
	}
	body, err := json.Marshal(map[string]string{
		"note_data": base64.StdEncoding.EncodeToString(raw),
	})
	if err != nil {
		return "", errors.Wrap(err, "cannot encode order")
	}

	url := strings.TrimRight(h.Endpoint, "/") + "/orders/submit"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrapf(errors.ErrResource, "request: %s", err)
	}
	req.Header.Set("Content-Type", "application/json")

	cli := h.Client
	if cli == nil {
		cli = http.DefaultClient
	}
	resp, err := cli.Do(req)
	if err != nil {
		return "", errors.Wrapf(errors.ErrResource, "amm: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", errors.Wrapf(errors.ErrResource, "amm responded %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	var payload struct {
		P2IDNote string `json:"p2id_note"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&payload); err != nil {
		return "", errors.Wrapf(errors.ErrResource, "amm response: %s", err)
	}
	if payload.P2IDNote == "" {
		return "", errors.Wrap(errors.ErrResource, fmt.Sprintf("amm response for %s without p2id_note", order.OrderID))
	}
	return payload.P2IDNote, nil
}
