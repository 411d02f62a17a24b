// Package terminal implements the merchant terminal: it hands out payment
// descriptors carrying an ephemeral merchant identifier and forwards incoming
// transaction requests to the bank under the permanent identifier.
package terminal

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/upisim/upig/internal/transport"
	"github.com/upisim/upig/internal/upi"
	"github.com/upisim/upig/internal/vmid"
)

const (
	bankWaitInterval   = 2 * time.Second
	bankWaitMaxRetries = 15

	defaultDescription = "Payment via UPI"
)

var ErrBankUnavailable = errors.New("bank did not answer the transaction request")

// PendingTransaction tracks a forwarded transaction until the device reports
// the final outcome.
type PendingTransaction struct {
	TransactionID string
	SenderID      string
	Amount        float64
	ForwardedAt   time.Time
	Status        string
}

// Terminal drives the terminal side of the payment flow.
type Terminal struct {
	logger     *slog.Logger
	merchantID string
	bankAddr   string
	client     *transport.Client
	vmids      *vmid.Service

	pendingMu sync.Mutex
	pending   map[string]*PendingTransaction
}

func New(logger *slog.Logger, merchantID, bankAddr string, client *transport.Client, mappings vmid.MappingStore) *Terminal {
	t := &Terminal{
		logger:     logger.With(slog.String("module", "terminal"), slog.String("merchantId", merchantID)),
		merchantID: merchantID,
		bankAddr:   bankAddr,
		client:     client,
		pending:    map[string]*PendingTransaction{},
	}

	// a terminal only ever issues identifiers for its own merchant, so the
	// decrypt fallback matches against that single identifier
	t.vmids = vmid.NewService(logger, mappings, vmid.WithPrefixMatcher(vmid.MerchantList{merchantID}))

	return t
}

// CreateDescriptor issues a fresh ephemeral identifier bound to the current
// second and returns the descriptor the payer device scans.
func (t *Terminal) CreateDescriptor(amount float64, description string) (*upi.PaymentDescriptor, error) {
	now := time.Now()

	ephemeralID, err := t.vmids.Issue(t.merchantID, now)
	if err != nil {
		return nil, err
	}

	descriptor := &upi.PaymentDescriptor{
		VMID:        ephemeralID,
		Timestamp:   strconv.FormatInt(now.Unix(), 10),
		Description: description,
	}
	if amount > 0 {
		descriptor.Amount = strconv.FormatFloat(amount, 'f', -1, 64)
	}

	t.logger.Info("Issued payment descriptor", slog.String("vmid", ephemeralID))
	return descriptor, nil
}

// RegisterHandlers installs the terminal-side message handlers.
func (t *Terminal) RegisterHandlers(srv *transport.Server) {
	srv.Register(upi.MsgTransactionRequest, t.handleTransactionRequest)
	srv.Register(upi.MsgPaymentConfirmation, t.handlePaymentConfirmation)
	srv.Register(upi.MsgGetMerchantInfo, t.handleGetMerchantInfo)
}

// handleGetMerchantInfo forwards a merchant lookup to the bank on behalf of a
// device that only knows the terminal address.
func (t *Terminal) handleGetMerchantInfo(ctx context.Context, req *upi.Message) *upi.Message {
	payload := &upi.GetMerchantInfoRequest{}
	err := req.DecodePayload(payload)
	if err != nil {
		return t.respond(req, upi.MsgGetMerchantInfoResponse, &upi.GetMerchantInfoResponse{Error: err.Error()})
	}

	forward, err := upi.NewMessage(upi.MsgGetMerchantInfo, upi.RoleTerminal, upi.RoleBank, payload)
	if err != nil {
		return t.respond(req, upi.MsgGetMerchantInfoResponse, &upi.GetMerchantInfoResponse{Error: err.Error()})
	}

	bankRes, err := t.client.Send(ctx, t.bankAddr, forward)
	if err != nil {
		return t.respond(req, upi.MsgGetMerchantInfoResponse, &upi.GetMerchantInfoResponse{Error: ErrBankUnavailable.Error()})
	}

	bankPayload := &upi.GetMerchantInfoResponse{}
	err = bankRes.DecodePayload(bankPayload)
	if err != nil {
		return t.respond(req, upi.MsgGetMerchantInfoResponse, &upi.GetMerchantInfoResponse{Error: err.Error()})
	}

	return t.respond(req, upi.MsgGetMerchantInfoResponse, bankPayload)
}

// WaitForBank blocks until the bank answers a merchant lookup, retrying with
// constant backoff. Startup only; the payment path never retries.
func (t *Terminal) WaitForBank(ctx context.Context) error {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(bankWaitInterval), bankWaitMaxRetries)
	policyContext := backoff.WithContext(policy, ctx)

	operation := func() error {
		msg, err := upi.NewMessage(upi.MsgGetMerchantInfo, upi.RoleTerminal, upi.RoleBank,
			&upi.GetMerchantInfoRequest{MerchantID: t.merchantID})
		if err != nil {
			return backoff.Permanent(err)
		}

		_, err = t.client.Send(ctx, t.bankAddr, msg)
		return err
	}

	notify := func(err error, _ time.Duration) {
		t.logger.Warn("Waiting for bank", slog.String("err", err.Error()))
	}

	return backoff.RetryNotify(operation, policyContext, notify)
}

func (t *Terminal) respond(req *upi.Message, msgType string, payload any) *upi.Message {
	res, err := upi.NewResponse(req, msgType, upi.RoleTerminal, payload)
	if err != nil {
		t.logger.Error("Failed to build response", slog.String("err", err.Error()))
		return nil
	}
	return res
}

// handleTransactionRequest resolves the ephemeral identifier back to the
// permanent one and forwards the transaction to the bank. The bank's answer,
// success or typed failure, travels back to the device unchanged.
func (t *Terminal) handleTransactionRequest(ctx context.Context, req *upi.Message) *upi.Message {
	payload := &upi.TransactionRequest{}
	err := req.DecodePayload(payload)
	if err != nil {
		return t.respond(req, upi.MsgProcessTransactionResponse, &upi.ProcessTransactionResponse{Error: err.Error()})
	}

	tsSeconds, err := strconv.ParseInt(payload.Timestamp, 10, 64)
	if err != nil {
		return t.respond(req, upi.MsgProcessTransactionResponse, &upi.ProcessTransactionResponse{Error: "invalid timestamp"})
	}

	merchantID, err := t.vmids.Resolve(payload.VMID, time.Unix(tsSeconds, 0))
	if err != nil {
		t.logger.Warn("Failed to resolve ephemeral identifier",
			slog.String("vmid", payload.VMID),
			slog.String("err", err.Error()),
		)
		return t.respond(req, upi.MsgProcessTransactionResponse, &upi.ProcessTransactionResponse{Error: err.Error()})
	}

	description := payload.Description
	if description == "" {
		description = defaultDescription
	}

	forward, err := upi.NewMessage(upi.MsgProcessTransaction, upi.RoleTerminal, upi.RoleBank, &upi.ProcessTransactionRequest{
		SenderID:    payload.SenderID,
		ReceiverID:  merchantID,
		Amount:      payload.Amount,
		Description: description,
	})
	if err != nil {
		return t.respond(req, upi.MsgProcessTransactionResponse, &upi.ProcessTransactionResponse{Error: err.Error()})
	}

	bankRes, err := t.client.Send(ctx, t.bankAddr, forward)
	if err != nil {
		t.logger.Error("Bank unreachable", slog.String("err", err.Error()))
		return t.respond(req, upi.MsgProcessTransactionResponse, &upi.ProcessTransactionResponse{Error: ErrBankUnavailable.Error()})
	}

	bankPayload := &upi.ProcessTransactionResponse{}
	err = bankRes.DecodePayload(bankPayload)
	if err != nil {
		return t.respond(req, upi.MsgProcessTransactionResponse, &upi.ProcessTransactionResponse{Error: err.Error()})
	}

	if bankPayload.Success {
		t.trackPending(bankPayload.TransactionID, payload.SenderID, *payload.Amount)
	}

	return t.respond(req, upi.MsgProcessTransactionResponse, bankPayload)
}

func (t *Terminal) trackPending(transactionID, senderID string, amount float64) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()

	t.pending[transactionID] = &PendingTransaction{
		TransactionID: transactionID,
		SenderID:      senderID,
		Amount:        amount,
		ForwardedAt:   time.Now(),
	}
}

// handlePaymentConfirmation reconciles the pending transaction with the
// outcome the device observed.
func (t *Terminal) handlePaymentConfirmation(_ context.Context, req *upi.Message) *upi.Message {
	payload := &upi.PaymentConfirmation{}
	err := req.DecodePayload(payload)
	if err != nil {
		return t.respond(req, upi.MsgPaymentConfirmationAck, &upi.PaymentConfirmationAck{})
	}

	t.pendingMu.Lock()
	pending, found := t.pending[payload.TransactionID]
	if found {
		pending.Status = payload.Status
	}
	t.pendingMu.Unlock()

	if !found {
		t.logger.Warn("Confirmation for unknown transaction", slog.String("transactionId", payload.TransactionID))
		return t.respond(req, upi.MsgPaymentConfirmationAck, &upi.PaymentConfirmationAck{})
	}

	t.logger.Info("Payment confirmed",
		slog.String("transactionId", payload.TransactionID),
		slog.String("status", payload.Status),
	)

	return t.respond(req, upi.MsgPaymentConfirmationAck, &upi.PaymentConfirmationAck{Success: true})
}

// Pending returns the tracked transaction, if any.
func (t *Terminal) Pending(transactionID string) (*PendingTransaction, bool) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()

	pending, found := t.pending[transactionID]
	if !found {
		return nil, false
	}

	clone := *pending
	return &clone, true
}
