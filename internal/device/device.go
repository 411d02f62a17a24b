// Package device implements the payer-device side of the payment flow:
// descriptor intake, the PIN check against the bank and the transaction
// request to the terminal. Every transport failure is final; nothing is
// retried on the payment path.
package device

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/upisim/upig/internal/transport"
	"github.com/upisim/upig/internal/upi"
)

var (
	ErrPINRejected        = errors.New("PIN verification failed")
	ErrPaymentRejected    = errors.New("payment was rejected")
	ErrRegistrationFailed = errors.New("registration failed")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrLookupFailed       = errors.New("merchant lookup failed")
)

// Device is the payer-side orchestrator used by the CLI.
type Device struct {
	logger       *slog.Logger
	client       *transport.Client
	bankAddr     string
	terminalAddr string
}

func New(logger *slog.Logger, client *transport.Client, bankAddr, terminalAddr string) *Device {
	return &Device{
		logger:       logger.With(slog.String("module", "device")),
		client:       client,
		bankAddr:     bankAddr,
		terminalAddr: terminalAddr,
	}
}

// ParseDescriptor decodes a scanned payment descriptor.
func (d *Device) ParseDescriptor(raw string) (*upi.PaymentDescriptor, error) {
	return upi.ParseDescriptor(raw)
}

func (d *Device) RegisterUser(ctx context.Context, req *upi.RegisterUserRequest) (*upi.RegisterUserResponse, error) {
	res := &upi.RegisterUserResponse{}
	err := d.call(ctx, d.bankAddr, upi.MsgRegisterUser, req, res)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, errors.Join(ErrRegistrationFailed, errors.New(res.Error))
	}
	return res, nil
}

func (d *Device) RegisterMerchant(ctx context.Context, req *upi.RegisterMerchantRequest) (*upi.RegisterMerchantResponse, error) {
	res := &upi.RegisterMerchantResponse{}
	err := d.call(ctx, d.bankAddr, upi.MsgRegisterMerchant, req, res)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, errors.Join(ErrRegistrationFailed, errors.New(res.Error))
	}
	return res, nil
}

func (d *Device) Authenticate(ctx context.Context, uid, mmid, password string) (*upi.AuthenticateUserResponse, error) {
	res := &upi.AuthenticateUserResponse{}
	err := d.call(ctx, d.bankAddr, upi.MsgAuthenticateUser, &upi.AuthenticateUserRequest{
		UID:      uid,
		MMID:     mmid,
		Password: password,
	}, res)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, errors.Join(ErrAuthFailed, errors.New(res.Error))
	}
	return res, nil
}

// VerifyPIN runs the credential check. It happens before any transaction
// request is sent; on mismatch the flow terminates with no funds moved.
func (d *Device) VerifyPIN(ctx context.Context, userID, pin string) error {
	res := &upi.VerifyPINResponse{}
	err := d.call(ctx, d.bankAddr, upi.MsgVerifyPIN, &upi.VerifyPINRequest{
		UserID: userID,
		PIN:    pin,
	}, res)
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.Join(ErrPINRejected, errors.New(res.Error))
	}
	return nil
}

func (d *Device) MerchantInfo(ctx context.Context, merchantID string) (*upi.GetMerchantInfoResponse, error) {
	res := &upi.GetMerchantInfoResponse{}
	err := d.call(ctx, d.bankAddr, upi.MsgGetMerchantInfo, &upi.GetMerchantInfoRequest{MerchantID: merchantID}, res)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, errors.Join(ErrLookupFailed, errors.New(res.Error))
	}
	return res, nil
}

// Pay runs the full device-side flow for one payment: PIN check, transaction
// request to the terminal, then the confirmation exchange reporting the final
// outcome back to the terminal.
func (d *Device) Pay(ctx context.Context, userID, pin string, descriptor *upi.PaymentDescriptor, amount float64, description string) (string, error) {
	err := d.VerifyPIN(ctx, userID, pin)
	if err != nil {
		return "", err
	}

	if amount == 0 && descriptor.Amount != "" {
		amount, err = strconv.ParseFloat(descriptor.Amount, 64)
		if err != nil {
			return "", errors.Join(upi.ErrDecodeFailed, err)
		}
	}
	if description == "" {
		description = descriptor.Description
	}

	res := &upi.ProcessTransactionResponse{}
	err = d.call(ctx, d.terminalAddr, upi.MsgTransactionRequest, &upi.TransactionRequest{
		VMID:        descriptor.VMID,
		Timestamp:   descriptor.Timestamp,
		Amount:      &amount,
		Description: description,
		SenderID:    userID,
	}, res)
	if err != nil {
		return "", err
	}

	if !res.Success {
		return "", errors.Join(ErrPaymentRejected, errors.New(res.Error))
	}

	d.confirm(ctx, res.TransactionID, amount, "SUCCESS")

	return res.TransactionID, nil
}

// confirm reports the outcome to the terminal so it can reconcile its
// pending state. A failed confirmation does not undo the committed payment.
func (d *Device) confirm(ctx context.Context, transactionID string, amount float64, status string) {
	msg, err := upi.NewMessage(upi.MsgPaymentConfirmation, upi.RoleDevice, upi.RoleTerminal, &upi.PaymentConfirmation{
		TransactionID: transactionID,
		Amount:        &amount,
		Status:        status,
	})
	if err != nil {
		d.logger.Error("Failed to build confirmation", slog.String("err", err.Error()))
		return
	}

	_, err = d.client.Send(ctx, d.terminalAddr, msg)
	if err != nil {
		d.logger.Warn("Failed to deliver confirmation", slog.String("err", err.Error()))
	}
}

// call sends one typed request and decodes the single typed response.
func (d *Device) call(ctx context.Context, addr, msgType string, req upi.Payload, res upi.Payload) error {
	err := req.Validate()
	if err != nil {
		return err
	}

	msg, err := upi.NewMessage(msgType, upi.RoleDevice, receiverFor(addr == d.bankAddr), req)
	if err != nil {
		return err
	}

	response, err := d.client.Send(ctx, addr, msg)
	if err != nil {
		return err
	}

	return response.DecodePayload(res)
}

func receiverFor(isBank bool) string {
	if isBank {
		return upi.RoleBank
	}
	return upi.RoleTerminal
}
