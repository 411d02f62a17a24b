// Package upi defines the wire envelope and the typed payloads exchanged
// between the payer device, the merchant terminal and the bank authority.
package upi

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Participant roles used in the envelope sender/receiver fields.
const (
	RoleDevice   = "USER_DEVICE"
	RoleTerminal = "UPI_MACHINE"
	RoleBank     = "BANK_SERVER"
)

// Request message types.
const (
	MsgRegisterUser        = "REGISTER_USER"
	MsgRegisterMerchant    = "REGISTER_MERCHANT"
	MsgAuthenticateUser    = "AUTHENTICATE_USER"
	MsgVerifyPIN           = "VERIFY_PIN"
	MsgProcessTransaction  = "PROCESS_TRANSACTION"
	MsgTransactionRequest  = "PROCESS_TRANSACTION_REQUEST"
	MsgPaymentConfirmation = "PAYMENT_CONFIRMATION"
	MsgGetMerchantInfo     = "GET_MERCHANT_INFO"
)

// Response message types. A response echoes the message identifier of its
// request envelope.
const (
	MsgRegisterUserResponse       = "REGISTER_USER_RESPONSE"
	MsgRegisterMerchantResponse   = "REGISTER_MERCHANT_RESPONSE"
	MsgAuthenticateUserResponse   = "AUTHENTICATE_USER_RESPONSE"
	MsgVerifyPINResponse          = "VERIFY_PIN_RESPONSE"
	MsgProcessTransactionResponse = "PROCESS_TRANSACTION_RESPONSE"
	MsgPaymentConfirmationAck     = "PAYMENT_CONFIRMATION_ACK"
	MsgGetMerchantInfoResponse    = "GET_MERCHANT_INFO_RESPONSE"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrMissingField       = errors.New("missing required field")
	ErrDecodeFailed       = errors.New("failed to decode message")
)

// Message is the envelope exchanged between participants. Exactly one
// envelope travels in each direction of a connection cycle.
type Message struct {
	Type      string          `json:"message_type"`
	Sender    string          `json:"sender"`
	Receiver  string          `json:"receiver"`
	Data      json.RawMessage `json:"data"`
	MessageID string          `json:"message_id"`
}

// Payload is implemented by all typed message payloads. Validate reports
// missing or malformed required fields at decode time.
type Payload interface {
	Validate() error
}

// NewMessage wraps the given payload in an envelope with a fresh correlation
// identifier.
func NewMessage(msgType, sender, receiver string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Join(ErrDecodeFailed, err)
	}

	return &Message{
		Type:      msgType,
		Sender:    sender,
		Receiver:  receiver,
		Data:      data,
		MessageID: uuid.NewString(),
	}, nil
}

// NewResponse wraps the given payload in a response envelope echoing the
// correlation identifier of the request.
func NewResponse(req *Message, msgType, sender string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Join(ErrDecodeFailed, err)
	}

	return &Message{
		Type:      msgType,
		Sender:    sender,
		Receiver:  req.Sender,
		Data:      data,
		MessageID: req.MessageID,
	}, nil
}

func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func Decode(raw []byte) (*Message, error) {
	msg := &Message{}
	err := json.Unmarshal(raw, msg)
	if err != nil {
		return nil, errors.Join(ErrDecodeFailed, err)
	}

	if msg.Type == "" {
		return nil, errors.Join(ErrDecodeFailed, ErrMissingField, fmt.Errorf("field: message_type"))
	}
	if !knownTypes[msg.Type] {
		return nil, errors.Join(ErrDecodeFailed, ErrUnknownMessageType, fmt.Errorf("type: %s", msg.Type))
	}

	return msg, nil
}

var knownTypes = map[string]bool{
	MsgRegisterUser:               true,
	MsgRegisterMerchant:           true,
	MsgAuthenticateUser:           true,
	MsgVerifyPIN:                  true,
	MsgProcessTransaction:         true,
	MsgTransactionRequest:         true,
	MsgPaymentConfirmation:        true,
	MsgGetMerchantInfo:            true,
	MsgRegisterUserResponse:       true,
	MsgRegisterMerchantResponse:   true,
	MsgAuthenticateUserResponse:   true,
	MsgVerifyPINResponse:          true,
	MsgProcessTransactionResponse: true,
	MsgPaymentConfirmationAck:     true,
	MsgGetMerchantInfoResponse:    true,
}

// DecodePayload unmarshals the envelope data into the given typed payload and
// validates its required fields.
func (m *Message) DecodePayload(payload Payload) error {
	err := json.Unmarshal(m.Data, payload)
	if err != nil {
		return errors.Join(ErrDecodeFailed, err)
	}

	return payload.Validate()
}

func missingField(name string) error {
	return errors.Join(ErrMissingField, fmt.Errorf("field: %s", name))
}
