package upi

import (
	"encoding/json"
	"errors"
)

var ErrDescriptorMissingVMID = errors.New("payment descriptor is missing the vmid field")

// PaymentDescriptor is the payload a terminal hands out per payment session,
// the textual content of the QR code shown to the payer. Amount and
// description are optional pre-fills; the ephemeral identifier and its
// issuance timestamp are mandatory.
type PaymentDescriptor struct {
	VMID        string `json:"vmid"`
	Timestamp   string `json:"timestamp"`
	Amount      string `json:"amount,omitempty"`
	Description string `json:"desc,omitempty"`
}

func (d *PaymentDescriptor) Encode() (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ParseDescriptor decodes a payment descriptor and rejects it if the
// mandatory ephemeral-identifier field is absent.
func ParseDescriptor(raw string) (*PaymentDescriptor, error) {
	d := &PaymentDescriptor{}
	err := json.Unmarshal([]byte(raw), d)
	if err != nil {
		return nil, errors.Join(ErrDecodeFailed, err)
	}

	if d.VMID == "" {
		return nil, ErrDescriptorMissingVMID
	}

	return d, nil
}
