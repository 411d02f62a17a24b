package upi_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upisim/upig/internal/upi"
)

func TestDescriptorRoundTrip(t *testing.T) {
	// given
	descriptor := &upi.PaymentDescriptor{
		VMID:        "9c1de5a2b44f0e87",
		Timestamp:   "1700000000",
		Amount:      "150",
		Description: "groceries",
	}

	// when
	raw, err := descriptor.Encode()
	require.NoError(t, err)

	parsed, err := upi.ParseDescriptor(raw)

	// then
	require.NoError(t, err)
	require.Equal(t, descriptor, parsed)
}

func TestParseDescriptorMissingVMID(t *testing.T) {
	_, err := upi.ParseDescriptor(`{"timestamp":"1700000000","amount":"150"}`)
	require.ErrorIs(t, err, upi.ErrDescriptorMissingVMID)
}

func TestParseDescriptorMalformed(t *testing.T) {
	_, err := upi.ParseDescriptor(`vmid=abc`)
	require.ErrorIs(t, err, upi.ErrDecodeFailed)
}
