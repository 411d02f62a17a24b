package transport_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/upisim/upig/internal/transport"
	"github.com/upisim/upig/internal/upi"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEchoPINRequest(t *testing.T) *upi.Message {
	t.Helper()

	msg, err := upi.NewMessage(upi.MsgVerifyPIN, upi.RoleDevice, upi.RoleBank, &upi.VerifyPINRequest{
		UserID: "f3a91c2b77d0e845",
		PIN:    "1234",
	})
	require.NoError(t, err)

	return msg
}

func TestWireRoundTrip(t *testing.T) {
	// given
	expectedMsg := newEchoPINRequest(t)

	var buff bytes.Buffer
	err := transport.WriteMessage(&buff, expectedMsg)
	require.NoError(t, err)

	sut := transport.NewWireReader(&buff, 4096)

	// when
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := sut.ReadNextMsg(ctx)

	// then
	require.NoError(t, err)
	require.Equal(t, expectedMsg, res)
}

func TestWireReaderBackToBackMessages(t *testing.T) {
	// given
	first := newEchoPINRequest(t)
	second := newEchoPINRequest(t)

	var buff bytes.Buffer
	require.NoError(t, transport.WriteMessage(&buff, first))
	require.NoError(t, transport.WriteMessage(&buff, second))

	sut := transport.NewWireReader(&buff, 1<<20)

	// when
	ctx := context.Background()
	gotFirst, err := sut.ReadNextMsg(ctx)
	require.NoError(t, err)

	gotSecond, err := sut.ReadNextMsg(ctx)
	require.NoError(t, err)

	// then
	require.Equal(t, first.MessageID, gotFirst.MessageID)
	require.Equal(t, second.MessageID, gotSecond.MessageID)
}

func TestWireReaderContextCancelled(t *testing.T) {
	// given
	blocked, w := io.Pipe()
	defer func() { _ = w.Close() }()

	sut := transport.NewWireReader(blocked, 4096)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// when
	_, err := sut.ReadNextMsg(ctx)

	// then
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServerClientExchange(t *testing.T) {
	// given
	server := transport.NewServer(newTestLogger(), "localhost:0")
	server.Register(upi.MsgVerifyPIN, func(_ context.Context, msg *upi.Message) *upi.Message {
		res, err := upi.NewResponse(msg, upi.MsgVerifyPINResponse, upi.RoleBank, &upi.VerifyPINResponse{Success: true})
		require.NoError(t, err)
		return res
	})

	require.NoError(t, server.ListenAndServe())
	defer server.Shutdown()

	sut := transport.NewClient(newTestLogger())

	// when
	res, err := sut.Send(context.Background(), server.Addr(), newEchoPINRequest(t))

	// then
	require.NoError(t, err)
	require.Equal(t, upi.MsgVerifyPINResponse, res.Type)

	payload := &upi.VerifyPINResponse{}
	require.NoError(t, res.DecodePayload(payload))
	require.True(t, payload.Success)
}

func TestServerDropsUnhandledMessage(t *testing.T) {
	// given a server with no handler for the request type
	server := transport.NewServer(newTestLogger(), "localhost:0")
	require.NoError(t, server.ListenAndServe())
	defer server.Shutdown()

	sut := transport.NewClient(newTestLogger(), transport.WithResponseTimeout(500*time.Millisecond))

	// when
	_, err := sut.Send(context.Background(), server.Addr(), newEchoPINRequest(t))

	// then
	require.ErrorIs(t, err, transport.ErrNoResponse)
}

func TestClientPeerUnreachable(t *testing.T) {
	// given no listener on the target port
	sut := transport.NewClient(newTestLogger(), transport.WithDialTimeout(500*time.Millisecond))

	// when
	_, err := sut.Send(context.Background(), "localhost:1", newEchoPINRequest(t))

	// then
	require.ErrorIs(t, err, transport.ErrPeerUnreachable)
}

func TestClientResponseTimeout(t *testing.T) {
	// given a handler that stalls past the client deadline
	server := transport.NewServer(newTestLogger(), "localhost:0")
	server.Register(upi.MsgVerifyPIN, func(ctx context.Context, msg *upi.Message) *upi.Message {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return nil
	})

	require.NoError(t, server.ListenAndServe())
	defer server.Shutdown()

	sut := transport.NewClient(newTestLogger(), transport.WithResponseTimeout(100*time.Millisecond))

	// when
	start := time.Now()
	_, err := sut.Send(context.Background(), server.Addr(), newEchoPINRequest(t))

	// then
	require.ErrorIs(t, err, transport.ErrNoResponse)
	require.Less(t, time.Since(start), 3*time.Second)
}
