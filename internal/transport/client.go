package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/upisim/upig/internal/upi"
)

const (
	defaultDialTimeout     = 5 * time.Second
	defaultResponseTimeout = 10 * time.Second
)

var (
	// ErrPeerUnreachable covers dial failures.
	ErrPeerUnreachable = errors.New("peer is unreachable")
	// ErrNoResponse covers a connection that closes or times out before a
	// full response envelope arrives. Callers treat both errors as the same
	// delivery failure.
	ErrNoResponse = errors.New("no response received from peer")
)

// Client performs the synchronous outbound call: open a connection, send one
// envelope, block for exactly one response, close.
type Client struct {
	logger          *slog.Logger
	dialer          net.Dialer
	dialTimeout     time.Duration
	responseTimeout time.Duration
	maxMsgSize      int64
}

func NewClient(logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		logger:          logger.With(slog.String("module", "transport")),
		dialTimeout:     defaultDialTimeout,
		responseTimeout: defaultResponseTimeout,
		maxMsgSize:      defaultMaximumMessageSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type ClientOption func(*Client)

func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.dialTimeout = d
	}
}

func WithResponseTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.responseTimeout = d
	}
}

// Send delivers the envelope to addr and waits for the single response. It
// never retries; any transport failure surfaces as an error the orchestrator
// must treat as final.
func (c *Client) Send(ctx context.Context, addr string, msg *upi.Message) (*upi.Message, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	conn, err := c.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, errors.Join(ErrPeerUnreachable, err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(c.responseTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)

	err = WriteMessage(conn, msg)
	if err != nil {
		return nil, errors.Join(ErrNoResponse, err)
	}

	readCtx, cancelRead := context.WithDeadline(ctx, deadline)
	defer cancelRead()

	response, err := NewWireReader(conn, c.maxMsgSize).ReadNextMsg(readCtx)
	if err != nil {
		// a dropped request (no registered handler) surfaces here as EOF
		return nil, errors.Join(ErrNoResponse, err)
	}

	c.logger.Debug("Received response",
		slog.String("addr", addr),
		slog.String(msgTypeKey, response.Type),
	)

	return response, nil
}
