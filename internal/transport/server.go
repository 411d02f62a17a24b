package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/upisim/upig/internal/upi"
)

const (
	defaultMaxConnections  = 256
	defaultExchangeTimeout = 30 * time.Second

	msgTypeKey = "msgType"
	errKey     = "err"
)

// HandlerFunc processes one request envelope. A nil return produces no
// response; the caller observes that as a delivery failure.
type HandlerFunc func(ctx context.Context, msg *upi.Message) *upi.Message

// Server accepts inbound connections and runs one request/response exchange
// per connection on its own goroutine, bounded by a semaphore.
type Server struct {
	logger *slog.Logger
	addr   string

	handlersMu sync.RWMutex
	handlers   map[string]HandlerFunc

	listener        net.Listener
	connSemaphore   *semaphore.Weighted
	exchangeTimeout time.Duration
	maxMsgSize      int64

	execWg        sync.WaitGroup
	execCtx       context.Context
	cancelExecCtx context.CancelFunc
}

func NewServer(logger *slog.Logger, addr string, opts ...ServerOption) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		logger:          logger.With(slog.String("module", "transport"), slog.String("addr", addr)),
		addr:            addr,
		handlers:        map[string]HandlerFunc{},
		connSemaphore:   semaphore.NewWeighted(defaultMaxConnections),
		exchangeTimeout: defaultExchangeTimeout,
		maxMsgSize:      defaultMaximumMessageSize,
		execCtx:         ctx,
		cancelExecCtx:   cancel,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type ServerOption func(*Server)

func WithMaxConnections(n int64) ServerOption {
	return func(s *Server) {
		s.connSemaphore = semaphore.NewWeighted(n)
	}
}

func WithExchangeTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.exchangeTimeout = d
	}
}

// Register installs the handler for a message type. A request whose type has
// no registered handler gets no response.
func (s *Server) Register(msgType string, handler HandlerFunc) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[msgType] = handler
}

// ListenAndServe binds the listen address and starts the accept loop in the
// background.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.logger.Info("Listening")

	s.execWg.Add(1)
	go s.acceptLoop()

	return nil
}

// Addr returns the bound listen address, useful when the configured port is 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	defer s.execWg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.execCtx.Done():
				return
			default:
				s.logger.Error("Failed to accept connection", slog.String(errKey, err.Error()))
				continue
			}
		}

		err = s.connSemaphore.Acquire(s.execCtx, 1)
		if err != nil {
			_ = conn.Close()
			return
		}

		s.execWg.Add(1)
		go func() {
			defer s.execWg.Done()
			defer s.connSemaphore.Release(1)
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(s.execCtx, s.exchangeTimeout)
	defer cancel()

	_ = conn.SetDeadline(time.Now().Add(s.exchangeTimeout))

	reader := NewWireReader(conn, s.maxMsgSize)
	msg, err := reader.ReadNextMsg(ctx)
	if err != nil {
		s.logger.Warn("Failed to read request", slog.String(errKey, err.Error()))
		return
	}

	s.handlersMu.RLock()
	handler, found := s.handlers[msg.Type]
	s.handlersMu.RUnlock()

	if !found {
		s.logger.Warn("No handler registered", slog.String(msgTypeKey, msg.Type))
		return
	}

	response := handler(ctx, msg)
	if response == nil {
		return
	}

	err = WriteMessage(conn, response)
	if err != nil {
		s.logger.Warn("Failed to write response", slog.String(msgTypeKey, msg.Type), slog.String(errKey, err.Error()))
	}
}

// Shutdown stops accepting connections and waits for in-flight exchanges.
func (s *Server) Shutdown() {
	s.cancelExecCtx()

	if s.listener != nil {
		err := s.listener.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("Failed to close listener", slog.String(errKey, err.Error()))
		}
	}

	s.execWg.Wait()
	s.logger.Info("Shutdown complete")
}
