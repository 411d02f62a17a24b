// Package transport carries upi.Message envelopes over TCP, one
// request/response exchange per connection.
package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/upisim/upig/internal/upi"
)

const defaultMaximumMessageSize = 1 << 20 // 1 MiB

var ErrMessageTooLarge = errors.New("message exceeds maximum size")

// WriteMessage writes one length-prefixed envelope. The 4-byte big-endian
// prefix lets the reader reassemble an envelope spanning several reads and
// keeps back-to-back envelopes on one connection apart.
func WriteMessage(w io.Writer, msg *upi.Message) error {
	raw, err := msg.Encode()
	if err != nil {
		return err
	}

	if len(raw) > defaultMaximumMessageSize {
		return errors.Join(ErrMessageTooLarge, fmt.Errorf("size: %d", len(raw)))
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(raw)))

	_, err = w.Write(prefix[:])
	if err != nil {
		return err
	}

	_, err = w.Write(raw)
	return err
}

// WireReader reads length-prefixed envelopes from a stream. The underlying
// reader is limited so a corrupt or hostile prefix cannot make it buffer an
// unbounded message.
type WireReader struct {
	reader     *bufio.Reader
	maxMsgSize int64
}

func NewWireReader(r io.Reader, maxMsgSize int64) *WireReader {
	return &WireReader{
		reader:     bufio.NewReader(io.LimitReader(r, maxMsgSize+4)),
		maxMsgSize: maxMsgSize,
	}
}

// ReadNextMsg blocks until a full envelope has been read, the stream fails or
// the context is canceled.
func (r *WireReader) ReadNextMsg(ctx context.Context) (*upi.Message, error) {
	result := make(chan readResult, 1)
	go handleRead(r, result)

	// block until read complete or context is canceled
	select {
	case <-ctx.Done():
		return nil, ctx.Err()

	case readMsg := <-result:
		return readMsg.msg, readMsg.err
	}
}

type readResult struct {
	msg *upi.Message
	err error
}

func handleRead(r *WireReader, result chan<- readResult) {
	var prefix [4]byte
	_, err := io.ReadFull(r.reader, prefix[:])
	if err != nil {
		result <- readResult{nil, err}
		return
	}

	size := int64(binary.BigEndian.Uint32(prefix[:]))
	if size > r.maxMsgSize {
		result <- readResult{nil, errors.Join(ErrMessageTooLarge, fmt.Errorf("size: %d", size))}
		return
	}

	raw := make([]byte, size)
	_, err = io.ReadFull(r.reader, raw)
	if err != nil {
		result <- readResult{nil, err}
		return
	}

	msg, err := upi.Decode(raw)
	result <- readResult{msg, err}
}
