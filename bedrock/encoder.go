package bedrock

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
)

// StreamTransport is the duplex byte channel to the speech-model service.
// Send must deliver one complete frame per call; Receive returns the next
// raw chunk, which may split or concatenate frames arbitrarily.
type StreamTransport interface {
	Send(ctx context.Context, frame []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Encoder serializes frames into compact single-object JSON and writes them
// to the stream. Writes are mutex-serialized so concurrent senders (session
// manager and control relay) cannot interleave frame bytes on the wire.
type Encoder struct {
	mu     sync.Mutex
	stream StreamTransport
}

func NewEncoder(stream StreamTransport) *Encoder {
	return &Encoder{stream: stream}
}

// Send marshals and writes exactly one frame. A transport error is returned
// as-is for the caller to treat as fatal; the encoder never retries, since a
// silent retry could duplicate content-stream boundaries.
func (e *Encoder) Send(ctx context.Context, frame Frame) error {
	data, err := sonic.Marshal(frame)
	if err != nil {
		return fmt.Errorf("bedrock: marshal %s frame: %w", frame.Kind(), err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.stream.Send(ctx, data); err != nil {
		return fmt.Errorf("bedrock: send %s frame: %w", frame.Kind(), err)
	}
	return nil
}

// ParseFrame decodes one complete raw frame.
func ParseFrame(raw []byte) (Frame, error) {
	var frame Frame
	if err := sonic.Unmarshal(raw, &frame); err != nil {
		return Frame{}, fmt.Errorf("bedrock: unmarshal frame: %w", err)
	}
	return frame, nil
}
