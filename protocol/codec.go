package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// ParseControl parses one inbound gateway control message.
func ParseControl(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, fmt.Errorf("protocol: unmarshal control message: %w", err)
	}
	if msg.Type == "" {
		return ControlMessage{}, fmt.Errorf("protocol: control message missing type field")
	}
	return msg, nil
}

// Sink delivers outbound notifications to the gateway.
type Sink interface {
	Notify(v interface{}) error
}

// WriterSink writes one JSON object per line to an io.Writer. Writes are
// serialized so concurrent notifiers cannot interleave lines.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Notify(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: marshal notification: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("protocol: write notification: %w", err)
	}
	return nil
}
