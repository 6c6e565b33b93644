package session

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/empath-com/Empathetic-Communication/audio"
	"github.com/empath-com/Empathetic-Communication/core"
	"github.com/empath-com/Empathetic-Communication/protocol"
)

// Individual base64 audio chunks can be large; allow generous control lines.
const maxControlLine = 10 * 1024 * 1024

// RelayConfig configures the control relay.
type RelayConfig struct {
	// MulawOutput transcodes drained audio output from 16-bit LPCM to
	// 8 kHz G.711 µ-law for telephony gateways.
	MulawOutput bool
	Logger      *core.Logger
}

// Relay translates inbound gateway control messages into session
// operations and drains the audio output queue back to the gateway. A bad
// message is logged and skipped; the relay never terminates the session
// over a single malformed input.
type Relay struct {
	sess   *Session
	mulaw  bool
	logger *core.Logger
}

func NewRelay(sess *Session, cfg RelayConfig) *Relay {
	logger := cfg.Logger
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Relay{
		sess:   sess,
		mulaw:  cfg.MulawOutput,
		logger: logger.With(map[string]interface{}{"component": "relay"}),
	}
}

// PumpLines reads newline-delimited control messages into lines, closing
// the channel at EOF.
func PumpLines(in io.Reader, lines chan<- []byte) error {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxControlLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		buf := make([]byte, len(line))
		copy(buf, line)
		lines <- buf
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("session: relay read: %w", err)
	}
	return nil
}

// Run consumes JSON control messages, one per line, until EOF or context
// cancellation.
func (r *Relay) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan []byte, 16)
	errCh := make(chan error, 1)
	go func() { errCh <- PumpLines(in, lines) }()
	if err := r.RunChannel(ctx, lines); err != nil {
		return err
	}
	return <-errCh
}

// RunChannel consumes already-split control lines until the channel closes
// or the context is cancelled.
func (r *Relay) RunChannel(ctx context.Context, lines <-chan []byte) error {
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			r.HandleLine(ctx, line)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// HandleLine parses and dispatches one raw control line. Malformed input
// is logged and skipped.
func (r *Relay) HandleLine(ctx context.Context, line []byte) {
	msg, err := protocol.ParseControl(line)
	if err != nil {
		r.logger.With(map[string]interface{}{"error": err}).Warn("skipping malformed control message")
		return
	}
	if err := r.Handle(ctx, msg); err != nil {
		r.logger.With(map[string]interface{}{
			"error": err,
			"type":  string(msg.Type),
		}).Warn("control message rejected")
	}
}

// Handle dispatches one control message to the session.
func (r *Relay) Handle(ctx context.Context, msg protocol.ControlMessage) error {
	switch msg.Type {
	case protocol.MsgAudio:
		chunk, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return fmt.Errorf("session: decode audio chunk: %w", err)
		}
		return r.sess.SendAudioChunk(ctx, chunk)

	case protocol.MsgStartAudio:
		return r.sess.StartAudioInput(ctx)

	case protocol.MsgEndAudio:
		return r.sess.EndAudioInput(ctx)

	case protocol.MsgInterrupt:
		r.sess.Interrupt()
		return nil

	case protocol.MsgSetVoice:
		return r.sess.SetVoice(ctx, msg.VoiceID)

	default:
		return fmt.Errorf("session: unknown control message type %q", msg.Type)
	}
}

// DrainAudio pops decoded audio payloads in arrival order and emits sized
// audio notifications until the queue closes. Run it on its own goroutine.
func (r *Relay) DrainAudio(sink protocol.Sink) {
	for {
		payload, ok := r.sess.Queue().Pop()
		if !ok {
			return
		}
		if r.mulaw {
			encoded, err := audio.PCMToULaw8k(payload, audio.OutputSampleRate)
			if err != nil {
				r.logger.With(map[string]interface{}{"error": err}).Warn("ulaw transcode failed, passing LPCM through")
			} else {
				payload = encoded
			}
		}
		n := protocol.NewAudioNotification(base64.StdEncoding.EncodeToString(payload), len(payload))
		if err := sink.Notify(n); err != nil {
			r.logger.With(map[string]interface{}{"error": err}).Warn("failed to emit audio notification")
		}
	}
}
