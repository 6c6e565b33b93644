// Package session manages the lifecycle of one duplex conversation with the
// speech-model backend: it issues the outbound event sequence that opens and
// closes logical content streams, runs the inbound decode loop, and
// coordinates hot-restart when the voice changes mid-conversation.
package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/empath-com/Empathetic-Communication/bedrock"
	"github.com/empath-com/Empathetic-Communication/core"
	"github.com/empath-com/Empathetic-Communication/protocol"
)

// State is the session lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateActive
	StateRestarting
	StateEnding
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateRestarting:
		return "restarting"
	case StateEnding:
		return "ending"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Default voice pools offered by the model service.
var (
	FeminineVoices  = []string{"amy", "tiffany", "lupe"}
	MasculineVoices = []string{"matthew", "carlos"}
)

// ErrNoAudioStream is returned when an audio chunk arrives with no open
// audio content stream. The control relay logs it and keeps the session up.
var ErrNoAudioStream = fmt.Errorf("session: no open audio content stream")

// ErrNotActive is returned by operations that require an active session.
var ErrNotActive = fmt.Errorf("session: not active")

// PatientContext is the simulated-patient scenario driving the conversation.
type PatientContext struct {
	ID     string
	Name   string
	Prompt string
	// Completion enables automatic detection and signaling of a proper
	// diagnosis by the student.
	Completion bool
}

// MessageStore is the external persistence collaborator. Failures are
// logged and never abort the session.
type MessageStore interface {
	AddMessage(ctx context.Context, conversationID, role, text string) error
	FormatHistory(ctx context.Context, conversationID string) (string, error)
}

// JudgmentLauncher fires detached scoring tasks per completed user
// utterance. Implementations must never block the caller.
type JudgmentLauncher interface {
	LaunchEmpathy(text string)
	LaunchDiagnosis(text string)
}

// Config configures one Session.
type Config struct {
	// ConversationID is the external conversation identity used for
	// persistence. It survives voice restarts.
	ConversationID string
	// VoiceID, when set, takes precedence over the pool.
	VoiceID string
	// VoicePool is drawn from uniformly at random when no voice is set.
	// Defaults to the feminine pool, matching the model service default.
	VoicePool []string

	Patient     PatientContext
	ExtraPrompt string

	// Dial establishes a fresh backend stream. Called once per session
	// start, including restarts.
	Dial func(ctx context.Context) (bedrock.StreamTransport, error)
	// Sink receives outbound gateway notifications.
	Sink protocol.Sink

	Store      MessageStore           // optional
	Transcript *core.TranscriptWriter // optional local mirror
	Logger     *core.Logger
}

// Session owns the state machine for one conversation. Exactly one session
// is active per underlying stream; a voice change recreates the stream and
// all content identifiers but preserves ConversationID.
type Session struct {
	cfg    Config
	logger *core.Logger

	mu       sync.Mutex // serializes lifecycle transitions and outbound ops
	state    atomic.Int32
	active   atomic.Bool
	stream   bedrock.StreamTransport
	enc      *bedrock.Encoder
	readDone chan struct{}

	promptName       string
	contentName      string
	audioContentName string
	audioOpen        bool
	voiceID          string

	judge JudgmentLauncher
	queue *AudioQueue

	// Dispatcher state, touched only by the decode loop.
	role             string
	displayTentative bool
}

// New creates an idle session.
func New(cfg Config) (*Session, error) {
	if cfg.Dial == nil {
		return nil, fmt.Errorf("session: Dial is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("session: Sink is required")
	}
	if cfg.ConversationID == "" {
		cfg.ConversationID = "default"
	}
	if len(cfg.VoicePool) == 0 {
		cfg.VoicePool = FeminineVoices
	}
	if cfg.Logger == nil {
		cfg.Logger = core.GetLogger()
	}
	return &Session{
		cfg:     cfg,
		logger:  cfg.Logger.With(map[string]interface{}{"conversation_id": cfg.ConversationID}),
		voiceID: cfg.VoiceID,
		queue:   NewAudioQueue(),
	}, nil
}

// SetJudge attaches the judgment task launcher. Must be called before
// Start; a nil judge disables judgment tasks.
func (s *Session) SetJudge(j JudgmentLauncher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.judge = j
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Queue exposes the audio output queue to the relay's drain loop.
func (s *Session) Queue() *AudioQueue {
	return s.queue
}

// Sink returns a notification sink that becomes a no-op once the session
// has closed. Detached judgment tasks emit through it so late results on a
// dead session are discarded, not errors.
func (s *Session) Sink() protocol.Sink {
	return guardedSink{s: s}
}

type guardedSink struct {
	s *Session
}

func (g guardedSink) Notify(v interface{}) error {
	g.s.notify(v)
	return nil
}

func (s *Session) notify(v interface{}) {
	if s.State() == StateClosed {
		return
	}
	if err := s.cfg.Sink.Notify(v); err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Warn("failed to emit notification")
	}
}

// Start opens the backend stream and sends the opening frame sequence in
// strict order: sessionStart, promptStart, SYSTEM contentStart, textInput,
// contentEnd. The protocol is write-ahead: the session is Active as soon as
// the sequence is sent, without waiting for backend acknowledgment.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.State(); st != StateIdle {
		return fmt.Errorf("session: cannot start from state %s", st)
	}
	return s.startLocked(ctx)
}

func (s *Session) startLocked(ctx context.Context) error {
	s.state.Store(int32(StateInitializing))

	s.promptName = uuid.NewString()
	s.contentName = uuid.NewString()
	s.audioContentName = uuid.NewString()
	s.audioOpen = false
	s.role = ""
	s.displayTentative = false

	stream, err := s.cfg.Dial(ctx)
	if err != nil {
		s.state.Store(int32(StateClosed))
		return fmt.Errorf("session: dial backend: %w", err)
	}
	s.stream = stream
	s.enc = bedrock.NewEncoder(stream)

	if err := s.sendOpeningSequence(ctx); err != nil {
		stream.Close()
		s.state.Store(int32(StateClosed))
		return err
	}

	s.active.Store(true)
	s.readDone = make(chan struct{})
	go s.readLoop(stream, bedrock.NewDecoder(s.logger), s.readDone)

	s.state.Store(int32(StateActive))
	s.logger.With(map[string]interface{}{
		"prompt_name": s.promptName,
		"voice_id":    s.voiceID,
	}).Info("session started")
	s.notify(protocol.NewTextNotification("Session ready", "", false))
	return nil
}

func (s *Session) sendOpeningSequence(ctx context.Context) error {
	if err := s.enc.Send(ctx, bedrock.NewSessionStartFrame(bedrock.DefaultInferenceConfiguration())); err != nil {
		return err
	}

	voice := s.pickVoice()
	if err := s.enc.Send(ctx, bedrock.NewPromptStartFrame(s.promptName, voice)); err != nil {
		return err
	}
	if err := s.enc.Send(ctx, bedrock.NewSystemContentStartFrame(s.promptName, s.contentName)); err != nil {
		return err
	}

	prompt := ComposeSystemPrompt(s.cfg.Patient, s.cfg.ExtraPrompt)
	if s.cfg.Store != nil {
		history, err := s.cfg.Store.FormatHistory(ctx, s.cfg.ConversationID)
		if err != nil {
			s.logger.With(map[string]interface{}{"error": err}).Warn("failed to retrieve conversation history")
		} else if history != "" {
			prompt += "\n" + history
		}
	}
	if err := s.enc.Send(ctx, bedrock.NewTextInputFrame(s.promptName, s.contentName, prompt)); err != nil {
		return err
	}
	return s.enc.Send(ctx, bedrock.NewContentEndFrame(s.promptName, s.contentName))
}

// pickVoice prefers an explicitly supplied voice, otherwise draws uniformly
// from the configured pool. The pick is remembered so a restart without an
// explicit voice keeps the same one.
func (s *Session) pickVoice() string {
	if s.voiceID == "" {
		s.voiceID = s.cfg.VoicePool[rand.Intn(len(s.cfg.VoicePool))]
	}
	return s.voiceID
}

func (s *Session) readLoop(stream bedrock.StreamTransport, dec *bedrock.Decoder, done chan struct{}) {
	defer close(done)
	ctx := context.Background()

	for s.active.Load() {
		data, err := stream.Receive(ctx)
		if err != nil {
			if s.active.Load() {
				s.logger.With(map[string]interface{}{"error": err}).Warn("backend stream lost, ending session")
				go s.End(context.Background())
			}
			return
		}
		for _, raw := range dec.Feed(data) {
			s.handleFrame(raw)
		}
	}
}

// StartAudioInput opens a fresh USER audio content stream.
func (s *Session) StartAudioInput(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() {
		return ErrNotActive
	}
	s.audioContentName = uuid.NewString()
	if err := s.enc.Send(ctx, bedrock.NewAudioContentStartFrame(s.promptName, s.audioContentName)); err != nil {
		return err
	}
	s.audioOpen = true
	return nil
}

// SendAudioChunk base64-encodes and forwards one audio chunk. The chunk is
// rejected when no audio content stream is open.
func (s *Session) SendAudioChunk(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() {
		return ErrNotActive
	}
	if !s.audioOpen {
		return ErrNoAudioStream
	}
	blob := base64.StdEncoding.EncodeToString(audio)
	return s.enc.Send(ctx, bedrock.NewAudioInputFrame(s.promptName, s.audioContentName, blob))
}

// EndAudioInput closes the open audio content stream.
func (s *Session) EndAudioInput(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active.Load() {
		return ErrNotActive
	}
	if !s.audioOpen {
		return ErrNoAudioStream
	}
	s.audioOpen = false
	return s.enc.Send(ctx, bedrock.NewContentEndFrame(s.promptName, s.audioContentName))
}

// SetVoice changes the output voice. When the session is active this
// requires a full restart: the current session is ended completely
// (promptEnd, sessionEnd, stream closed) before the opening sequence runs
// again with the new voice. Old and new session frames never interleave.
func (s *Session) SetVoice(ctx context.Context, voiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.voiceID = voiceID
	if !s.active.Load() {
		// Applied when the session next starts.
		return nil
	}

	s.logger.With(map[string]interface{}{"voice_id": voiceID}).Info("restarting session with new voice")
	s.state.Store(int32(StateRestarting))
	s.endStreamLocked(ctx)
	return s.startLocked(ctx)
}

// End terminates the session: promptEnd, sessionEnd, stream close. Safe to
// call from any state; a second call is a no-op.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() == StateClosed {
		return nil
	}
	s.state.Store(int32(StateEnding))
	s.endStreamLocked(ctx)
	s.queue.Close()
	s.state.Store(int32(StateClosed))
	s.logger.Info("session ended")
	return nil
}

// Interrupt abandons the session immediately. The stream is assumed to be
// broken already, so a close failure is swallowed. Idempotent.
func (s *Session) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active.Store(false)
	if s.stream != nil {
		_ = s.stream.Close()
	}
	s.waitReadDoneLocked()
	s.queue.Close()
	s.state.Store(int32(StateClosed))
}

// endStreamLocked stops the decode loop and flushes the closing frame
// sequence. Send failures are logged only: the stream may already be gone.
func (s *Session) endStreamLocked(ctx context.Context) {
	s.active.Store(false)

	if s.enc != nil {
		// A still-open audio content stream must be closed first so every
		// contentStart has its contentEnd before promptEnd.
		if s.audioOpen {
			if err := s.enc.Send(ctx, bedrock.NewContentEndFrame(s.promptName, s.audioContentName)); err != nil {
				s.logger.With(map[string]interface{}{"error": err}).Warn("failed to close audio content stream")
			}
		}
		if err := s.enc.Send(ctx, bedrock.NewPromptEndFrame(s.promptName)); err != nil {
			s.logger.With(map[string]interface{}{"error": err}).Warn("failed to send promptEnd")
		}
		if err := s.enc.Send(ctx, bedrock.NewSessionEndFrame()); err != nil {
			s.logger.With(map[string]interface{}{"error": err}).Warn("failed to send sessionEnd")
		}
	}
	s.audioOpen = false
	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			s.logger.With(map[string]interface{}{"error": err}).Debug("stream close failed")
		}
	}
	s.waitReadDoneLocked()
}

func (s *Session) waitReadDoneLocked() {
	if s.readDone == nil {
		return
	}
	select {
	case <-s.readDone:
	case <-time.After(5 * time.Second):
		s.logger.Warn("decode loop did not stop in time")
	}
	s.readDone = nil
}
