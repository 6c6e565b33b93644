package session

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/empath-com/Empathetic-Communication/bedrock"
	"github.com/empath-com/Empathetic-Communication/protocol"
)

const (
	// interruptedSentinel signals a mid-utterance interruption, not
	// user-visible content.
	interruptedSentinel = `{"interrupted": true}`

	// completionMarker is emitted by the model when the student reaches a
	// proper diagnosis in completion mode.
	completionMarker = "PROPER DIAGNOSIS ACHIEVED"
	closingRemark    = " I really appreciate your feedback. You may continue practicing with other patients. Goodbye."
	completionNotice = "Proper diagnosis achieved"

	// Greeting-only utterances are not worth judging.
	greetingPrefix = "hello"

	persistTimeout = 5 * time.Second
)

// handleFrame classifies one decoded inbound frame and routes its payload.
// It runs on the decode loop, which is the only goroutine touching the
// dispatcher state (current role, tentative flag).
func (s *Session) handleFrame(raw []byte) {
	frame, err := bedrock.ParseFrame(raw)
	if err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Warn("skipping undecodable frame")
		return
	}

	switch {
	case frame.Event.ContentStart != nil:
		s.handleContentStart(frame.Event.ContentStart)
	case frame.Event.TextOutput != nil:
		s.handleTextOutput(frame.Event.TextOutput)
	case frame.Event.AudioOutput != nil:
		s.handleAudioOutput(frame.Event.AudioOutput)
	default:
		// Unknown inbound event kinds are ignored.
	}
}

func (s *Session) handleContentStart(ev *bedrock.ContentStartEvent) {
	s.role = ev.Role
	s.displayTentative = false
	if ev.AdditionalModelFields == "" {
		return
	}
	var fields struct {
		GenerationStage string `json:"generationStage"`
	}
	if err := sonic.Unmarshal([]byte(ev.AdditionalModelFields), &fields); err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Debug("unparseable additionalModelFields")
		return
	}
	s.displayTentative = fields.GenerationStage == bedrock.GenerationStageSpeculative
}

func (s *Session) handleTextOutput(ev *bedrock.TextOutputEvent) {
	text := ev.Content
	if strings.TrimSpace(text) == interruptedSentinel {
		s.logger.Debug("filtered interrupted marker")
		return
	}

	achieved := strings.Contains(text, completionMarker)
	if achieved && s.cfg.Patient.Completion {
		text = strings.TrimSpace(strings.ReplaceAll(text, completionMarker, "")) + closingRemark
	}

	role := s.role
	tentative := role == bedrock.RoleAssistant && s.displayTentative
	s.notify(protocol.NewTextNotification(text, strings.ToLower(role), tentative))

	if achieved && s.cfg.Patient.Completion && role == bedrock.RoleAssistant {
		s.notify(protocol.NewDiagnosisCompleteNotification(completionNotice))
	}

	if role == bedrock.RoleUser {
		s.launchJudgments(text)
	}

	s.mirror(role, text)
}

// launchJudgments fires detached scoring tasks for a completed user
// utterance. Greeting-only and empty utterances are skipped.
func (s *Session) launchJudgments(text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(strings.ToLower(trimmed), greetingPrefix) {
		return
	}
	judge := s.judge
	if judge == nil {
		return
	}
	judge.LaunchEmpathy(text)
	if s.cfg.Patient.Completion {
		judge.LaunchDiagnosis(text)
	}
}

// mirror forwards one turn to the persistence collaborator, normalizing
// ASSISTANT to "ai" and everything else to "user". Failures never abort the
// session.
func (s *Session) mirror(role, text string) {
	normalized := "user"
	if role == bedrock.RoleAssistant {
		normalized = "ai"
	}

	if s.cfg.Transcript != nil {
		s.cfg.Transcript.Write(normalized, text)
	}
	if s.cfg.Store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.cfg.Store.AddMessage(ctx, s.cfg.ConversationID, normalized, text); err != nil {
		s.logger.With(map[string]interface{}{"error": err, "role": normalized}).Warn("failed to persist turn")
	}
}

func (s *Session) handleAudioOutput(ev *bedrock.AudioOutputEvent) {
	audio, err := base64.StdEncoding.DecodeString(ev.Content)
	if err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Warn("dropping undecodable audio payload")
		return
	}
	s.queue.Push(audio)
}
