package protocol

// MessageType enumerates all gateway control message types.
type MessageType string

const (
	// Gateway -> session
	MsgAudio      MessageType = "audio"
	MsgStartAudio MessageType = "start_audio"
	MsgEndAudio   MessageType = "end_audio"
	MsgInterrupt  MessageType = "interrupt"
	MsgSetVoice   MessageType = "set_voice"
)

// ControlMessage is one inbound control message from the gateway,
// delivered as a single JSON object per line.
type ControlMessage struct {
	Type    MessageType `json:"type"`
	Data    string      `json:"data,omitempty"`     // base64 audio, for MsgAudio
	VoiceID string      `json:"voice_id,omitempty"` // for MsgSetVoice
}

// --- Session -> gateway notifications ---

// TextNotification carries one user-visible text turn.
type TextNotification struct {
	Type string `json:"type"` // always "text"
	Text string `json:"text"`
	Role string `json:"role,omitempty"`
	// Tentative marks speculative-stage assistant text that may later be
	// superseded by the final generation.
	Tentative bool `json:"tentative,omitempty"`
}

// AudioNotification carries one decoded audio payload, re-encoded as base64.
type AudioNotification struct {
	Type string `json:"type"` // always "audio"
	Data string `json:"data"`
	Size int    `json:"size"`
}

// DiagnosisCompleteNotification signals that the assistant detected a
// proper diagnosis in completion mode.
type DiagnosisCompleteNotification struct {
	Type string `json:"type"` // always "diagnosis_complete"
	Text string `json:"text"`
}

// DiagnosisVerdictNotification carries the judgment collaborator's verdict.
type DiagnosisVerdictNotification struct {
	Type    string `json:"type"` // always "diagnosis_verdict"
	Verdict bool   `json:"verdict"`
}

// EmpathyNotification carries the judgment collaborator's empathy
// evaluation as a JSON-encoded string.
type EmpathyNotification struct {
	Type    string `json:"type"` // always "empathy"
	Content string `json:"content"`
}

func NewTextNotification(text, role string, tentative bool) TextNotification {
	return TextNotification{Type: "text", Text: text, Role: role, Tentative: tentative}
}

func NewAudioNotification(data string, size int) AudioNotification {
	return AudioNotification{Type: "audio", Data: data, Size: size}
}

func NewDiagnosisCompleteNotification(text string) DiagnosisCompleteNotification {
	return DiagnosisCompleteNotification{Type: "diagnosis_complete", Text: text}
}

func NewDiagnosisVerdictNotification(verdict bool) DiagnosisVerdictNotification {
	return DiagnosisVerdictNotification{Type: "diagnosis_verdict", Verdict: verdict}
}

func NewEmpathyNotification(content string) EmpathyNotification {
	return EmpathyNotification{Type: "empathy", Content: content}
}
