// Package bedrock implements the wire protocol for the bidirectional
// speech-model stream: outbound session/prompt/content event frames, a
// serializing frame encoder, and an incremental frame decoder that peels
// complete JSON objects off an arbitrarily chunked byte stream.
package bedrock

// Roles attached to content streams.
const (
	RoleSystem    = "SYSTEM"
	RoleUser      = "USER"
	RoleAssistant = "ASSISTANT"
)

// Content stream types.
const (
	ContentTypeText  = "TEXT"
	ContentTypeAudio = "AUDIO"
)

// GenerationStageSpeculative marks tentative assistant output that may be
// superseded by the final generation.
const GenerationStageSpeculative = "SPECULATIVE"

// Audio configuration defaults for the model service.
const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000
	SampleSizeBits   = 16
	ChannelCount     = 1
)

// Frame is one complete JSON object sent or received over the stream.
// Exactly one field of Event is set per frame.
type Frame struct {
	Event Event `json:"event"`
}

type Event struct {
	// Outbound
	SessionStart *SessionStartEvent `json:"sessionStart,omitempty"`
	PromptStart  *PromptStartEvent  `json:"promptStart,omitempty"`
	TextInput    *TextInputEvent    `json:"textInput,omitempty"`
	AudioInput   *AudioInputEvent   `json:"audioInput,omitempty"`
	PromptEnd    *PromptEndEvent    `json:"promptEnd,omitempty"`
	SessionEnd   *SessionEndEvent   `json:"sessionEnd,omitempty"`

	// Both directions
	ContentStart *ContentStartEvent `json:"contentStart,omitempty"`
	ContentEnd   *ContentEndEvent   `json:"contentEnd,omitempty"`

	// Inbound
	TextOutput  *TextOutputEvent  `json:"textOutput,omitempty"`
	AudioOutput *AudioOutputEvent `json:"audioOutput,omitempty"`
}

// Kind returns the name of the event the frame carries, or "other".
func (f *Frame) Kind() string {
	switch {
	case f.Event.SessionStart != nil:
		return "sessionStart"
	case f.Event.PromptStart != nil:
		return "promptStart"
	case f.Event.ContentStart != nil:
		return "contentStart"
	case f.Event.TextInput != nil:
		return "textInput"
	case f.Event.AudioInput != nil:
		return "audioInput"
	case f.Event.ContentEnd != nil:
		return "contentEnd"
	case f.Event.PromptEnd != nil:
		return "promptEnd"
	case f.Event.SessionEnd != nil:
		return "sessionEnd"
	case f.Event.TextOutput != nil:
		return "textOutput"
	case f.Event.AudioOutput != nil:
		return "audioOutput"
	default:
		return "other"
	}
}

type InferenceConfiguration struct {
	MaxTokens     int      `json:"maxTokens"`
	TopP          float64  `json:"topP"`
	Temperature   float64  `json:"temperature"`
	StopSequences []string `json:"stopSequences"`
}

// DefaultInferenceConfiguration matches the model service defaults.
func DefaultInferenceConfiguration() InferenceConfiguration {
	return InferenceConfiguration{
		MaxTokens:     2048,
		TopP:          1.0,
		Temperature:   0.8,
		StopSequences: []string{},
	}
}

type SessionStartEvent struct {
	InferenceConfiguration InferenceConfiguration `json:"inferenceConfiguration"`
}

type TextConfiguration struct {
	MediaType string `json:"mediaType"`
}

type AudioOutputConfiguration struct {
	MediaType       string `json:"mediaType"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	SampleSizeBits  int    `json:"sampleSizeBits"`
	ChannelCount    int    `json:"channelCount"`
	VoiceID         string `json:"voiceId"`
	Encoding        string `json:"encoding"`
	AudioType       string `json:"audioType"`
}

type AudioInputConfiguration struct {
	MediaType       string `json:"mediaType"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	SampleSizeBits  int    `json:"sampleSizeBits"`
	ChannelCount    int    `json:"channelCount"`
	AudioType       string `json:"audioType"`
	Encoding        string `json:"encoding"`
}

type PromptStartEvent struct {
	PromptName               string                   `json:"promptName"`
	TextOutputConfiguration  TextConfiguration        `json:"textOutputConfiguration"`
	AudioOutputConfiguration AudioOutputConfiguration `json:"audioOutputConfiguration"`
}

type ContentStartEvent struct {
	PromptName  string `json:"promptName"`
	ContentName string `json:"contentName"`
	Type        string `json:"type,omitempty"`
	Interactive bool   `json:"interactive,omitempty"`
	Role        string `json:"role,omitempty"`
	Interrupt   bool   `json:"interrupt,omitempty"`

	TextInputConfiguration  *TextConfiguration       `json:"textInputConfiguration,omitempty"`
	AudioInputConfiguration *AudioInputConfiguration `json:"audioInputConfiguration,omitempty"`

	// AdditionalModelFields is a JSON-encoded string; on inbound frames it
	// may carry a generationStage marker.
	AdditionalModelFields string `json:"additionalModelFields,omitempty"`
}

type TextInputEvent struct {
	PromptName  string `json:"promptName"`
	ContentName string `json:"contentName"`
	Content     string `json:"content"`
}

type AudioInputEvent struct {
	PromptName  string `json:"promptName"`
	ContentName string `json:"contentName"`
	Content     string `json:"content"` // base64 audio
}

type ContentEndEvent struct {
	PromptName  string `json:"promptName"`
	ContentName string `json:"contentName"`
}

type PromptEndEvent struct {
	PromptName string `json:"promptName"`
}

type SessionEndEvent struct{}

type TextOutputEvent struct {
	PromptName  string `json:"promptName,omitempty"`
	ContentName string `json:"contentName,omitempty"`
	Content     string `json:"content"`
}

type AudioOutputEvent struct {
	PromptName  string `json:"promptName,omitempty"`
	ContentName string `json:"contentName,omitempty"`
	Content     string `json:"content"` // base64 audio
}

// NewSessionStartFrame builds the opening frame of a session.
func NewSessionStartFrame(cfg InferenceConfiguration) Frame {
	return Frame{Event: Event{SessionStart: &SessionStartEvent{InferenceConfiguration: cfg}}}
}

// NewPromptStartFrame builds the promptStart frame selecting the output voice.
func NewPromptStartFrame(promptName, voiceID string) Frame {
	return Frame{Event: Event{PromptStart: &PromptStartEvent{
		PromptName:              promptName,
		TextOutputConfiguration: TextConfiguration{MediaType: "text/plain"},
		AudioOutputConfiguration: AudioOutputConfiguration{
			MediaType:       "audio/lpcm",
			SampleRateHertz: OutputSampleRate,
			SampleSizeBits:  SampleSizeBits,
			ChannelCount:    ChannelCount,
			VoiceID:         voiceID,
			Encoding:        "base64",
			AudioType:       "SPEECH",
		},
	}}}
}

// NewSystemContentStartFrame opens the SYSTEM text content stream.
func NewSystemContentStartFrame(promptName, contentName string) Frame {
	return Frame{Event: Event{ContentStart: &ContentStartEvent{
		PromptName:             promptName,
		ContentName:            contentName,
		Type:                   ContentTypeText,
		Interactive:            true,
		Role:                   RoleSystem,
		Interrupt:              true,
		TextInputConfiguration: &TextConfiguration{MediaType: "text/plain"},
	}}}
}

// NewAudioContentStartFrame opens a USER audio content stream.
func NewAudioContentStartFrame(promptName, contentName string) Frame {
	return Frame{Event: Event{ContentStart: &ContentStartEvent{
		PromptName:  promptName,
		ContentName: contentName,
		Type:        ContentTypeAudio,
		Interactive: true,
		Role:        RoleUser,
		AudioInputConfiguration: &AudioInputConfiguration{
			MediaType:       "audio/lpcm",
			SampleRateHertz: InputSampleRate,
			SampleSizeBits:  SampleSizeBits,
			ChannelCount:    ChannelCount,
			AudioType:       "SPEECH",
			Encoding:        "base64",
		},
	}}}
}

func NewTextInputFrame(promptName, contentName, content string) Frame {
	return Frame{Event: Event{TextInput: &TextInputEvent{
		PromptName: promptName, ContentName: contentName, Content: content,
	}}}
}

func NewAudioInputFrame(promptName, contentName, contentB64 string) Frame {
	return Frame{Event: Event{AudioInput: &AudioInputEvent{
		PromptName: promptName, ContentName: contentName, Content: contentB64,
	}}}
}

func NewContentEndFrame(promptName, contentName string) Frame {
	return Frame{Event: Event{ContentEnd: &ContentEndEvent{
		PromptName: promptName, ContentName: contentName,
	}}}
}

func NewPromptEndFrame(promptName string) Frame {
	return Frame{Event: Event{PromptEnd: &PromptEndEvent{PromptName: promptName}}}
}

func NewSessionEndFrame() Frame {
	return Frame{Event: Event{SessionEnd: &SessionEndEvent{}}}
}
