// Package judge scores the student's conversational turns through an
// LLM-as-a-judge collaborator: an empathy evaluation per utterance and,
// in completion mode, a strict True/False diagnosis verdict.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/sashabaranov/go-openai"

	"github.com/empath-com/Empathetic-Communication/core"
)

// Config holds the judge model connection settings.
type Config struct {
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible judge endpoints
	Model   string
}

const defaultModel = "gpt-4o-mini"

// PatientInfo is the scenario context given to the judge alongside each
// student response.
type PatientInfo struct {
	Name   string
	Prompt string
}

// Client calls the judge model.
type Client struct {
	api    *openai.Client
	model  string
	logger *core.Logger
}

func NewClient(cfg Config, logger *core.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("judge: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		model:  cfg.Model,
		logger: logger.With(map[string]interface{}{"component": "judge"}),
	}, nil
}

// EvaluateEmpathy scores one student response against the six-category
// empathy rubric and returns the judge's structured evaluation as JSON.
func (c *Client) EvaluateEmpathy(ctx context.Context, studentResponse, patientContext string) (json.RawMessage, error) {
	prompt := empathyPrompt(studentResponse, patientContext)
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.1,
		MaxTokens:   800,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("judge: empathy evaluation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("judge: empathy evaluation returned no choices")
	}
	return extractJSON(resp.Choices[0].Message.Content)
}

// EvaluateDiagnosis asks the judge whether the student's response contains
// the proper diagnosis. It returns true only on a literal "True" answer.
func (c *Client) EvaluateDiagnosis(ctx context.Context, studentResponse string, patient PatientInfo) (bool, error) {
	prompt := diagnosisPrompt(studentResponse, patient)
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.1,
		MaxTokens:   10,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return false, fmt.Errorf("judge: diagnosis evaluation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, fmt.Errorf("judge: diagnosis evaluation returned no choices")
	}
	verdict := strings.TrimSpace(resp.Choices[0].Message.Content)
	return strings.EqualFold(verdict, "true"), nil
}

// extractJSON pulls the first JSON object out of a judge response that may
// wrap it in prose, and validates it parses.
func extractJSON(text string) (json.RawMessage, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("judge: no JSON object in response")
	}
	raw := json.RawMessage(text[start : end+1])

	var probe map[string]interface{}
	if err := sonic.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("judge: invalid JSON in response: %w", err)
	}
	return raw, nil
}

func empathyPrompt(studentResponse, patientContext string) string {
	return fmt.Sprintf(`You are an LLM-as-a-Judge for healthcare empathy evaluation. Assess this pharmacy student's empathetic communication.

**CONTEXT:**
Patient Context: %s
Student Response: %s

**SCORING (1-5 scale):**
- Perspective-Taking: Understanding patient's viewpoint
- Emotional Resonance: Warmth and sensitivity
- Acknowledgment: Validating patient's experience
- Language & Communication: Clear, respectful language
- Cognitive Empathy: Understanding thoughts/perspective
- Affective Empathy: Emotional attunement

**REALISM:** realistic|unrealistic

Provide JSON response:
{
    "perspective_taking": <1-5>,
    "emotional_resonance": <1-5>,
    "acknowledgment": <1-5>,
    "language_communication": <1-5>,
    "cognitive_empathy": <1-5>,
    "affective_empathy": <1-5>,
    "realism_flag": "realistic|unrealistic",
    "feedback": {
        "strengths": ["specific strengths"],
        "areas_for_improvement": ["specific areas"],
        "improvement_suggestions": ["actionable suggestions"]
    }
}`, patientContext, studentResponse)
}

func diagnosisPrompt(studentResponse string, patient PatientInfo) string {
	return fmt.Sprintf(`You are evaluating whether a pharmacy student has properly diagnosed a patient.

Patient: %s
Patient condition: %s
Student response: %s

Determine if the student has provided the correct diagnosis for this patient's condition.
Respond with only "True" if proper diagnosis is achieved, "False" otherwise.`, patient.Name, patient.Prompt, studentResponse)
}
