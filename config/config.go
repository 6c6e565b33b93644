// Package config loads the orchestrator settings from a JSON file with
// environment-variable overrides, matching how the deployment spawner
// passes per-session context through the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// PatientSettings is the simulated-patient scenario.
type PatientSettings struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	// Completion enables diagnosis completion mode.
	Completion bool `json:"completion,omitempty"`
}

// BackendSettings configures the speech-model stream endpoint.
type BackendSettings struct {
	URL string `json:"url,omitempty"`
}

// JudgeSettings configures the judgment collaborator.
type JudgeSettings struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
}

// Settings is the top-level configuration.
type Settings struct {
	ConversationID    string          `json:"conversation_id,omitempty"`
	VoiceID           string          `json:"voice_id,omitempty"`
	VoicePool         []string        `json:"voice_pool,omitempty"`
	Patient           PatientSettings `json:"patient,omitempty"`
	ExtraSystemPrompt string          `json:"extra_system_prompt,omitempty"`
	Backend           BackendSettings `json:"backend,omitempty"`
	Judge             JudgeSettings   `json:"judge,omitempty"`
	DatabaseURL       string          `json:"database_url,omitempty"`
	MulawOutput       bool            `json:"mulaw_output,omitempty"`
	TranscriptDir     string          `json:"transcript_dir,omitempty"`
}

// Default returns a Settings with built-in defaults.
func Default() Settings {
	return Settings{
		ConversationID: "default",
	}
}

// FromJSON parses a JSON blob into Settings over the defaults.
func FromJSON(data []byte) (Settings, error) {
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// FromFile reads and parses Settings from a JSON file.
func FromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("config: read %q: %w", path, err)
	}
	return FromJSON(data)
}

// ApplyEnv overlays environment variables onto the settings. The variable
// names match what the session spawner exports.
func (s *Settings) ApplyEnv() {
	s.ConversationID = getEnv("SESSION_ID", s.ConversationID)
	s.VoiceID = getEnv("VOICE_ID", s.VoiceID)
	s.Patient.ID = getEnv("PATIENT_ID", s.Patient.ID)
	s.Patient.Name = getEnv("PATIENT_NAME", s.Patient.Name)
	s.Patient.Prompt = getEnv("PATIENT_PROMPT", s.Patient.Prompt)
	s.Patient.Completion = getEnvAsBool("LLM_COMPLETION", s.Patient.Completion)
	s.ExtraSystemPrompt = getEnv("EXTRA_SYSTEM_PROMPT", s.ExtraSystemPrompt)
	s.Backend.URL = getEnv("BACKEND_STREAM_URL", s.Backend.URL)
	s.Judge.APIKey = getEnv("JUDGE_API_KEY", s.Judge.APIKey)
	s.Judge.BaseURL = getEnv("JUDGE_BASE_URL", s.Judge.BaseURL)
	s.Judge.Model = getEnv("JUDGE_MODEL", s.Judge.Model)
	s.DatabaseURL = getEnv("DATABASE_URL", s.DatabaseURL)
	s.MulawOutput = getEnvAsBool("MULAW_OUTPUT", s.MulawOutput)
	s.TranscriptDir = getEnv("TRANSCRIPT_DIR", s.TranscriptDir)
}

// Load reads settings from SETTINGS_PATH (when the file exists) and then
// applies environment overrides.
func Load() Settings {
	cfg := Default()
	path := getEnv("SETTINGS_PATH", "./settings.json")
	if loaded, err := FromFile(path); err == nil {
		cfg = loaded
	}
	cfg.ApplyEnv()
	return cfg
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool with a default fallback
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return defaultValue
	}
	return val
}
