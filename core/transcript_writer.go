package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TranscriptMetadata is the first JSON line in each transcript file.
type TranscriptMetadata struct {
	ConversationID string `json:"conversation_id"`
	PatientName    string `json:"patient_name,omitempty"`
	StartedAt      string `json:"started_at"`
}

// TranscriptEntry is a single JSON line written after the metadata line.
type TranscriptEntry struct {
	Timestamp string `json:"ts"`
	Role      string `json:"role"`
	Text      string `json:"text"`
}

// TranscriptWriter appends conversation turns to a per-conversation .jsonl
// file. It is a local mirror of what the persistence collaborator stores,
// useful when no database is configured.
type TranscriptWriter struct {
	mu   sync.Mutex
	file *os.File
}

// NewTranscriptWriter creates the transcript directory and file and writes
// the metadata first line.
func NewTranscriptWriter(dir, conversationID, patientName string) (*TranscriptWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("transcript: mkdir %q: %w", dir, err)
	}

	filePath := filepath.Join(dir, conversationID+".jsonl")
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %q: %w", filePath, err)
	}

	meta := TranscriptMetadata{
		ConversationID: conversationID,
		PatientName:    patientName,
		StartedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	data, _ := json.Marshal(meta)
	f.Write(data)
	f.Write([]byte("\n"))

	return &TranscriptWriter{file: f}, nil
}

// Write appends one turn to the transcript file.
func (w *TranscriptWriter) Write(role, text string) {
	entry := TranscriptEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Role:      role,
		Text:      text,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		w.file.Write(data)
		w.file.Write([]byte("\n"))
	}
}

// Close closes the transcript file.
func (w *TranscriptWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
}
