package core

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestTranscriptWriterWritesMetadataThenTurns(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTranscriptWriter(dir, "conv-1", "Maria")
	if err != nil {
		t.Fatalf("NewTranscriptWriter: %v", err)
	}
	w.Write("user", "Hi, what brings you in?")
	w.Write("ai", "I've had this cough.")
	w.Close()

	f, err := os.Open(filepath.Join(dir, "conv-1.jsonl"))
	if err != nil {
		t.Fatalf("open transcript: %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 3 {
		t.Fatalf("expected metadata plus 2 turns, got %d lines", len(lines))
	}

	var meta TranscriptMetadata
	if err := json.Unmarshal([]byte(lines[0]), &meta); err != nil {
		t.Fatalf("metadata line: %v", err)
	}
	if meta.ConversationID != "conv-1" || meta.PatientName != "Maria" || meta.StartedAt == "" {
		t.Errorf("metadata: %+v", meta)
	}

	var entry TranscriptEntry
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("entry line: %v", err)
	}
	if entry.Role != "user" || entry.Text != "Hi, what brings you in?" || entry.Timestamp == "" {
		t.Errorf("entry: %+v", entry)
	}
}

func TestTranscriptWriterWriteAfterCloseIsNoop(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTranscriptWriter(dir, "conv-2", "")
	if err != nil {
		t.Fatalf("NewTranscriptWriter: %v", err)
	}
	w.Close()
	w.Write("user", "dropped")
	w.Close() // idempotent

	data, err := os.ReadFile(filepath.Join(dir, "conv-2.jsonl"))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 1 {
		t.Fatalf("expected only the metadata line, got %d lines", lines)
	}
}
