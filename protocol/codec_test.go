package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestParseControl(t *testing.T) {
	msg, err := ParseControl([]byte(`{"type":"audio","data":"QUJD"}`))
	if err != nil {
		t.Fatalf("ParseControl: %v", err)
	}
	if msg.Type != MsgAudio || msg.Data != "QUJD" {
		t.Errorf("unexpected message: %+v", msg)
	}

	msg, err = ParseControl([]byte(`{"type":"set_voice","voice_id":"matthew"}`))
	if err != nil {
		t.Fatalf("ParseControl: %v", err)
	}
	if msg.Type != MsgSetVoice || msg.VoiceID != "matthew" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestParseControlRejectsBadInput(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"data":"missing type"}`,
		`{"type":""}`,
	} {
		if _, err := ParseControl([]byte(raw)); err == nil {
			t.Errorf("ParseControl(%q) accepted bad input", raw)
		}
	}
}

func TestWriterSinkWritesOneLinePerNotification(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	if err := sink.Notify(NewTextNotification("Hello.", "assistant", false)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := sink.Notify(NewAudioNotification("QUJD", 3)); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != `{"type":"text","text":"Hello.","role":"assistant"}` {
		t.Errorf("line 0: %s", lines[0])
	}
	if lines[1] != `{"type":"audio","data":"QUJD","size":3}` {
		t.Errorf("line 1: %s", lines[1])
	}
}

func TestTextNotificationBaseShapeWithoutOptionalFields(t *testing.T) {
	data, err := json.Marshal(NewTextNotification("Session ready", "", false))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// role and tentative are additive; when unset the minimal shape goes
	// out unchanged.
	if got := string(data); got != `{"type":"text","text":"Session ready"}` {
		t.Errorf("unexpected wire shape: %s", got)
	}
}

func TestWriterSinkConcurrentNotifiersDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sink.Notify(NewTextNotification("turn", "user", false))
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != n {
		t.Fatalf("expected %d lines, got %d", n, len(lines))
	}
	for i, line := range lines {
		var n TextNotification
		if err := json.Unmarshal([]byte(line), &n); err != nil {
			t.Fatalf("line %d interleaved: %q", i, line)
		}
	}
}
