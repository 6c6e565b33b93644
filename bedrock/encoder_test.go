package bedrock

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
)

type captureStream struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (c *captureStream) Send(_ context.Context, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	c.sent = append(c.sent, cp)
	return nil
}

func (c *captureStream) Receive(context.Context) ([]byte, error) { select {} }
func (c *captureStream) Close() error                            { return nil }

func (c *captureStream) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

func TestEncoderSendsCompactSingleObject(t *testing.T) {
	stream := &captureStream{}
	enc := NewEncoder(stream)

	if err := enc.Send(context.Background(), NewPromptEndFrame("p-1")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	sent := stream.frames()
	if len(sent) != 1 {
		t.Fatalf("expected 1 write, got %d", len(sent))
	}
	got := string(sent[0])
	if strings.ContainsAny(got, "\n\t") {
		t.Errorf("frame is not compact: %q", got)
	}
	want := `{"event":{"promptEnd":{"promptName":"p-1"}}}`
	if got != want {
		t.Errorf("frame mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestEncoderOmitsUnsetEvents(t *testing.T) {
	stream := &captureStream{}
	enc := NewEncoder(stream)

	if err := enc.Send(context.Background(), NewSessionEndFrame()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got := string(stream.frames()[0])
	if got != `{"event":{"sessionEnd":{}}}` {
		t.Errorf("unexpected frame: %s", got)
	}
}

func TestEncoderConcurrentSendsStayWhole(t *testing.T) {
	stream := &captureStream{}
	enc := NewEncoder(stream)

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = enc.Send(context.Background(), NewAudioInputFrame("p", "c", "QUJD"))
		}()
	}
	wg.Wait()

	sent := stream.frames()
	if len(sent) != n {
		t.Fatalf("expected %d writes, got %d", n, len(sent))
	}
	for i, raw := range sent {
		var f Frame
		if err := sonic.Unmarshal(raw, &f); err != nil {
			t.Fatalf("write %d is not a complete frame: %v", i, err)
		}
		if f.Kind() != "audioInput" {
			t.Fatalf("write %d: unexpected kind %q", i, f.Kind())
		}
	}
}

func TestParseFrameKinds(t *testing.T) {
	cases := []struct {
		raw  string
		kind string
	}{
		{`{"event":{"contentStart":{"promptName":"p","contentName":"c","role":"ASSISTANT"}}}`, "contentStart"},
		{`{"event":{"textOutput":{"content":"hi"}}}`, "textOutput"},
		{`{"event":{"audioOutput":{"content":"QUJD"}}}`, "audioOutput"},
		{`{"event":{"usageEvent":{"tokens":3}}}`, "other"},
	}
	for _, tc := range cases {
		f, err := ParseFrame([]byte(tc.raw))
		if err != nil {
			t.Fatalf("ParseFrame(%s): %v", tc.raw, err)
		}
		if got := f.Kind(); got != tc.kind {
			t.Errorf("Kind(%s) = %q, want %q", tc.raw, got, tc.kind)
		}
	}
}

func TestParseFrameRejectsMalformed(t *testing.T) {
	if _, err := ParseFrame([]byte(`{"event":`)); err == nil {
		t.Fatal("expected error for truncated frame")
	}
}
