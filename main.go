package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/empath-com/Empathetic-Communication/bedrock"
	"github.com/empath-com/Empathetic-Communication/config"
	"github.com/empath-com/Empathetic-Communication/core"
	"github.com/empath-com/Empathetic-Communication/history"
	"github.com/empath-com/Empathetic-Communication/judge"
	"github.com/empath-com/Empathetic-Communication/protocol"
	"github.com/empath-com/Empathetic-Communication/session"
)

// initialConfigWindow is how long the orchestrator waits for an initial
// set_voice message before starting with the default voice.
const initialConfigWindow = 2 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]interface{}{"error": err}).Debug("no .env.local file loaded")
	}

	cfg := config.Load()
	logger := core.GetLogger().With(map[string]interface{}{"conversation_id": cfg.ConversationID})

	// Notifications go to stdout as JSON lines; logs stay on stderr.
	sink := protocol.NewWriterSink(os.Stdout)

	var store session.MessageStore
	if cfg.DatabaseURL != "" {
		st, err := history.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.With(map[string]interface{}{"error": err}).Warn("persistence unavailable, continuing without it")
		} else {
			store = st
			defer st.Close()
		}
	}

	var transcript *core.TranscriptWriter
	if cfg.TranscriptDir != "" {
		tw, err := core.NewTranscriptWriter(cfg.TranscriptDir, cfg.ConversationID, cfg.Patient.Name)
		if err != nil {
			logger.With(map[string]interface{}{"error": err}).Warn("transcript mirror unavailable")
		} else {
			transcript = tw
			defer tw.Close()
		}
	}

	if cfg.Backend.URL == "" {
		logger.Fatal("BACKEND_STREAM_URL is required")
	}
	dial := func(ctx context.Context) (bedrock.StreamTransport, error) {
		return bedrock.DialStream(ctx, cfg.Backend.URL, nil)
	}

	sess, err := session.New(session.Config{
		ConversationID: cfg.ConversationID,
		VoiceID:        cfg.VoiceID,
		VoicePool:      cfg.VoicePool,
		Patient: session.PatientContext{
			ID:         cfg.Patient.ID,
			Name:       cfg.Patient.Name,
			Prompt:     cfg.Patient.Prompt,
			Completion: cfg.Patient.Completion,
		},
		ExtraPrompt: cfg.ExtraSystemPrompt,
		Dial:        dial,
		Sink:        sink,
		Store:       store,
		Transcript:  transcript,
		Logger:      logger,
	})
	if err != nil {
		logger.With(map[string]interface{}{"error": err}).Fatal("failed to create session")
	}

	if cfg.Judge.APIKey != "" {
		client, err := judge.NewClient(judge.Config{
			APIKey:  cfg.Judge.APIKey,
			BaseURL: cfg.Judge.BaseURL,
			Model:   cfg.Judge.Model,
		}, logger)
		if err != nil {
			logger.With(map[string]interface{}{"error": err}).Warn("judgment collaborator unavailable")
		} else {
			sess.SetJudge(judge.NewLauncher(client, sess.Sink(), judge.PatientInfo{
				Name:   cfg.Patient.Name,
				Prompt: cfg.Patient.Prompt,
			}, logger))
		}
	}

	relay := session.NewRelay(sess, session.RelayConfig{
		MulawOutput: cfg.MulawOutput,
		Logger:      logger,
	})

	lines := make(chan []byte, 16)
	pumpErr := make(chan error, 1)
	go func() { pumpErr <- session.PumpLines(os.Stdin, lines) }()

	// The gateway may push an initial voice choice before the session
	// opens; wait briefly so the opening sequence uses it.
	var pending [][]byte
	select {
	case line, ok := <-lines:
		if ok {
			if msg, err := protocol.ParseControl(line); err == nil && msg.Type == protocol.MsgSetVoice {
				sess.SetVoice(ctx, msg.VoiceID)
			} else {
				pending = append(pending, line)
			}
		}
	case <-time.After(initialConfigWindow):
		logger.Info("no initial configuration received, using default voice")
	}

	if err := sess.Start(ctx); err != nil {
		logger.With(map[string]interface{}{"error": err}).Fatal("failed to start session")
	}

	go relay.DrainAudio(sink)

	for _, line := range pending {
		relay.HandleLine(ctx, line)
	}
	if err := relay.RunChannel(ctx, lines); err != nil && ctx.Err() == nil {
		logger.With(map[string]interface{}{"error": err}).Error("relay stopped")
	}
	if err := <-pumpErr; err != nil {
		logger.With(map[string]interface{}{"error": err}).Warn("control input closed with error")
	}

	if err := sess.End(context.Background()); err != nil {
		logger.With(map[string]interface{}{"error": err}).Warn("session shutdown failed")
	}
	logger.Info("session ended, shutting down")
}
