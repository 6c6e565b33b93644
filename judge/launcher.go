package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/empath-com/Empathetic-Communication/core"
	"github.com/empath-com/Empathetic-Communication/protocol"
)

// completionText is sent alongside a positive verdict so the gateway can
// close out the exercise.
const completionText = "PROPER DIAGNOSIS ACHIEVED. I really appreciate your feedback. You may continue practicing with other patients. Goodbye."

const taskTimeout = 30 * time.Second

// Evaluator is the scoring collaborator, satisfied by *Client.
type Evaluator interface {
	EvaluateEmpathy(ctx context.Context, studentResponse, patientContext string) (json.RawMessage, error)
	EvaluateDiagnosis(ctx context.Context, studentResponse string, patient PatientInfo) (bool, error)
}

// Launcher fires detached judgment tasks. Each task runs on its own
// goroutine, never blocks utterance processing, and emits its result
// through the sink when ready; a failure is logged and the result silently
// omitted. The sink is expected to discard emissions once the owning
// session has closed.
type Launcher struct {
	eval    Evaluator
	sink    protocol.Sink
	patient PatientInfo
	logger  *core.Logger
	wg      sync.WaitGroup
}

func NewLauncher(eval Evaluator, sink protocol.Sink, patient PatientInfo, logger *core.Logger) *Launcher {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Launcher{
		eval:    eval,
		sink:    sink,
		patient: patient,
		logger:  logger.With(map[string]interface{}{"component": "judge"}),
	}
}

// LaunchEmpathy scores one user utterance in the background and emits an
// empathy notification with the structured evaluation.
func (l *Launcher) LaunchEmpathy(text string) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		patientContext := fmt.Sprintf("Patient: %s, Condition: %s", l.patient.Name, l.patient.Prompt)
		result, err := l.eval.EvaluateEmpathy(ctx, text, patientContext)
		if err != nil {
			l.logger.With(map[string]interface{}{"error": err}).Warn("empathy evaluation failed")
			return
		}
		if err := l.sink.Notify(protocol.NewEmpathyNotification(string(result))); err != nil {
			l.logger.With(map[string]interface{}{"error": err}).Warn("failed to emit empathy result")
		}
	}()
}

// LaunchDiagnosis checks one user utterance for a proper diagnosis in the
// background. A positive verdict emits the verdict notification plus the
// completion text; a negative one emits nothing.
func (l *Launcher) LaunchDiagnosis(text string) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		verdict, err := l.eval.EvaluateDiagnosis(ctx, text, l.patient)
		if err != nil {
			l.logger.With(map[string]interface{}{"error": err}).Warn("diagnosis evaluation failed")
			return
		}
		if !verdict {
			return
		}
		if err := l.sink.Notify(protocol.NewDiagnosisVerdictNotification(true)); err != nil {
			l.logger.With(map[string]interface{}{"error": err}).Warn("failed to emit diagnosis verdict")
		}
		if err := l.sink.Notify(protocol.NewTextNotification(completionText, "", false)); err != nil {
			l.logger.With(map[string]interface{}{"error": err}).Warn("failed to emit completion text")
		}
	}()
}

// Wait blocks until all in-flight judgment tasks finish. Used by tests and
// graceful shutdown; the session never calls it.
func (l *Launcher) Wait() {
	l.wg.Wait()
}
