// Package notify delivers one-way lifecycle notifications to external
// systems. Sinks never read anything back and never influence supervision:
// a delivery failure is logged and swallowed, by contract.
package notify

import (
	"fmt"
	"strings"
)

// Sink delivers one message to an external system. Implementations must not
// panic and must not surface delivery errors to the caller.
type Sink interface {
	Send(topic, content string)
}

// NoopSink is the default sink when no notifier is configured.
type NoopSink struct{}

func (NoopSink) Send(topic, content string) {}

const (
	instructionPreviewLimit = 200
	outputPreviewLimit      = 500
	fileListLimit           = 20
)

// Reporter fans lifecycle events out to its sinks, formatting each event the
// same way for every sink. With no sinks it is a no-op.
type Reporter struct {
	sinks []Sink
}

// NewReporter creates a reporter over the given sinks.
func NewReporter(sinks ...Sink) *Reporter {
	return &Reporter{sinks: sinks}
}

func (r *Reporter) send(topic, content string) {
	for _, s := range r.sinks {
		s.Send(topic, content)
	}
}

// ExecStart reports that an executor iteration is about to run.
func (r *Reporter) ExecStart(topic string, iteration int, instruction string) {
	r.send(topic, fmt.Sprintf("▶️ EXEC #%d started\nInstruction: %s", iteration, truncate(instruction, instructionPreviewLimit)))
}

// ExecOutput reports the parsed signal and a preview of the output.
func (r *Reporter) ExecOutput(topic, status, preview string) {
	content := "🧠 Agent output:\n" + status
	if preview != "" {
		content += fmt.Sprintf("\n```\n%s\n```", truncate(preview, outputPreviewLimit))
	}
	r.send(topic, content)
}

// FileChange reports workspace files modified since the last check.
func (r *Reporter) FileChange(topic string, files []string) {
	if len(files) == 0 {
		return
	}

	shown := files
	if len(shown) > fileListLimit {
		shown = shown[:fileListLimit]
	}

	var b strings.Builder
	b.WriteString("📁 Files modified:")
	for _, f := range shown {
		b.WriteString("\n- ")
		b.WriteString(f)
	}
	if extra := len(files) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "\n... and %d more", extra)
	}
	r.send(topic, b.String())
}

// StallWarning reports that no workspace progress has been observed.
func (r *Reporter) StallWarning(topic string, minutes int) {
	r.send(topic, fmt.Sprintf("⚠️ No progress detected for %d minutes", minutes))
}

// TaskDone reports successful task completion.
func (r *Reporter) TaskDone(topic string, iterations int) {
	r.send(topic, fmt.Sprintf("✅ Task completed after %d iterations", iterations))
}

// TaskTimeout reports that the task hit its time budget and was stopped.
// A timeout ends the task like a completion does; it is not an error.
func (r *Reporter) TaskTimeout(topic string, iterations int, elapsed string) {
	r.send(topic, fmt.Sprintf("⏱️ Task stopped after %d iterations: time budget of %s exhausted", iterations, elapsed))
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
