package notify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures sent messages for assertions.
type recordingSink struct {
	topics   []string
	contents []string
}

func (r *recordingSink) Send(topic, content string) {
	r.topics = append(r.topics, topic)
	r.contents = append(r.contents, content)
}

func TestReporterFansOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	r := NewReporter(a, b)

	r.TaskDone("task-1", 3)

	require.Len(t, a.contents, 1)
	require.Len(t, b.contents, 1)
	assert.Equal(t, "task-1", a.topics[0])
	assert.Contains(t, a.contents[0], "completed after 3 iterations")
}

func TestReporterNoSinks(t *testing.T) {
	r := NewReporter()

	// Must be safe with nothing configured
	r.ExecStart("t", 1, "x")
	r.ExecOutput("t", "STATUS: DONE", "")
	r.FileChange("t", []string{"a.go"})
	r.StallWarning("t", 10)
	r.TaskDone("t", 1)
	r.TaskTimeout("t", 2, "1h0m0s")
}

func TestExecStartTruncatesInstruction(t *testing.T) {
	sink := &recordingSink{}
	r := NewReporter(sink)

	long := strings.Repeat("x", 300)
	r.ExecStart("task-1", 2, long)

	require.Len(t, sink.contents, 1)
	assert.Contains(t, sink.contents[0], "EXEC #2")
	assert.Contains(t, sink.contents[0], strings.Repeat("x", 200)+"...")
	assert.NotContains(t, sink.contents[0], strings.Repeat("x", 201))
}

func TestExecOutputPreview(t *testing.T) {
	sink := &recordingSink{}
	r := NewReporter(sink)

	r.ExecOutput("task-1", "STATUS: CONTINUE", "tail of output")
	require.Len(t, sink.contents, 1)
	assert.Contains(t, sink.contents[0], "STATUS: CONTINUE")
	assert.Contains(t, sink.contents[0], "```\ntail of output\n```")

	// No preview, no code fence
	r.ExecOutput("task-1", "STATUS: DONE", "")
	assert.NotContains(t, sink.contents[1], "```")
}

func TestFileChangeFormatting(t *testing.T) {
	sink := &recordingSink{}
	r := NewReporter(sink)

	// Empty change list sends nothing
	r.FileChange("task-1", nil)
	assert.Empty(t, sink.contents)

	r.FileChange("task-1", []string{"a.go", "b.go"})
	require.Len(t, sink.contents, 1)
	assert.Contains(t, sink.contents[0], "- a.go")
	assert.Contains(t, sink.contents[0], "- b.go")
}

func TestFileChangeCapsList(t *testing.T) {
	sink := &recordingSink{}
	r := NewReporter(sink)

	files := make([]string, 25)
	for i := range files {
		files[i] = fmt.Sprintf("file%02d.go", i)
	}
	r.FileChange("task-1", files)

	require.Len(t, sink.contents, 1)
	assert.Contains(t, sink.contents[0], "file19.go")
	assert.NotContains(t, sink.contents[0], "file20.go")
	assert.Contains(t, sink.contents[0], "... and 5 more")
}

func TestStallWarningMessage(t *testing.T) {
	sink := &recordingSink{}
	r := NewReporter(sink)

	r.StallWarning("task-1", 12)
	require.Len(t, sink.contents, 1)
	assert.Contains(t, sink.contents[0], "No progress detected for 12 minutes")
}

func TestTaskTimeoutMessage(t *testing.T) {
	sink := &recordingSink{}
	r := NewReporter(sink)

	r.TaskTimeout("task-1", 7, "1h0m0s")
	require.Len(t, sink.contents, 1)
	assert.Contains(t, sink.contents[0], "stopped after 7 iterations")
	assert.Contains(t, sink.contents[0], "1h0m0s")
}

func TestNoopSink(t *testing.T) {
	var s Sink = NoopSink{}
	s.Send("topic", "content")
}
