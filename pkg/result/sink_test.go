package result

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcess(t *testing.T) {
	t.Parallel()

	t.Run("empty result", func(t *testing.T) {
		t.Parallel()

		sink := new(RecordingSink)
		Process(sink, Result{UID: "task"})
		assert.Empty(t, sink.Entries())
	})
	t.Run("all cases in order", func(t *testing.T) {
		t.Parallel()

		sink := new(RecordingSink)
		Process(sink, Result{
			UID:     "task",
			Payload: `{"name":"x"}`,
			Error:   &Error{Message: "boom", Code: 500},
			Debug:   "sending",
			Event:   &Event{Message: "started", Code: EventStarted},
		})
		assert.Equal(t, []Entry{
			{Kind: "event", UID: "task", Message: "started", Code: EventStarted},
			{Kind: "debug", UID: "task", Message: "sending"},
			{Kind: "error", UID: "task", Message: "boom", Code: 500},
			{Kind: "payload", UID: "task", Message: `{"name":"x"}`},
		}, sink.Entries())
	})
	t.Run("callback", func(t *testing.T) {
		t.Parallel()

		sink := new(RecordingSink)
		cb := ProcessWith(sink)
		cb(Result{UID: "a", Debug: "one"})
		cb(Result{UID: "b"})
		cb(Result{UID: "c", Error: &Error{Message: "two", Code: CodeTimeout}})
		assert.Len(t, sink.Entries(), 2)
	})
}

func TestWriterSink(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)
	sink := &WriterSink{W: buf}
	Process(sink, Result{UID: "createDocumentTask", Event: &Event{Message: "creating document", Code: 1}})
	Process(sink, Result{UID: "createDocumentTask", Debug: "POST /v1/projects"})
	Process(sink, Result{UID: "createDocumentTask", Error: &Error{Message: "permission denied", Code: 403}})
	Process(sink, Result{UID: "createDocumentTask", Payload: "{}"})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"Event: createDocumentTask, msg: creating document, code: 1",
		"Debug: createDocumentTask, msg: POST /v1/projects",
		"Error: createDocumentTask, msg: permission denied, code: 403",
		"Response: createDocumentTask, payload: {}",
	}, lines)
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)
	sink := &LogSink{Logger: slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	Process(sink, Result{
		UID:     "task",
		Event:   &Event{Message: "created", Code: EventCompleted},
		Error:   &Error{Message: "boom", Code: 500},
		Payload: "{}",
	})
	out := buf.String()
	assert.Contains(t, out, "level=INFO msg=Event uid=task msg=created code=2")
	assert.Contains(t, out, "level=ERROR msg=Error uid=task msg=boom code=500")
	assert.Contains(t, out, "level=INFO msg=Response uid=task payload={}")
}

func TestMultiSink(t *testing.T) {
	t.Parallel()

	a, b := new(RecordingSink), new(RecordingSink)
	Process(MultiSink(a, b), Result{UID: "task", Debug: "one", Error: &Error{Message: "two", Code: CodeUnknown}})
	assert.Len(t, a.Entries(), 2)
	assert.Equal(t, a.Entries(), b.Entries())
}
