package result

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Sink receives the diagnostics of asynchronous results.
type Sink interface {
	Event(uid, message string, code int)
	Debug(uid, message string)
	Error(uid, message string, code int)
	Payload(uid, payload string)
}

// Process forwards every case present in r to the sink.
func Process(sink Sink, r Result) {
	if !r.IsResult() {
		return
	}
	if r.IsEvent() {
		sink.Event(r.UID, r.Event.Message, r.Event.Code)
	}
	if r.IsDebug() {
		sink.Debug(r.UID, r.Debug)
	}
	if r.IsError() {
		sink.Error(r.UID, r.Error.Message, r.Error.Code)
	}
	if r.Available() {
		sink.Payload(r.UID, r.Payload)
	}
}

// ProcessWith returns a callback that processes results into sink.
func ProcessWith(sink Sink) Callback {
	return func(r Result) {
		Process(sink, r)
	}
}

type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Event(uid, message string, code int) {
	s.Logger.LogAttrs(context.Background(), slog.LevelInfo, "Event", slog.String("uid", uid), slog.String("msg", message), slog.Int("code", code))
}

func (s *LogSink) Debug(uid, message string) {
	s.Logger.LogAttrs(context.Background(), slog.LevelDebug, "Debug", slog.String("uid", uid), slog.String("msg", message))
}

func (s *LogSink) Error(uid, message string, code int) {
	s.Logger.LogAttrs(context.Background(), slog.LevelError, "Error", slog.String("uid", uid), slog.String("msg", message), slog.Int("code", code))
}

func (s *LogSink) Payload(uid, payload string) {
	s.Logger.LogAttrs(context.Background(), slog.LevelInfo, "Response", slog.String("uid", uid), slog.String("payload", payload))
}

// WriterSink prints one human-readable line per case.
type WriterSink struct {
	mu sync.Mutex
	W  io.Writer
}

func (s *WriterSink) Event(uid, message string, code int) {
	s.printf("Event: %s, msg: %s, code: %d\n", uid, message, code)
}

func (s *WriterSink) Debug(uid, message string) {
	s.printf("Debug: %s, msg: %s\n", uid, message)
}

func (s *WriterSink) Error(uid, message string, code int) {
	s.printf("Error: %s, msg: %s, code: %d\n", uid, message, code)
}

func (s *WriterSink) Payload(uid, payload string) {
	s.printf("Response: %s, payload: %s\n", uid, payload)
}

func (s *WriterSink) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.W, format, args...)
}

// Entry is one diagnostic captured by a RecordingSink.
type Entry struct {
	Kind    string
	UID     string
	Message string
	Code    int
}

// RecordingSink keeps every diagnostic in memory.
type RecordingSink struct {
	mu      sync.Mutex
	entries []Entry
}

func (s *RecordingSink) Event(uid, message string, code int) {
	s.record(Entry{Kind: "event", UID: uid, Message: message, Code: code})
}

func (s *RecordingSink) Debug(uid, message string) {
	s.record(Entry{Kind: "debug", UID: uid, Message: message})
}

func (s *RecordingSink) Error(uid, message string, code int) {
	s.record(Entry{Kind: "error", UID: uid, Message: message, Code: code})
}

func (s *RecordingSink) Payload(uid, payload string) {
	s.record(Entry{Kind: "payload", UID: uid, Message: payload})
}

func (s *RecordingSink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

func (s *RecordingSink) record(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

type multiSink []Sink

// MultiSink duplicates every diagnostic to all sinks.
func MultiSink(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Event(uid, message string, code int) {
	for _, s := range m {
		s.Event(uid, message, code)
	}
}

func (m multiSink) Debug(uid, message string) {
	for _, s := range m {
		s.Debug(uid, message)
	}
}

func (m multiSink) Error(uid, message string, code int) {
	for _, s := range m {
		s.Error(uid, message, code)
	}
}

func (m multiSink) Payload(uid, payload string) {
	for _, s := range m {
		s.Payload(uid, payload)
	}
}
