// Package logging provides leveled logging and model call tracing for gazeviz.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A CallLog of structured JSONL model call events (<reports>/model_calls.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for full content logging.
// At this level, model prompts and responses are included.
const LevelTrace = slog.LevelDebug - 4

// CallLogFile is the name of the call trace inside its directory.
const CallLogFile = "model_calls.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "error", "warn", "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, handlerOptions(level)))
}

// NewJSONLogger is NewLogger with one JSON object per record.
func NewJSONLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, handlerOptions(level)))
}

func handlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
}

// CallLog appends one JSONL event per model call. It is safe for concurrent
// use. A nil CallLog is safe to use; all methods are no-ops on nil receiver.
type CallLog struct {
	mu    sync.Mutex
	file  *os.File
	trace bool
}

// NewCallLog opens dir/model_calls.jsonl for append.
// At "info" level or above it returns nil and no file is created.
// At "trace" level, prompt and response bodies are kept in each event;
// at "debug" they are dropped. Returns nil if the file cannot be opened.
func NewCallLog(dir string, level string) *CallLog {
	lvl := ParseLevel(level)
	if lvl > slog.LevelDebug {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, CallLogFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &CallLog{file: f, trace: lvl <= LevelTrace}
}

// Log writes event as a single JSONL line with a "time" field added.
// Outside trace level the "prompt" and "response" keys are omitted.
// The caller's map is not mutated. Safe to call on nil receiver.
func (cl *CallLog) Log(event map[string]any) {
	if cl == nil || cl.file == nil {
		return
	}

	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		if !cl.trace && (k == "prompt" || k == "response") {
			continue
		}
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	cl.mu.Lock()
	defer cl.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = cl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (cl *CallLog) Close() {
	if cl == nil || cl.file == nil {
		return
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.file.Close()
	cl.file = nil
}
