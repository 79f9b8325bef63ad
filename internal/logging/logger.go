// Package logging provides leveled logging and sim-point tracing for pneumatic.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A TraceLogger for structured JSONL sim-point traces (trace.jsonl)
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

// LevelTrace is a custom slog level below Debug for per-tick detail.
const LevelTrace = slog.LevelDebug - 4

// TraceFile is the name of the trace file inside the trace directory.
const TraceFile = "trace.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SimPoint is one trace line: the boundary values of a level when one of
// its sim points was recorded. Maps are keyed by port letter and hold
// percentages.
type SimPoint struct {
	Time     time.Time      `json:"time"`
	Level    int            `json:"level"`
	Index    int            `json:"sim_point"`
	Pass     int            `json:"pass"`
	Recorded map[string]int `json:"recorded"`
	Expected map[string]int `json:"expected"`
	// Score is the level's score after this point, when it has one.
	Score *int `json:"score,omitempty"`
}

// TraceLogger appends SimPoint lines to dir/trace.jsonl. It is safe for
// concurrent use, and every method is a no-op on a nil receiver.
type TraceLogger struct {
	mu    sync.Mutex
	file  *os.File
	enc   *json.Encoder
	lines int
}

// NewTraceLogger opens dir/trace.jsonl for append at "debug" or "trace"
// level. At "info", with no dir, or when the file cannot be opened it
// returns nil.
func NewTraceLogger(dir string, level string) *TraceLogger {
	if ParseLevel(level) == slog.LevelInfo || dir == "" {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	f, err := os.OpenFile(filepath.Join(dir, TraceFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &TraceLogger{file: f, enc: json.NewEncoder(f)}
}

// LogSimPoint writes e as one line, stamping Time when it is zero.
func (tl *TraceLogger) LogSimPoint(e SimPoint) {
	if tl == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.file == nil {
		return
	}
	if err := tl.enc.Encode(e); err == nil {
		tl.lines++
	}
}

// Lines returns how many sim points have been written since opening.
func (tl *TraceLogger) Lines() int {
	if tl == nil {
		return 0
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.lines
}

// Close closes the underlying file.
func (tl *TraceLogger) Close() {
	if tl == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.file != nil {
		tl.file.Close()
		tl.file = nil
	}
}
