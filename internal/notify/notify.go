// Package notify carries transient user-facing notices from the stores to
// whichever caller renders them.
//
// Stores report outcomes here instead of through return values; a CLI prints
// them, a test records them, and the default simply logs.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Level classifies a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notice is a single transient message.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Success sends a success notice.
func Success(ctx context.Context, n Notifier, msg string) {
	n.Notify(ctx, Notice{Level: LevelSuccess, Message: msg})
}

// Error sends an error notice.
func Error(ctx context.Context, n Notifier, msg string) {
	n.Notify(ctx, Notice{Level: LevelError, Message: msg})
}

// Logger writes notices to a slog.Logger.
type Logger struct {
	log *slog.Logger
}

// NewLogger returns a Notifier that logs through l, or slog.Default() if l is nil.
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{log: l}
}

// Notify logs n at a level matching its severity.
func (l *Logger) Notify(ctx context.Context, n Notice) {
	level := slog.LevelInfo
	if n.Level == LevelError {
		level = slog.LevelError
	}
	l.log.Log(ctx, level, n.Message, "notice", string(n.Level))
}

// Recorder keeps every notice it receives. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify appends n.
func (r *Recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the most recent notice, if any.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Reset discards recorded notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}

// Discard drops every notice.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(context.Context, Notice) {}
