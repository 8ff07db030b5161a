package purc

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// LogCategory tags log lines by subsystem so individual concerns can be
// switched on while debugging
type LogCategory string

const (
	CatNone     LogCategory = ""         // Uncategorized
	CatMemory   LogCategory = "memory"   // Value pool and refcounting
	CatVariant  LogCategory = "variant"  // Value construction/conversion
	CatSet      LogCategory = "set"      // Keyed set container
	CatListener LogCategory = "listener" // Mutation listeners
	CatObserver LogCategory = "observer" // Observe construct binding
	CatTimer    LogCategory = "timer"    // Timer entities
	CatTask     LogCategory = "task"     // Tasks, frames, inboxes
	CatSystem   LogCategory = "system"   // Instance lifecycle
)

// Logger routes categorized runtime diagnostics through zerolog. It is
// quiet unless debug is enabled or individual categories are switched
// on.
type Logger struct {
	mu      sync.RWMutex
	z       zerolog.Logger
	enabled bool
	allCats bool
	cats    map[LogCategory]bool
}

// NewLogger creates a logger writing to out. With debug true every
// category is enabled at debug level.
func NewLogger(out io.Writer, debug bool) *Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.TraceLevel
	}
	return &Logger{
		z:       zerolog.New(out).Level(level).With().Timestamp().Logger(),
		enabled: true,
		allCats: debug,
		cats:    make(map[LogCategory]bool),
	}
}

// SetEnabled turns all logging on or off.
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	l.enabled = enabled
	l.mu.Unlock()
}

// EnableCategory enables one category.
func (l *Logger) EnableCategory(cat LogCategory) {
	l.mu.Lock()
	l.cats[cat] = true
	l.mu.Unlock()
}

// DisableCategory disables one category.
func (l *Logger) DisableCategory(cat LogCategory) {
	l.mu.Lock()
	delete(l.cats, cat)
	l.mu.Unlock()
}

// EnableAllCategories enables every category.
func (l *Logger) EnableAllCategories() {
	l.mu.Lock()
	l.allCats = true
	l.mu.Unlock()
}

// IsCategoryEnabled reports whether a category is currently logged.
func (l *Logger) IsCategoryEnabled(cat LogCategory) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allCats || l.cats[cat]
}

func (l *Logger) shouldLog(cat LogCategory) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.enabled {
		return false
	}
	return l.allCats || cat == CatNone || l.cats[cat]
}

func (l *Logger) log(ev *zerolog.Event, cat LogCategory, format string, args ...interface{}) {
	if cat != CatNone {
		ev = ev.Str("category", string(cat))
	}
	ev.Msg(fmt.Sprintf(format, args...))
}

// TraceCat logs a trace message in a category.
func (l *Logger) TraceCat(cat LogCategory, format string, args ...interface{}) {
	if !l.shouldLog(cat) {
		return
	}
	l.log(l.z.Trace(), cat, format, args...)
}

// DebugCat logs a debug message in a category.
func (l *Logger) DebugCat(cat LogCategory, format string, args ...interface{}) {
	if !l.shouldLog(cat) {
		return
	}
	l.log(l.z.Debug(), cat, format, args...)
}

// InfoCat logs an info message in a category.
func (l *Logger) InfoCat(cat LogCategory, format string, args ...interface{}) {
	if !l.shouldLog(cat) {
		return
	}
	l.log(l.z.Info(), cat, format, args...)
}

// WarnCat logs a warning in a category. Warnings are always emitted.
func (l *Logger) WarnCat(cat LogCategory, format string, args ...interface{}) {
	l.log(l.z.Warn(), cat, format, args...)
}

// ErrorCat logs an error in a category. Errors are always emitted.
func (l *Logger) ErrorCat(cat LogCategory, format string, args ...interface{}) {
	l.log(l.z.Error(), cat, format, args...)
}

// Debug logs an uncategorized debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.DebugCat(CatNone, format, args...)
}

// Warn logs an uncategorized warning.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.WarnCat(CatNone, format, args...)
}

// Error logs an uncategorized error.
func (l *Logger) Error(format string, args ...interface{}) {
	l.ErrorCat(CatNone, format, args...)
}
