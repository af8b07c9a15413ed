// Package logger provides leveled logging for the game server.
// Every player action and engine payout should be traceable through this.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger provides leveled logging with a shared prefix scheme.
type Logger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// NewLogger creates a logger writing info/warn to stdout and errors to stderr.
func NewLogger() *Logger {
	return newLogger(os.Stdout, os.Stderr)
}

// NewWithWriter sends every level to w. The terminal front end uses this to
// keep log lines off the screen it draws.
func NewWithWriter(w io.Writer) *Logger {
	return newLogger(w, w)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter(io.Discard)
}

func newLogger(out, errOut io.Writer) *Logger {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	return &Logger{
		infoLogger:  log.New(out, "[COOKIE-INFO] ", flags),
		warnLogger:  log.New(out, "[COOKIE-WARN] ", flags),
		errorLogger: log.New(errOut, "[COOKIE-ERROR] ", flags),
	}
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.infoLogger.Output(2, msg)
}

// Infof logs a formatted informational message.
func (l *Logger) Infof(format string, args ...any) {
	l.infoLogger.Output(2, fmt.Sprintf(format, args...))
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.warnLogger.Output(2, msg)
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.errorLogger.Output(2, msg)
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...any) {
	l.errorLogger.Output(2, fmt.Sprintf(format, args...))
}

// Event logs a specific game event with the acting session.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.infoLogger.Output(2, fmt.Sprintf("[EVENT:%s] Actor:%s | %s", eventType, actorID, details))
}
