package utils

import (
	"log"
	"os"
)

// Logger is a thin leveled wrapper around the standard logger. A nil
// *Logger is safe to call, which keeps handler wiring in tests terse.
type Logger struct {
	out *log.Logger
}

func NewLogger() *Logger {
	return &Logger{out: log.New(os.Stdout, "", log.LstdFlags|log.LUTC)}
}

func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	l.out.Printf("INFO "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	l.out.Printf("ERROR "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	l.out.Printf("DEBUG "+format, args...)
}
