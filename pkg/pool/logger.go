package pool

import (
	"fmt"
	"log"
	"os"
)

// Logger receives pool lifecycle and detached-failure messages.
// A minimal interface so embedding applications can plug their own.
type Logger interface {
	// Infof logs a formatted informational message
	Infof(format string, args ...interface{})

	// Warnf logs a formatted warning message
	Warnf(format string, args ...interface{})

	// Errorf logs a formatted error message
	Errorf(format string, args ...interface{})
}

// defaultLogger implements Logger using Go's standard log package
type defaultLogger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// NewDefaultLogger creates the standard leveled logger used when a Config
// carries no Logger of its own.
func NewDefaultLogger() Logger {
	return &defaultLogger{
		infoLogger:  log.New(os.Stdout, "[INFO] ", log.LstdFlags|log.Lshortfile),
		warnLogger:  log.New(os.Stderr, "[WARN] ", log.LstdFlags|log.Lshortfile),
		errorLogger: log.New(os.Stderr, "[ERROR] ", log.LstdFlags|log.Lshortfile),
	}
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.infoLogger.Output(3, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.warnLogger.Output(3, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	l.errorLogger.Output(3, fmt.Sprintf(format, args...))
}
