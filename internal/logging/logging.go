// Package logging writes tagged diagnostics to stderr. Stdout belongs to the
// protocol stream, so nothing here may ever touch it.
package logging

import (
	"fmt"
	"io"
	"os"
)

// Logger writes tagged lines to a single writer.
type Logger struct {
	w   io.Writer
	tag string
}

// New returns a Logger writing to stderr under the given tag.
func New(tag string) *Logger {
	return &Logger{w: os.Stderr, tag: tag}
}

// NewWithWriter is used by tests to capture output.
func NewWithWriter(tag string, w io.Writer) *Logger {
	return &Logger{w: w, tag: tag}
}

// Infof logs an informational message. Arguments are masked for credentials.
func (l *Logger) Infof(format string, args ...any) {
	l.write("INFO", format, args...)
}

// Errorf logs an error message. Arguments are masked for credentials.
func (l *Logger) Errorf(format string, args ...any) {
	l.write("ERROR", format, args...)
}

func (l *Logger) write(level, format string, args ...any) {
	msg := Mask(fmt.Sprintf(format, args...))
	fmt.Fprintf(l.w, "[%s] %s %s\n", l.tag, level, msg)
}
