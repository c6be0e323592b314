// Package log provides the leveled, colorized sink injected into a Sack,
// Goal, and transaction driver at construction time. There is no
// package-level writable logger: every component that logs holds its own
// *Logger, so two Sacks in the same process can be configured independently.
package log

import (
	"fmt"
	"io"
)

// Logger is a per-component logging sink. The zero value is not usable;
// construct one with New.
type Logger struct {
	name  string
	Debug bool
	w     io.Writer
}

// New builds a Logger that writes to w, tagging debug lines with name.
func New(w io.Writer, debug bool, name string) *Logger {
	return &Logger{w: w, name: name, Debug: debug}
}

// Child returns a Logger that shares the same sink and debug flag but
// tags its debug output with a different name, e.g. "sack", "goal.solve".
func (l *Logger) Child(name string) *Logger {
	return New(l.w, l.Debug, name)
}

func (l *Logger) Debugln(a ...any) {
	if !l.Debug {
		return
	}

	l.Println(append([]interface{}{
		Bold(yellow(fmt.Sprintf("[DEBUG:%s]", l.name))),
	}, a...)...)
}

func (l *Logger) Infoln(a ...any) {
	l.Println(append([]interface{}{Bold(Green(arrow))}, a...)...)
}

func (l *Logger) Warnln(a ...any) {
	l.Println(l.SprintWarn(a...))
}

func (l *Logger) SprintWarn(a ...any) string {
	return fmt.Sprint(append([]interface{}{Bold(yellow(smallArrow + " "))}, a...)...)
}

func (l *Logger) Errorln(a ...any) {
	l.Println(l.SprintError(a...))
}

func (l *Logger) SprintError(a ...any) string {
	return fmt.Sprint(append([]interface{}{Bold(Red(smallArrow + " "))}, a...)...)
}

func (l *Logger) Println(a ...any) {
	fmt.Fprintln(l.w, a...)
}
