// Package ui prints short coloured status lines for humans running nbkit.
// Diagnostics go through zap; this package is only for the lines a user
// is expected to read (summaries, sign-in prompts, fatal errors).
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

type Kind int

const (
	Error Kind = iota
	Warning
	Activity
	Success
	Info
)

type style struct {
	symbol string
	color  *color.Color
}

func styleFor(kind Kind) style {
	switch kind {
	case Error:
		return style{"✗ ", color.New(color.FgRed)}
	case Warning:
		return style{"⚠ ", color.New(color.FgYellow)}
	case Success:
		return style{"✔ ", color.New(color.FgGreen)}
	case Info:
		return style{"ℹ ", color.New(color.FgBlue)}
	default:
		return style{"► ", color.New(color.Reset)}
	}
}

// Printf writes one message. Continuation lines are indented under the
// symbol so multi-line messages stay aligned.
func Printf(w io.Writer, kind Kind, format string, args ...any) {
	if w == nil {
		w = os.Stdout
	}
	content := format
	if len(args) > 0 {
		content = fmt.Sprintf(format, args...)
	}
	s := styleFor(kind)
	pad := strings.Repeat(" ", len([]rune(s.symbol)))
	content = strings.ReplaceAll(content, "\n", "\n"+pad)
	_, _ = s.color.Fprintf(w, "%s%s\n", s.symbol, content)
}

func Errorf(w io.Writer, format string, args ...any)    { Printf(w, Error, format, args...) }
func Warningf(w io.Writer, format string, args ...any)  { Printf(w, Warning, format, args...) }
func Activityf(w io.Writer, format string, args ...any) { Printf(w, Activity, format, args...) }
func Successf(w io.Writer, format string, args ...any)  { Printf(w, Success, format, args...) }
func Infof(w io.Writer, format string, args ...any)     { Printf(w, Info, format, args...) }
