package core

import (
	"io"
	"math"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/josephlewis42/cai/core/config"
)

// LineReader reads lines from the user and keeps the lines available for
// recall. Readline returns io.EOF when input ends and readline.ErrInterrupt
// when the user interrupts at the prompt.
type LineReader interface {
	SetPrompt(prompt string)
	Readline() (string, error)
	AddHistory(line string)
}

// ReadlineReader is a LineReader backed by an interactive line editor.
type ReadlineReader struct {
	*readline.Instance
}

var _ LineReader = (*ReadlineReader)(nil)

// NewReadlineReader creates a line editor on the given streams. History is
// kept in memory only, the shell decides when it's persisted.
func NewReadlineReader(stdin io.Reader, stdout, stderr io.Writer, historyLimit int, isTerminal bool) (*ReadlineReader, error) {
	// The editor treats a negative limit as "no history".
	if historyLimit <= 0 {
		historyLimit = math.MaxInt32
	}

	cfg := &readline.Config{
		Stdin:                  readline.NewCancelableStdin(stdin),
		Stdout:                 stdout,
		Stderr:                 stderr,
		HistoryLimit:           historyLimit,
		DisableAutoSaveHistory: true,
		FuncIsTerminal: func() bool {
			return isTerminal
		},
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	instance, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	return &ReadlineReader{Instance: instance}, nil
}

// AddHistory makes line available for recall.
func (r *ReadlineReader) AddHistory(line string) {
	_ = r.Instance.SaveHistory(line)
}

// Palette holds the colors used by the shell.
type Palette struct {
	Prompt *color.Color
	Error  *color.Color
}

// NewPalette creates the shell's colors, enabled or not.
func NewPalette(enabled bool) *Palette {
	p := &Palette{
		Prompt: color.New(color.FgCyan, color.Bold),
		Error:  color.New(color.FgRed),
	}

	for _, c := range []*color.Color{p.Prompt, p.Error} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// ShouldColor decides whether to color output given the configured mode.
func ShouldColor(mode string, isTerminal bool) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return isTerminal
	}
}
