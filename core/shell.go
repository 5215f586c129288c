package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime/debug"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/cai/core/history"
	"github.com/josephlewis42/cai/core/logger"
	"github.com/josephlewis42/cai/core/shell"
	"github.com/josephlewis42/cai/core/vos"
)

const (
	DefaultPrompt = "❰cai❱  ─► "

	quitHint = "Use 'exit' to quit."
)

// Step tells the loop what to do after a line has been processed.
type Step int

const (
	// StepContinue reads the next line.
	StepContinue Step = iota
	// StepShutdown saves history and ends the session.
	StepShutdown
)

// Shell reads lines, runs builtins itself and launches everything else as a
// separate program, one line at a time.
type Shell struct {
	VirtualOS *vos.OS
	Reader    LineReader
	History   *history.Store
	Launcher  Launcher

	// Streams handed to launched programs; builtin output and diagnostics go
	// to Stdout.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Prompt  string
	Palette *Palette
	Log     *log.Logger
	Events  *logger.SessionLogger

	// Set to true to quit the shell
	Quit bool

	exitCode int
	lastRet  int
}

// NewShell creates a shell that launches host programs and writes to stdout.
// Callers may replace any of the exported fields before calling Run.
func NewShell(virtualOS *vos.OS, reader LineReader, store *history.Store, stdin io.Reader, stdout, stderr io.Writer) *Shell {
	return &Shell{
		VirtualOS: virtualOS,
		Reader:    reader,
		History:   store,
		Launcher:  &ExecLauncher{LookPath: virtualOS.LookPath},
		Stdin:     stdin,
		Stdout:    stdout,
		Stderr:    stderr,
		Prompt:    DefaultPrompt,
		Palette:   NewPalette(false),
		Log:       log.New(io.Discard, "", 0),
		Events:    logger.NewNopLogger().NewSession(),
	}
}

// LastStatus returns the status of the most recently run command.
func (s *Shell) LastStatus() int {
	return s.lastRet
}

func (s *Shell) prompt() string {
	prompt := s.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return s.Palette.Prompt.Sprint(prompt)
}

// Run loads history and processes lines until exit or end of input. It
// returns the status the process should exit with.
func (s *Shell) Run(ctx context.Context) int {
	entries, err := s.History.Load()
	if err != nil {
		s.warnf("could not load history: %v", err)
	}
	for _, line := range entries {
		s.Reader.AddHistory(line)
	}
	s.Log.Printf("loaded %d history entries from %s", len(entries), s.History.Path())

	for {
		s.Reader.SetPrompt(s.prompt())
		line, err := s.Reader.Readline()

		switch {
		case errors.Is(err, io.EOF):
			fmt.Fprintln(s.Stdout, quitHint)
			return s.shutdown(0)

		case errors.Is(err, readline.ErrInterrupt):
			// Interrupt discards the line.
			fmt.Fprintln(s.Stdout, quitHint)
			continue

		case err != nil:
			s.Log.Printf("error reading line: %v", err)
			continue
		}

		if s.RunLine(ctx, line) == StepShutdown {
			return s.shutdown(s.exitCode)
		}
	}
}

// RunLine processes a single line. Blank lines are ignored entirely, anything
// else is recorded in history even if it fails to parse.
func (s *Shell) RunLine(ctx context.Context, line string) (step Step) {
	if strings.TrimSpace(line) == "" {
		return StepContinue
	}
	s.History.Record(line)
	s.Reader.AddHistory(line)

	defer func() {
		if r := recover(); r != nil {
			s.Events.Record(&logger.Panic{Context: fmt.Sprint(r), Stacktrace: string(debug.Stack())})
			s.report(fmt.Errorf("%v", r))
			step = StepContinue
		}
	}()

	tokens, err := shell.Tokenize(line)
	if err != nil {
		s.Events.Record(&logger.InvalidInvocation{Line: line, Error: err.Error()})
		s.report(err)
		return StepContinue
	}
	if len(tokens) == 0 {
		return StepContinue
	}

	if err := s.dispatch(ctx, tokens); err != nil {
		s.report(err)
	}

	if s.Quit {
		return StepShutdown
	}
	return StepContinue
}

func (s *Shell) dispatch(ctx context.Context, args []string) error {
	if builtin, ok := AllBuiltins[args[0]]; ok {
		err := builtin.Main(s, args)

		var usageErr *UsageError
		switch {
		case errors.As(err, &usageErr):
			s.lastRet = 2
			s.Events.Record(&logger.InvalidInvocation{Command: args, Error: err.Error()})
		case err != nil:
			s.lastRet = 1
		default:
			s.lastRet = 0
		}
		s.Events.Record(&logger.RunCommand{Command: args, Builtin: true, ExitStatus: s.lastRet})
		return err
	}

	attr := &ProcAttr{
		Dir:    s.VirtualOS.Getwd(),
		Env:    s.VirtualOS.Environ(),
		Stdin:  s.Stdin,
		Stdout: s.Stdout,
		Stderr: s.Stderr,
	}
	status, err := s.launch(ctx, args, attr)
	s.lastRet = status

	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		s.Log.Printf("launching %q: %v", args[0], launchErr.Err)
		s.Events.Record(&logger.UnknownCommand{Command: args, ErrorMessage: err.Error()})
		return err
	}

	s.Events.Record(&logger.RunCommand{Command: args, ResolvedCommandPath: attr.Path, ExitStatus: status})
	return err
}

// launch resolves the program once, before it starts, so attr.Path holds the
// executable that actually ran.
func (s *Shell) launch(ctx context.Context, argv []string, attr *ProcAttr) (int, error) {
	if resolver, ok := s.Launcher.(Resolver); ok {
		path, err := resolver.Resolve(argv[0])
		if err != nil {
			return ExitCodeLaunchFailure, &LaunchError{Name: argv[0], Err: err}
		}
		attr.Path = path
	}
	return s.Launcher.Launch(ctx, argv, attr)
}

// report shows an error to the user, the loop continues afterwards.
func (s *Shell) report(err error) {
	var (
		parseErr  *shell.ParseError
		usageErr  *UsageError
		launchErr *LaunchError
		msg       string
	)

	switch {
	case errors.As(err, &parseErr):
		msg = "cai: " + parseErr.Error()
	case errors.As(err, &usageErr):
		msg = usageErr.Error()
	case errors.As(err, &launchErr):
		msg = launchErr.Error()
	default:
		msg = "Error: " + err.Error()
	}

	s.Palette.Error.Fprintln(s.Stdout, msg)
}

func (s *Shell) warnf(format string, a ...interface{}) {
	s.Palette.Error.Fprintln(s.Stdout, "cai: warning: "+fmt.Sprintf(format, a...))
}

// shutdown persists history and returns the status to exit with. Failing to
// save is only a warning.
func (s *Shell) shutdown(code int) int {
	end := &logger.SessionEnd{ExitCode: code}
	if err := s.History.Save(); err != nil {
		s.warnf("could not save history: %v", err)
		end.HistoryError = err.Error()
	} else {
		s.Log.Printf("saved %d history entries to %s", len(s.History.Entries()), s.History.Path())
	}
	s.Events.Record(end)
	return code
}
