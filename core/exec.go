package core

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

// ExitCodeLaunchFailure is the status of a program that couldn't be started.
const ExitCodeLaunchFailure = 1

// ProcAttr holds the attributes of a launched program.
type ProcAttr struct {
	// Path is the executable to run. If empty the launcher resolves argv[0].
	Path string
	// Dir is the working directory of the program.
	Dir string
	// Env holds the program's environment in "key=value" form.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher starts a program with argv and waits for it to exit.
type Launcher interface {
	// Launch returns the exit status of the program. A *LaunchError is
	// returned with ExitCodeLaunchFailure if the program couldn't be started.
	Launch(ctx context.Context, argv []string, attr *ProcAttr) (int, error)
}

// ExecLauncher launches real programs on the host.
type ExecLauncher struct {
	// LookPath resolves a command name to the path of an executable.
	LookPath func(file string) (string, error)
}

// Resolver is implemented by launchers that can report which executable a
// command name would run.
type Resolver interface {
	Resolve(name string) (string, error)
}

var (
	_ Launcher = (*ExecLauncher)(nil)
	_ Resolver = (*ExecLauncher)(nil)
)

// Resolve returns the executable argv[0] would run.
func (l *ExecLauncher) Resolve(name string) (string, error) {
	if l.LookPath == nil {
		return exec.LookPath(name)
	}
	return l.LookPath(name)
}

// Launch implements Launcher.
func (l *ExecLauncher) Launch(ctx context.Context, argv []string, attr *ProcAttr) (int, error) {
	path := attr.Path
	if path == "" {
		resolved, err := l.Resolve(argv[0])
		if err != nil {
			return ExitCodeLaunchFailure, &LaunchError{Name: argv[0], Err: err}
		}
		path = resolved
	}

	cmd := exec.CommandContext(ctx, path)
	cmd.Args = argv
	cmd.Env = attr.Env
	cmd.Dir = attr.Dir
	cmd.Stdin = attr.Stdin
	cmd.Stdout = attr.Stdout
	cmd.Stderr = attr.Stderr

	// The terminal delivers Ctrl-C to the whole foreground group; the child
	// decides what to do with it and the shell keeps running.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	if err := cmd.Start(); err != nil {
		return ExitCodeLaunchFailure, &LaunchError{Name: argv[0], Err: err}
	}

	return exitStatus(cmd.Wait())
}

func exitStatus(err error) (int, error) {
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return 1, nil
	default:
		return 1, err
	}
}
