package core

import "fmt"

// UsageError is returned by a builtin called with bad arguments. The shell's
// state is never changed when one is returned.
type UsageError struct {
	Command string
	Msg     string

	// Synopsis is set when Msg already names the command.
	Synopsis bool
}

func (e *UsageError) Error() string {
	if e.Synopsis {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Msg)
}

func usageErrorf(command, format string, a ...interface{}) *UsageError {
	return &UsageError{Command: command, Msg: fmt.Sprintf(format, a...)}
}

// usage returns an error showing how command is meant to be called.
func usage(command, operands string) *UsageError {
	return &UsageError{
		Command:  command,
		Msg:      fmt.Sprintf("usage: %s %s", command, operands),
		Synopsis: true,
	}
}

// LaunchError is returned when a program can't be found or started.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s: command not found", e.Name)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
