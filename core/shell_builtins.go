package core

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"syscall"
)

// AllBuiltins holds every shell builtin. The set is fixed at init.
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) error
}

type ShellBuiltinFunc func(s *Shell, args []string) error

func (f ShellBuiltinFunc) Main(s *Shell, args []string) error {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// IsBuiltin reports whether name is run by the shell itself.
func IsBuiltin(name string) bool {
	_, ok := AllBuiltins[name]
	return ok
}

// BuiltinNames lists the builtins in sorted order.
func BuiltinNames() []string {
	var names []string
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Echo writes its arguments separated by spaces.
func Echo(s *Shell, args []string) error {
	_, err := fmt.Fprintln(s.Stdout, strings.Join(args[1:], " "))
	return err
}

// Exit quits the shell with the given status, 0 if none is given.
func Exit(s *Shell, args []string) error {
	code := 0
	switch len(args) {
	case 1:
	case 2:
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return usageErrorf(args[0], "%s: numeric argument required", args[1])
		}
		code = n
	default:
		return usageErrorf(args[0], "too many arguments")
	}

	s.Quit = true
	s.exitCode = code
	return nil
}

// Cd is the cd shell builtin, with no arguments it goes to $HOME.
func Cd(s *Shell, args []string) error {
	var dir string
	switch len(args) {
	case 1:
		home, ok := s.VirtualOS.UserHomeDir()
		if !ok {
			return usageErrorf(args[0], "missing argument")
		}
		dir = home
	case 2:
		dir = args[1]
	default:
		return usageErrorf(args[0], "too many arguments")
	}

	err := s.VirtualOS.Chdir(dir)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return usageErrorf(args[0], "no such file or directory: %s", dir)
	case errors.Is(err, syscall.ENOTDIR):
		return usageErrorf(args[0], "not a directory: %s", dir)
	default:
		return fmt.Errorf("%s: %w", args[0], err)
	}
}

// Type reports whether a name is a builtin or where it was found on $PATH.
func Type(s *Shell, args []string) error {
	if len(args) != 2 {
		return usage(args[0], "NAME")
	}
	name := args[1]

	switch path, found := s.VirtualOS.FindInPath(name); {
	case IsBuiltin(name):
		fmt.Fprintf(s.Stdout, "%s is a builtin command.\n", name)
	case found:
		fmt.Fprintf(s.Stdout, "%s is %s\n", name, path)
	default:
		fmt.Fprintf(s.Stdout, "%s: command not found\n", name)
	}
	return nil
}

// Export sets environment variables given as KEY=VALUE. The value may itself
// contain '='.
func Export(s *Shell, args []string) error {
	for _, arg := range args[1:] {
		if key, _, ok := strings.Cut(arg, "="); !ok || key == "" {
			return usageErrorf(args[0], "%s: not a valid identifier", arg)
		}
	}

	for _, arg := range args[1:] {
		key, value, _ := strings.Cut(arg, "=")
		if err := s.VirtualOS.Setenv(key, value); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
	}
	return nil
}

// Unset removes environment variables, missing ones are ignored.
func Unset(s *Shell, args []string) error {
	for _, name := range args[1:] {
		if err := s.VirtualOS.Unsetenv(name); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
	}
	return nil
}

func init() {
	AllBuiltins["echo"] = ShellBuiltinFunc(Echo)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["type"] = ShellBuiltinFunc(Type)
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["export"] = ShellBuiltinFunc(Export)
	AllBuiltins["unset"] = ShellBuiltinFunc(Unset)
}
