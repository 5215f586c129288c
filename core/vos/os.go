package vos

import (
	"errors"
	"io/fs"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
)

const (
	EnvHome = "HOME"
	EnvPath = "PATH"
)

// OS holds the mutable process state shared by the builtins and every program
// the shell launches: the environment and the working directory.
type OS struct {
	VEnv

	fs  afero.Fs
	dir string
}

// New creates an OS rooted at dir. dir should be absolute.
func New(fsys afero.Fs, env VEnv, dir string) *OS {
	return &OS{
		VEnv: env,
		fs:   fsys,
		dir:  filepath.Clean(dir),
	}
}

// Fs returns the filesystem used to resolve paths.
func (o *OS) Fs() afero.Fs {
	return o.fs
}

// Getwd returns the current working directory.
func (o *OS) Getwd() string {
	return o.dir
}

// Abs resolves name against the working directory.
func (o *OS) Abs(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(o.dir, name)
}

// Chdir changes the working directory. The directory is left unchanged on
// error, and the error is a *fs.PathError wrapping fs.ErrNotExist or
// syscall.ENOTDIR.
func (o *OS) Chdir(dir string) error {
	target := o.Abs(dir)

	info, err := o.fs.Stat(target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &fs.PathError{Op: "chdir", Path: dir, Err: fs.ErrNotExist}
	case err != nil:
		return &fs.PathError{Op: "chdir", Path: dir, Err: err}
	case !info.IsDir():
		return &fs.PathError{Op: "chdir", Path: dir, Err: syscall.ENOTDIR}
	}

	o.dir = target
	return nil
}

// UserHomeDir returns $HOME and whether it was set to a non-empty value.
func (o *OS) UserHomeDir() (string, bool) {
	home := o.Getenv(EnvHome)
	return home, home != ""
}

// Path gets the search path for commands in the order listed. Empty
// elements mean the current directory.
func (o *OS) Path() []string {
	list := filepath.SplitList(o.Getenv(EnvPath))
	for i, dir := range list {
		if dir == "" {
			list[i] = "."
		}
	}
	return list
}
