package vos

import (
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotFound is the error resulting if a path search failed to find an executable file.
var ErrNotFound = exec.ErrNotFound

func (o *OS) findExecutable(file string) error {
	d, err := o.fs.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// LookPath searches for an executable named file in the directories named by
// the PATH environment variable. If file contains a slash, it is tried directly
// and the PATH is not consulted. The result is always absolute.
func (o *OS) LookPath(file string) (string, error) {
	if strings.Contains(file, "/") {
		path := o.Abs(file)
		if err := o.findExecutable(path); err != nil {
			return "", err
		}
		return path, nil
	}

	for _, dir := range o.Path() {
		path := o.Abs(filepath.Join(dir, file))
		if err := o.findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// FindInPath walks the PATH directories in order and returns the first entry
// literally named name, in each directory's natural listing order. Permissions
// are not checked and unreadable directories are skipped. The returned path
// is built from the PATH element as written.
func (o *OS) FindInPath(name string) (string, bool) {
	for _, dir := range o.Path() {
		names, err := o.readDirNames(o.Abs(dir))
		if err != nil {
			continue
		}
		for _, entry := range names {
			if entry == name {
				return filepath.Join(dir, name), true
			}
		}
	}
	return "", false
}

func (o *OS) readDirNames(dir string) ([]string, error) {
	fd, err := o.fs.Open(dir)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	return fd.Readdirnames(-1)
}
