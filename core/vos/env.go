package vos

import (
	"os"
	"sort"
	"strings"
	"sync"
)

// VEnv is the environment inherited by every launched program. It is only
// changed by the export and unset builtins.
type VEnv interface {
	EnvironFetcher

	// Unsetenv removes a single variable, it's not an error if it's missing.
	Unsetenv(key string) error

	// Setenv sets the value of the variable named by key.
	Setenv(key, value string) error

	// LookupEnv retrieves the value of the variable named by key and reports
	// whether it was present.
	LookupEnv(key string) (string, bool)

	// Getenv retrieves the value of the variable named by key, or the empty
	// string if it isn't present.
	Getenv(key string) string
}

// EnvironFetcher returns environment variables in "key=value" form.
type EnvironFetcher interface {
	Environ() []string
}

// EnvList adapts a "key=value" slice to EnvironFetcher.
type EnvList []string

// Environ implements EnvironFetcher.
func (e EnvList) Environ() []string {
	return []string(e)
}

// SplitEnv splits a "key=value" pair on the first '='. Entries without an '='
// have an empty value.
func SplitEnv(entry string) (key, value string) {
	split := strings.SplitN(entry, "=", 2)
	key = split[0]
	if len(split) > 1 {
		value = split[1]
	}
	return key, value
}

// CopyEnv copies all the environment variables from src to dst.
func CopyEnv(dst VEnv, src EnvironFetcher) error {
	for _, e := range src.Environ() {
		if err := dst.Setenv(SplitEnv(e)); err != nil {
			return err
		}
	}

	return nil
}

// NewMapEnv creates a new empty environment backed by a map.
func NewMapEnv() *MapEnv {
	return &MapEnv{}
}

// NewMapEnvFromEnvList creates an environment from "key=value" pairs, later
// duplicates win.
func NewMapEnvFromEnvList(environ []string) *MapEnv {
	out := NewMapEnv()
	// Ignore error, it will never be set for MapEnv.
	_ = CopyEnv(out, EnvList(environ))
	return out
}

// NewProcessEnv snapshots the real process environment.
func NewProcessEnv() *MapEnv {
	return NewMapEnvFromEnvList(os.Environ())
}

// MapEnv implements an in-memory VEnv.
type MapEnv struct {
	rw  sync.RWMutex
	env map[string]string
}

var _ VEnv = (*MapEnv)(nil)

// Unsetenv implements VEnv.Unsetenv.
func (m *MapEnv) Unsetenv(key string) error {
	m.rw.Lock()
	defer m.rw.Unlock()

	delete(m.env, key)
	return nil
}

// Setenv implements VEnv.Setenv.
func (m *MapEnv) Setenv(key, value string) error {
	m.rw.Lock()
	defer m.rw.Unlock()

	if m.env == nil {
		m.env = make(map[string]string)
	}
	m.env[key] = value
	return nil
}

// LookupEnv implements VEnv.LookupEnv.
func (m *MapEnv) LookupEnv(key string) (string, bool) {
	m.rw.RLock()
	defer m.rw.RUnlock()

	val, ok := m.env[key]
	return val, ok
}

// Getenv implements VEnv.Getenv.
func (m *MapEnv) Getenv(key string) string {
	val, _ := m.LookupEnv(key)
	return val
}

// Environ implements VEnv.Environ, entries are sorted by key.
func (m *MapEnv) Environ() []string {
	m.rw.RLock()
	defer m.rw.RUnlock()

	keys := make([]string, 0, len(m.env))
	for k := range m.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+m.env[k])
	}
	return env
}
