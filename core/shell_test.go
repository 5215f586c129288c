package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abiosoft/readline"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephlewis42/cai/core/history"
	"github.com/josephlewis42/cai/core/logger"
	"github.com/josephlewis42/cai/core/vos"
)

const testHistoryPath = "/home/user/.cai_history"

// fakeReader replays lines; entries may be strings or errors. Once the lines
// run out it returns io.EOF.
type fakeReader struct {
	lines    []interface{}
	prompts  []string
	recalled []string
}

func (f *fakeReader) SetPrompt(prompt string) {
	f.prompts = append(f.prompts, prompt)
}

func (f *fakeReader) Readline() (string, error) {
	if len(f.lines) == 0 {
		return "", io.EOF
	}
	next := f.lines[0]
	f.lines = f.lines[1:]

	if err, ok := next.(error); ok {
		return "", err
	}
	return next.(string), nil
}

func (f *fakeReader) AddHistory(line string) {
	f.recalled = append(f.recalled, line)
}

type launchCall struct {
	Argv []string
	Dir  string
	Env  []string
}

// fakeLauncher "runs" the programs in statuses and fails to find anything
// else.
type fakeLauncher struct {
	statuses map[string]int
	calls    []launchCall
	panicOn  string
}

func (f *fakeLauncher) Launch(ctx context.Context, argv []string, attr *ProcAttr) (int, error) {
	f.calls = append(f.calls, launchCall{
		Argv: append([]string(nil), argv...),
		Dir:  attr.Dir,
		Env:  attr.Env,
	})

	if argv[0] == f.panicOn {
		panic("boom")
	}

	status, ok := f.statuses[argv[0]]
	if !ok {
		return ExitCodeLaunchFailure, &LaunchError{Name: argv[0], Err: vos.ErrNotFound}
	}
	fmt.Fprintf(attr.Stdout, "ran %s\n", strings.Join(argv, " "))
	return status, nil
}

type testShell struct {
	*Shell
	fs       afero.Fs
	reader   *fakeReader
	launcher *fakeLauncher
	out      *bytes.Buffer
}

func newTestShell(t *testing.T, lines ...interface{}) *testShell {
	t.Helper()

	memfs := afero.NewMemMapFs()
	require.NoError(t, memfs.MkdirAll("/home/user/projects/deep", 0755))
	require.NoError(t, memfs.MkdirAll("/usr/bin", 0755))
	require.NoError(t, memfs.MkdirAll("/bin", 0755))
	require.NoError(t, afero.WriteFile(memfs, "/usr/bin/ls", nil, 0755))
	require.NoError(t, afero.WriteFile(memfs, "/bin/ls", nil, 0755))
	require.NoError(t, afero.WriteFile(memfs, "/home/user/file.txt", nil, 0644))

	env := vos.NewMapEnvFromEnvList([]string{
		"HOME=/home/user",
		"PATH=/usr/bin:/bin",
	})
	virtualOS := vos.New(memfs, env, "/home/user")

	reader := &fakeReader{lines: lines}
	out := &bytes.Buffer{}
	launcher := &fakeLauncher{statuses: map[string]int{"ls": 0, "false": 1}}

	sh := NewShell(virtualOS, reader, history.NewStore(memfs, testHistoryPath, 0), nil, out, out)
	sh.Launcher = launcher

	return &testShell{
		Shell:    sh,
		fs:       memfs,
		reader:   reader,
		launcher: launcher,
		out:      out,
	}
}

// resolvingLauncher resolves names from a table that changes after every
// lookup, so a second lookup for the same name gives a different answer.
type resolvingLauncher struct {
	*fakeLauncher
	paths    map[string]string
	resolves int
	ran      []string
}

func (r *resolvingLauncher) Resolve(name string) (string, error) {
	r.resolves++
	path, ok := r.paths[name]
	if !ok {
		return "", vos.ErrNotFound
	}
	r.paths[name] = path + ".replaced"
	return path, nil
}

func (r *resolvingLauncher) Launch(ctx context.Context, argv []string, attr *ProcAttr) (int, error) {
	r.ran = append(r.ran, attr.Path)
	return r.fakeLauncher.Launch(ctx, argv, attr)
}

func (ts *testShell) savedHistory(t *testing.T) string {
	t.Helper()

	contents, err := afero.ReadFile(ts.fs, testHistoryPath)
	require.NoError(t, err)
	return string(contents)
}

func TestShell_Transcripts(t *testing.T) {
	cases := map[string][]interface{}{
		"echo":            {`echo a "b c" d`, "echo", "echo   spaced    out  ", `echo a "" b`},
		"unknown-command": {"zzzznosuch", "echo still here"},
		"parse-error":     {`echo "abc`, `echo trailing\`, "echo ok"},
		"type":            {"type echo", "type ls", "type zzzznosuch", "type", "type a b"},
		"cd":              {"cd /nope", "cd file.txt", "cd a b"},
		"exit-usage":      {"exit abc", "exit 1 2", "exit 3", "echo unreachable"},
		"export":          {"export A=b=c", "export NOPE", "export =x", "unset A", "unset A", "export", "unset"},
		"external":        {"ls -la", "false"},
		"interrupt":       {readline.ErrInterrupt, "echo after"},
		"blank":           {"", "   ", "\t"},
	}

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	)

	for tn, lines := range cases {
		t.Run(tn, func(t *testing.T) {
			ts := newTestShell(t, lines...)
			ts.Run(context.Background())

			g.Assert(t, "shell-"+tn, ts.out.Bytes())
		})
	}
}

func TestShell_Prompt(t *testing.T) {
	ts := newTestShell(t, "echo")
	ts.Run(context.Background())

	assert.Equal(t, []string{DefaultPrompt, DefaultPrompt}, ts.reader.prompts)

	ts = newTestShell(t)
	ts.Prompt = "$ "
	ts.Run(context.Background())
	assert.Equal(t, []string{"$ "}, ts.reader.prompts)
}

func TestShell_HistoryRecording(t *testing.T) {
	ts := newTestShell(t, "ls", "", "  ", "echo hi", `echo "abc`, "zzzznosuch")
	assert.Equal(t, 0, ts.Run(context.Background()))

	want := []string{"ls", "echo hi", `echo "abc`, "zzzznosuch"}
	assert.Equal(t, want, ts.History.Entries())
	assert.Equal(t, want, ts.reader.recalled)
	assert.Equal(t, "ls\necho hi\necho \"abc\nzzzznosuch\n", ts.savedHistory(t))
}

func TestShell_HistoryLoadedAtStartup(t *testing.T) {
	ts := newTestShell(t, "echo new")
	require.NoError(t, afero.WriteFile(ts.fs, testHistoryPath, []byte("ls\necho hi\n"), 0600))

	ts.Run(context.Background())

	assert.Equal(t, []string{"ls", "echo hi", "echo new"}, ts.reader.recalled)
	assert.Equal(t, "ls\necho hi\necho new\n", ts.savedHistory(t))
}

func TestShell_Exit(t *testing.T) {
	cases := map[string]struct {
		line string
		want int
	}{
		"no argument": {"exit", 0},
		"status":      {"exit 3", 3},
		"negative":    {"exit -1", -1},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			ts := newTestShell(t, "ls", tc.line, "echo unreachable")

			assert.Equal(t, tc.want, ts.Run(context.Background()))
			assert.Equal(t, "ls\n"+tc.line+"\n", ts.savedHistory(t))
			assert.NotContains(t, ts.out.String(), "unreachable")
			assert.Len(t, ts.reader.lines, 1)
		})
	}
}

func TestShell_ExitUsageErrorContinues(t *testing.T) {
	ts := newTestShell(t)

	assert.Equal(t, StepContinue, ts.RunLine(context.Background(), "exit abc"))
	assert.Equal(t, 2, ts.LastStatus())
	assert.False(t, ts.Quit)

	ts.reader.lines = []interface{}{"echo still running"}
	assert.Equal(t, 0, ts.Run(context.Background()))
	assert.Contains(t, ts.out.String(), "still running")
}

func TestShell_SaveFailureKeepsExitCode(t *testing.T) {
	ts := newTestShell(t, "exit 3")
	ts.History = history.NewStore(afero.NewReadOnlyFs(ts.fs), testHistoryPath, 0)

	assert.Equal(t, 3, ts.Run(context.Background()))
	assert.Contains(t, ts.out.String(), "cai: warning: could not save history:")
}

func TestShell_EndOfInput(t *testing.T) {
	ts := newTestShell(t, "echo hi")

	assert.Equal(t, 0, ts.Run(context.Background()))
	assert.Equal(t, "echo hi\n", ts.savedHistory(t))
	assert.True(t, strings.HasSuffix(ts.out.String(), "Use 'exit' to quit.\n"))
}

func TestShell_ReadErrorContinues(t *testing.T) {
	ts := newTestShell(t, errors.New("terminal went away"), "echo after")

	assert.Equal(t, 0, ts.Run(context.Background()))
	assert.Contains(t, ts.out.String(), "after\n")
}

func TestShell_ExportUnset(t *testing.T) {
	ts := newTestShell(t)
	ctx := context.Background()

	ts.RunLine(ctx, "export KEY=VALUE=MORE")
	val, ok := ts.VirtualOS.LookupEnv("KEY")
	assert.True(t, ok)
	assert.Equal(t, "VALUE=MORE", val)

	ts.RunLine(ctx, "ls")
	require.Len(t, ts.launcher.calls, 1)
	assert.Contains(t, ts.launcher.calls[0].Env, "KEY=VALUE=MORE")
	ts.out.Reset()

	ts.RunLine(ctx, "unset KEY")
	_, ok = ts.VirtualOS.LookupEnv("KEY")
	assert.False(t, ok)

	ts.RunLine(ctx, "unset KEY")
	ts.RunLine(ctx, "unset")
	ts.RunLine(ctx, "export")
	assert.Empty(t, ts.out.String())

	ts.RunLine(ctx, "ls")
	require.Len(t, ts.launcher.calls, 2)
	for _, entry := range ts.launcher.calls[1].Env {
		assert.False(t, strings.HasPrefix(entry, "KEY="), entry)
	}
}

func TestShell_ExportInvalidLeavesEnvUnchanged(t *testing.T) {
	ts := newTestShell(t)
	before := ts.VirtualOS.Environ()

	ts.RunLine(context.Background(), "export GOOD=1 BAD")

	assert.Equal(t, before, ts.VirtualOS.Environ())
	assert.Equal(t, "export: BAD: not a valid identifier\n", ts.out.String())
}

func TestShell_CdHome(t *testing.T) {
	ts := newTestShell(t)
	ctx := context.Background()

	for _, dir := range []string{"projects", "deep", "/usr/bin", "../../bin"} {
		ts.RunLine(ctx, "cd "+dir)
	}
	assert.Equal(t, "/bin", ts.VirtualOS.Getwd())

	ts.RunLine(ctx, "cd")
	assert.Equal(t, "/home/user", ts.VirtualOS.Getwd())
	assert.Empty(t, ts.out.String())

	ts.RunLine(ctx, "cd projects/deep")
	ts.RunLine(ctx, "ls")
	require.Len(t, ts.launcher.calls, 1)
	assert.Equal(t, "/home/user/projects/deep", ts.launcher.calls[0].Dir)
}

func TestShell_CdInvalidLeavesDirUnchanged(t *testing.T) {
	ts := newTestShell(t)

	ts.RunLine(context.Background(), "cd /does/not/exist")

	assert.Equal(t, "/home/user", ts.VirtualOS.Getwd())
	assert.Equal(t, "cd: no such file or directory: /does/not/exist\n", ts.out.String())
}

func TestShell_CdNoHome(t *testing.T) {
	ts := newTestShell(t)
	ts.VirtualOS.Unsetenv(vos.EnvHome)

	ts.RunLine(context.Background(), "cd")

	assert.Equal(t, "/home/user", ts.VirtualOS.Getwd())
	assert.Equal(t, "cd: missing argument\n", ts.out.String())
}

func TestShell_TypeBuiltins(t *testing.T) {
	for _, name := range []string{"echo", "exit", "type", "cd", "export", "unset"} {
		t.Run(name, func(t *testing.T) {
			ts := newTestShell(t)
			ts.RunLine(context.Background(), "type "+name)

			assert.Equal(t, name+" is a builtin command.\n", ts.out.String())
		})
	}

	for _, name := range []string{"ls", "history", "pwd", "help", "ECHO"} {
		t.Run(name, func(t *testing.T) {
			ts := newTestShell(t)
			ts.RunLine(context.Background(), "type "+name)

			assert.NotContains(t, ts.out.String(), "builtin")
		})
	}
}

func TestShell_TypeUsage(t *testing.T) {
	for _, line := range []string{"type", "type a b"} {
		t.Run(line, func(t *testing.T) {
			ts := newTestShell(t)

			ts.RunLine(context.Background(), line)

			assert.Equal(t, "usage: type NAME\n", ts.out.String())
			assert.Equal(t, 2, ts.LastStatus())
		})
	}
}

func TestShell_EmptyQuotedArguments(t *testing.T) {
	ts := newTestShell(t)
	ctx := context.Background()

	ts.RunLine(ctx, `echo a "" b`)
	assert.Equal(t, "a  b\n", ts.out.String())

	ts.RunLine(ctx, `ls -m "" ''`)
	require.Len(t, ts.launcher.calls, 1)
	assert.Equal(t, []string{"ls", "-m", "", ""}, ts.launcher.calls[0].Argv)
}

func TestShell_RecordsResolvedPath(t *testing.T) {
	ts := newTestShell(t)
	ctx := context.Background()

	launcher := &resolvingLauncher{
		fakeLauncher: ts.launcher,
		paths:        map[string]string{"ls": "/usr/bin/ls"},
	}
	ts.Launcher = launcher
	events := &bytes.Buffer{}
	ts.Events = logger.NewJsonLinesLogRecorder(events).NewSession()

	ts.RunLine(ctx, "ls -l")
	ts.RunLine(ctx, "zzzznosuch")

	assert.Equal(t, 2, launcher.resolves)
	assert.Equal(t, []string{"/usr/bin/ls"}, launcher.ran)
	assert.Len(t, ts.launcher.calls, 1)
	assert.Equal(t, "ran ls -l\nzzzznosuch: command not found\n", ts.out.String())

	var runs []*logger.RunCommand
	var unknown []*logger.UnknownCommand
	require.NoError(t, logger.ReadJSONLinesLog(events, func(le *logger.LogEntry) {
		if le.RunCommand != nil {
			runs = append(runs, le.RunCommand)
		}
		if le.UnknownCommand != nil {
			unknown = append(unknown, le.UnknownCommand)
		}
	}))
	require.Len(t, runs, 1)
	assert.Equal(t, "/usr/bin/ls", runs[0].ResolvedCommandPath)
	require.Len(t, unknown, 1)
	assert.Equal(t, []string{"zzzznosuch"}, unknown[0].Command)
}

func TestShell_ExternalCommand(t *testing.T) {
	ts := newTestShell(t)
	ctx := context.Background()

	assert.Equal(t, StepContinue, ts.RunLine(ctx, `ls -la "my dir"`))
	require.Len(t, ts.launcher.calls, 1)
	assert.Equal(t, []string{"ls", "-la", "my dir"}, ts.launcher.calls[0].Argv)
	assert.Equal(t, 0, ts.LastStatus())

	ts.RunLine(ctx, "false")
	assert.Equal(t, 1, ts.LastStatus())

	ts.out.Reset()
	assert.Equal(t, StepContinue, ts.RunLine(ctx, "zzzznosuch --flag"))
	assert.Equal(t, "zzzznosuch: command not found\n", ts.out.String())
	assert.Equal(t, ExitCodeLaunchFailure, ts.LastStatus())
}

func TestShell_BuiltinsNeverLaunch(t *testing.T) {
	ts := newTestShell(t)

	for _, line := range []string{"echo x", "type ls", "cd", "export A=B", "unset A", "exit 1"} {
		ts.RunLine(context.Background(), line)
	}

	assert.Empty(t, ts.launcher.calls)
}

func TestShell_PanicIsRecovered(t *testing.T) {
	ts := newTestShell(t, "crash", "echo survived")
	ts.launcher.panicOn = "crash"

	assert.Equal(t, 0, ts.Run(context.Background()))
	assert.Contains(t, ts.out.String(), "Error: boom\nsurvived\n")
}
