package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/josephlewis42/cai/core"
	"github.com/josephlewis42/cai/core/config"
	"github.com/josephlewis42/cai/core/history"
	"github.com/josephlewis42/cai/core/logger"
	"github.com/josephlewis42/cai/core/vos"
)

var (
	cfgPath  string
	verbose  bool
	exitCode int
)

// defaultConfigDir is where init writes and the shell looks for config.yaml
// when --config isn't given.
func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "cai")
}

func loadConfig(fsys afero.Fs) (*config.Configuration, error) {
	if cfgPath == "" {
		configuration, err := config.Load(fsys, defaultConfigDir())
		if errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
		return configuration, err
	}

	configuration, err := config.Load(fsys, cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}
	return configuration, err
}

func newDiagnosticLogger(cmd *cobra.Command) *log.Logger {
	if verbose {
		return log.New(cmd.ErrOrStderr(), "[cai] ", 0)
	}
	return log.New(io.Discard, "", 0)
}

func historyStore(fsys afero.Fs, cfg *config.Configuration, env vos.VEnv) *history.Store {
	home := env.Getenv(vos.EnvHome)
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return history.NewStore(fsys, history.ExpandPath(cfg.HistoryFile, home), cfg.HistoryLimit)
}

func runShell(cmd *cobra.Command) (int, error) {
	hostFs := afero.NewOsFs()
	cfg, err := loadConfig(hostFs)
	if err != nil {
		return 1, err
	}

	wd, err := os.Getwd()
	if err != nil {
		return 1, err
	}
	virtualOS := vos.New(hostFs, vos.NewProcessEnv(), wd)
	store := historyStore(hostFs, cfg, virtualOS)

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	reader, err := core.NewReadlineReader(os.Stdin, stdout, stderr, cfg.HistoryLimit, term.IsTerminal(int(os.Stdin.Fd())))
	if err != nil {
		return 1, fmt.Errorf("setting up line editor: %w", err)
	}
	defer reader.Close()

	sh := core.NewShell(virtualOS, reader, store, os.Stdin, stdout, stderr)
	sh.Prompt = cfg.Prompt
	sh.Palette = core.NewPalette(core.ShouldColor(cfg.Color, term.IsTerminal(int(os.Stdout.Fd()))))
	sh.Log = newDiagnosticLogger(cmd)

	if cfg.EventLog != "" {
		logFd, err := cfg.OpenEventLog()
		if err != nil {
			return 1, fmt.Errorf("opening event log: %w", err)
		}
		defer logFd.Close()
		sh.Events = logger.NewJsonLinesLogRecorder(logFd).NewSession()
		sh.Log.Printf("logging events to %s (session %s)", cfg.EventLog, sh.Events.SessionID())
	}

	return sh.Run(cmd.Context()), nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cai",
	Short: "A minimal interactive command interpreter",
	Long: `cai reads commands from the terminal, runs the builtins echo, exit, type,
cd, export and unset itself, and launches everything else as a program found
on $PATH. History is kept in ~/.cai_history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		code, err := runShell(cmd)
		exitCode = code
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// The returned value is the status the process should exit with.
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if exitCode == 0 {
			exitCode = 1
		}
	}
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory (default "+defaultConfigDir()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")
}
