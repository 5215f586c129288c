package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/josephlewis42/cai/core/logger"
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Aliases: []string{"log"},
	Short:   "Explore the session event logs.",
}

type logUpdater interface {
	Update(le *logger.LogEntry)
}

func summarize(cmd *cobra.Command, path string, report logUpdater) error {
	cmd.SilenceUsage = true

	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()

	if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// reportCmd summarizes every event in a log
var reportCmd = &cobra.Command{
	Use:   "report EVENTS.jsonl",
	Short: "Summarize the commands, errors and sessions in an event log.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return summarize(cmd, args[0], &logger.Report{})
	},
}

// bugsCmd pulls out the events that point to mistakes
var bugsCmd = &cobra.Command{
	Use:   "bugs EVENTS.jsonl",
	Short: "List unknown commands, bad invocations and crashes in an event log.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return summarize(cmd, args[0], logger.NewBugReport())
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(reportCmd)
	logsCmd.AddCommand(bugsCmd)
}
