package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/josephlewis42/cai/core/vos"
)

// historyCmd shows the saved history
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display or clear the saved command history.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		clearHistory, err := cmd.Flags().GetBool("clear")
		if err != nil {
			return err
		}

		hostFs := afero.NewOsFs()
		cfg, err := loadConfig(hostFs)
		if err != nil {
			return err
		}
		store := historyStore(hostFs, cfg, vos.NewProcessEnv())

		if clearHistory {
			return store.Save()
		}

		entries, err := store.Load()
		if err != nil {
			return err
		}
		for i, line := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "% 5d  %s\n", i+1, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolP("clear", "c", false, "clear the history by deleting all entries")
}
