package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridmesh/scledit/internal/journal"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recently dispatched edit batches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JournalPath == "" {
			return fmt.Errorf("no journal_path configured")
		}
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer func() { _ = j.Close() }() // best-effort

		entries, err := j.Recent(journalLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("#%d %s %s (%d action(s))\n", e.ID,
				e.AppliedAt.Format(time.RFC3339), e.Operation, e.Actions)
			for _, line := range strings.Split(e.Summary, "\n") {
				if line != "" {
					fmt.Printf("    %s\n", line)
				}
			}
		}
		return nil
	},
}

func init() {
	journalCmd.Flags().IntVar(&journalLimit, "limit", 20, "Maximum entries to list")
	rootCmd.AddCommand(journalCmd)
}
