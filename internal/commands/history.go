package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/nest/internal/audit"
	"github.com/simonhull/firebird-suite/nest/internal/output"
)

// HistoryCmd creates and returns the 'history' command
func HistoryCmd() *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [task-id]",
		Short: "List recorded generations, newest first",
		Long: `History reads the audit trail written when audit.enabled is set.

Without arguments it lists the latest generations. With a task id it
prints that generation's request and result as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if !cfg.Audit.Enabled {
				output.Warn("Audit trail is disabled; set audit.enabled in nest.yaml")
				return nil
			}

			rec, err := audit.Open(cfg.Audit.Path)
			if err != nil {
				return err
			}
			defer rec.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if len(args) == 1 {
				r, err := rec.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return enc.Encode(r)
			}

			records, err := rec.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return enc.Encode(records)
			}
			if len(records) == 0 {
				output.Info("No generations recorded yet")
				return nil
			}
			for _, r := range records {
				mark := "✓"
				if !r.Result.Success {
					mark = "✗"
				}
				output.Step(fmt.Sprintf("%s %s  %s  project=%s files=%d",
					mark, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.TaskID,
					r.Config.ProjectID, r.Result.Summary.TotalFiles))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of generations to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the list as JSON")
	return cmd
}
