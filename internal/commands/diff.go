package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/nest/internal/diff"
	"github.com/simonhull/firebird-suite/nest/internal/output"
	"github.com/simonhull/firebird-suite/nest/internal/ui"
)

// DiffCmd creates and returns the 'diff' command
func DiffCmd() *cobra.Command {
	var algorithm string
	var analyze, pager bool

	cmd := &cobra.Command{
		Use:   "diff <base-file> <biz-file>",
		Short: "Diff a base file against its biz file",
		Long: `Diff prints a unified diff from the base file to the biz file.

With --analyze it instead reports the change summary, the methods and
imports that differ, breaking changes and recommendations.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			base, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			biz, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[1], err)
			}

			if analyze {
				opts := cfg.DiffOptions()
				if algorithm != "" {
					opts.Algorithm = diff.ParseAlgorithm(algorithm)
				}
				r := diff.Analyze(string(base), string(biz), opts)
				printAnalysis(r, diff.DetectSignificantChanges(r, cfg.Thresholds.MergeImpactRatio), diff.Recommendations(r))
				return nil
			}

			text := diff.Unified(args[0], args[1], string(base), string(biz), &diff.UnifiedOptions{ShowLineNums: true})
			if text == "" {
				output.Success("Files are identical")
				return nil
			}
			if pager {
				return ui.Page(args[1], text)
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", "", "Line alignment for --analyze: positional or myers (default from settings)")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "Report a change analysis instead of the diff")
	cmd.Flags().BoolVar(&pager, "pager", false, "Show the diff in a scrollable pager")
	return cmd
}

func printAnalysis(r *diff.Result, sig diff.SignificantChanges, recs []diff.Recommendation) {
	if !r.HasChanges {
		output.Success("Files are identical")
		return
	}

	output.Info(fmt.Sprintf("%d changes: %d added, %d removed, %d modified",
		r.TotalChanges, r.AddedLines, r.RemovedLines, r.ModifiedLines))
	list := func(label string, items []string) {
		if len(items) > 0 {
			output.Step(label + ": " + strings.Join(items, ", "))
		}
	}
	s := r.Summary
	list("methods only in biz", s.AddedMethods)
	list("methods only in base", s.RemovedMethods)
	list("methods modified", s.ModifiedMethods)
	list("imports only in biz", s.AddedImports)
	list("imports only in base", s.RemovedImports)

	for _, b := range sig.BreakingChanges {
		output.Error(b)
	}
	for _, w := range sig.Warnings {
		output.Warn(w)
	}
	for _, rec := range recs {
		output.Step(fmt.Sprintf("[%s] %s", rec.Priority, rec.Message))
	}
}
