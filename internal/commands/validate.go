package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/nest/internal/catalog"
	"github.com/simonhull/firebird-suite/nest/internal/output"
	"github.com/simonhull/firebird-suite/nest/internal/validate"
)

// ValidateCmd creates and returns the 'validate' command
func ValidateCmd() *cobra.Command {
	var request, catalogPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a request without generating anything",
		Long: `Validate checks a generation request and scores it from 0 to 100.

Errors block generation. Warnings (missing ids that would be skipped, an
unusual outputPath) and suggestions only lower the score.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			newLogger(cmd, cfg)

			var meta catalog.MetadataSource
			if catalogPath != "" {
				cat, err := catalog.Load(catalogPath)
				if err != nil {
					return err
				}
				meta = cat
			}

			req, err := loadRequestFile(cfg, request)
			if err != nil {
				return err
			}

			r := validate.New(meta).Validate(cmd.Context(), req)
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(r); err != nil {
					return err
				}
			} else {
				printValidation(r)
			}

			if !r.IsValid {
				return errReported
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&request, "request", "r", "", "Generation request file (JSON or YAML)")
	cmd.Flags().StringVarP(&catalogPath, "catalog", "c", "", "Project catalog file; ids are not resolved without it")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("request")

	return cmd
}

func printValidation(r *validate.Result) {
	for _, e := range r.Errors {
		output.Error(e)
	}
	for _, w := range r.Warnings {
		output.Warn(w)
	}
	for _, s := range r.Suggestions {
		output.Step("💡 " + s)
	}
	if r.IsValid {
		output.Success(fmt.Sprintf("Request is valid (score %d/100)", r.Score))
	} else {
		output.Error(fmt.Sprintf("Request is invalid (score %d/100)", r.Score))
	}
}

// CompareCmd creates and returns the 'compare' command
func CompareCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "compare <old-request> <new-request>",
		Short: "Show how a request changed and how compatible the change is",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			old, err := loadRequestFile(cfg, args[0])
			if err != nil {
				return err
			}
			updated, err := loadRequestFile(cfg, args[1])
			if err != nil {
				return err
			}

			c := validate.Compare(old, updated)
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(c)
			}

			if len(c.Differences) == 0 {
				output.Success("Requests are identical")
				return nil
			}
			for _, d := range c.Differences {
				switch d.Type {
				case validate.DiffAdded:
					output.Step(fmt.Sprintf("+ %s = %v", d.Path, d.NewValue))
				case validate.DiffRemoved:
					output.Step(fmt.Sprintf("- %s (was %v)", d.Path, d.OldValue))
				default:
					output.Step(fmt.Sprintf("~ %s: %v → %v", d.Path, d.OldValue, d.NewValue))
				}
			}
			for _, r := range c.Recommendations {
				output.Warn(r)
			}
			output.Info(fmt.Sprintf("Compatibility %.0f%%", c.Compatibility*100))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the comparison as JSON")
	return cmd
}
