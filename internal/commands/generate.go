package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/simonhull/firebird-suite/nest/internal/audit"
	"github.com/simonhull/firebird-suite/nest/internal/catalog"
	"github.com/simonhull/firebird-suite/nest/internal/config"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/model"
	"github.com/simonhull/firebird-suite/nest/internal/orchestrator"
	"github.com/simonhull/firebird-suite/nest/internal/output"
	"github.com/simonhull/firebird-suite/nest/internal/ui"
	"github.com/simonhull/firebird-suite/nest/internal/writer"
)

type generateOptions struct {
	request      string
	catalog      string
	outputPath   string
	dryRun       bool
	applyPending bool
	keepPending  bool
	jsonOutput   bool
}

// GenerateCmd creates and returns the 'generate' command
func GenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate base and biz files for a request",
		Long: `Generate renders every selected template for every selected entity.

Base files are overwritten. Biz files are created when missing; otherwise
the custom code between the protection markers is carried into the fresh
content. When a merge cannot place every section the biz file is kept and
you are asked to review the merged content.

Examples:
  nest generate -r request.yaml
  nest generate -r request.json -c meta/catalog.yaml --dry-run
  nest generate -r request.yaml --keep-pending`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.request, "request", "r", "", "Generation request file (JSON or YAML)")
	cmd.Flags().StringVarP(&opts.catalog, "catalog", "c", "catalog.yaml", "Project catalog file")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Override the request's outputPath")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show what would be written without touching files")
	cmd.Flags().BoolVar(&opts.applyPending, "apply-pending", false, "Write held-back merges without asking")
	cmd.Flags().BoolVar(&opts.keepPending, "keep-pending", false, "Keep biz files with held-back merges without asking")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("request")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOptions) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	strategy, err := reviewStrategy(cmd, opts)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(opts.catalog)
	if err != nil {
		return err
	}
	req, err := loadRequestFile(cfg, opts.request)
	if err != nil {
		return err
	}
	if opts.outputPath != "" {
		req.OutputPath = opts.outputPath
	}

	orchOpts := []orchestrator.Option{orchestrator.WithLogger(log)}
	if opts.dryRun {
		orchOpts = append(orchOpts, orchestrator.WithWriter(
			writer.New(writer.WithLogger(log), writer.WithDryRun(cmd.OutOrStdout()))))
	}
	if cfg.Audit.Enabled && !opts.dryRun {
		rec, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			return err
		}
		defer rec.Close()
		orchOpts = append(orchOpts, orchestrator.WithAuditor(rec))
	}
	orch := orchestrator.New(cfg, cat, orchOpts...)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	output.Verbose(fmt.Sprintf("Generating %d entities × %d templates into %s (dry-run=%v)",
		len(req.UniqueEntityIDs()), len(req.UniqueTemplateIDs()), req.OutputPath, opts.dryRun))

	res, err := orch.Generate(ctx, req)
	if err != nil {
		if reportValidation(err) {
			return errReported
		}
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		output.Result(res)
	}

	if !opts.dryRun {
		reviewPending(orch, strategy, res, log)
	}

	if !res.Success {
		return errReported
	}
	return nil
}

// reviewStrategy picks how held-back merges are handled. Without a terminal
// and without a flag they are kept.
func reviewStrategy(cmd *cobra.Command, opts generateOptions) (ui.Strategy, error) {
	if !opts.applyPending && !opts.keepPending && !term.IsTerminal(int(os.Stdin.Fd())) {
		return ui.NewStrategy(false, true, nil)
	}
	return ui.NewStrategy(opts.applyPending, opts.keepPending, cmd.OutOrStdout())
}

type pendingApplier interface {
	ApplyPending(f model.GeneratedFile) (string, error)
}

// reviewPending asks about every biz file whose merged content was held back.
// It returns the number of files written.
func reviewPending(orch pendingApplier, strategy ui.Strategy, res *model.Result, log logger.Logger) int {
	applied := 0
	for _, f := range res.GeneratedFiles {
		if f.PendingContent == "" {
			continue
		}

		current, err := os.ReadFile(f.Path)
		if err != nil {
			output.Error(fmt.Sprintf("cannot read %s: %v", f.Path, err))
			continue
		}

		choice, err := strategy.Resolve(f.Path, string(current), f.PendingContent)
		if err != nil {
			output.Error(err.Error())
			return applied
		}
		log.Debug("pending merge reviewed", logger.F("path", f.Path), logger.F("choice", choice.String()))

		switch choice {
		case ui.Apply:
			backup, err := orch.ApplyPending(f)
			if err != nil {
				output.Error(err.Error())
				continue
			}
			applied++
			output.Success("Merged " + f.Path)
			if backup != "" {
				output.Step("backup: " + backup)
			}
		case ui.Keep:
			output.Info("Kept " + f.Path)
		default:
			output.Warn("Review cancelled; remaining biz files kept")
			return applied
		}
	}
	return applied
}

// loadRequestFile decodes a request with the tool defaults applied.
func loadRequestFile(cfg *config.Config, path string) (*model.GenerationConfig, error) {
	return config.LoadRequest(path, cfg.RequestDefaults())
}

var _ pendingApplier = (*orchestrator.Orchestrator)(nil)

