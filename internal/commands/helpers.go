package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/simonhull/firebird-suite/nest/internal/config"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/output"
	"github.com/simonhull/firebird-suite/nest/internal/validate"
)

// errReported is returned once the failure has already been printed.
var errReported = errors.New("command failed")

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool {
	return errors.Is(err, errReported)
}

// loadSettings reads the --config flag inherited from the root command.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// newLogger logs to stderr at the configured level, or debug with --verbose.
func newLogger(cmd *cobra.Command, cfg *config.Config) logger.Logger {
	level := logger.ParseLevel(cfg.Log.Level)
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = logger.LevelDebug
	}
	l := logger.NewLogger(level, cmd.ErrOrStderr())
	logger.SetDefault(l)
	return l
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// reportValidation prints every validation error carried by err. It returns
// false when err holds none.
func reportValidation(err error) bool {
	var verrs validate.Errors
	if !errors.As(err, &verrs) {
		return false
	}
	output.Error("Request rejected")
	for _, e := range verrs {
		output.Step("✗ " + e)
	}
	return true
}
