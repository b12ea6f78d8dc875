// Package output provides styled terminal output for the nest CLI.
//
// It follows the rest of the Firebird suite: lipgloss handles the styling and
// callers only pick the kind of message.
package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/simonhull/firebird-suite/nest/internal/model"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle   = lipgloss.NewStyle().Bold(true)

	mu          sync.Mutex
	out         io.Writer = os.Stdout
	verboseMode bool
)

// SetVerbose enables or disables verbose output.
// The CLI calls this when --verbose is set.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verboseMode = v
}

// SetWriter redirects all output. Passing nil restores stdout.
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

func emit(s string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(out, s)
}

// Success prints a completed-operation message.
//
//	output.Success("Generated 4 files")
func Success(msg string) {
	emit(successStyle.Render("🪺 " + msg))
}

// Error prints a failure that needs user attention.
func Error(msg string) {
	emit(errorStyle.Render("❌ " + msg))
}

// Warn prints a non-fatal problem, e.g. a biz file that was left untouched.
func Warn(msg string) {
	emit(warnStyle.Render("⚠️  " + msg))
}

// Info prints a status update.
func Info(msg string) {
	emit(infoStyle.Render("ℹ️  " + msg))
}

// Step prints an indented sub-item in gray.
func Step(msg string) {
	emit(stepStyle.Render("   " + msg))
}

// Verbose prints a debug message only when verbose mode is on.
func Verbose(msg string) {
	mu.Lock()
	v := verboseMode
	mu.Unlock()
	if v {
		emit(stepStyle.Render("🔍 " + msg))
	}
}

// Result prints the file list, warnings, errors and counts of a generation run.
func Result(r *model.Result) {
	for _, f := range r.GeneratedFiles {
		mark := "✓"
		if !f.WasOverwritten {
			mark = "•"
		}
		Step(fmt.Sprintf("%s [%s] %s", mark, f.Layer, f.Path))
		if f.BackupPath != "" {
			Verbose("backup: " + f.BackupPath)
		}
	}
	for _, w := range r.Warnings {
		Warn(w)
	}
	for _, e := range r.Errors {
		Error(e)
	}

	s := r.Summary
	emit(labelStyle.Render("Summary") + stepStyle.Render(fmt.Sprintf(
		"  total=%d base=%d biz=%d skipped=%d", s.TotalFiles, s.BaseFiles, s.BizFiles, s.SkippedFiles)))

	if r.Success {
		Success("Generation completed")
	} else {
		Error("Generation finished with errors")
	}
}
