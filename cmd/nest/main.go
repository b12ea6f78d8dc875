package main

import (
	"os"

	"github.com/simonhull/firebird-suite/nest/internal/commands"
	"github.com/simonhull/firebird-suite/nest/internal/output"
)

func main() {
	if err := commands.NewCLI().Execute(); err != nil {
		if !commands.IsReported(err) {
			output.Error(err.Error())
		}
		os.Exit(1)
	}
}
