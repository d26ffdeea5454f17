package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var cliErr *cli.CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", cliErr.Hint)
		}
		if cliErr.ExitCode != 0 {
			return cliErr.ExitCode
		}
	}
	return 1
}
