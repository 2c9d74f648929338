// Command timelock operates a time-locked custody vault backed by SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/timelock/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "timelock:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
