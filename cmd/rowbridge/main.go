// Command rowbridge drives the record router from the shell.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/rowbridge/internal/cli"
)

func main() {
	cli.LoadEnv()

	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
