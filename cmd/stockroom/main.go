// Command stockroom is the operator CLI for the stockroom inventory store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/stockroom/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
