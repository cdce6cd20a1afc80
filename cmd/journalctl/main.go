// Command journalctl inspects transaction journal directories.
package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/txjournal/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "journalctl:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
