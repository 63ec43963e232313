// Command hivecrawl is the entry point binary: the orchestrator (via the
// "run" subcommand) and every pod (via "fetcherpod"/"parserpod") are the
// same binary invoked with different subcommands and flags.
package main

import (
	"fmt"
	"os"

	"github.com/northcloud/hivecrawl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
