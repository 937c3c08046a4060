// Command ripple runs, tests and inspects reactive store scenarios.
//
// Usage:
//
//	ripple validate ./scenarios          # check scenario files
//	ripple run catalog.yaml --db r.db    # run one scenario and record its trace
//	ripple test ./scenarios              # run a directory against golden traces
//	ripple trace --db r.db --run latest  # show a recorded trace
//	ripple replay catalog.yaml --db r.db # verify a run reproduces
//	ripple watch catalog.yaml            # re-run on every save
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ripple/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
