// Command bundlestore is the administrative CLI for the persistence
// engine: schema init/migrate, debug bundle I/O, and consistency
// checks.
package main

import (
	"fmt"
	"os"

	"github.com/rogerblanton/jackrabbit/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
