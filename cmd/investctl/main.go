// Command investctl runs investlog operations from the command line:
// quote refreshes, snapshots, profit calculation and reports.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/aristath/investlog/internal/cli"
	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cli.Register(commander, cli.NewApp())

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
