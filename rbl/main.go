// Command rbl keeps a family portfolio close to its target allocation.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/etnz/rebalance/cmd"
	"github.com/google/subcommands"
)

func main() {
	cmd.Configure()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	cmd.Register(subcommands.DefaultCommander)

	cmd.Completion().Complete("rbl")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
