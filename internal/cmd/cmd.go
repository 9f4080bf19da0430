// Package cmd implements msl's CLI.
package cmd

import (
	"context"
	"os"
	"os/signal"

	"go.followtheprocess.codes/cli"
	"go.followtheprocess.codes/msl/internal/engine"
	"go.followtheprocess.codes/msl/internal/msl"
	"go.followtheprocess.codes/msl/internal/tui"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// Build returns the root msl CLI command.
func Build() (*cli.Command, error) {
	return cli.New(
		"msl",
		cli.Short("Run web scraping scripts from the command line"),
		cli.Allow(cli.NoArgs()),
		cli.Version(version),
		cli.Commit(commit),
		cli.BuildDate(date),
		cli.Run(func(cmd *cli.Command, args []string) error {
			// Bare usage finds .msl scripts interactively and runs the chosen one
			return tui.Run()
		}),
		cli.SubCommands(run, parse),
	)
}

const runLong = `
The script is executed top to bottom against live pages, stopping
at the first error.

Media downloads are saved to the directory given by '--dest', each
HTTP request is subject to '--timeout'.
`

// run returns the run subcommand.
func run() (*cli.Command, error) {
	var options msl.RunOptions
	return cli.New(
		"run",
		cli.Short("Execute an msl script"),
		cli.Long(runLong),
		cli.RequiredArg("file", "Path of the .msl script"),
		cli.Flag(&options.Dest, "dest", 'd', engine.DefaultDestination, "Directory to download media into"),
		cli.Flag(&options.Timeout, "timeout", cli.NoShortHand, 0, "Timeout for each HTTP request"),
		cli.Flag(&options.Verbose, "verbose", 'v', false, "Enable debug logging"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			app := msl.New(cmd.Stdout(), cmd.Stderr(), options.Verbose)
			return app.Run(ctx, cmd.Arg("file"), options)
		}),
	)
}

// parse returns the parse subcommand.
func parse() (*cli.Command, error) {
	var options msl.ParseOptions
	return cli.New(
		"parse",
		cli.Short("Parse an msl script and summarise its commands"),
		cli.RequiredArg("file", "Path of the .msl script"),
		cli.Flag(&options.JSON, "json", 'j', false, "Output the summary as JSON"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			app := msl.New(cmd.Stdout(), cmd.Stderr(), false)
			return app.Parse(cmd.Arg("file"), options)
		}),
	)
}
