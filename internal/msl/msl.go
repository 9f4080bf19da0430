// Package msl implements the actual functionality exposed via the CLI.
package msl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"go.followtheprocess.codes/msg"
	"go.followtheprocess.codes/msl/internal/engine"
	"go.followtheprocess.codes/msl/internal/scrape"
	"go.followtheprocess.codes/msl/internal/syntax"
	"go.followtheprocess.codes/msl/internal/syntax/parser"
)

// MSL holds the state of the program.
type MSL struct {
	stdout io.Writer   // Normal program output is written here
	stderr io.Writer   // Logs and errors
	logger *log.Logger // Execution progress, writes to stderr
}

// New returns a new instance of [MSL]. verbose lowers the logging threshold
// to debug.
func New(stdout, stderr io.Writer, verbose bool) MSL {
	logger := log.New(stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	return MSL{
		stdout: stdout,
		stderr: stderr,
		logger: logger,
	}
}

// RunOptions are the flags passed to the `msl run` subcommand.
type RunOptions struct {
	Dest    string        // Directory to download media into
	Timeout time.Duration // Timeout for each HTTP request
	Verbose bool          // Enable debug logging
}

// Run implements the `msl run` subcommand: parse the script in file, then
// execute it. Execution stops at the first error.
func (m MSL) Run(ctx context.Context, file string, options RunOptions) error {
	m.logger.Info("Loading script", "file", file)

	script, err := m.parse(file)
	if err != nil {
		return err
	}

	var clientOptions []scrape.Option
	if options.Timeout > 0 {
		clientOptions = append(clientOptions, scrape.WithTimeout(options.Timeout))
	}
	client := scrape.New(clientOptions...)

	e := engine.New(
		client,
		client,
		client,
		engine.WithLogger(m.logger),
		engine.WithDestination(options.Dest),
	)

	m.logger.Info("Executing script", "commands", len(script.Commands))

	if err := e.Execute(ctx, script); err != nil {
		return err
	}

	msg.Fsuccess(m.stdout, "Script %s completed", file)
	return nil
}

// ParseOptions are the flags passed to the `msl parse` subcommand.
type ParseOptions struct {
	JSON bool // Output the summary as JSON
}

// Summary describes a parsed script without executing it.
type Summary struct {
	File     string   `json:"file"`     // Path of the script
	Commands []string `json:"commands"` // Top level command descriptions, in order
	Count    int      `json:"count"`    // Number of top level commands
}

// Parse implements the `msl parse` subcommand: parse and validate the script
// in file and print a summary of its commands. No network or filesystem
// effects happen, making it safe to point at anything.
func (m MSL) Parse(file string, options ParseOptions) error {
	script, err := m.parse(file)
	if err != nil {
		return err
	}

	m.logger.Debug("Parsed script", "file", file, "commands", len(script.Commands))

	if options.JSON {
		summary := Summary{
			File:     file,
			Count:    len(script.Commands),
			Commands: describeAll(script.Commands),
		}

		return json.NewEncoder(m.stdout).Encode(summary)
	}

	fmt.Fprintf(m.stdout, "Script contains %d commands\n", len(script.Commands))
	for i, command := range script.Commands {
		fmt.Fprintf(m.stdout, "  %d: %s\n", i+1, describe(command))
	}

	return nil
}

// parse reads and parses file, pretty printing any syntax errors to stderr.
func (m MSL) parse(file string) (syntax.Script, error) {
	f, err := os.Open(file)
	if err != nil {
		return syntax.Script{}, err
	}
	defer f.Close()

	p, err := parser.New(file, f, syntax.PrettyConsoleHandler(m.stderr))
	if err != nil {
		return syntax.Script{}, err
	}

	script, err := p.Parse()
	if err != nil {
		return syntax.Script{}, fmt.Errorf("%w: %s is not valid msl syntax", err, file)
	}

	return script, nil
}

// describeAll renders the one line summary of every command in commands.
func describeAll(commands []syntax.Command) []string {
	descriptions := make([]string, 0, len(commands))
	for _, command := range commands {
		descriptions = append(descriptions, describe(command))
	}

	return descriptions
}

// describe renders the one line summary of a single command.
func describe(command syntax.Command) string {
	switch command := command.(type) {
	case syntax.Open:
		return fmt.Sprintf("Open %s", command.URL)
	case syntax.Click:
		return fmt.Sprintf("Click %s (%d nested commands)", command.Selector, len(command.Body))
	case syntax.Set:
		return fmt.Sprintf("Set %s = %s", command.Name, command.Value)
	case syntax.Media:
		return fmt.Sprintf("Media (%d blocks)", len(command.Blocks))
	case syntax.Save:
		return fmt.Sprintf("Save to %s", command.Path)
	case syntax.Wait:
		return fmt.Sprintf("Wait %d seconds", command.Seconds)
	default:
		return fmt.Sprintf("%T", command)
	}
}
