// Package tui implements the terminal user interface for finding and running msl scripts.
package tui

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"go.followtheprocess.codes/msl/internal/msl"
	"go.followtheprocess.codes/msl/internal/syntax"
	"go.followtheprocess.codes/msl/internal/syntax/parser"
	"go.followtheprocess.codes/msl/internal/tui/components/filepicker"
	"go.followtheprocess.codes/msl/internal/tui/components/list"
)

// Run runs the TUI, this is what happens when users call `msl` with no arguments.
//
// The user picks a .msl script, gets shown a preview of its commands, and
// confirms with enter to run it.
func Run() error {
	model := filepicker.New()

	tm, err := tea.NewProgram(&model).Run()
	if err != nil {
		return err
	}

	final, ok := tm.(filepicker.Model)
	if !ok {
		return fmt.Errorf("tui error, final model was not as expected: %T", tm)
	}

	file := final.Selected()
	if file == "" {
		// Quit without picking anything
		return nil
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	parser, err := parser.New(file, f, syntax.PrettyConsoleHandler(os.Stderr))
	if err != nil {
		return err
	}

	script, err := parser.Parse()
	if err != nil {
		return fmt.Errorf("%w: %s is not valid msl syntax", err, file)
	}

	listModel := list.New("Commands in "+file, script.Commands)

	tm, err = tea.NewProgram(&listModel, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}

	finalListModel, ok := tm.(list.Model)
	if !ok {
		return fmt.Errorf("tui error, list final model was not as expected: %T", tm)
	}

	if !finalListModel.Confirmed() {
		return nil
	}

	// TODO(@FollowTheProcess): Run parses the file again, it could take the already parsed script

	app := msl.New(os.Stdout, os.Stderr, false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return app.Run(ctx, file, msl.RunOptions{})
}
