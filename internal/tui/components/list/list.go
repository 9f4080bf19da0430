// Package list implements a simple bubbletea list component to preview the commands
// in an msl script before running it.
package list

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"go.followtheprocess.codes/msl/internal/syntax"
	"go.followtheprocess.codes/msl/internal/tui/theme"
)

// Model is the list tea Model.
type Model struct {
	l         list.Model // The base list bubble
	confirmed bool       // Whether the user chose to run the script
}

// New returns a new [Model] showing one row per top level command.
func New(title string, commands []syntax.Command) Model {
	items := make([]list.Item, 0, len(commands))
	for i, command := range commands {
		items = append(items, newItem(i+1, command))
	}

	palette := theme.CatpuccinMacchiato

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(palette.Mauve).
		BorderLeftForeground(palette.Mauve)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(palette.Subtext0).
		BorderLeftForeground(palette.Mauve)

	l := list.New(items, delegate, 0, 0)
	l.Title = title
	l.Styles.Title = l.Styles.Title.Background(palette.Mauve).Foreground(palette.Base)

	return Model{
		l: l,
	}
}

// Init helps implement [tea.Model] for [Model].
func (m Model) Init() tea.Cmd {
	return nil
}

// Update updates the UI in response to messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			m.confirmed = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.l.SetSize(msg.Width, msg.Height)
	}

	var cmd tea.Cmd

	m.l, cmd = m.l.Update(msg)

	return m, cmd
}

// View renders the UI to the user.
func (m Model) View() string {
	return m.l.View()
}

// Confirmed reports whether the user chose to run the script rather
// than quitting out of the preview.
func (m Model) Confirmed() bool {
	return m.confirmed
}

// item is one script command rendered as a list row.
type item struct {
	title       string
	description string
}

// FilterValue helps implement tea.list.Item.
//
// See https://github.com/charmbracelet/bubbles/tree/master/list#adding-custom-items.
func (i item) FilterValue() string {
	return i.title + " " + i.description
}

// Title returns the row's heading, the command's position and verb.
func (i item) Title() string {
	return i.title
}

// Description returns the row's detail line.
func (i item) Description() string {
	return i.description
}

// newItem renders a command as a list row, position is 1 indexed.
func newItem(position int, command syntax.Command) item {
	switch command := command.(type) {
	case syntax.Open:
		return item{title: fmt.Sprintf("%d: open", position), description: command.URL}
	case syntax.Click:
		return item{
			title:       fmt.Sprintf("%d: click", position),
			description: fmt.Sprintf("%s (%d nested commands)", command.Selector, len(command.Body)),
		}
	case syntax.Set:
		return item{
			title:       fmt.Sprintf("%d: set", position),
			description: fmt.Sprintf("%s = %s", command.Name, command.Value),
		}
	case syntax.Media:
		return item{
			title:       fmt.Sprintf("%d: media", position),
			description: fmt.Sprintf("%d blocks", len(command.Blocks)),
		}
	case syntax.Save:
		return item{title: fmt.Sprintf("%d: save", position), description: command.Path}
	case syntax.Wait:
		return item{title: fmt.Sprintf("%d: wait", position), description: fmt.Sprintf("%d seconds", command.Seconds)}
	default:
		return item{title: fmt.Sprintf("%d: unknown", position), description: fmt.Sprintf("%T", command)}
	}
}
