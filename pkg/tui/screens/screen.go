// Package screens provides the TUI screens for dataset selection, pairwise comparison and the final ranking.
package screens

import (
	"github.com/rivo/tview"

	"github.com/pashagolub/escelo/pkg/data"
)

// Page names a screen registered with the application
type Page string

const (
	PageSelect     Page = "select"
	PageComparison Page = "comparison"
	PageRanking    Page = "ranking"
	PageHelp       Page = "help"
)

// Settings carries the display preferences and preselected dataset
type Settings struct {
	Year            int        // Preselected year, 0 picks the newest
	Stage           data.Stage // Preselected stage
	ShowProgress    bool
	ShowUncertainty bool
}

// Host is the application surface the screens drive
type Host interface {
	Session() *data.Session
	Registry() *data.Registry
	Settings() Settings

	// NavigateTo switches to page
	NavigateTo(page Page) error
	// ShowSession shows the comparison or ranking screen depending on the session state
	ShowSession() error
	// LoadDataset starts a new session over the given dataset
	LoadDataset(year int, stage data.Stage) error
	// Export writes the final ranking and returns the file path
	Export() (string, error)

	ShowError(title, message string)
	Exit()
}

// Screen defines the contract for all TUI screens
type Screen interface {
	// GetPrimitive returns the tview.Primitive for this screen
	GetPrimitive() tview.Primitive

	// OnEnter is called when the screen becomes active
	OnEnter(host Host) error

	// OnExit is called when leaving the screen
	OnExit(host Host) error

	// GetTitle returns the screen title for display
	GetTitle() string

	// GetHelpText returns the key bindings of the screen
	GetHelpText() []string
}
