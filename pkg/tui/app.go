// Package tui provides the terminal user interface for ranking Eurovision entries.
// It wires the screens to a session, handles global shortcuts and reports errors in modal dialogs.
package tui

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pashagolub/escelo/pkg/data"
	"github.com/pashagolub/escelo/pkg/journal"
	"github.com/pashagolub/escelo/pkg/logger"
	"github.com/pashagolub/escelo/pkg/tui/screens"
)

const errorDialogPage = "error-dialog"

// Options configures the application
type Options struct {
	Settings  screens.Settings
	AutoStart bool // Load Settings.Year/Settings.Stage right away instead of showing the select screen
	Exporter  *journal.Exporter
	ExportDir string
	Logger    logger.Logger
}

// App represents the main TUI application
type App struct {
	tviewApp *tview.Application
	pages    *tview.Pages
	header   *tview.TextView
	footer   *tview.TextView

	session  *data.Session
	registry *data.Registry
	options  Options
	log      logger.Logger

	screens    map[screens.Page]screens.Screen
	current    screens.Page
	previous   screens.Page
	lastExport string
}

// KeyBinding represents a keyboard shortcut
type KeyBinding struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func(app *App) error
}

// globalKeyBindings returns the shortcuts available across all screens
func globalKeyBindings() []KeyBinding {
	return []KeyBinding{
		{Key: tcell.KeyCtrlC, Description: "Exit", Handler: func(a *App) error { a.Exit(); return nil }},
		{Key: tcell.KeyF1, Description: "Help", Handler: (*App).ShowHelp},
	}
}

// NewApp creates a new TUI application instance
func NewApp(session *data.Session, registry *data.Registry, options Options) (*App, error) {
	if session == nil {
		return nil, errors.New("session cannot be nil")
	}
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if options.Exporter == nil {
		options.Exporter = journal.NewExporter(journal.DefaultExportOptions())
	}
	if options.ExportDir == "" {
		options.ExportDir = "."
	}
	if options.Logger == nil {
		options.Logger = logger.Nop()
	}

	app := &App{
		tviewApp: tview.NewApplication(),
		pages:    tview.NewPages(),
		header:   tview.NewTextView(),
		footer:   tview.NewTextView(),
		session:  session,
		registry: registry,
		options:  options,
		log:      options.Logger.Named("tui"),
		screens:  make(map[screens.Page]screens.Screen),
	}

	app.setupUI()

	for page, screen := range map[screens.Page]screens.Screen{
		screens.PageSelect:     screens.NewSelectScreen(),
		screens.PageComparison: screens.NewComparisonScreen(),
		screens.PageRanking:    screens.NewRankingScreen(),
		screens.PageHelp:       NewHelpScreen(),
	} {
		if err := app.RegisterScreen(page, screen); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// setupUI initializes the UI components and layout
func (a *App) setupUI() {
	a.header.SetBorder(true).
		SetTitle(" Eurovision Song Contest Ranking ").
		SetTitleAlign(tview.AlignCenter).
		SetBackgroundColor(tcell.ColorDarkBlue)
	a.header.SetTextColor(tcell.ColorWhite)

	a.footer.SetBorder(true).
		SetTitle(" Keyboard Shortcuts ").
		SetTitleAlign(tview.AlignCenter).
		SetBackgroundColor(tcell.ColorDarkGreen)
	a.footer.SetTextColor(tcell.ColorWhite)
	a.updateFooter()

	mainLayout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 3, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.footer, 3, 0, false)

	a.tviewApp.SetRoot(mainLayout, true).
		SetInputCapture(a.handleGlobalInput).
		SetBeforeDrawFunc(func(tcell.Screen) bool {
			a.updateHeader()
			return false
		})
}

// RegisterScreen registers a screen with the application
func (a *App) RegisterScreen(page screens.Page, screen screens.Screen) error {
	if screen == nil {
		return errors.New("screen cannot be nil")
	}
	a.screens[page] = screen
	a.pages.AddPage(string(page), screen.GetPrimitive(), true, false)
	return nil
}

// NavigateTo switches to the specified screen
func (a *App) NavigateTo(page screens.Page) error {
	screen, exists := a.screens[page]
	if !exists {
		return fmt.Errorf("screen %s not registered", page)
	}

	if current, ok := a.screens[a.current]; ok {
		if err := current.OnExit(a); err != nil {
			return fmt.Errorf("failed to exit screen %s: %w", a.current, err)
		}
	}

	previous := a.current
	if previous != page {
		a.previous = previous
	}
	a.current = page

	if err := screen.OnEnter(a); err != nil {
		a.current = previous
		return fmt.Errorf("failed to enter screen %s: %w", page, err)
	}

	// OnEnter may have moved on to another screen already
	if a.current == page {
		a.pages.SwitchToPage(string(page))
		a.updateFooter()
		a.log.Debug("screen shown", logger.String("screen", string(page)))
	}
	return nil
}

// GoBack returns to the previously shown screen
func (a *App) GoBack() error {
	if a.previous == "" {
		return a.NavigateTo(screens.PageSelect)
	}
	return a.NavigateTo(a.previous)
}

// ShowHelp displays the help screen
func (a *App) ShowHelp() error {
	if a.current == screens.PageHelp {
		return nil
	}
	return a.NavigateTo(screens.PageHelp)
}

// ShowSession displays the comparison screen or, once done, the ranking
func (a *App) ShowSession() error {
	if a.session.IsComplete() {
		return a.NavigateTo(screens.PageRanking)
	}
	if a.session.State() != data.StateAwaitingChoice {
		return a.NavigateTo(screens.PageSelect)
	}
	return a.NavigateTo(screens.PageComparison)
}

// LoadDataset starts a new session over year and stage
func (a *App) LoadDataset(year int, stage data.Stage) error {
	if err := a.session.LoadFromRegistry(a.registry, year, stage); err != nil {
		a.log.Warn("dataset not loaded",
			logger.Int("year", year),
			logger.String("stage", string(stage)),
			logger.Error(err))
		if a.current != screens.PageSelect {
			_ = a.NavigateTo(screens.PageSelect)
		}
		a.ShowError("Load Failed", err.Error())
		return err
	}
	return a.ShowSession()
}

// Export writes the final ranking into the export directory
func (a *App) Export() (string, error) {
	export, err := journal.NewRankingExport(a.session)
	if err != nil {
		return "", err
	}

	path := filepath.Join(a.options.ExportDir, a.options.Exporter.DefaultFileName(export))
	if err := a.options.Exporter.ExportToFile(export, path); err != nil {
		a.log.Error("export failed", logger.String("path", path), logger.Error(err))
		return "", err
	}

	a.lastExport = path
	a.log.Info("ranking exported", logger.String("path", path), logger.String("session_id", a.session.ID))
	return path, nil
}

// ShowError displays an error message in a modal dialog
func (a *App) ShowError(title, message string) {
	modal := tview.NewModal().
		SetText(message).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) {
			a.pages.RemovePage(errorDialogPage)
		})

	modal.SetTitle(" " + title + " ").
		SetBorder(true).
		SetBackgroundColor(tcell.ColorDarkRed)

	a.pages.AddPage(errorDialogPage, modal, true, true)
}

// Run starts the TUI application and blocks until it stops
func (a *App) Run() error {
	if a.options.AutoStart {
		// failures land on the select screen with a dialog
		_ = a.LoadDataset(a.options.Settings.Year, a.options.Settings.Stage)
	}
	if a.current == "" {
		if err := a.NavigateTo(screens.PageSelect); err != nil {
			return err
		}
	}
	return a.tviewApp.Run()
}

// Exit stops the application, it is safe to call from other goroutines
func (a *App) Exit() {
	a.tviewApp.Stop()
}

// Session returns the session driven by the screens
func (a *App) Session() *data.Session {
	return a.session
}

// Registry returns the dataset registry
func (a *App) Registry() *data.Registry {
	return a.registry
}

// Settings returns the display preferences
func (a *App) Settings() screens.Settings {
	return a.options.Settings
}

// CurrentPage returns the visible screen
func (a *App) CurrentPage() screens.Page {
	return a.current
}

// handleGlobalInput handles global keyboard shortcuts
func (a *App) handleGlobalInput(event *tcell.EventKey) *tcell.EventKey {
	for _, binding := range globalKeyBindings() {
		if (binding.Key != tcell.KeyRune && event.Key() == binding.Key) ||
			(binding.Key == tcell.KeyRune && event.Key() == tcell.KeyRune && event.Rune() == binding.Rune) {
			if err := binding.Handler(a); err != nil {
				a.ShowError("Error", err.Error())
			}
			return nil
		}
	}
	return event
}

// headerText describes the current screen and session
func (a *App) headerText() string {
	text := "Screen: "
	if screen, ok := a.screens[a.current]; ok {
		text += screen.GetTitle()
	}

	switch a.session.State() {
	case data.StateAwaitingChoice, data.StateComplete:
		key := a.session.Key()
		text += fmt.Sprintf(" | %d %s | %d of %d comparisons",
			key.Year, key.Stage.Title(), a.session.ComparisonsMade(), a.session.Budget())
	}

	if a.lastExport != "" {
		text += " | Last export: " + a.lastExport
	}
	return text
}

func (a *App) updateHeader() {
	a.header.SetText(a.headerText())
}

// updateFooter updates the footer with global and screen key bindings
func (a *App) updateFooter() {
	helpText := ""
	for i, binding := range globalKeyBindings() {
		if i > 0 {
			helpText += " | "
		}
		helpText += fmt.Sprintf("%s: %s", bindingKeyText(binding), binding.Description)
	}
	if screen, ok := a.screens[a.current]; ok {
		for _, line := range screen.GetHelpText() {
			helpText += " | " + line
		}
	}
	a.footer.SetText(helpText)
}

func bindingKeyText(binding KeyBinding) string {
	if binding.Key != tcell.KeyRune {
		return tcell.KeyNames[binding.Key]
	}
	return string(binding.Rune)
}
