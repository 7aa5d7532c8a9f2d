package tui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pashagolub/escelo/pkg/tui/screens"
)

// HelpScreen provides help and keyboard shortcut information
type HelpScreen struct {
	root     *tview.Flex
	textView *tview.TextView
	app      *App
}

// NewHelpScreen creates a new help screen
func NewHelpScreen() *HelpScreen {
	hs := &HelpScreen{
		root:     tview.NewFlex(),
		textView: tview.NewTextView(),
	}

	hs.setupLayout()
	return hs
}

// GetPrimitive returns the root primitive for this screen
func (hs *HelpScreen) GetPrimitive() tview.Primitive {
	return hs.root
}

// OnEnter is called when the help screen becomes active
func (hs *HelpScreen) OnEnter(host screens.Host) error {
	hs.app, _ = host.(*App)
	hs.updateContent()
	return nil
}

// OnExit is called when leaving the help screen
func (hs *HelpScreen) OnExit(screens.Host) error {
	return nil
}

// GetTitle returns the screen title
func (hs *HelpScreen) GetTitle() string {
	return "Help"
}

// GetHelpText returns help text for this screen
func (hs *HelpScreen) GetHelpText() []string {
	return []string{"Esc/q: Back"}
}

// setupLayout configures the help screen layout
func (hs *HelpScreen) setupLayout() {
	hs.textView.
		SetBorder(true).
		SetTitle(" Help ").
		SetTitleAlign(tview.AlignCenter)

	hs.textView.SetWrap(true).
		SetDynamicColors(true).
		SetScrollable(true)

	hs.textView.SetInputCapture(hs.handleInput)

	hs.root.AddItem(hs.textView, 0, 1, true)
}

func (hs *HelpScreen) handleInput(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyEsc || (event.Key() == tcell.KeyRune && (event.Rune() == 'q' || event.Rune() == 'Q')) {
		if hs.app != nil {
			_ = hs.app.GoBack()
		}
		return nil
	}
	return event
}

// updateContent renders the help text for the screen the user came from
func (hs *HelpScreen) updateContent() {
	var content strings.Builder

	content.WriteString("[yellow]Eurovision Song Contest Ranking[-]\n\n")
	content.WriteString("Pick the better song of each pair. Every choice updates the Elo ratings of both entries\n")
	content.WriteString("and the next pair is chosen where a decision tells the most about the final order.\n")
	content.WriteString("After the comparison budget is spent the ranking is shown.\n\n")

	content.WriteString("[green]Global Keyboard Shortcuts[-]\n")
	for _, binding := range globalKeyBindings() {
		content.WriteString("[white]" + bindingKeyText(binding) + "[-]  " + binding.Description + "\n")
	}

	for _, page := range []screens.Page{screens.PageSelect, screens.PageComparison, screens.PageRanking} {
		if hs.app == nil {
			break
		}
		screen, ok := hs.app.screens[page]
		if !ok {
			continue
		}
		content.WriteString("\n[green]" + screen.GetTitle() + "[-]\n")
		for _, line := range screen.GetHelpText() {
			content.WriteString(tview.Escape(line) + "\n")
		}
	}

	hs.textView.SetText(content.String())
	hs.textView.ScrollToBeginning()
}
