package screens

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pashagolub/escelo/pkg/data"
	"github.com/pashagolub/escelo/pkg/tui/components"
)

// ComparisonScreen presents the current pair and records the user's choice
type ComparisonScreen struct {
	container    *tview.Flex
	cardsPanel   *tview.Flex
	leftCard     *tview.TextView
	rightCard    *tview.TextView
	progress     *components.Progress
	controlPanel *tview.TextView
	statusBar    *tview.TextView

	pair    data.Pair
	hasPair bool

	host Host
}

// NewComparisonScreen creates a new comparison screen instance
func NewComparisonScreen() *ComparisonScreen {
	cs := &ComparisonScreen{
		container:    tview.NewFlex(),
		cardsPanel:   tview.NewFlex(),
		leftCard:     tview.NewTextView(),
		rightCard:    tview.NewTextView(),
		progress:     components.NewProgress(components.DefaultProgressConfig()),
		controlPanel: tview.NewTextView(),
		statusBar:    tview.NewTextView(),
	}

	cs.setupUI()
	return cs
}

// setupUI initializes the comparison screen layout
func (cs *ComparisonScreen) setupUI() {
	for i, card := range []*tview.TextView{cs.leftCard, cs.rightCard} {
		card.SetBorder(true).
			SetTitle(fmt.Sprintf(" %d ", i+1)).
			SetBorderColor(tcell.ColorBlue)
		card.SetDynamicColors(true).
			SetWordWrap(true).
			SetTextAlign(tview.AlignCenter)
	}

	cs.cardsPanel.SetDirection(tview.FlexColumn).
		AddItem(cs.leftCard, 0, 1, false).
		AddItem(cs.rightCard, 0, 1, false)

	cs.controlPanel.SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]1[-] / [yellow]←[-] left wins    [yellow]2[-] / [yellow]→[-] right wins    [yellow]n[-] new dataset")

	cs.statusBar.SetDynamicColors(true)

	cs.container.SetDirection(tview.FlexRow).
		AddItem(cs.cardsPanel, 0, 1, true).
		AddItem(cs.progress.GetPrimitive(), 4, 0, false).
		AddItem(cs.controlPanel, 1, 0, false).
		AddItem(cs.statusBar, 1, 0, false)

	cs.container.SetInputCapture(cs.handleInput)
}

// GetPrimitive returns the main container primitive
func (cs *ComparisonScreen) GetPrimitive() tview.Primitive {
	return cs.container
}

// OnEnter shows the session's pending pair
func (cs *ComparisonScreen) OnEnter(host Host) error {
	cs.host = host
	if host.Session() == nil {
		return fmt.Errorf("no active session")
	}

	if !host.Settings().ShowProgress {
		cs.container.ResizeItem(cs.progress.GetPrimitive(), 0, 0)
	} else {
		cs.container.ResizeItem(cs.progress.GetPrimitive(), 4, 0)
	}

	cs.updateStatus("")
	cs.refresh()
	return nil
}

// OnExit is called when leaving the screen
func (cs *ComparisonScreen) OnExit(Host) error {
	cs.hasPair = false
	return nil
}

// GetTitle returns the screen title
func (cs *ComparisonScreen) GetTitle() string {
	return "Comparison"
}

// GetHelpText returns help text for the comparison screen
func (cs *ComparisonScreen) GetHelpText() []string {
	return []string{
		"1 or ←: Left entry wins",
		"2 or →: Right entry wins",
		"n: Choose another dataset",
	}
}

// handleInput processes keyboard input for the comparison screen
func (cs *ComparisonScreen) handleInput(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyLeft:
		cs.chooseLeft()
		return nil
	case tcell.KeyRight:
		cs.chooseRight()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case '1':
			cs.chooseLeft()
			return nil
		case '2':
			cs.chooseRight()
			return nil
		case 'n', 'N':
			_ = cs.host.NavigateTo(PageSelect)
			return nil
		}
	}
	return event
}

func (cs *ComparisonScreen) chooseLeft() {
	if cs.hasPair {
		cs.choose(cs.pair.A, cs.pair.B)
	}
}

func (cs *ComparisonScreen) chooseRight() {
	if cs.hasPair {
		cs.choose(cs.pair.B, cs.pair.A)
	}
}

// choose records the outcome and moves on to the next pair
func (cs *ComparisonScreen) choose(winner, loser data.Entry) {
	session := cs.host.Session()
	if err := session.RecordChoice(winner.ID, loser.ID); err != nil {
		cs.updateStatus(fmt.Sprintf("[red]%s[-]", tview.Escape(err.Error())))
		return
	}

	if session.IsComplete() {
		cs.hasPair = false
		_ = cs.host.ShowSession()
		return
	}

	cs.updateStatus(fmt.Sprintf("[green]%s[-] over %s", tview.Escape(winner.Country), tview.Escape(loser.Country)))
	cs.refresh()
}

// refresh redraws the cards and the progress bar from the session
func (cs *ComparisonScreen) refresh() {
	session := cs.host.Session()
	cs.progress.Update(session.ComparisonsMade(), session.Budget(), session.Progress())

	cs.pair, cs.hasPair = session.CurrentPair()
	if !cs.hasPair {
		cs.leftCard.SetText("")
		cs.rightCard.SetText("")
		if session.IsComplete() {
			_ = cs.host.ShowSession()
		}
		return
	}

	cs.leftCard.SetText(formatEntryCard(cs.pair.A))
	cs.rightCard.SetText(formatEntryCard(cs.pair.B))
}

// formatEntryCard creates formatted text for an entry
func formatEntryCard(entry data.Entry) string {
	var content strings.Builder

	content.WriteString("\n")
	if entry.CountryEmoji != "" {
		content.WriteString(entry.CountryEmoji + "\n\n")
	}
	content.WriteString(fmt.Sprintf("[white::b]%s[white::-]\n\n", tview.Escape(entry.Country)))
	content.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(entry.Artist)))
	content.WriteString(fmt.Sprintf("[green]%s[-]", tview.Escape(entry.Title)))

	return content.String()
}

func (cs *ComparisonScreen) updateStatus(message string) {
	cs.statusBar.SetText(message)
}
