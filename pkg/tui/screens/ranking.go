package screens

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pashagolub/escelo/pkg/data"
)

// RankingScreen shows the final ranking of a completed session
type RankingScreen struct {
	container    *tview.Flex
	rankingTable *tview.Table
	summaryPanel *tview.TextView
	statusBar    *tview.TextView
	helpBar      *tview.TextView

	entries         []data.Entry
	showUncertainty bool

	host Host
}

// NewRankingScreen creates a new ranking screen instance
func NewRankingScreen() *RankingScreen {
	rs := &RankingScreen{
		container:    tview.NewFlex(),
		rankingTable: tview.NewTable(),
		summaryPanel: tview.NewTextView(),
		statusBar:    tview.NewTextView(),
		helpBar:      tview.NewTextView(),
	}

	rs.setupUI()
	return rs
}

// setupUI initializes the user interface layout
func (rs *RankingScreen) setupUI() {
	rs.rankingTable.SetBorder(true).
		SetTitle(" Your Ranking ").
		SetTitleAlign(tview.AlignLeft)
	rs.rankingTable.SetSelectable(true, false).
		SetFixed(1, 0)

	rs.summaryPanel.SetDynamicColors(true)

	rs.statusBar.SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	rs.helpBar.SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]R:Reset  E:Export  N:New dataset[white]")

	rs.container.SetDirection(tview.FlexRow).
		AddItem(rs.summaryPanel, 1, 0, false).
		AddItem(rs.rankingTable, 0, 1, true).
		AddItem(rs.statusBar, 1, 0, false).
		AddItem(rs.helpBar, 1, 0, false)

	rs.rankingTable.SetInputCapture(rs.handleInput)
}

// GetPrimitive returns the main primitive for the ranking screen
func (rs *RankingScreen) GetPrimitive() tview.Primitive {
	return rs.container
}

// OnEnter loads the ranking from the session
func (rs *RankingScreen) OnEnter(host Host) error {
	rs.host = host
	session := host.Session()
	if session == nil || !session.IsComplete() {
		return fmt.Errorf("%w: ranking needs a completed session", data.ErrInvalidSessionState)
	}

	rs.entries = session.RankedEntries()
	rs.showUncertainty = host.Settings().ShowUncertainty
	rs.updateTable()

	key := session.Key()
	rs.summaryPanel.SetText(fmt.Sprintf("[yellow]%d %s[-]  %d entries, %d comparisons",
		key.Year, key.Stage.Title(), len(rs.entries), session.ComparisonsMade()))
	rs.updateStatus("")
	return nil
}

// OnExit is called when leaving the ranking screen
func (rs *RankingScreen) OnExit(Host) error {
	return nil
}

// GetTitle returns the screen title
func (rs *RankingScreen) GetTitle() string {
	return fmt.Sprintf("Ranking (%d entries)", len(rs.entries))
}

// GetHelpText returns help text for the ranking screen
func (rs *RankingScreen) GetHelpText() []string {
	return []string{
		"Arrow Keys: Scroll the ranking",
		"R: Rank the same dataset again",
		"E: Export the ranking",
		"N: Choose another dataset",
	}
}

// handleInput processes keyboard shortcuts
func (rs *RankingScreen) handleInput(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() != tcell.KeyRune {
		return event
	}

	switch event.Rune() {
	case 'r', 'R':
		rs.reset()
		return nil
	case 'e', 'E':
		rs.export()
		return nil
	case 'n', 'N':
		_ = rs.host.NavigateTo(PageSelect)
		return nil
	}
	return event
}

func (rs *RankingScreen) reset() {
	if err := rs.host.Session().Reset(); err != nil {
		rs.updateStatus(fmt.Sprintf("[red]%s[-]", tview.Escape(err.Error())))
		return
	}
	_ = rs.host.ShowSession()
}

func (rs *RankingScreen) export() {
	path, err := rs.host.Export()
	if err != nil {
		rs.updateStatus(fmt.Sprintf("[red]Export failed: %s[-]", tview.Escape(err.Error())))
		return
	}
	rs.updateStatus(fmt.Sprintf("[green]Exported to %s[-]", tview.Escape(path)))
}

// updateTable fills the table with the ranked entries
func (rs *RankingScreen) updateTable() {
	rs.rankingTable.Clear()

	headers := []string{"#", "", "Country", "Artist – Title", "Rating", "Change"}
	if rs.showUncertainty {
		headers = append(headers, "±")
	}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tcell.ColorYellow).
			SetAlign(tview.AlignCenter).
			SetSelectable(false)
		if col == 3 {
			cell.SetExpansion(1)
		}
		rs.rankingTable.SetCell(0, col, cell)
	}

	session := rs.host.Session()
	for i, entry := range rs.entries {
		row := i + 1
		change := session.RatingChange(entry)

		rs.rankingTable.SetCell(row, 0, tview.NewTableCell(strconv.Itoa(row)).SetAlign(tview.AlignRight))
		rs.rankingTable.SetCell(row, 1, tview.NewTableCell(entry.CountryEmoji))
		rs.rankingTable.SetCell(row, 2, tview.NewTableCell(entry.Country))
		rs.rankingTable.SetCell(row, 3, tview.NewTableCell(entry.Artist+" – "+entry.Title).SetExpansion(1))
		rs.rankingTable.SetCell(row, 4, tview.NewTableCell(fmt.Sprintf("%.0f", entry.Score)).SetAlign(tview.AlignRight))
		rs.rankingTable.SetCell(row, 5, tview.NewTableCell(FormatChange(change)).
			SetTextColor(changeColor(change)).
			SetAlign(tview.AlignRight))
		if rs.showUncertainty {
			rs.rankingTable.SetCell(row, 6, tview.NewTableCell(fmt.Sprintf("%.0f", entry.Uncertainty)).SetAlign(tview.AlignRight))
		}
	}

	rs.rankingTable.Select(1, 0).ScrollToBeginning()
}

// FormatChange renders a rating change with an explicit sign
func FormatChange(change int) string {
	if change > 0 {
		return "+" + strconv.Itoa(change)
	}
	return strconv.Itoa(change)
}

func changeColor(change int) tcell.Color {
	switch {
	case change > 0:
		return tcell.ColorGreen
	case change < 0:
		return tcell.ColorRed
	default:
		return tcell.ColorWhite
	}
}

func (rs *RankingScreen) updateStatus(message string) {
	rs.statusBar.SetText(message)
}
