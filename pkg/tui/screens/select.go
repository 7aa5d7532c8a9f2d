package screens

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/pashagolub/escelo/pkg/data"
	"github.com/pashagolub/escelo/pkg/elo"
)

// SelectScreen lets the user pick the year and stage to rank
type SelectScreen struct {
	container     *tview.Flex
	form          *tview.Form
	yearDropDown  *tview.DropDown
	stageDropDown *tview.DropDown
	previewPanel  *tview.TextView
	statusBar     *tview.TextView

	years  []int
	stages []data.Stage

	host Host
}

// NewSelectScreen creates a new dataset selection screen
func NewSelectScreen() *SelectScreen {
	ss := &SelectScreen{
		container:     tview.NewFlex(),
		form:          tview.NewForm(),
		yearDropDown:  tview.NewDropDown(),
		stageDropDown: tview.NewDropDown(),
		previewPanel:  tview.NewTextView(),
		statusBar:     tview.NewTextView(),
	}

	ss.setupUI()
	return ss
}

// setupUI initializes the selection layout
func (ss *SelectScreen) setupUI() {
	ss.yearDropDown.SetLabel("Year").SetFieldWidth(10)
	ss.stageDropDown.SetLabel("Stage").SetFieldWidth(20)

	ss.form.AddFormItem(ss.yearDropDown).
		AddFormItem(ss.stageDropDown).
		AddButton("Start", ss.onStart).
		AddButton("Quit", ss.onQuit)
	ss.form.SetBorder(true).
		SetTitle(" Dataset ").
		SetBorderColor(tcell.ColorBlue)

	ss.previewPanel.SetBorder(true).
		SetTitle(" Preview ").
		SetBorderColor(tcell.ColorGreen)
	ss.previewPanel.SetDynamicColors(true)

	ss.statusBar.SetDynamicColors(true)

	body := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(ss.form, 0, 1, true).
		AddItem(ss.previewPanel, 0, 1, false)

	ss.container.SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(ss.statusBar, 1, 0, false)
}

// GetPrimitive returns the main container primitive
func (ss *SelectScreen) GetPrimitive() tview.Primitive {
	return ss.container
}

// OnEnter fills the dropdowns from the host's registry
func (ss *SelectScreen) OnEnter(host Host) error {
	ss.host = host
	ss.years = host.Registry().Years()

	labels := make([]string, len(ss.years))
	for i, year := range ss.years {
		labels[i] = strconv.Itoa(year)
	}
	ss.yearDropDown.SetOptions(labels, ss.onYearSelected)

	if len(ss.years) == 0 {
		ss.yearDropDown.SetCurrentOption(-1)
		ss.updateStatus("[red]No datasets available[-]")
		return nil
	}

	selected := 0
	if i := slices.Index(ss.years, host.Settings().Year); i >= 0 {
		selected = i
	}
	ss.yearDropDown.SetCurrentOption(selected)
	ss.updateStatus("Choose a year and stage, then press Start")
	return nil
}

// OnExit is called when leaving the screen
func (ss *SelectScreen) OnExit(Host) error {
	return nil
}

// GetTitle returns the screen title
func (ss *SelectScreen) GetTitle() string {
	return "Select Dataset"
}

// GetHelpText returns help text for this screen
func (ss *SelectScreen) GetHelpText() []string {
	return []string{
		"Tab/S-Tab: Move between fields",
		"Enter: Open dropdown or press button",
	}
}

// Selection returns the chosen year and stage
func (ss *SelectScreen) Selection() (int, data.Stage, bool) {
	yearIndex, _ := ss.yearDropDown.GetCurrentOption()
	stageIndex, _ := ss.stageDropDown.GetCurrentOption()
	if yearIndex < 0 || yearIndex >= len(ss.years) || stageIndex < 0 || stageIndex >= len(ss.stages) {
		return 0, "", false
	}
	return ss.years[yearIndex], ss.stages[stageIndex], true
}

// Event handlers

func (ss *SelectScreen) onYearSelected(_ string, index int) {
	ss.stages = nil
	if index >= 0 && index < len(ss.years) && ss.host != nil {
		ss.stages = ss.host.Registry().StagesFor(ss.years[index])
	}

	labels := make([]string, len(ss.stages))
	for i, stage := range ss.stages {
		labels[i] = stage.Title()
	}
	ss.stageDropDown.SetOptions(labels, ss.onStageSelected)

	if len(ss.stages) == 0 {
		ss.stageDropDown.SetCurrentOption(-1)
		return
	}

	selected := len(ss.stages) - 1
	if ss.host != nil {
		if i := slices.Index(ss.stages, ss.host.Settings().Stage); i >= 0 {
			selected = i
		}
	}
	ss.stageDropDown.SetCurrentOption(selected)
}

func (ss *SelectScreen) onStageSelected(string, int) {
	ss.updatePreview()
}

func (ss *SelectScreen) onStart() {
	year, stage, ok := ss.Selection()
	if !ok {
		ss.host.ShowError("No Dataset", "Select a year and a stage first.")
		return
	}
	// the host reports load failures itself
	_ = ss.host.LoadDataset(year, stage)
}

func (ss *SelectScreen) onQuit() {
	ss.host.Exit()
}

// updatePreview lists the entries of the selected dataset
func (ss *SelectScreen) updatePreview() {
	year, stage, ok := ss.Selection()
	if !ok || ss.host == nil {
		ss.previewPanel.SetText("")
		return
	}

	dataset, err := ss.host.Registry().Lookup(year, stage)
	if err != nil {
		ss.previewPanel.SetText(fmt.Sprintf("[red]%s[-]", tview.Escape(err.Error())))
		return
	}

	n := len(dataset.Records)
	budget := 0
	if n >= 2 {
		budget = elo.ComparisonBudget(n)
	}

	text := fmt.Sprintf("[yellow]%d %s[-]\n%d entries, %d comparisons\n\n", year, stage.Title(), n, budget)
	for _, r := range dataset.Records {
		text += fmt.Sprintf("%s %s\n", r.CountryEmoji, tview.Escape(r.Country))
	}
	ss.previewPanel.SetText(text)
}

func (ss *SelectScreen) updateStatus(message string) {
	ss.statusBar.SetText(message)
}
