// Package components provides reusable TUI components for the ranking screens.
package components

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Progress displays how far a session is through its comparison budget
type Progress struct {
	view *tview.TextView

	made    int
	budget  int
	percent int

	width         int
	progressColor string
	completeColor string
}

// ProgressConfig holds configuration options for the progress indicator
type ProgressConfig struct {
	Width         int         // Bar width in cells
	ProgressColor tcell.Color // Filled part while running
	CompleteColor tcell.Color // Filled part once the budget is spent
	BorderColor   tcell.Color
}

// DefaultProgressConfig returns sensible defaults for the progress indicator
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		Width:         30,
		ProgressColor: tcell.ColorBlue,
		CompleteColor: tcell.ColorGreen,
		BorderColor:   tcell.ColorDarkGray,
	}
}

// NewProgress creates a new progress indicator component
func NewProgress(config ProgressConfig) *Progress {
	defaults := DefaultProgressConfig()
	if config.Width <= 0 {
		config.Width = defaults.Width
	}
	if config.ProgressColor == tcell.ColorDefault {
		config.ProgressColor = defaults.ProgressColor
	}
	if config.CompleteColor == tcell.ColorDefault {
		config.CompleteColor = defaults.CompleteColor
	}
	if config.BorderColor == tcell.ColorDefault {
		config.BorderColor = defaults.BorderColor
	}

	p := &Progress{
		view:          tview.NewTextView(),
		width:         config.Width,
		progressColor: colorTag(config.ProgressColor),
		completeColor: colorTag(config.CompleteColor),
	}

	p.view.SetBorder(true).
		SetTitle(" Progress ").
		SetBorderColor(config.BorderColor)
	p.view.SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	p.Update(0, 0, 0)
	return p
}

// Update refreshes the bar with the session counters
func (p *Progress) Update(made, budget, percent int) {
	p.made, p.budget = made, budget
	p.percent = min(max(percent, 0), 100)
	p.view.SetText(p.createProgressBar() + "\n[white]" + p.Label())
}

// Label renders "made of budget (pct%)"
func (p *Progress) Label() string {
	return fmt.Sprintf("%d of %d (%d%%)", p.made, p.budget, p.percent)
}

// Percent returns the last displayed percentage
func (p *Progress) Percent() int {
	return p.percent
}

// GetPrimitive returns the view for embedding in other layouts
func (p *Progress) GetPrimitive() tview.Primitive {
	return p.view
}

// createProgressBar creates a visual progress bar using text characters
func (p *Progress) createProgressBar() string {
	filled := p.width * p.percent / 100

	color := p.progressColor
	if p.budget > 0 && p.made >= p.budget {
		color = p.completeColor
	}

	return color + strings.Repeat("█", filled) + "[gray]" + strings.Repeat("░", p.width-filled) + "[white]"
}

func colorTag(c tcell.Color) string {
	return fmt.Sprintf("[#%06x]", c.Hex())
}
