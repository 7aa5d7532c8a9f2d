package components

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
)

func TestNewProgress(t *testing.T) {
	progress := NewProgress(DefaultProgressConfig())

	assert.NotNil(t, progress.GetPrimitive())
	assert.Equal(t, 30, progress.width)
	assert.Equal(t, "0 of 0 (0%)", progress.Label())
}

func TestNewProgressFillsDefaults(t *testing.T) {
	progress := NewProgress(ProgressConfig{})

	assert.Equal(t, 30, progress.width)
	assert.Equal(t, "[#0000ff]", progress.progressColor)
	assert.Equal(t, "[#008000]", progress.completeColor)

	custom := NewProgress(ProgressConfig{Width: 10, ProgressColor: tcell.ColorRed})
	assert.Equal(t, 10, custom.width)
	assert.Equal(t, "[#ff0000]", custom.progressColor)
}

func TestProgressUpdate(t *testing.T) {
	testCases := []struct {
		name    string
		made    int
		budget  int
		percent int
		label   string
		filled  int
	}{
		{"not started", 0, 52, 0, "0 of 52 (0%)", 0},
		{"under way", 13, 52, 25, "13 of 52 (25%)", 5},
		{"done", 52, 52, 100, "52 of 52 (100%)", 20},
		{"percent clamped", 3, 2, 150, "3 of 2 (100%)", 20},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			progress := NewProgress(ProgressConfig{Width: 20})
			progress.Update(tc.made, tc.budget, tc.percent)

			assert.Equal(t, tc.label, progress.Label())
			bar := progress.createProgressBar()
			assert.Equal(t, tc.filled, strings.Count(bar, "█"))
			assert.Equal(t, 20-tc.filled, strings.Count(bar, "░"))

			text := progress.GetPrimitive().(*tview.TextView).GetText(true)
			assert.Contains(t, text, tc.label)
		})
	}
}

func TestProgressCompleteColor(t *testing.T) {
	progress := NewProgress(DefaultProgressConfig())

	progress.Update(5, 10, 50)
	assert.True(t, strings.HasPrefix(progress.createProgressBar(), progress.progressColor))

	progress.Update(10, 10, 100)
	assert.True(t, strings.HasPrefix(progress.createProgressBar(), progress.completeColor))
	assert.Equal(t, 100, progress.Percent())
}
