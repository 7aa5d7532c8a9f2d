package screens

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pashagolub/escelo/pkg/data"
)

func createComparisonScreen(t *testing.T) (*ComparisonScreen, *fakeHost) {
	t.Helper()
	host := newFakeHost(t)
	require.NoError(t, host.session.LoadFromRegistry(host.registry, 2025, data.StageFinal))

	screen := NewComparisonScreen()
	require.NoError(t, screen.OnEnter(host))
	return screen, host
}

func TestNewComparisonScreen(t *testing.T) {
	screen := NewComparisonScreen()

	assert.NotNil(t, screen.GetPrimitive())
	assert.Equal(t, "Comparison", screen.GetTitle())
	assert.Len(t, screen.GetHelpText(), 3)
	assert.False(t, screen.hasPair)
}

func TestComparisonScreen_OnEnter(t *testing.T) {
	screen, host := createComparisonScreen(t)

	require.True(t, screen.hasPair)
	pair, ok := host.session.CurrentPair()
	require.True(t, ok)
	assert.Equal(t, pair, screen.pair)

	assert.Contains(t, screen.leftCard.GetText(true), pair.A.Country)
	assert.Contains(t, screen.rightCard.GetText(true), pair.B.Country)
	assert.Equal(t, "0 of 10 (0%)", screen.progress.Label())
}

func TestComparisonScreen_OnEnterWithoutSession(t *testing.T) {
	host := newFakeHost(t)
	host.session = nil

	assert.Error(t, NewComparisonScreen().OnEnter(host))
}

func TestComparisonScreen_HandleInputWinnerSelection(t *testing.T) {
	testCases := []struct {
		name     string
		event    *tcell.EventKey
		leftWins bool
	}{
		{"rune 1", tcell.NewEventKey(tcell.KeyRune, '1', tcell.ModNone), true},
		{"left arrow", tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone), true},
		{"rune 2", tcell.NewEventKey(tcell.KeyRune, '2', tcell.ModNone), false},
		{"right arrow", tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			screen, host := createComparisonScreen(t)
			pair := screen.pair

			result := screen.handleInput(tc.event)
			assert.Nil(t, result)
			assert.Equal(t, 1, host.session.ComparisonsMade())

			winner, loser := pair.A, pair.B
			if !tc.leftWins {
				winner, loser = pair.B, pair.A
			}
			assert.Equal(t, 1, host.session.WinMatrix()[winner.ID][loser.ID])
			assert.Equal(t, 0, host.session.WinMatrix()[loser.ID][winner.ID])

			assert.Equal(t, "1 of 10 (10%)", screen.progress.Label())
			assert.Contains(t, screen.statusBar.GetText(true), winner.Country+" over "+loser.Country)
		})
	}
}

func TestComparisonScreen_HandleInputPassThrough(t *testing.T) {
	screen, host := createComparisonScreen(t)

	for _, event := range []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyRune, '3', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone),
	} {
		assert.Equal(t, event, screen.handleInput(event))
	}
	assert.Zero(t, host.session.ComparisonsMade())
}

func TestComparisonScreen_NewDataset(t *testing.T) {
	screen, host := createComparisonScreen(t)

	assert.Nil(t, screen.handleInput(tcell.NewEventKey(tcell.KeyRune, 'n', tcell.ModNone)))
	assert.Equal(t, PageSelect, host.page)
}

func TestComparisonScreen_CompletesSession(t *testing.T) {
	screen, host := createComparisonScreen(t)

	for i := 0; i < host.session.Budget(); i++ {
		screen.handleInput(tcell.NewEventKey(tcell.KeyRune, '1', tcell.ModNone))
	}

	assert.True(t, host.session.IsComplete())
	assert.Equal(t, PageRanking, host.page)

	// further keys are ignored once the budget is spent
	screen.handleInput(tcell.NewEventKey(tcell.KeyRune, '1', tcell.ModNone))
	assert.Equal(t, 10, host.session.ComparisonsMade())
}

func TestComparisonScreen_HidesProgress(t *testing.T) {
	host := newFakeHost(t)
	host.settings.ShowProgress = false
	require.NoError(t, host.session.LoadFromRegistry(host.registry, 2025, data.StageFinal))

	screen := NewComparisonScreen()
	require.NoError(t, screen.OnEnter(host))
	assert.True(t, screen.hasPair)
}

func TestFormatEntryCard(t *testing.T) {
	entry := data.Entry{Record: data.Record{
		Country:      "Sweden",
		CountryEmoji: "🇸🇪",
		Artist:       "KAJ",
		Title:        "Bara bada bastu",
	}}

	card := formatEntryCard(entry)
	assert.Contains(t, card, "🇸🇪")
	assert.Contains(t, card, "Sweden")
	assert.Contains(t, card, "KAJ")
	assert.Contains(t, card, "Bara bada bastu")
	assert.Less(t, strings.Index(card, "Sweden"), strings.Index(card, "KAJ"))

	entry.CountryEmoji = ""
	assert.NotContains(t, formatEntryCard(entry), "🇸🇪")
}
