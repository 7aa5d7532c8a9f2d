package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pashagolub/escelo/pkg/data"
	"github.com/pashagolub/escelo/pkg/journal"
	"github.com/pashagolub/escelo/pkg/tui/screens"
)

func createTestRegistry(t *testing.T) *data.Registry {
	t.Helper()
	registry := data.NewRegistry()
	for _, key := range []data.DatasetKey{
		{Year: 2025, Stage: data.StageSemi1},
		{Year: 2025, Stage: data.StageFinal},
	} {
		records := make([]data.Record, 4)
		for i := range records {
			records[i] = data.Record{
				Country: fmt.Sprintf("Country %c", 'A'+i),
				Artist:  fmt.Sprintf("Artist %d", i+1),
				Title:   fmt.Sprintf("Song %d", i+1),
			}
		}
		require.NoError(t, registry.Register(key, records))
	}
	require.NoError(t, registry.Register(data.DatasetKey{Year: 2024, Stage: data.StageFinal}, nil))
	return registry
}

func createTestApp(t *testing.T, options Options) *App {
	t.Helper()
	session, err := data.NewSession()
	require.NoError(t, err)

	app, err := NewApp(session, createTestRegistry(t), options)
	require.NoError(t, err)
	return app
}

func finishSession(t *testing.T, session *data.Session) {
	t.Helper()
	for !session.IsComplete() {
		pair, ok := session.CurrentPair()
		require.True(t, ok)
		require.NoError(t, session.RecordChoice(pair.B.ID, pair.A.ID))
	}
}

func TestNewApp(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		app := createTestApp(t, Options{})

		assert.NotNil(t, app.tviewApp)
		assert.Len(t, app.screens, 4)
		assert.NotNil(t, app.options.Exporter)
		assert.Equal(t, ".", app.options.ExportDir)
		assert.Equal(t, screens.Page(""), app.CurrentPage())
		for _, page := range []screens.Page{screens.PageSelect, screens.PageComparison, screens.PageRanking, screens.PageHelp} {
			assert.True(t, app.pages.HasPage(string(page)), page)
		}
	})

	t.Run("nil arguments", func(t *testing.T) {
		session, err := data.NewSession()
		require.NoError(t, err)

		_, err = NewApp(nil, data.NewRegistry(), Options{})
		assert.Error(t, err)
		_, err = NewApp(session, nil, Options{})
		assert.Error(t, err)
	})
}

func TestAppNavigation(t *testing.T) {
	app := createTestApp(t, Options{})

	require.NoError(t, app.NavigateTo(screens.PageSelect))
	assert.Equal(t, screens.PageSelect, app.CurrentPage())

	name, _ := app.pages.GetFrontPage()
	assert.Equal(t, "select", name)

	assert.Error(t, app.NavigateTo("missing"))
	assert.Equal(t, screens.PageSelect, app.CurrentPage())

	// the ranking screen needs a completed session
	assert.ErrorIs(t, app.NavigateTo(screens.PageRanking), data.ErrInvalidSessionState)
	assert.Equal(t, screens.PageSelect, app.CurrentPage())
}

func TestAppHelp(t *testing.T) {
	app := createTestApp(t, Options{})
	require.NoError(t, app.NavigateTo(screens.PageSelect))

	assert.Nil(t, app.handleGlobalInput(tcell.NewEventKey(tcell.KeyF1, 0, tcell.ModNone)))
	assert.Equal(t, screens.PageHelp, app.CurrentPage())

	help := app.screens[screens.PageHelp].(*HelpScreen)
	text := help.textView.GetText(true)
	assert.Contains(t, text, "Global Keyboard Shortcuts")
	assert.Contains(t, text, "Left entry wins")

	// showing help twice keeps the way back
	require.NoError(t, app.ShowHelp())
	assert.Nil(t, help.handleInput(tcell.NewEventKey(tcell.KeyEsc, 0, tcell.ModNone)))
	assert.Equal(t, screens.PageSelect, app.CurrentPage())

	other := tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)
	assert.Equal(t, other, help.handleInput(other))
}

func TestAppGlobalInputPassThrough(t *testing.T) {
	app := createTestApp(t, Options{})

	event := tcell.NewEventKey(tcell.KeyRune, '1', tcell.ModNone)
	assert.Equal(t, event, app.handleGlobalInput(event))
}

func TestAppLoadDataset(t *testing.T) {
	t.Run("starts comparisons", func(t *testing.T) {
		app := createTestApp(t, Options{})

		require.NoError(t, app.LoadDataset(2025, data.StageFinal))
		assert.Equal(t, screens.PageComparison, app.CurrentPage())
		assert.Equal(t, data.StateAwaitingChoice, app.Session().State())
		assert.Contains(t, app.headerText(), "2025 Grand Final | 0 of 10 comparisons")
	})

	t.Run("missing dataset shows dialog on select screen", func(t *testing.T) {
		app := createTestApp(t, Options{})
		require.NoError(t, app.LoadDataset(2025, data.StageFinal))

		err := app.LoadDataset(2023, data.StageFinal)
		assert.ErrorIs(t, err, data.ErrDatasetNotFound)
		assert.Equal(t, screens.PageSelect, app.CurrentPage())
		assert.True(t, app.pages.HasPage(errorDialogPage))
		assert.Equal(t, data.StateError, app.Session().State())
	})

	t.Run("empty dataset", func(t *testing.T) {
		app := createTestApp(t, Options{})
		require.NoError(t, app.NavigateTo(screens.PageSelect))

		err := app.LoadDataset(2024, data.StageFinal)
		assert.ErrorIs(t, err, data.ErrEmptyDataset)
		assert.Equal(t, screens.PageSelect, app.CurrentPage())
		assert.True(t, app.pages.HasPage(errorDialogPage))
	})
}

func TestAppShowSession(t *testing.T) {
	app := createTestApp(t, Options{})
	require.NoError(t, app.LoadDataset(2025, data.StageSemi1))

	finishSession(t, app.Session())
	require.NoError(t, app.ShowSession())
	assert.Equal(t, screens.PageRanking, app.CurrentPage())

	require.NoError(t, app.Session().Reset())
	require.NoError(t, app.ShowSession())
	assert.Equal(t, screens.PageComparison, app.CurrentPage())
}

func TestAppExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	app := createTestApp(t, Options{
		Exporter:  journal.NewExporter(journal.ExportOptions{Format: journal.FormatJSON, Precision: 1}),
		ExportDir: dir,
	})
	require.NoError(t, app.LoadDataset(2025, data.StageFinal))

	_, err := app.Export()
	assert.ErrorIs(t, err, journal.ErrSessionIncomplete)

	finishSession(t, app.Session())
	path, err := app.Export()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escelo-2025-final.json"), path)

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.Contains(t, app.headerText(), "Last export: "+path)
}

func TestAppRunAutoStartFailure(t *testing.T) {
	app := createTestApp(t, Options{
		AutoStart: true,
		Settings:  screens.Settings{Year: 1999, Stage: data.StageFinal},
	})

	// Run would block on the terminal, so exercise the start-up path directly
	err := app.LoadDataset(app.options.Settings.Year, app.options.Settings.Stage)
	assert.ErrorIs(t, err, data.ErrDatasetNotFound)
	assert.Equal(t, screens.PageSelect, app.CurrentPage())
}

func TestAppFooter(t *testing.T) {
	app := createTestApp(t, Options{})
	require.NoError(t, app.LoadDataset(2025, data.StageFinal))

	footer := app.footer.GetText(true)
	assert.Contains(t, footer, "Ctrl-C: Exit")
	assert.Contains(t, footer, "F1: Help")
	assert.Contains(t, footer, "Right entry wins")
}

func TestGlobalKeyBindings(t *testing.T) {
	bindings := globalKeyBindings()
	require.Len(t, bindings, 2)
	assert.Equal(t, "Ctrl-C", bindingKeyText(bindings[0]))
	assert.Equal(t, "F1", bindingKeyText(bindings[1]))

	// the help binding navigates, which redraws the footer from the same bindings
	app := createTestApp(t, Options{})
	require.NoError(t, app.NavigateTo(screens.PageSelect))
	require.NoError(t, bindings[1].Handler(app))
	assert.Equal(t, screens.PageHelp, app.CurrentPage())
	assert.Contains(t, app.footer.GetText(true), "F1: Help")
}
