package screens

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pashagolub/escelo/pkg/data"
)

// fakeHost implements Host for testing
type fakeHost struct {
	session  *data.Session
	registry *data.Registry
	settings Settings

	page       Page
	navigated  []Page
	errors     []string
	loaded     []data.DatasetKey
	exportPath string
	exportErr  error
	exited     bool
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()

	registry := data.NewRegistry()
	require.NoError(t, registry.Register(data.DatasetKey{Year: 2025, Stage: data.StageSemi1}, createTestRecords(5)))
	require.NoError(t, registry.Register(data.DatasetKey{Year: 2025, Stage: data.StageFinal}, createTestRecords(4)))
	require.NoError(t, registry.Register(data.DatasetKey{Year: 2024, Stage: data.StageFinal}, createTestRecords(3)))

	session, err := data.NewSession()
	require.NoError(t, err)

	return &fakeHost{
		session:  session,
		registry: registry,
		settings: Settings{Stage: data.StageFinal, ShowProgress: true},
	}
}

func createTestRecords(n int) []data.Record {
	records := make([]data.Record, n)
	for i := range records {
		records[i] = data.Record{
			Country:      fmt.Sprintf("Country %c", 'A'+i),
			CountryEmoji: "🏳",
			Artist:       fmt.Sprintf("Artist %d", i+1),
			Title:        fmt.Sprintf("Song %d", i+1),
		}
	}
	return records
}

func (h *fakeHost) Session() *data.Session   { return h.session }
func (h *fakeHost) Registry() *data.Registry { return h.registry }
func (h *fakeHost) Settings() Settings       { return h.settings }
func (h *fakeHost) Exit()                    { h.exited = true }

func (h *fakeHost) NavigateTo(page Page) error {
	h.page = page
	h.navigated = append(h.navigated, page)
	return nil
}

func (h *fakeHost) ShowSession() error {
	if h.session.IsComplete() {
		return h.NavigateTo(PageRanking)
	}
	return h.NavigateTo(PageComparison)
}

func (h *fakeHost) LoadDataset(year int, stage data.Stage) error {
	h.loaded = append(h.loaded, data.DatasetKey{Year: year, Stage: stage})
	if err := h.session.LoadFromRegistry(h.registry, year, stage); err != nil {
		h.ShowError("Load Failed", err.Error())
		return err
	}
	return h.ShowSession()
}

func (h *fakeHost) Export() (string, error) {
	if h.exportErr != nil {
		return "", h.exportErr
	}
	if !h.session.IsComplete() {
		return "", errors.New("session is not complete")
	}
	return h.exportPath, nil
}

func (h *fakeHost) ShowError(title, message string) {
	h.errors = append(h.errors, title+": "+message)
}

// completeSession answers every pending pair with the left entry
func completeSession(t *testing.T, session *data.Session) {
	t.Helper()
	for !session.IsComplete() {
		pair, ok := session.CurrentPair()
		require.True(t, ok)
		require.NoError(t, session.RecordChoice(pair.A.ID, pair.B.ID))
	}
}
