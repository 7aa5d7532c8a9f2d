package data

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pashagolub/escelo/pkg/elo"
	"github.com/pashagolub/escelo/pkg/logger"
)

// Error types for session management
var (
	ErrEmptyDataset        = errors.New("dataset is empty")
	ErrInvalidSessionState = errors.New("invalid session state")
	ErrComparisonNotActive = errors.New("no active comparison")
	ErrInvalidComparison   = errors.New("invalid comparison data")
)

// State represents the lifecycle state of a ranking session
type State int

const (
	StateLoading State = iota
	StateError
	StateAwaitingChoice
	StateComplete
)

// String returns a string representation of the State
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateAwaitingChoice:
		return "awaiting_choice"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Pair is the comparison currently presented to the user. A and B carry no preference.
type Pair struct {
	A Entry
	B Entry
}

// Recorder receives session events, typically to export them as metrics
type Recorder interface {
	SessionLoaded(dataset string, entries, budget int)
	LoadFailed(dataset string, err error)
	ComparisonRecorded(dataset string, result elo.ComparisonResult, progress int)
	SessionCompleted(dataset string, comparisons int)
	SessionReset(dataset string)
}

type nopRecorder struct{}

func (nopRecorder) SessionLoaded(string, int, int)                       {}
func (nopRecorder) LoadFailed(string, error)                             {}
func (nopRecorder) ComparisonRecorded(string, elo.ComparisonResult, int) {}
func (nopRecorder) SessionCompleted(string, int)                         {}
func (nopRecorder) SessionReset(string)                                  {}

// Session owns the state of one ranking run over a single dataset.
// It is not safe for concurrent use; callers drive it from one goroutine.
type Session struct {
	ID        string
	CreatedAt time.Time

	engine   *elo.Engine
	selector *elo.Selector
	log      logger.Logger
	recorder Recorder

	state   State
	err     error
	key     DatasetKey
	entries []Entry     // input order
	index   map[int]int // entry id -> position in entries
	pending *elo.Matchup
	budget  int
	made    int
	wins    [][]int // wins[winnerID][loserID]
	ranked  []Entry
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithEngine sets the rating engine
func WithEngine(engine *elo.Engine) SessionOption {
	return func(s *Session) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithSelector sets the pair selector
func WithSelector(selector *elo.Selector) SessionOption {
	return func(s *Session) {
		if selector != nil {
			s.selector = selector
		}
	}
}

// WithLogger sets the session logger
func WithLogger(log logger.Logger) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRecorder sets the receiver of session events
func WithRecorder(recorder Recorder) SessionOption {
	return func(s *Session) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// NewSession creates a session in the Loading state
func NewSession(opts ...SessionOption) (*Session, error) {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		log:       logger.Nop(),
		recorder:  nopRecorder{},
		state:     StateLoading,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.engine == nil {
		s.engine = elo.MustNewEngine(elo.DefaultConfig())
	}
	if s.selector == nil {
		selector, err := elo.NewSelector(s.engine, elo.DefaultSelectorConfig(), nil)
		if err != nil {
			return nil, err
		}
		s.selector = selector
	}
	s.log = s.log.Named("session")
	return s, nil
}

// NewSessionFromConfig creates a session wired with the engine and selector described by config
func NewSessionFromConfig(config *Config, source elo.RandomSource, opts ...SessionOption) (*Session, error) {
	engine, err := elo.NewEngine(config.Elo.EngineConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEloConfig, err)
	}
	selector, err := elo.NewSelector(engine, config.Selector.Heuristic(), source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSelectorConfig, err)
	}
	return NewSession(append([]SessionOption{WithEngine(engine), WithSelector(selector)}, opts...)...)
}

// LoadFromRegistry resolves year and stage in registry and loads the result.
// A missing dataset moves the session to the Error state.
func (s *Session) LoadFromRegistry(registry *Registry, year int, stage Stage) error {
	s.state = StateLoading
	key := DatasetKey{Year: year, Stage: stage}

	dataset, err := registry.Lookup(year, stage)
	if err != nil {
		return s.fail(key, err)
	}
	return s.Load(dataset)
}

// Load starts a fresh ranking run over dataset
func (s *Session) Load(dataset Dataset) error {
	s.state = StateLoading
	s.key = dataset.Key

	if len(dataset.Records) == 0 {
		return s.fail(dataset.Key, fmt.Errorf("%w: %s", ErrEmptyDataset, dataset.Key))
	}
	if err := ValidateRecords(dataset.Records); err != nil {
		return s.fail(dataset.Key, err)
	}

	n := len(dataset.Records)
	s.entries = make([]Entry, n)
	s.index = make(map[int]int, n)
	for i, record := range dataset.Records {
		if record.Year == 0 {
			record.Year = dataset.Key.Year
		}
		s.entries[i] = Entry{Record: record, Rating: s.engine.NewRating(i)}
		s.index[i] = i
	}

	s.budget = 0
	if n >= 2 {
		s.budget = elo.ComparisonBudget(n)
	}
	s.err = nil
	s.begin()

	s.log.Info("session loaded",
		logger.String("session_id", s.ID),
		logger.String("dataset", s.key.String()),
		logger.Int("entries", n),
		logger.Int("budget", s.budget))
	s.recorder.SessionLoaded(s.key.String(), n, s.budget)

	if s.state == StateComplete {
		s.finish()
	}
	return nil
}

// fail moves the session to the Error state
func (s *Session) fail(key DatasetKey, err error) error {
	s.state = StateError
	s.err = err
	s.entries = nil
	s.index = nil
	s.pending = nil
	s.ranked = nil
	s.wins = nil
	s.budget = 0
	s.made = 0

	s.log.Error("failed to load dataset", logger.String("dataset", key.String()), logger.Error(err))
	s.recorder.LoadFailed(key.String(), err)
	return err
}

// begin clears counters and presents the first pair
func (s *Session) begin() {
	n := len(s.entries)
	s.made = 0
	s.ranked = nil
	s.pending = nil
	s.wins = make([][]int, n)
	for i := range s.wins {
		s.wins[i] = make([]int, n)
	}
	s.advance()
}

// advance selects the next pair or completes the session
func (s *Session) advance() {
	if s.made >= s.budget {
		s.complete()
		return
	}

	matchup, ok := s.selector.Next(s.ratings())
	if !ok {
		s.complete()
		return
	}
	s.pending = &matchup
	s.state = StateAwaitingChoice
}

// complete computes the final ranking
func (s *Session) complete() {
	s.pending = nil
	s.state = StateComplete

	s.ranked = make([]Entry, len(s.entries))
	copy(s.ranked, s.entries)
	sort.SliceStable(s.ranked, func(i, j int) bool {
		return s.ranked[i].Score > s.ranked[j].Score
	})
}

// finish reports a completed session
func (s *Session) finish() {
	s.log.Info("session complete",
		logger.String("session_id", s.ID),
		logger.String("dataset", s.key.String()),
		logger.Int("comparisons", s.made))
	s.recorder.SessionCompleted(s.key.String(), s.made)
}

func (s *Session) ratings() []elo.Rating {
	ratings := make([]elo.Rating, len(s.entries))
	for i, e := range s.entries {
		ratings[i] = e.Rating
	}
	return ratings
}

// RecordChoice applies the user's preference for winnerID over loserID.
// Calls that do not match the pending pair leave the session untouched.
func (s *Session) RecordChoice(winnerID, loserID int) error {
	if s.state != StateAwaitingChoice || s.pending == nil {
		return ErrComparisonNotActive
	}

	p := s.pending
	matches := (winnerID == p.A && loserID == p.B) || (winnerID == p.B && loserID == p.A)
	if !matches || winnerID == loserID {
		s.log.Warn("choice does not match pending pair",
			logger.Int("winner", winnerID), logger.Int("loser", loserID),
			logger.Int("pair_a", p.A), logger.Int("pair_b", p.B))
		return fmt.Errorf("%w: pair (%d, %d) is not pending", ErrInvalidComparison, winnerID, loserID)
	}

	wi, okW := s.index[winnerID]
	li, okL := s.index[loserID]
	if !okW || !okL {
		return fmt.Errorf("%w: unknown entry id", ErrInvalidComparison)
	}

	newWinner, newLoser, result := s.engine.CalculatePairwiseWithResult(s.entries[wi].Rating, s.entries[li].Rating)
	s.entries[wi].Rating = newWinner
	s.entries[li].Rating = newLoser
	s.wins[winnerID][loserID]++
	s.made++

	s.log.Debug("choice recorded",
		logger.Int("winner", winnerID),
		logger.Int("loser", loserID),
		logger.Float64("winner_rating", newWinner.Score),
		logger.Float64("loser_rating", newLoser.Score),
		logger.Int("made", s.made))
	s.recorder.ComparisonRecorded(s.key.String(), result, s.Progress())

	s.advance()
	if s.state == StateComplete {
		s.finish()
	}
	return nil
}

// Reset reinitializes every entry in place and starts the run over
func (s *Session) Reset() error {
	if s.state != StateAwaitingChoice && s.state != StateComplete {
		return fmt.Errorf("%w: cannot reset from %s", ErrInvalidSessionState, s.state)
	}

	for i := range s.entries {
		s.entries[i].Rating = s.engine.NewRating(s.entries[i].ID)
	}
	s.begin()

	s.log.Info("session reset", logger.String("session_id", s.ID), logger.String("dataset", s.key.String()))
	s.recorder.SessionReset(s.key.String())
	return nil
}

// State returns the lifecycle state
func (s *Session) State() State {
	return s.state
}

// Err returns the load failure when the session is in the Error state
func (s *Session) Err() error {
	return s.err
}

// Key returns the dataset the session was loaded from
func (s *Session) Key() DatasetKey {
	return s.key
}

// Engine returns the rating engine
func (s *Session) Engine() *elo.Engine {
	return s.engine
}

// CurrentPair returns the pending pair, if any
func (s *Session) CurrentPair() (Pair, bool) {
	if s.state != StateAwaitingChoice || s.pending == nil {
		return Pair{}, false
	}
	return Pair{A: s.entries[s.index[s.pending.A]], B: s.entries[s.index[s.pending.B]]}, true
}

// Budget returns the number of comparisons the session requests
func (s *Session) Budget() int {
	return s.budget
}

// ComparisonsMade returns the number of recorded choices
func (s *Session) ComparisonsMade() int {
	return s.made
}

// Progress returns completion as a rounded percentage of the budget
func (s *Session) Progress() int {
	if s.budget == 0 {
		return 0
	}
	return int(math.Round(100 * float64(s.made) / float64(s.budget)))
}

// IsComplete reports whether the final ranking is available
func (s *Session) IsComplete() bool {
	return s.state == StateComplete
}

// RankedEntries returns the final ranking, best first. Empty until complete.
func (s *Session) RankedEntries() []Entry {
	if s.state != StateComplete {
		return nil
	}
	out := make([]Entry, len(s.ranked))
	copy(out, s.ranked)
	return out
}

// Entries returns a copy of all entries in input order
func (s *Session) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Entry returns the entry with the given id
func (s *Session) Entry(id int) (Entry, bool) {
	i, ok := s.index[id]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// WinMatrix returns a copy of the win counts indexed by [winner id][loser id]
func (s *Session) WinMatrix() [][]int {
	out := make([][]int, len(s.wins))
	for i, row := range s.wins {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// RatingChange returns the rounded distance of an entry's rating from the initial rating
func (s *Session) RatingChange(e Entry) int {
	return s.engine.RatingChange(e.Rating)
}
