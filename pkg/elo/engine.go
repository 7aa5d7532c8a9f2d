// Package elo provides Elo rating calculations for pairwise preference ranking.
// It implements an uncertainty-scaled Elo update, the comparison budget rule and
// an information-driven pair selector used to decide which two entries to show next.
package elo

import (
	"errors"
	"math"
	"time"
)

// Default engine parameters
const (
	DefaultBaseK              = 32.0
	DefaultInitialRating      = 1400.0
	DefaultInitialUncertainty = 100.0
	DefaultMinUncertainty     = 20.0
	DefaultUncertaintyDecay   = 0.95
)

// Error types for validation
var (
	ErrInvalidRating      = errors.New("rating value is invalid")
	ErrInvalidKFactor     = errors.New("base k-factor must be positive")
	ErrInvalidUncertainty = errors.New("uncertainty bounds are invalid")
	ErrInvalidDecay       = errors.New("uncertainty decay must be in (0, 1]")
)

// Rating represents the mutable ranking state of a single entry
type Rating struct {
	ID          int     `json:"id" yaml:"id"`                   // Stable entry identifier
	Score       float64 `json:"rating" yaml:"rating"`           // Current Elo rating
	Uncertainty float64 `json:"uncertainty" yaml:"uncertainty"` // Scales how far one comparison moves the rating
	Games       int     `json:"comparisons" yaml:"comparisons"` // Number of comparisons participated in
}

// RatingUpdate represents an individual rating change record
type RatingUpdate struct {
	ID        int     // Entry being updated
	OldRating float64 // Rating before comparison
	NewRating float64 // Rating after comparison
	Delta     float64 // Change in rating (NewRating - OldRating)
	KFactor   float64 // Effective K-factor used for this update
}

// ComparisonResult represents the result of a rating calculation with audit information
type ComparisonResult struct {
	Updates   []RatingUpdate // Winner first, loser second
	Timestamp time.Time      // When calculation was performed
	Duration  time.Duration  // Time taken for calculation
}

// Config holds configuration parameters for the Elo engine
type Config struct {
	BaseK              float64 // K-factor applied at initial uncertainty
	InitialRating      float64 // Rating every entry starts with
	InitialUncertainty float64 // Uncertainty every entry starts with
	MinUncertainty     float64 // Floor for decayed uncertainty
	UncertaintyDecay   float64 // Multiplier applied to uncertainty after each comparison
}

// DefaultConfig returns the standard engine parameters
func DefaultConfig() Config {
	return Config{
		BaseK:              DefaultBaseK,
		InitialRating:      DefaultInitialRating,
		InitialUncertainty: DefaultInitialUncertainty,
		MinUncertainty:     DefaultMinUncertainty,
		UncertaintyDecay:   DefaultUncertaintyDecay,
	}
}

// Engine is the core Elo rating engine with configurable parameters
type Engine struct {
	BaseK              float64
	InitialRating      float64
	InitialUncertainty float64
	MinUncertainty     float64
	UncertaintyDecay   float64
}

// NewEngine creates a new Elo rating engine with specified configuration
func NewEngine(config Config) (*Engine, error) {
	if config.BaseK <= 0 || math.IsNaN(config.BaseK) || math.IsInf(config.BaseK, 0) {
		return nil, ErrInvalidKFactor
	}
	if math.IsNaN(config.InitialRating) || math.IsInf(config.InitialRating, 0) {
		return nil, ErrInvalidRating
	}
	if config.MinUncertainty <= 0 || config.InitialUncertainty < config.MinUncertainty ||
		math.IsInf(config.InitialUncertainty, 0) {
		return nil, ErrInvalidUncertainty
	}
	if config.UncertaintyDecay <= 0 || config.UncertaintyDecay > 1 || math.IsNaN(config.UncertaintyDecay) {
		return nil, ErrInvalidDecay
	}

	return &Engine{
		BaseK:              config.BaseK,
		InitialRating:      config.InitialRating,
		InitialUncertainty: config.InitialUncertainty,
		MinUncertainty:     config.MinUncertainty,
		UncertaintyDecay:   config.UncertaintyDecay,
	}, nil
}

// MustNewEngine is like NewEngine but panics on invalid configuration.
func MustNewEngine(config Config) *Engine {
	engine, err := NewEngine(config)
	if err != nil {
		panic(err)
	}
	return engine
}

// NewRating returns the initial rating state for the entry with the given id
func (e *Engine) NewRating(id int) Rating {
	return Rating{
		ID:          id,
		Score:       e.InitialRating,
		Uncertainty: e.InitialUncertainty,
		Games:       0,
	}
}

// ExpectedScore computes the probability that a player rated ratingA beats one rated ratingB
func ExpectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10.0, (ratingB-ratingA)/400.0))
}

// kFactor returns the effective learning rate for the given uncertainty
func (e *Engine) kFactor(uncertainty float64) float64 {
	return e.BaseK * (uncertainty / e.InitialUncertainty)
}

// decayUncertainty shrinks uncertainty after a comparison without crossing the floor
func (e *Engine) decayUncertainty(uncertainty float64) float64 {
	return math.Max(uncertainty*e.UncertaintyDecay, e.MinUncertainty)
}

// CalculatePairwise calculates new ratings for pairwise comparison
// winner: Rating of the preferred entry
// loser: Rating of the other entry
// Returns updated copies of both ratings
func (e *Engine) CalculatePairwise(winner, loser Rating) (Rating, Rating) {
	expectedWinner := ExpectedScore(winner.Score, loser.Score)
	expectedLoser := ExpectedScore(loser.Score, winner.Score)

	winnerK := e.kFactor(winner.Uncertainty)
	loserK := e.kFactor(loser.Uncertainty)

	newWinner := Rating{
		ID:          winner.ID,
		Score:       winner.Score + winnerK*(1.0-expectedWinner),
		Uncertainty: e.decayUncertainty(winner.Uncertainty),
		Games:       winner.Games + 1,
	}

	newLoser := Rating{
		ID:          loser.ID,
		Score:       loser.Score + loserK*(0.0-expectedLoser),
		Uncertainty: e.decayUncertainty(loser.Uncertainty),
		Games:       loser.Games + 1,
	}

	return newWinner, newLoser
}

// CalculatePairwiseWithResult performs pairwise calculation and returns detailed result
func (e *Engine) CalculatePairwiseWithResult(winner, loser Rating) (Rating, Rating, ComparisonResult) {
	start := time.Now()

	newWinner, newLoser := e.CalculatePairwise(winner, loser)

	updates := []RatingUpdate{
		{
			ID:        winner.ID,
			OldRating: winner.Score,
			NewRating: newWinner.Score,
			Delta:     newWinner.Score - winner.Score,
			KFactor:   e.kFactor(winner.Uncertainty),
		},
		{
			ID:        loser.ID,
			OldRating: loser.Score,
			NewRating: newLoser.Score,
			Delta:     newLoser.Score - loser.Score,
			KFactor:   e.kFactor(loser.Uncertainty),
		},
	}

	return newWinner, newLoser, ComparisonResult{
		Updates:   updates,
		Timestamp: start,
		Duration:  time.Since(start),
	}
}

// RatingChange returns the rounded distance of a rating from the initial rating
func (e *Engine) RatingChange(rating Rating) int {
	return int(math.Round(rating.Score - e.InitialRating))
}
