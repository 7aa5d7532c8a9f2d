package elo

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Selector errors
var (
	ErrInvalidWeights   = errors.New("selector weights must be non-negative and not all zero")
	ErrInvalidTopFactor = errors.New("top-tier fraction must be in (0, 1]")
)

// Matchup represents a candidate comparison between two entries
type Matchup struct {
	A           int     // ID of first entry
	B           int     // ID of second entry
	Information float64 // weighted information value, higher is more useful
}

// SelectorConfig holds the heuristic weights used to score candidate pairs
type SelectorConfig struct {
	RatingDiffWeight  float64 // weight of rating closeness (default: 0.3)
	UncertaintyWeight float64 // weight of combined uncertainty (default: 0.3)
	ProbabilityWeight float64 // weight of toss-up probability (default: 0.2)
	ComparisonWeight  float64 // weight of few previous comparisons (default: 0.2)
	RatingDiffScale   float64 // rating gap that halves closeness (default: 200)
	TopFraction       float64 // share of the sorted pairs sampled from (default: 0.2)
	MinTopCount       int     // lower bound of the sampled tier (default: 3)
}

// DefaultSelectorConfig returns recommended selector settings
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		RatingDiffWeight:  0.3,
		UncertaintyWeight: 0.3,
		ProbabilityWeight: 0.2,
		ComparisonWeight:  0.2,
		RatingDiffScale:   200.0,
		TopFraction:       0.2,
		MinTopCount:       3,
	}
}

// Validate checks that selector weights and sampling parameters are usable
func (c SelectorConfig) Validate() error {
	weights := []float64{c.RatingDiffWeight, c.UncertaintyWeight, c.ProbabilityWeight, c.ComparisonWeight}
	total := 0.0
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return ErrInvalidWeights
		}
		total += w
	}
	if total == 0 {
		return ErrInvalidWeights
	}
	if c.RatingDiffScale <= 0 {
		return fmt.Errorf("%w: rating_diff_scale must be positive, got %.2f", ErrInvalidWeights, c.RatingDiffScale)
	}
	if c.TopFraction <= 0 || c.TopFraction > 1 {
		return ErrInvalidTopFactor
	}
	if c.MinTopCount < 1 {
		return fmt.Errorf("%w: min_top_count must be at least 1, got %d", ErrInvalidTopFactor, c.MinTopCount)
	}
	return nil
}

// RandomSource draws uniform integers in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Selector picks the next pair of entries to compare
type Selector struct {
	engine *Engine
	config SelectorConfig
	rand   RandomSource
}

// NewSelector creates a pair selector. A nil source uses the process-wide random source.
func NewSelector(engine *Engine, config SelectorConfig, source RandomSource) (*Selector, error) {
	if engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		source = globalSource{}
	}
	return &Selector{engine: engine, config: config, rand: source}, nil
}

// Config returns the selector configuration
func (s *Selector) Config() SelectorConfig {
	return s.config
}

// evaluateMatchup calculates the information value of comparing a with b
func (s *Selector) evaluateMatchup(a, b Rating) Matchup {
	ratingDiff := math.Abs(a.Score - b.Score)
	expected := ExpectedScore(a.Score, b.Score)

	ratingDiffScore := 1.0 / (1.0 + ratingDiff/s.config.RatingDiffScale)
	uncertaintyScore := (a.Uncertainty + b.Uncertainty) / (2.0 * s.engine.InitialUncertainty)
	probScore := 1.0 - 2.0*math.Abs(expected-0.5)
	comparisonScore := 1.0 / (1.0 + float64(a.Games+b.Games))

	information := s.config.RatingDiffWeight*ratingDiffScore +
		s.config.UncertaintyWeight*uncertaintyScore +
		s.config.ProbabilityWeight*probScore +
		s.config.ComparisonWeight*comparisonScore

	return Matchup{A: a.ID, B: b.ID, Information: information}
}

// ScorePairs enumerates every unordered pair and returns them sorted by information value,
// highest first. Equal scores keep enumeration order.
func (s *Selector) ScorePairs(ratings []Rating) []Matchup {
	n := len(ratings)
	if n < 2 {
		return nil
	}

	candidates := make([]Matchup, 0, GetExpectedGameCount(n))
	for i := range n {
		for j := i + 1; j < n; j++ {
			candidates = append(candidates, s.evaluateMatchup(ratings[i], ratings[j]))
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Information > candidates[j].Information
	})

	return candidates
}

// TopCount returns the size of the tier the next pair is sampled from
func (s *Selector) TopCount(totalPairs int) int {
	top := max(s.config.MinTopCount, int(math.Floor(float64(totalPairs)*s.config.TopFraction)))
	return min(top, totalPairs)
}

// Next returns the next pair to compare, or false when fewer than two entries exist
func (s *Selector) Next(ratings []Rating) (Matchup, bool) {
	if len(ratings) < 2 {
		return Matchup{}, false
	}

	candidates := s.ScorePairs(ratings)
	if top := s.TopCount(len(candidates)); top > 0 {
		idx := s.rand.IntN(top)
		if idx >= 0 && idx < len(candidates) {
			return candidates[idx], true
		}
	}

	return s.randomMatchup(ratings), true
}

// randomMatchup picks two distinct entries uniformly at random
func (s *Selector) randomMatchup(ratings []Rating) Matchup {
	n := len(ratings)
	i := s.rand.IntN(n)
	j := s.rand.IntN(n - 1)
	if j >= i {
		j++
	}
	return s.evaluateMatchup(ratings[i], ratings[j])
}
