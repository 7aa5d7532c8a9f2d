package elo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 0.0001 // Floating point comparison tolerance

// Helper function to create a default engine for testing
func createTestEngine() *Engine {
	return MustNewEngine(DefaultConfig())
}

// Helper function to create a rating
func createRating(id int, score, uncertainty float64, games int) Rating {
	return Rating{ID: id, Score: score, Uncertainty: uncertainty, Games: games}
}

func TestNewEngine(t *testing.T) {
	t.Run("default configuration creates engine", func(t *testing.T) {
		engine, err := NewEngine(DefaultConfig())
		require.NoError(t, err)
		require.NotNil(t, engine)

		assert.Equal(t, 32.0, engine.BaseK)
		assert.Equal(t, 1400.0, engine.InitialRating)
		assert.Equal(t, 100.0, engine.InitialUncertainty)
		assert.Equal(t, 20.0, engine.MinUncertainty)
		assert.Equal(t, 0.95, engine.UncertaintyDecay)
	})

	testCases := []struct {
		name   string
		modify func(*Config)
		err    error
	}{
		{"zero k-factor", func(c *Config) { c.BaseK = 0 }, ErrInvalidKFactor},
		{"negative k-factor", func(c *Config) { c.BaseK = -8 }, ErrInvalidKFactor},
		{"NaN initial rating", func(c *Config) { c.InitialRating = math.NaN() }, ErrInvalidRating},
		{"zero uncertainty floor", func(c *Config) { c.MinUncertainty = 0 }, ErrInvalidUncertainty},
		{"initial below floor", func(c *Config) { c.InitialUncertainty = 10 }, ErrInvalidUncertainty},
		{"decay above one", func(c *Config) { c.UncertaintyDecay = 1.5 }, ErrInvalidDecay},
		{"zero decay", func(c *Config) { c.UncertaintyDecay = 0 }, ErrInvalidDecay},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.modify(&config)
			engine, err := NewEngine(config)
			assert.ErrorIs(t, err, tc.err)
			assert.Nil(t, engine)
		})
	}

	t.Run("MustNewEngine panics on invalid config", func(t *testing.T) {
		assert.Panics(t, func() { MustNewEngine(Config{}) })
	})
}

func TestNewRating(t *testing.T) {
	engine := createTestEngine()
	r := engine.NewRating(7)

	assert.Equal(t, 7, r.ID)
	assert.Equal(t, 1400.0, r.Score)
	assert.Equal(t, 100.0, r.Uncertainty)
	assert.Zero(t, r.Games)
}

func TestExpectedScore(t *testing.T) {
	testCases := []struct {
		name     string
		ratingA  float64
		ratingB  float64
		expected float64
	}{
		{"equal ratings", 1400, 1400, 0.5},
		{"400 points stronger", 1800, 1400, 10.0 / 11.0},
		{"400 points weaker", 1400, 1800, 1.0 / 11.0},
		{"200 points stronger", 1600, 1400, 1.0 / (1.0 + math.Pow(10, -0.5))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, ExpectedScore(tc.ratingA, tc.ratingB), tolerance)
		})
	}
}

func TestCalculatePairwise(t *testing.T) {
	engine := createTestEngine()

	t.Run("fresh entries", func(t *testing.T) {
		winner := engine.NewRating(0)
		loser := engine.NewRating(1)

		newWinner, newLoser := engine.CalculatePairwise(winner, loser)

		assert.InDelta(t, 1416.0, newWinner.Score, tolerance)
		assert.InDelta(t, 1384.0, newLoser.Score, tolerance)
		assert.InDelta(t, 95.0, newWinner.Uncertainty, tolerance)
		assert.InDelta(t, 95.0, newLoser.Uncertainty, tolerance)
		assert.Equal(t, 1, newWinner.Games)
		assert.Equal(t, 1, newLoser.Games)
		assert.Equal(t, 0, newWinner.ID)
		assert.Equal(t, 1, newLoser.ID)
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		winner := engine.NewRating(0)
		loser := engine.NewRating(1)
		_, _ = engine.CalculatePairwise(winner, loser)

		assert.Equal(t, engine.NewRating(0), winner)
		assert.Equal(t, engine.NewRating(1), loser)
	})

	t.Run("K-factor scales with uncertainty", func(t *testing.T) {
		winner := createRating(0, 1400, 50, 10)
		loser := createRating(1, 1400, 100, 0)

		newWinner, newLoser := engine.CalculatePairwise(winner, loser)

		// winner K = 16, loser K = 32
		assert.InDelta(t, 1408.0, newWinner.Score, tolerance)
		assert.InDelta(t, 1384.0, newLoser.Score, tolerance)
	})

	t.Run("upset moves ratings more than expected result", func(t *testing.T) {
		strong := createRating(0, 1800, 100, 0)
		weak := createRating(1, 1400, 100, 0)

		expectedWin, _ := engine.CalculatePairwise(strong, weak)
		upsetWin, _ := engine.CalculatePairwise(weak, strong)

		assert.InDelta(t, 32.0/11.0, expectedWin.Score-strong.Score, tolerance)
		assert.InDelta(t, 320.0/11.0, upsetWin.Score-weak.Score, tolerance)
	})

	t.Run("uncertainty never drops below floor", func(t *testing.T) {
		winner := createRating(0, 1400, 20, 40)
		loser := createRating(1, 1400, 21, 40)

		newWinner, newLoser := engine.CalculatePairwise(winner, loser)

		assert.Equal(t, 20.0, newWinner.Uncertainty)
		assert.Equal(t, 20.0, newLoser.Uncertainty)
	})

	t.Run("repeated wins converge uncertainty to floor", func(t *testing.T) {
		a := engine.NewRating(0)
		b := engine.NewRating(1)
		for range 100 {
			a, b = engine.CalculatePairwise(a, b)
		}
		assert.Equal(t, engine.MinUncertainty, a.Uncertainty)
		assert.Equal(t, engine.MinUncertainty, b.Uncertainty)
		assert.Equal(t, 100, a.Games)
		assert.Greater(t, a.Score, b.Score)
	})
}

func TestCalculatePairwiseWithResult(t *testing.T) {
	engine := createTestEngine()

	winner := engine.NewRating(3)
	loser := engine.NewRating(5)

	newWinner, newLoser, result := engine.CalculatePairwiseWithResult(winner, loser)

	assert.Len(t, result.Updates, 2)
	assert.True(t, result.Duration >= 0)
	assert.True(t, result.Timestamp.Before(time.Now().Add(time.Minute)))

	winnerUpdate := result.Updates[0]
	assert.Equal(t, 3, winnerUpdate.ID)
	assert.Equal(t, 1400.0, winnerUpdate.OldRating)
	assert.InDelta(t, newWinner.Score, winnerUpdate.NewRating, tolerance)
	assert.InDelta(t, 16.0, winnerUpdate.Delta, tolerance)
	assert.Equal(t, 32.0, winnerUpdate.KFactor)

	loserUpdate := result.Updates[1]
	assert.Equal(t, 5, loserUpdate.ID)
	assert.InDelta(t, newLoser.Score, loserUpdate.NewRating, tolerance)
	assert.InDelta(t, -16.0, loserUpdate.Delta, tolerance)
}

func TestRatingChange(t *testing.T) {
	engine := createTestEngine()

	testCases := []struct {
		score    float64
		expected int
	}{
		{1400, 0},
		{1416.4, 16},
		{1383.6, -16},
		{1400.5, 1},
		{1399.4, -1},
	}

	for _, tc := range testCases {
		t.Run("rating change", func(t *testing.T) {
			assert.Equal(t, tc.expected, engine.RatingChange(createRating(0, tc.score, 50, 1)))
		})
	}
}

// Property-based tests
func TestPropertyConservationAtEqualUncertainty(t *testing.T) {
	engine := createTestEngine()

	testCases := []struct {
		winnerRating float64
		loserRating  float64
		uncertainty  float64
	}{
		{1400.0, 1400.0, 100},
		{1800.0, 1000.0, 80},
		{800.0, 1600.0, 20},
		{1234.5, 1876.3, 55},
	}

	for _, tc := range testCases {
		t.Run("conservation property", func(t *testing.T) {
			winner := createRating(0, tc.winnerRating, tc.uncertainty, 5)
			loser := createRating(1, tc.loserRating, tc.uncertainty, 3)

			newWinner, newLoser := engine.CalculatePairwise(winner, loser)

			oldTotal := winner.Score + loser.Score
			newTotal := newWinner.Score + newLoser.Score
			assert.InDelta(t, oldTotal, newTotal, tolerance,
				"Rating conservation violated for ratings %.2f vs %.2f", tc.winnerRating, tc.loserRating)
			assert.Greater(t, newWinner.Score, winner.Score)
			assert.Less(t, newLoser.Score, loser.Score)
		})
	}
}

func TestPropertySymmetry(t *testing.T) {
	ratings := []float64{800.0, 1000.0, 1200.0, 1400.0, 1600.0, 1800.0, 2000.0}

	for _, ratingA := range ratings {
		for _, ratingB := range ratings {
			t.Run("symmetry property", func(t *testing.T) {
				sum := ExpectedScore(ratingA, ratingB) + ExpectedScore(ratingB, ratingA)
				assert.InDelta(t, 1.0, sum, tolerance,
					"Expected score symmetry violated for ratings %.2f vs %.2f", ratingA, ratingB)
			})
		}
	}
}

func BenchmarkCalculatePairwise(b *testing.B) {
	engine := createTestEngine()
	winner := createRating(0, 1400.0, 80, 10)
	loser := createRating(1, 1200.0, 60, 8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.CalculatePairwise(winner, loser)
	}
}

func BenchmarkExpectedScore(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ExpectedScore(1400.0, 1200.0)
	}
}
