package elo

import "math"

// Comparison budget bounds
const (
	MinComparisonBudget = 10
	MaxComparisonBudget = 100
)

// ComparisonBudget returns how many comparisons a session over n entries requests.
// Small lists get more comparisons per entry than large ones.
func ComparisonBudget(n int) int {
	if n <= 0 {
		return 0
	}

	var perEntry float64
	switch {
	case n < 15:
		perEntry = 2.5
	case n < 30:
		perEntry = 2.0
	default:
		perEntry = 1.8
	}

	budget := int(math.Round(perEntry * float64(n)))
	return max(MinComparisonBudget, min(budget, MaxComparisonBudget))
}

// GetExpectedGameCount returns the number of distinct pairs among the given number of entries
func GetExpectedGameCount(entryCount int) int {
	if entryCount < 2 {
		return 0
	}
	return entryCount * (entryCount - 1) / 2
}
