// Package data provides the contest data model, dataset registry, configuration
// and the ranking session controller that drives pairwise comparisons through the
// Elo engine.
package data

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pashagolub/escelo/pkg/elo"
)

// Error types for entry validation
var (
	ErrInvalidEntry   = errors.New("invalid entry")
	ErrRequiredField  = errors.New("required field missing")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Record is the immutable display data of a single contest entry
type Record struct {
	Year         int    `yaml:"-" json:"year"`                      // Contest year (taken from the dataset)
	Country      string `yaml:"country" json:"country"`             // Participating country, unique within a list
	CountryEmoji string `yaml:"country_emoji" json:"country_emoji"` // Flag emoji shown next to the country
	Artist       string `yaml:"artist" json:"artist"`               // Performing artist
	Title        string `yaml:"title" json:"title"`                 // Song title
}

// Validate checks that the record carries the fields needed for display
func (r Record) Validate() error {
	if strings.TrimSpace(r.Country) == "" {
		return fmt.Errorf("%w: country", ErrRequiredField)
	}
	if strings.TrimSpace(r.Artist) == "" {
		return fmt.Errorf("%w: artist for %s", ErrRequiredField, r.Country)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title for %s", ErrRequiredField, r.Country)
	}
	return nil
}

// String returns "emoji Country: Artist - Title"
func (r Record) String() string {
	label := r.Country
	if r.CountryEmoji != "" {
		label = r.CountryEmoji + " " + label
	}
	return fmt.Sprintf("%s: %s - %s", label, r.Artist, r.Title)
}

// Entry is a record plus its mutable ranking state. Rating.ID is the stable entry id.
type Entry struct {
	Record
	elo.Rating
}

// ValidateRecords checks every record and rejects countries listed twice
func ValidateRecords(records []Record) error {
	seen := make(map[string]int, len(records))
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w at position %d: %w", ErrInvalidEntry, i, err)
		}
		key := strings.ToLower(strings.TrimSpace(r.Country))
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s at positions %d and %d", ErrDuplicateEntry, r.Country, prev, i)
		}
		seen[key] = i
	}
	return nil
}
