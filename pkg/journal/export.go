// Package journal exports final rankings of completed sessions in several formats.
package journal

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pashagolub/escelo/pkg/data"
)

// Error types for export
var (
	ErrSessionIncomplete = errors.New("session is not complete")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// ExportFormat represents the format for exporting results
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
	FormatText ExportFormat = "text"
)

// ParseFormat converts a format name to an ExportFormat
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatYAML, FormatText:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q (expected csv, json, yaml or text)", ErrUnsupportedFormat, s)
	}
}

// Extension returns the file extension used for the format
func (f ExportFormat) Extension() string {
	if f == FormatText {
		return ".txt"
	}
	return "." + string(f)
}

// ExportOptions configures export behavior
type ExportOptions struct {
	Format       ExportFormat // Export format (csv, json, yaml, text)
	Precision    int          // Decimal places for ratings
	IncludeStats bool         // Include summary statistics
	IncludeWins  bool         // Include the win matrix in structured formats
}

// DefaultExportOptions returns CSV with one decimal place
func DefaultExportOptions() ExportOptions {
	return ExportOptions{Format: FormatCSV, Precision: 1, IncludeStats: true}
}

// RankedEntry is one row of the final ranking
type RankedEntry struct {
	Rank         int     `json:"rank" yaml:"rank"`
	ID           int     `json:"id" yaml:"id"`
	Country      string  `json:"country" yaml:"country"`
	CountryEmoji string  `json:"country_emoji" yaml:"country_emoji"`
	Artist       string  `json:"artist" yaml:"artist"`
	Title        string  `json:"title" yaml:"title"`
	Rating       float64 `json:"rating" yaml:"rating"`
	RatingChange int     `json:"rating_change" yaml:"rating_change"`
	Comparisons  int     `json:"comparisons" yaml:"comparisons"`
	Uncertainty  float64 `json:"uncertainty" yaml:"uncertainty"`
}

// ExportStatistics provides summary statistics
type ExportStatistics struct {
	TotalEntries      int     `json:"total_entries" yaml:"total_entries"`
	TotalComparisons  int     `json:"total_comparisons" yaml:"total_comparisons"`
	Budget            int     `json:"budget" yaml:"budget"`
	AverageRating     float64 `json:"average_rating" yaml:"average_rating"`
	RatingRange       float64 `json:"rating_range" yaml:"rating_range"`
	StandardDeviation float64 `json:"standard_deviation" yaml:"standard_deviation"`
}

// RankingExport represents the complete export data structure
type RankingExport struct {
	SessionID  string            `json:"session_id" yaml:"session_id"`
	Year       int               `json:"year" yaml:"year"`
	Stage      string            `json:"stage" yaml:"stage"`
	StageTitle string            `json:"stage_title" yaml:"stage_title"`
	ExportedAt time.Time         `json:"exported_at" yaml:"exported_at"`
	Rankings   []RankedEntry     `json:"rankings" yaml:"rankings"`
	Statistics *ExportStatistics `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	WinMatrix  [][]int           `json:"win_matrix,omitempty" yaml:"win_matrix,omitempty"`
}

// NewRankingExport captures the final ranking of a completed session
func NewRankingExport(session *data.Session) (*RankingExport, error) {
	if session == nil || !session.IsComplete() {
		return nil, ErrSessionIncomplete
	}

	ranked := session.RankedEntries()
	rankings := make([]RankedEntry, len(ranked))
	for i, e := range ranked {
		rankings[i] = RankedEntry{
			Rank:         i + 1,
			ID:           e.ID,
			Country:      e.Country,
			CountryEmoji: e.CountryEmoji,
			Artist:       e.Artist,
			Title:        e.Title,
			Rating:       e.Score,
			RatingChange: session.RatingChange(e),
			Comparisons:  e.Games,
			Uncertainty:  e.Uncertainty,
		}
	}

	key := session.Key()
	return &RankingExport{
		SessionID:  session.ID,
		Year:       key.Year,
		Stage:      string(key.Stage),
		StageTitle: key.Stage.Title(),
		ExportedAt: time.Now(),
		Rankings:   rankings,
		Statistics: calculateStatistics(rankings, session.ComparisonsMade(), session.Budget()),
		WinMatrix:  session.WinMatrix(),
	}, nil
}

// calculateStatistics computes summary values over the final ratings
func calculateStatistics(rankings []RankedEntry, comparisons, budget int) *ExportStatistics {
	stats := &ExportStatistics{
		TotalEntries:     len(rankings),
		TotalComparisons: comparisons,
		Budget:           budget,
	}
	if len(rankings) == 0 {
		return stats
	}

	lowest, highest, total := math.Inf(1), math.Inf(-1), 0.0
	for _, r := range rankings {
		total += r.Rating
		lowest = math.Min(lowest, r.Rating)
		highest = math.Max(highest, r.Rating)
	}
	mean := total / float64(len(rankings))

	variance := 0.0
	for _, r := range rankings {
		variance += (r.Rating - mean) * (r.Rating - mean)
	}
	variance /= float64(len(rankings))

	stats.AverageRating = mean
	stats.RatingRange = highest - lowest
	stats.StandardDeviation = math.Sqrt(variance)
	return stats
}

// Exporter handles ranking export operations
type Exporter struct {
	options ExportOptions
}

// NewExporter creates a new exporter instance
func NewExporter(options ExportOptions) *Exporter {
	if options.Precision < 0 {
		options.Precision = 0
	}
	return &Exporter{options: options}
}

// Export writes export to writer in the configured format
func (e *Exporter) Export(writer io.Writer, export *RankingExport) error {
	switch e.options.Format {
	case FormatCSV:
		return e.ExportCSV(writer, export)
	case FormatJSON:
		return e.ExportJSON(writer, export)
	case FormatYAML:
		return e.ExportYAML(writer, export)
	case FormatText:
		return e.ExportText(writer, export)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, e.options.Format)
	}
}

// ExportToFile exports rankings to a file, replacing it atomically
func (e *Exporter) ExportToFile(export *RankingExport, filePath string) (err error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.CreateTemp(dir, filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := file.Name()
	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(tempFile)
		}
	}()

	if err = e.Export(file, export); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err = os.Rename(tempFile, filePath); err != nil {
		return fmt.Errorf("failed to replace target file: %w", err)
	}

	return nil
}

// DefaultFileName returns escelo-<year>-<stage><ext> for the export
func (e *Exporter) DefaultFileName(export *RankingExport) string {
	return fmt.Sprintf("escelo-%d-%s%s", export.Year, export.Stage, e.options.Format.Extension())
}

// ExportCSV exports rankings in CSV format
func (e *Exporter) ExportCSV(writer io.Writer, export *RankingExport) error {
	if len(export.Rankings) == 0 {
		return fmt.Errorf("no entries to export")
	}

	csvWriter := csv.NewWriter(writer)

	headers := []string{"rank", "id", "country", "country_emoji", "artist", "title", "rating", "rating_change", "comparisons"}
	if e.options.IncludeStats {
		headers = append(headers, "uncertainty")
	}
	if err := csvWriter.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range export.Rankings {
		record := []string{
			strconv.Itoa(r.Rank),
			strconv.Itoa(r.ID),
			r.Country,
			r.CountryEmoji,
			r.Artist,
			r.Title,
			e.formatFloat(r.Rating),
			formatChange(r.RatingChange),
			strconv.Itoa(r.Comparisons),
		}
		if e.options.IncludeStats {
			record = append(record, e.formatFloat(r.Uncertainty))
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record for %s: %w", r.Country, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// structured returns a copy of export trimmed to the configured options
func (e *Exporter) structured(export *RankingExport) *RankingExport {
	out := *export
	if !e.options.IncludeStats {
		out.Statistics = nil
	}
	if !e.options.IncludeWins {
		out.WinMatrix = nil
	}
	out.Rankings = make([]RankedEntry, len(export.Rankings))
	for i, r := range export.Rankings {
		r.Rating = e.round(r.Rating)
		r.Uncertainty = e.round(r.Uncertainty)
		out.Rankings[i] = r
	}
	return &out
}

// ExportJSON exports rankings in JSON format
func (e *Exporter) ExportJSON(writer io.Writer, export *RankingExport) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(e.structured(export)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportYAML exports rankings in YAML format
func (e *Exporter) ExportYAML(writer io.Writer, export *RankingExport) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(e.structured(export)); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

const textReport = `Eurovision Ranking {{.Export.Year}} {{.Export.StageTitle}}
=====================================

Session: {{.Export.SessionID}}
Generated: {{.Generated}}
{{- with .Export.Statistics}}{{if $.IncludeStats}}

Entries: {{.TotalEntries}}
Comparisons: {{.TotalComparisons}} of {{.Budget}}
Average Rating: {{rating .AverageRating}}
Rating Range: {{rating .RatingRange}}
Standard Deviation: {{rating .StandardDeviation}}
{{- end}}{{end}}

Final Rankings
==============
{{range .Export.Rankings}}
{{printf "%2d" .Rank}}. {{if .CountryEmoji}}{{.CountryEmoji}} {{end}}{{.Country}}: {{.Artist}} - {{.Title}}
    Rating: {{rating .Rating}} ({{change .RatingChange}}) | Comparisons: {{.Comparisons}}
{{- end}}
`

// ExportText generates a human-readable text report
func (e *Exporter) ExportText(writer io.Writer, export *RankingExport) error {
	tmpl, err := texttemplate.New("report").Funcs(texttemplate.FuncMap{
		"rating": e.formatFloat,
		"change": formatChange,
	}).Parse(textReport)
	if err != nil {
		return fmt.Errorf("failed to parse report template: %w", err)
	}

	payload := struct {
		Export       *RankingExport
		Generated    string
		IncludeStats bool
	}{
		Export:       export,
		Generated:    export.ExportedAt.Format("2006-01-02 15:04:05"),
		IncludeStats: e.options.IncludeStats,
	}

	if err := tmpl.Execute(writer, payload); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

func (e *Exporter) round(v float64) float64 {
	scale := math.Pow(10, float64(e.options.Precision))
	return math.Round(v*scale) / scale
}

func (e *Exporter) formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', e.options.Precision, 64)
}

// formatChange renders a rating change with an explicit sign
func formatChange(change int) string {
	if change > 0 {
		return "+" + strconv.Itoa(change)
	}
	return strconv.Itoa(change)
}
