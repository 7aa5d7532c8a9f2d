// Package main provides the command-line interface for escelo, the Eurovision Song Contest
// ranking tool. It implements subcommands for the interactive ranking TUI, scripted batch
// sessions, dataset listing and dataset file validation.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/pashagolub/escelo/pkg/data"
	"github.com/pashagolub/escelo/pkg/elo"
	"github.com/pashagolub/escelo/pkg/journal"
	"github.com/pashagolub/escelo/pkg/logger"
	"github.com/pashagolub/escelo/pkg/metrics"
	"github.com/pashagolub/escelo/pkg/tui"
	"github.com/pashagolub/escelo/pkg/tui/screens"
)

// Version information - set by build process
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// GlobalOptions defines global CLI flags
type GlobalOptions struct {
	Config  string `long:"config" short:"c" description:"Configuration file path (defaults to $ESCELO_CONFIG)"`
	Verbose bool   `long:"verbose" short:"v" description:"Enable debug logging"`
	LogFile string `long:"log-file" description:"Write logs to this file"`
	Version bool   `long:"version" description:"Show version information"`
}

// RankCommand handles 'escelo rank' subcommand
type RankCommand struct {
	Year        int    `long:"year" short:"y" description:"Contest year to rank right away"`
	Stage       string `long:"stage" short:"s" description:"Contest stage to rank right away (semi1/semi2/final)"`
	DataDir     string `long:"data-dir" description:"Directory with additional dataset files"`
	MetricsAddr string `long:"metrics-addr" description:"Expose Prometheus metrics on this address"`
	ExportDir   string `long:"export-dir" description:"Directory for exported rankings"`
	Format      string `long:"format" description:"Export format (csv/json/yaml/text)"`

	Global *GlobalOptions `no-flag:"true"`
}

// SimulateCommand handles 'escelo simulate' subcommand
type SimulateCommand struct {
	Year     int    `long:"year" short:"y" description:"Contest year (defaults to the newest)"`
	Stage    string `long:"stage" short:"s" description:"Contest stage (semi1/semi2/final)" default:"final"`
	DataDir  string `long:"data-dir" description:"Directory with additional dataset files"`
	Seed     uint64 `long:"seed" description:"Random seed, 0 picks one"`
	Strategy string `long:"strategy" description:"How the scripted voter decides" choice:"order" choice:"random" default:"order"`
	Format   string `long:"format" description:"Output format (csv/json/yaml/text)"`
	Output   string `long:"output" short:"o" description:"Write the ranking to this file instead of stdout"`

	Global *GlobalOptions `no-flag:"true"`
	out    io.Writer
}

// ListCommand handles 'escelo list' subcommand
type ListCommand struct {
	DataDir string `long:"data-dir" description:"Directory with additional dataset files"`
	Format  string `long:"format" description:"Output format (table/json/csv)" choice:"table" choice:"json" choice:"csv" default:"table"`

	Global *GlobalOptions `no-flag:"true"`
	out    io.Writer
}

// ValidateCommand handles 'escelo validate' subcommand
type ValidateCommand struct {
	Input   string `long:"input" short:"i" description:"Path to a YAML dataset file" required:"true"`
	Preview int    `long:"preview" description:"Number of entries to preview per stage" default:"5"`

	Global *GlobalOptions `no-flag:"true"`
	out    io.Writer
}

// ErrorCode represents CLI exit codes
type ErrorCode int

const (
	ExitSuccess ErrorCode = iota
	ExitFileError
	ExitConfigError
	ExitSessionError
	ExitExportError
	ExitValidationError
)

// CLIError represents a CLI error with exit code
type CLIError struct {
	Code        ErrorCode
	Message     string
	Details     map[string]any
	Suggestions []string
}

func (e *CLIError) Error() string {
	return e.Message
}

// formatErrorJSON formats error as JSON for structured output
func formatErrorJSON(err *CLIError) string {
	body := map[string]any{
		"code":    err.Code,
		"message": err.Message,
	}
	if err.Details != nil {
		body["details"] = err.Details
	}
	if err.Suggestions != nil {
		body["suggestions"] = err.Suggestions
	}

	jsonBytes, _ := json.MarshalIndent(map[string]any{"error": body}, "", "  ")
	return string(jsonBytes)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		var cliErr *CLIError
		if errors.As(err, &cliErr) {
			fmt.Fprintln(os.Stderr, formatErrorJSON(cliErr))
			os.Exit(int(cliErr.Code))
		}
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := &GlobalOptions{}
	parser := flags.NewParser(global, flags.Default)
	parser.Usage = "[OPTIONS] COMMAND [COMMAND-OPTIONS]"
	parser.SubcommandsOptional = true

	commands := []struct {
		name, short, long string
		command           any
	}{
		{"rank", "Rank entries interactively", "Opens the terminal UI and asks for the better song of each pair", &RankCommand{Global: global}},
		{"simulate", "Run a scripted ranking session", "Ranks a dataset with a scripted voter and prints the final ranking", &SimulateCommand{Global: global}},
		{"list", "List available datasets", "", &ListCommand{Global: global}},
		{"validate", "Validate a YAML dataset file", "", &ValidateCommand{Global: global}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.command); err != nil {
			return err
		}
	}

	rest, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) {
			return err
		}
		if flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return &CLIError{
			Code:    ExitConfigError,
			Message: fmt.Sprintf("Invalid arguments: %v", err),
		}
	}

	if parser.Active == nil {
		if len(rest) > 0 {
			return &CLIError{
				Code:        ExitConfigError,
				Message:     fmt.Sprintf("Unknown command: %s", rest[0]),
				Suggestions: []string{"Use 'escelo --help' to see all available commands"},
			}
		}
		if global.Version {
			return showVersion(os.Stdout)
		}
		parser.WriteHelp(os.Stderr)
		return &CLIError{
			Code:    ExitConfigError,
			Message: "No command specified",
			Suggestions: []string{
				"Use 'escelo rank' to start ranking",
				"Use 'escelo --help' to see all available commands",
			},
		}
	}
	return nil
}

// Execute implements the Commander interface for RankCommand
func (c *RankCommand) Execute([]string) error {
	global := globals(c.Global)
	if global.Version {
		return showVersion(os.Stdout)
	}

	// the terminal belongs to the UI, logs go to a file or nowhere
	env, err := setup(global, c.DataDir, nil)
	if err != nil {
		return err
	}
	defer env.Close()
	cfg := env.config

	settings := screens.Settings{
		Year:            cfg.Data.DefaultYear,
		Stage:           data.Stage(cfg.Data.DefaultStage),
		ShowProgress:    cfg.UI.ShowProgress,
		ShowUncertainty: cfg.UI.ShowUncertainty,
	}
	autoStart := c.Year != 0 || c.Stage != ""
	if c.Year != 0 {
		settings.Year = c.Year
	}
	if c.Stage != "" {
		stage, err := parseStage(c.Stage)
		if err != nil {
			return err
		}
		settings.Stage = stage
	}
	if autoStart {
		settings.Year = resolveYear(env.registry, settings.Year)
		if settings.Stage == "" {
			settings.Stage = data.StageFinal
		}
	}

	exporter, err := newExporter(firstNonEmpty(c.Format, cfg.Export.Format), cfg.Export.Precision)
	if err != nil {
		return err
	}

	metricsAddr := c.MetricsAddr
	if metricsAddr == "" && cfg.Metrics.Enabled {
		metricsAddr = cfg.Metrics.Addr
	}
	opts := []data.SessionOption{data.WithLogger(env.log)}
	var manager *metrics.Manager
	if metricsAddr != "" {
		manager = metrics.NewManager(metrics.WithNamespace(cfg.Metrics.Namespace))
		opts = append(opts, data.WithRecorder(manager))
	}

	session, err := data.NewSessionFromConfig(cfg, newSource(cfg.Selector.Seed), opts...)
	if err != nil {
		return &CLIError{Code: ExitConfigError, Message: fmt.Sprintf("Failed to create session: %v", err)}
	}

	app, err := tui.NewApp(session, env.registry, tui.Options{
		Settings:  settings,
		AutoStart: autoStart,
		Exporter:  exporter,
		ExportDir: firstNonEmpty(c.ExportDir, cfg.Export.Directory),
		Logger:    env.log,
	})
	if err != nil {
		return &CLIError{Code: ExitSessionError, Message: fmt.Sprintf("Failed to create user interface: %v", err)}
	}

	env.log.Info("starting interactive session",
		logger.Int("year", settings.Year),
		logger.String("stage", string(settings.Stage)),
		logger.String("metrics_addr", metricsAddr))
	return runInteractive(app, manager, metricsAddr)
}

// runInteractive runs the UI next to the optional metrics endpoint. Whichever stops first stops the other.
func runInteractive(app *tui.App, manager *metrics.Manager, addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return app.Run()
	})
	if manager != nil {
		g.Go(func() error {
			if err := manager.Serve(ctx, addr); err != nil {
				return &CLIError{
					Code:    ExitConfigError,
					Message: fmt.Sprintf("Metrics endpoint failed: %v", err),
					Details: map[string]any{"addr": addr},
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		app.Exit()
		return nil
	})
	return g.Wait()
}

// Execute implements the Commander interface for SimulateCommand
func (c *SimulateCommand) Execute([]string) error {
	global := globals(c.Global)
	out := writerOrStdout(c.out)
	if global.Version {
		return showVersion(out)
	}

	env, err := setup(global, c.DataDir, os.Stderr)
	if err != nil {
		return err
	}
	defer env.Close()
	cfg := env.config

	stage, err := parseStage(firstNonEmpty(c.Stage, string(data.StageFinal)))
	if err != nil {
		return err
	}
	year := resolveYear(env.registry, c.Year)

	exporter, err := newExporter(firstNonEmpty(c.Format, cfg.Export.Format), cfg.Export.Precision)
	if err != nil {
		return err
	}

	seed := c.Seed
	if seed == 0 {
		seed = cfg.Selector.Seed
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	voter := rand.New(rand.NewPCG(seed, ^seed))

	session, err := data.NewSessionFromConfig(cfg, newSource(seed), data.WithLogger(env.log))
	if err != nil {
		return &CLIError{Code: ExitConfigError, Message: fmt.Sprintf("Failed to create session: %v", err)}
	}
	if err := session.LoadFromRegistry(env.registry, year, stage); err != nil {
		return &CLIError{
			Code:    ExitSessionError,
			Message: fmt.Sprintf("Failed to load dataset: %v", err),
			Details: map[string]any{"year": year, "stage": string(stage)},
			Suggestions: []string{
				"Use 'escelo list' to see available datasets",
				"Use --data-dir to load additional dataset files",
			},
		}
	}

	for !session.IsComplete() {
		pair, ok := session.CurrentPair()
		if !ok {
			break
		}
		winner, loser := vote(pair, c.Strategy, voter)
		if err := session.RecordChoice(winner.ID, loser.ID); err != nil {
			return &CLIError{Code: ExitSessionError, Message: fmt.Sprintf("Failed to record choice: %v", err)}
		}
	}
	env.log.Debug("simulation finished",
		logger.String("session_id", session.ID),
		logger.String("strategy", c.Strategy),
		logger.Any("seed", seed),
		logger.Int("comparisons", session.ComparisonsMade()))

	export, err := journal.NewRankingExport(session)
	if err != nil {
		return &CLIError{Code: ExitSessionError, Message: fmt.Sprintf("Failed to build ranking: %v", err)}
	}

	if c.Output == "" {
		if err := exporter.Export(out, export); err != nil {
			return &CLIError{Code: ExitExportError, Message: fmt.Sprintf("Failed to export ranking: %v", err)}
		}
		return nil
	}

	if err := exporter.ExportToFile(export, c.Output); err != nil {
		return &CLIError{
			Code:    ExitExportError,
			Message: fmt.Sprintf("Failed to export ranking: %v", err),
			Details: map[string]any{"file": c.Output},
			Suggestions: []string{
				"Check that the output directory is writable",
			},
		}
	}
	fmt.Fprintf(out, "Ranking of %d entries written to %s\n", len(export.Rankings), c.Output)
	return nil
}

// vote picks the winner of pair. "order" prefers the entry listed first in the dataset.
func vote(pair data.Pair, strategy string, voter *rand.Rand) (winner, loser data.Entry) {
	if strategy == "random" {
		if voter.IntN(2) == 0 {
			return pair.A, pair.B
		}
		return pair.B, pair.A
	}
	if pair.A.ID < pair.B.ID {
		return pair.A, pair.B
	}
	return pair.B, pair.A
}

// datasetRow is one line of 'escelo list'
type datasetRow struct {
	Year    int    `json:"year"`
	Stage   string `json:"stage"`
	Title   string `json:"title"`
	Entries int    `json:"entries"`
	Budget  int    `json:"budget"`
}

// Execute implements the Commander interface for ListCommand
func (c *ListCommand) Execute([]string) error {
	global := globals(c.Global)
	out := writerOrStdout(c.out)
	if global.Version {
		return showVersion(out)
	}

	env, err := setup(global, c.DataDir, os.Stderr)
	if err != nil {
		return err
	}
	defer env.Close()

	keys := env.registry.Keys()
	rows := make([]datasetRow, 0, len(keys))
	for _, key := range keys {
		dataset, err := env.registry.Lookup(key.Year, key.Stage)
		if err != nil {
			return &CLIError{Code: ExitFileError, Message: fmt.Sprintf("Failed to read dataset %s: %v", key, err)}
		}
		n := len(dataset.Records)
		budget := 0
		if n >= 2 {
			budget = elo.ComparisonBudget(n)
		}
		rows = append(rows, datasetRow{
			Year:    key.Year,
			Stage:   string(key.Stage),
			Title:   key.Stage.Title(),
			Entries: n,
			Budget:  budget,
		})
	}

	switch c.Format {
	case "json":
		return outputDatasetsJSON(out, rows)
	case "csv":
		return outputDatasetsCSV(out, rows)
	default:
		return outputDatasetsTable(out, rows)
	}
}

func outputDatasetsJSON(w io.Writer, rows []datasetRow) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]any{"datasets": rows})
}

func outputDatasetsCSV(w io.Writer, rows []datasetRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"year", "stage", "title", "entries", "budget"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Year),
			row.Stage,
			row.Title,
			strconv.Itoa(row.Entries),
			strconv.Itoa(row.Budget),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func outputDatasetsTable(w io.Writer, rows []datasetRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No datasets found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tSTAGE\tTITLE\tENTRIES\tBUDGET")
	for _, row := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", row.Year, row.Stage, row.Title, row.Entries, row.Budget)
	}
	return tw.Flush()
}

// Execute implements the Commander interface for ValidateCommand
func (c *ValidateCommand) Execute([]string) error {
	global := globals(c.Global)
	out := writerOrStdout(c.out)
	if global.Version {
		return showVersion(out)
	}

	file, err := os.Open(c.Input)
	if err != nil {
		return &CLIError{
			Code:    ExitFileError,
			Message: fmt.Sprintf("Cannot open dataset file: %v", err),
			Details: map[string]any{"file": c.Input},
			Suggestions: []string{
				"Check file path and name",
			},
		}
	}
	defer file.Close()

	datasets, err := data.ParseDatasets(file)
	if err != nil {
		return &CLIError{
			Code:    ExitValidationError,
			Message: fmt.Sprintf("Dataset file is invalid: %v", err),
			Details: map[string]any{"file": c.Input},
			Suggestions: []string{
				"Every stage needs country, artist and title for each entry",
				"Stages must be named semi1, semi2 or final",
				"A country may appear only once per stage",
			},
		}
	}

	fmt.Fprintf(out, "✓ %s is valid: %d stage(s) for %d\n", c.Input, len(datasets), datasets[0].Key.Year)
	for _, dataset := range datasets {
		n := len(dataset.Records)
		budget := 0
		if n >= 2 {
			budget = elo.ComparisonBudget(n)
		}
		fmt.Fprintf(out, "\n%s: %d entries, %d comparisons\n", dataset.Key.Stage.Title(), n, budget)
		for i, record := range dataset.Records {
			if i >= c.Preview {
				fmt.Fprintf(out, "  ... and %d more\n", n-i)
				break
			}
			fmt.Fprintf(out, "  %2d. %s\n", i+1, record)
		}
	}
	return nil
}

// environment carries what every command needs after start-up
type environment struct {
	config   *data.Config
	registry *data.Registry
	log      logger.Logger
	logFile  *os.File
}

// Close releases the log file, if one was opened
func (e *environment) Close() {
	if e.logFile != nil {
		_ = e.logFile.Close()
	}
}

// setup loads the configuration, initializes logging and builds the dataset registry.
// console receives logs when --verbose is set and no log file is configured.
func setup(global *GlobalOptions, dataDir string, console io.Writer) (*environment, error) {
	cfg, err := data.LoadConfig(global.Config)
	if err != nil {
		return nil, &CLIError{
			Code:    ExitConfigError,
			Message: fmt.Sprintf("Failed to load configuration: %v", err),
			Suggestions: []string{
				"Check configuration file syntax",
				"Use --config flag to specify different config file",
			},
		}
	}

	env := &environment{config: cfg}
	var w io.Writer = io.Discard
	if path := firstNonEmpty(global.LogFile, cfg.Log.File); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, &CLIError{
				Code:    ExitFileError,
				Message: fmt.Sprintf("Cannot open log file: %v", err),
				Details: map[string]any{"file": path},
			}
		}
		env.logFile = f
		w = f
	} else if global.Verbose && console != nil {
		w = console
	}

	logger.Init(w, logger.Format(cfg.Log.Format))
	level := cfg.Log.Level
	if global.Verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		env.Close()
		return nil, &CLIError{Code: ExitConfigError, Message: fmt.Sprintf("Invalid log level: %v", err)}
	}
	env.log = logger.Get()

	registry, err := data.DefaultRegistry()
	if err != nil {
		env.Close()
		return nil, &CLIError{Code: ExitFileError, Message: fmt.Sprintf("Failed to load built-in datasets: %v", err)}
	}
	if dir := firstNonEmpty(dataDir, cfg.Data.Dir); dir != "" {
		if err := registry.LoadDir(dir); err != nil {
			env.Close()
			return nil, &CLIError{
				Code:    ExitFileError,
				Message: fmt.Sprintf("Failed to load datasets: %v", err),
				Details: map[string]any{"dir": dir},
				Suggestions: []string{
					"Validate each file with 'escelo validate --input <file>'",
				},
			}
		}
	}
	env.registry = registry
	env.log.Debug("datasets loaded", logger.Int("count", registry.Len()))
	return env, nil
}

func parseStage(s string) (data.Stage, error) {
	stage, err := data.ParseStage(s)
	if err != nil {
		return "", &CLIError{
			Code:        ExitValidationError,
			Message:     fmt.Sprintf("Invalid stage: %v", err),
			Details:     map[string]any{"stage": s},
			Suggestions: []string{"Use one of semi1, semi2 or final"},
		}
	}
	return stage, nil
}

// resolveYear returns year, or the newest registered year when year is 0
func resolveYear(registry *data.Registry, year int) int {
	if year != 0 {
		return year
	}
	if years := registry.Years(); len(years) > 0 {
		return years[0]
	}
	return 0
}

func newExporter(format string, precision int) (*journal.Exporter, error) {
	options := journal.DefaultExportOptions()
	if format != "" {
		f, err := journal.ParseFormat(format)
		if err != nil {
			return nil, &CLIError{
				Code:        ExitValidationError,
				Message:     fmt.Sprintf("Invalid export format: %v", err),
				Suggestions: []string{"Use one of csv, json, yaml or text"},
			}
		}
		options.Format = f
	}
	options.Precision = precision
	return journal.NewExporter(options), nil
}

// newSource returns a seeded source for pair selection, or nil for the process-wide one
func newSource(seed uint64) elo.RandomSource {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed, seed))
}

func globals(g *GlobalOptions) *GlobalOptions {
	if g == nil {
		return &GlobalOptions{}
	}
	return g
}

func writerOrStdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func showVersion(w io.Writer) error {
	_, err := fmt.Fprintf(w, "escelo %s (built %s, commit %s)\n", Version, BuildDate, GitCommit)
	return err
}
