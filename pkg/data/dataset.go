package data

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Error types for dataset lookup and parsing
var (
	ErrDatasetNotFound    = errors.New("dataset not found")
	ErrUnknownStage       = errors.New("unknown stage")
	ErrInvalidDatasetFile = errors.New("invalid dataset file")
)

//go:embed datasets/*.yaml
var embeddedDatasets embed.FS

// Stage identifies one show of a contest year
type Stage string

const (
	StageSemi1 Stage = "semi1"
	StageSemi2 Stage = "semi2"
	StageFinal Stage = "final"
)

// Stages lists the known stages in running order
var Stages = []Stage{StageSemi1, StageSemi2, StageFinal}

// ParseStage converts a stage key to a Stage
func ParseStage(s string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(s)))
	if !stage.Valid() {
		return "", fmt.Errorf("%w: %q (expected one of semi1, semi2, final)", ErrUnknownStage, s)
	}
	return stage, nil
}

// Valid reports whether the stage is one of the known stages
func (s Stage) Valid() bool {
	return s.order() >= 0
}

func (s Stage) order() int {
	for i, stage := range Stages {
		if s == stage {
			return i
		}
	}
	return -1
}

// Title returns the human-readable stage name
func (s Stage) Title() string {
	switch s {
	case StageSemi1:
		return "Semi-Final 1"
	case StageSemi2:
		return "Semi-Final 2"
	case StageFinal:
		return "Grand Final"
	default:
		return string(s)
	}
}

// DatasetKey identifies a dataset by contest year and stage
type DatasetKey struct {
	Year  int   `json:"year" yaml:"year"`
	Stage Stage `json:"stage" yaml:"stage"`
}

// String returns "year/stage"
func (k DatasetKey) String() string {
	return strconv.Itoa(k.Year) + "/" + string(k.Stage)
}

// Dataset is an ordered list of entries for one year and stage
type Dataset struct {
	Key     DatasetKey `json:"key"`
	Records []Record   `json:"records"`
}

// datasetFile is the on-disk YAML layout of one contest year
type datasetFile struct {
	Year   int                 `yaml:"year"`
	Stages map[string][]Record `yaml:"stages"`
}

// ParseDatasets decodes one YAML dataset file into its per-stage datasets
func ParseDatasets(r io.Reader) ([]Dataset, error) {
	var file datasetFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatasetFile, err)
	}
	if file.Year <= 0 {
		return nil, fmt.Errorf("%w: year must be positive, got %d", ErrInvalidDatasetFile, file.Year)
	}
	if len(file.Stages) == 0 {
		return nil, fmt.Errorf("%w: no stages defined for %d", ErrInvalidDatasetFile, file.Year)
	}

	datasets := make([]Dataset, 0, len(file.Stages))
	for name, records := range file.Stages {
		stage, err := ParseStage(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDatasetFile, err)
		}
		if err := ValidateRecords(records); err != nil {
			return nil, fmt.Errorf("%w: %d/%s: %w", ErrInvalidDatasetFile, file.Year, stage, err)
		}
		datasets = append(datasets, Dataset{Key: DatasetKey{Year: file.Year, Stage: stage}, Records: records})
	}
	sort.Slice(datasets, func(i, j int) bool {
		return datasets[i].Key.Stage.order() < datasets[j].Key.Stage.order()
	})
	return datasets, nil
}

// Registry maps (year, stage) keys to datasets
type Registry struct {
	datasets map[DatasetKey][]Record
	mutex    sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{datasets: make(map[DatasetKey][]Record)}
}

// DefaultRegistry returns a registry holding the built-in contest data
func DefaultRegistry() (*Registry, error) {
	sub, err := fs.Sub(embeddedDatasets, "datasets")
	if err != nil {
		return nil, err
	}
	registry := NewRegistry()
	if err := registry.LoadFS(sub); err != nil {
		return nil, err
	}
	return registry, nil
}

// Register adds or replaces the dataset stored under key
func (r *Registry) Register(key DatasetKey, records []Record) error {
	if !key.Stage.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStage, key.Stage)
	}
	if key.Year <= 0 {
		return fmt.Errorf("%w: year must be positive, got %d", ErrInvalidDatasetFile, key.Year)
	}
	if err := ValidateRecords(records); err != nil {
		return err
	}

	stored := make([]Record, len(records))
	copy(stored, records)
	for i := range stored {
		stored[i].Year = key.Year
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.datasets[key] = stored
	return nil
}

// LoadFS registers every *.yaml and *.yml file at the root of fsys
func (r *Registry) LoadFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}

	for _, entry := range entries {
		ext := path.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		if err := r.loadFile(fsys, entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

// LoadDir registers every dataset file found in dir
func (r *Registry) LoadDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to access data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidDatasetFile, dir)
	}
	return r.LoadFS(os.DirFS(dir))
}

// LoadFile registers the datasets of a single YAML file
func (r *Registry) LoadFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return r.register(filename, file)
}

func (r *Registry) loadFile(fsys fs.FS, name string) error {
	file, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open dataset file %s: %w", name, err)
	}
	defer func() { _ = file.Close() }()

	return r.register(name, file)
}

func (r *Registry) register(name string, reader io.Reader) error {
	datasets, err := ParseDatasets(reader)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for _, ds := range datasets {
		if err := r.Register(ds.Key, ds.Records); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Lookup returns a copy of the dataset registered under year and stage
func (r *Registry) Lookup(year int, stage Stage) (Dataset, error) {
	key := DatasetKey{Year: year, Stage: stage}

	r.mutex.RLock()
	records, ok := r.datasets[key]
	r.mutex.RUnlock()

	if !ok {
		return Dataset{}, fmt.Errorf("%w: %s", ErrDatasetNotFound, key)
	}

	out := make([]Record, len(records))
	copy(out, records)
	return Dataset{Key: key, Records: out}, nil
}

// Years returns the distinct years present, newest first
func (r *Registry) Years() []int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	seen := make(map[int]bool)
	years := make([]int, 0)
	for key := range r.datasets {
		if !seen[key.Year] {
			seen[key.Year] = true
			years = append(years, key.Year)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// Keys returns all registered keys, newest year first and stages in running order
func (r *Registry) Keys() []DatasetKey {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	keys := make([]DatasetKey, 0, len(r.datasets))
	for key := range r.datasets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year > keys[j].Year
		}
		return keys[i].Stage.order() < keys[j].Stage.order()
	})
	return keys
}

// StagesFor returns the stages registered for year in running order
func (r *Registry) StagesFor(year int) []Stage {
	stages := make([]Stage, 0, len(Stages))
	for _, key := range r.Keys() {
		if key.Year == year {
			stages = append(stages, key.Stage)
		}
	}
	return stages
}

// Len returns the number of registered datasets
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.datasets)
}
