package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/san-kum/shoresim/internal/config"
	"github.com/san-kum/shoresim/internal/result"
)

const (
	metadataFile = "metadata.json"
	tableFile    = "table.csv"
)

// ErrRunNotFound indicates a run id with no stored run.
var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	ConfigPath      string    `json:"config_path,omitempty"`
	Runtime         string    `json:"runtime"`
	Function        string    `json:"function"`
	RefTime         string    `json:"reftime"`
	EndOfSimulation string    `json:"endofsimulation"`
	Dt              float64   `json:"dt"`
	StorageInterval float64   `json:"storageinterval"`
	Steps           int       `json:"steps"`
	Points          int       `json:"points"`
	Rows            int       `json:"rows"`
	Columns         []string  `json:"columns"`
	Elapsed         float64   `json:"elapsed_seconds"`
}

// NewMetadata summarises a finished run.
func NewMetadata(cfg *config.SimulationConfig, table *result.Table, elapsed time.Duration) RunMetadata {
	name := "shoreline"
	if src := cfg.Source(); src != "" {
		base := filepath.Base(src)
		name = base[:len(base)-len(filepath.Ext(base))]
	}
	return RunMetadata{
		Name:            name,
		Description:     cfg.Description,
		ConfigPath:      cfg.Source(),
		Runtime:         cfg.Engine.Runtime,
		Function:        cfg.Engine.Function,
		RefTime:         cfg.RefTime.String(),
		EndOfSimulation: cfg.EndOfSimulation.String(),
		Dt:              cfg.Dt,
		StorageInterval: cfg.StorageInterval,
		Steps:           table.Steps(),
		Points:          table.Points,
		Rows:            table.Len(),
		Columns:         append([]string(nil), table.Columns...),
		Elapsed:         elapsed.Seconds(),
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Save writes meta and table under a new run directory and returns the run
// id.
func (s *Store) Save(meta RunMetadata, table *result.Table) (string, error) {
	now := time.Now()
	name := unsafeChars.ReplaceAllString(meta.Name, "_")
	if name == "" {
		name = "run"
	}

	base := fmt.Sprintf("%s_%d", name, now.Unix())
	runID := base
	runDir := filepath.Join(s.baseDir, runID)
	for i := 2; ; i++ {
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", err
		}
		runID = fmt.Sprintf("%s-%d", base, i)
		runDir = filepath.Join(s.baseDir, runID)
	}

	meta.ID = runID
	meta.Name = name
	meta.Timestamp = now

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, tableFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := ExportCSV(csvFile, table); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns stored runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if !validID(runID) {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTable reads a stored run's table back.
func (s *Store) LoadTable(runID string) (*result.Table, error) {
	if !validID(runID) {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	f, err := os.Open(filepath.Join(s.baseDir, runID, tableFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	table, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return table, nil
}

// run ids name a single directory below the store
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && filepath.Base(id) == id
}
