package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/shoresim/internal/matlab"
)

const (
	DefaultRuntime  = "matlab"
	DefaultFunction = "ShorelineS"
	DateFormat      = "2006-01-02"
)

// RequiredKeys must be present in every parameter file.
var RequiredKeys = []string{"reftime", "endofsimulation", "dt", "storageinterval"}

// DefaultFields are the engine outputs tabulated when output.fields is unset.
var DefaultFields = []string{"x", "y"}

var runtimes = map[string]bool{"matlab": true, "octave": true}

// SimulationConfig is a parsed ShorelineS parameter file.
type SimulationConfig struct {
	ConfigVersion string `yaml:"config_version,omitempty"`
	Description   string `yaml:"description,omitempty"`
	ProjectRoot   string `yaml:"project_root,omitempty"`

	RefTime         Date    `yaml:"reftime"`
	EndOfSimulation Date    `yaml:"endofsimulation"`
	Dt              float64 `yaml:"dt"`
	StorageInterval float64 `yaml:"storageinterval"`

	D                *float64 `yaml:"d,omitempty"`
	Hso              *float64 `yaml:"Hso,omitempty"`
	Tper             *float64 `yaml:"tper,omitempty"`
	PhiW0            *float64 `yaml:"phiw0,omitempty"`
	Spread           *float64 `yaml:"spread,omitempty"`
	Ds0              *float64 `yaml:"ds0,omitempty"`
	DDeep            *float64 `yaml:"ddeep,omitempty"`
	DNearshore       *float64 `yaml:"dnearshore,omitempty"`
	TransportFormula string   `yaml:"trform,omitempty"`
	B                *float64 `yaml:"b,omitempty"`
	QScale           *float64 `yaml:"qscal,omitempty"`

	XMC []*float64 `yaml:"x_mc,omitempty"`
	YMC []*float64 `yaml:"y_mc,omitempty"`

	LDBCoastline string   `yaml:"LDBcoastline,omitempty"`
	LDBNourish   string   `yaml:"LDBnourish,omitempty"`
	FNorFile     string   `yaml:"fnorfile,omitempty"`
	OutputDir    string   `yaml:"outputdir,omitempty"`
	LDBPlot      []string `yaml:"LDBplot,omitempty"`

	Extra map[string]any `yaml:"extra,omitempty"`

	Engine EngineConfig `yaml:"engine,omitempty"`
	Output OutputConfig `yaml:"output,omitempty"`

	// path of the file this config was loaded from, if any
	source string
}

type EngineConfig struct {
	Runtime    string        `yaml:"runtime,omitempty"`
	Executable string        `yaml:"executable,omitempty"`
	ModelDir   string        `yaml:"model_dir,omitempty"`
	Function   string        `yaml:"function,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

type OutputConfig struct {
	Fields    []string `yaml:"fields,omitempty"`
	Timesteps int      `yaml:"timesteps,omitempty"`
	Points    int      `yaml:"points,omitempty"`
}

// Date is a calendar date (optionally with a clock) as ShorelineS reads it.
type Date struct {
	time.Time
}

var dateLayouts = []string{DateFormat, "2006-01-02 15:04:05", "2006-01-02T15:04:05", time.RFC3339}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{t}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q (want %s)", s, DateFormat)
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: date must be a scalar", value.Line)
	}
	parsed, err := ParseDate(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = parsed
	return nil
}

func (d Date) MarshalYAML() (any, error) {
	return matlab.FormatDate(d.Time), nil
}

func (d Date) String() string { return matlab.FormatDate(d.Time) }

func DefaultConfig() *SimulationConfig {
	return &SimulationConfig{
		Engine: EngineConfig{
			Runtime:  DefaultRuntime,
			Function: DefaultFunction,
		},
		Output: OutputConfig{
			Fields: append([]string(nil), DefaultFields...),
		},
	}
}

// Load reads and validates a parameter file. Relative paths inside the file
// are resolved against the file's directory.
func Load(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data, abs)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a parameter document. source names the document in errors
// and anchors relative paths; it may be empty.
func Parse(data []byte, source string) (*SimulationConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, newParseError(source, err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == 0 {
		// empty document
		root = &yaml.Node{Kind: yaml.MappingNode}
	}
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Path: source, Line: root.Line, Err: fmt.Errorf("top level must be a mapping")}
	}

	if err := checkKeys(root, reflect.TypeOf(SimulationConfig{}), ""); err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(root.Content)/2)
	for i := 0; i < len(root.Content); i += 2 {
		present[root.Content[i].Value] = true
	}
	for _, key := range RequiredKeys {
		if !present[key] {
			return nil, &ConfigurationError{Key: key, Err: ErrMissingKey}
		}
	}

	cfg := DefaultConfig()
	if err := root.Decode(cfg); err != nil {
		return nil, newParseError(source, err)
	}
	cfg.source = source
	cfg.ApplyDefaults()

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *SimulationConfig) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Source returns the absolute path the config was loaded from.
func (c *SimulationConfig) Source() string { return c.source }

// ApplyDefaults fills unset engine and output settings.
func (c *SimulationConfig) ApplyDefaults() {
	if c.Engine.Runtime == "" {
		c.Engine.Runtime = DefaultRuntime
	}
	if c.Engine.Function == "" {
		c.Engine.Function = DefaultFunction
	}
	if len(c.Output.Fields) == 0 {
		c.Output.Fields = append([]string(nil), DefaultFields...)
	}
}

// Validate checks value constraints. It is run by Load and is exported for
// configs built in code.
func Validate(c *SimulationConfig) error {
	if c.RefTime.IsZero() {
		return &ConfigurationError{Key: "reftime", Err: ErrMissingKey}
	}
	if c.EndOfSimulation.IsZero() {
		return &ConfigurationError{Key: "endofsimulation", Err: ErrMissingKey}
	}
	if !c.EndOfSimulation.After(c.RefTime.Time) {
		return invalid("endofsimulation", "must be after reftime %s", c.RefTime)
	}
	if !(c.Dt > 0) {
		return invalid("dt", "must be positive, got %v", c.Dt)
	}
	if !(c.StorageInterval > 0) {
		return invalid("storageinterval", "must be positive, got %v", c.StorageInterval)
	}
	if len(c.XMC) != len(c.YMC) {
		return invalid("y_mc", "has %d entries but x_mc has %d", len(c.YMC), len(c.XMC))
	}
	if c.Engine.Runtime != "" && !runtimes[c.Engine.Runtime] {
		return invalid("engine.runtime", "unknown runtime %q (available: matlab, octave)", c.Engine.Runtime)
	}
	if c.Engine.Function != "" && !matlab.IsIdentifier(c.Engine.Function) {
		return invalid("engine.function", "%q is not a function name", c.Engine.Function)
	}
	if c.Engine.Timeout < 0 {
		return invalid("engine.timeout", "must not be negative")
	}
	seen := make(map[string]bool)
	for _, f := range c.Output.Fields {
		if !matlab.IsIdentifier(f) {
			return invalid("output.fields", "%q is not a field name", f)
		}
		if f == IterationField {
			return invalid("output.fields", "%q is the time axis and cannot be a column", f)
		}
		if seen[f] {
			return invalid("output.fields", "duplicate field %q", f)
		}
		seen[f] = true
	}
	if c.Output.Timesteps < 0 || c.Output.Points < 0 {
		return invalid("output", "declared dimensions must not be negative")
	}

	typed := typedKeys()
	for key, v := range c.Extra {
		name := "extra." + key
		if !matlab.IsIdentifier(key) {
			return invalid(name, "not a valid parameter name")
		}
		if typed[key] {
			return invalid(name, "duplicates the top-level key %q", key)
		}
		if _, err := matlab.Encode(v); err != nil {
			return invalid(name, "%v", err)
		}
	}
	return nil
}

// IterationField is the engine output holding the iteration counter of
// every stored step.
const IterationField = "it"

// Parameters builds the struct passed to the model: required keys first,
// then the optional typed keys that are set, then extra keys sorted.
func (c *SimulationConfig) Parameters() (*matlab.Struct, error) {
	s := matlab.NewStruct()
	set := func(name string, v any) error {
		if err := s.Set(name, v); err != nil {
			return &ConfigurationError{Key: name, Err: ErrInvalidValue, Detail: err.Error()}
		}
		return nil
	}

	entries := []struct {
		key string
		val any
		ok  bool
	}{
		{"reftime", c.RefTime.Time, true},
		{"endofsimulation", c.EndOfSimulation.Time, true},
		{"dt", c.Dt, true},
		{"storageinterval", c.StorageInterval, true},
		{"d", c.D, c.D != nil},
		{"Hso", c.Hso, c.Hso != nil},
		{"tper", c.Tper, c.Tper != nil},
		{"phiw0", c.PhiW0, c.PhiW0 != nil},
		{"spread", c.Spread, c.Spread != nil},
		{"ds0", c.Ds0, c.Ds0 != nil},
		{"ddeep", c.DDeep, c.DDeep != nil},
		{"dnearshore", c.DNearshore, c.DNearshore != nil},
		{"trform", c.TransportFormula, c.TransportFormula != ""},
		{"b", c.B, c.B != nil},
		{"qscal", c.QScale, c.QScale != nil},
		{"x_mc", c.XMC, len(c.XMC) > 0},
		{"y_mc", c.YMC, len(c.YMC) > 0},
		{"LDBcoastline", c.LDBCoastline, c.LDBCoastline != ""},
		{"LDBnourish", c.LDBNourish, c.LDBNourish != ""},
		{"fnorfile", c.FNorFile, c.FNorFile != ""},
		{"outputdir", c.OutputDir, c.OutputDir != ""},
		{"LDBplot", c.LDBPlot, len(c.LDBPlot) > 0},
	}
	for _, e := range entries {
		if !e.ok {
			continue
		}
		if err := set(e.key, e.val); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := set(k, c.Extra[k]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// EnsureOutputDir creates the model's output directory when one is set.
func (c *SimulationConfig) EnsureOutputDir() error {
	if c.OutputDir == "" {
		return nil
	}
	return os.MkdirAll(c.OutputDir, 0755)
}

// TimeStep returns the model time step as a duration. dt is in years of 365
// days.
func (c *SimulationConfig) TimeStep() time.Duration {
	return time.Duration(math.Round(c.Dt * 365 * 24 * float64(time.Hour)))
}

func (c *SimulationConfig) resolvePaths() error {
	base := "."
	if c.source != "" {
		base = filepath.Dir(c.source)
	}
	// parameter files usually sit in a configs/ directory beside their data
	root := c.ProjectRoot
	if root == "" {
		root = base
		if c.source != "" {
			root = filepath.Dir(base)
		}
	} else if !filepath.IsAbs(root) {
		root = filepath.Join(base, root)
	}
	root = filepath.Clean(root)
	c.ProjectRoot = root

	inputs := []struct {
		key   string
		field *string
		must  bool
	}{
		{"LDBcoastline", &c.LDBCoastline, true},
		{"LDBnourish", &c.LDBNourish, true},
		{"fnorfile", &c.FNorFile, true},
		{"outputdir", &c.OutputDir, false},
	}
	for _, in := range inputs {
		if *in.field == "" {
			continue
		}
		p := *in.field
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		p = filepath.Clean(p)
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return invalid(in.key, "path %q is outside the project root %s", *in.field, root)
		}
		if in.must {
			if _, err := os.Stat(p); err != nil {
				return invalid(in.key, "%v", err)
			}
		}
		*in.field = p
	}

	if c.Engine.ModelDir != "" && !filepath.IsAbs(c.Engine.ModelDir) {
		c.Engine.ModelDir = filepath.Clean(filepath.Join(base, c.Engine.ModelDir))
	}
	return nil
}

// checkKeys rejects mapping keys with no matching yaml tag, descending into
// nested struct sections.
func checkKeys(node *yaml.Node, t reflect.Type, prefix string) error {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	fields := yamlFields(t)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		ft, ok := fields[key]
		if !ok {
			return &ConfigurationError{Key: prefix + key, Err: ErrUnknownKey, Line: node.Content[i].Line}
		}
		if ft.Kind() == reflect.Struct && ft != reflect.TypeOf(Date{}) {
			if err := checkKeys(node.Content[i+1], ft, prefix+key+"."); err != nil {
				return err
			}
		}
	}
	return nil
}

func yamlFields(t reflect.Type) map[string]reflect.Type {
	out := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		out[name] = f.Type
	}
	return out
}

// typedKeys are the top-level keys an extra entry must not shadow.
func typedKeys() map[string]bool {
	out := make(map[string]bool)
	for k := range yamlFields(reflect.TypeOf(SimulationConfig{})) {
		out[k] = true
	}
	return out
}

var lineRe = regexp.MustCompile(`line (\d+)`)

func newParseError(source string, err error) *ParseError {
	pe := &ParseError{Path: source, Err: err}
	if m := lineRe.FindStringSubmatch(err.Error()); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
	}
	return pe
}

func invalid(key, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Key: key, Err: ErrInvalidValue, Detail: fmt.Sprintf(format, args...)}
}
