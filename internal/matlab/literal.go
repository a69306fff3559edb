package matlab

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Value is anything Encode accepts.
type Value = any

var (
	// ErrUnsupported indicates a Go value with no MATLAB literal form.
	ErrUnsupported = errors.New("matlab: unsupported value")

	// ErrInvalidName indicates a struct field name that is not a MATLAB identifier.
	ErrInvalidName = errors.New("matlab: invalid identifier")
)

// namelengthmax in MATLAB is 63.
var identRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,62}$`)

// IsIdentifier reports whether name is a valid MATLAB variable or field name.
func IsIdentifier(name string) bool {
	return identRe.MatchString(name)
}

// Field is one named entry of a Struct.
type Field struct {
	Name  string
	Value Value
}

// Struct is a scalar MATLAB struct whose fields keep insertion order.
type Struct struct {
	fields []Field
	index  map[string]int
}

func NewStruct() *Struct {
	return &Struct{index: make(map[string]int)}
}

// Set adds or replaces a field.
func (s *Struct) Set(name string, v Value) error {
	if !IsIdentifier(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if i, ok := s.index[name]; ok {
		s.fields[i].Value = v
		return nil
	}
	s.index[name] = len(s.fields)
	s.fields = append(s.fields, Field{Name: name, Value: v})
	return nil
}

func (s *Struct) Get(name string) (Value, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i].Value, true
}

func (s *Struct) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Struct) Len() int { return len(s.fields) }

// Encode renders v as a MATLAB expression.
func Encode(v Value) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NaN", nil
	case bool:
		if x {
			return "true", nil
		}
		return "false", nil
	case float64:
		return formatFloat(x), nil
	case float32:
		return formatFloat(float64(x)), nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case *float64:
		if x == nil {
			return "NaN", nil
		}
		return formatFloat(*x), nil
	case string:
		return quote(x)
	case time.Time:
		return quote(FormatDate(x))
	case []float64:
		return encodeVector(len(x), func(i int) float64 { return x[i] }), nil
	case []*float64:
		return encodeVector(len(x), func(i int) float64 {
			if x[i] == nil {
				return math.NaN()
			}
			return *x[i]
		}), nil
	case [][]float64:
		return encodeMatrix(x)
	case []string:
		return encodeCell(x)
	case []any:
		return encodeList(x)
	case map[string]any:
		return encodeMap(x)
	case *Struct:
		return encodeStruct(x)
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

// FormatDate formats t the way ShorelineS expects dates: a plain date at
// midnight, a date and clock otherwise.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func quote(s string) (string, error) {
	if strings.ContainsAny(s, "\r\n\x00") {
		return "", fmt.Errorf("%w: string with line break or NUL", ErrUnsupported)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'", nil
}

func encodeVector(n int, at func(int) float64) string {
	if n == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(formatFloat(at(i)))
	}
	b.WriteByte(']')
	return b.String()
}

func encodeMatrix(m [][]float64) (string, error) {
	if len(m) == 0 {
		return "[]", nil
	}
	cols := len(m[0])
	var b strings.Builder
	b.WriteByte('[')
	for r, row := range m {
		if len(row) != cols {
			return "", fmt.Errorf("%w: ragged matrix (row %d has %d columns, want %d)", ErrUnsupported, r, len(row), cols)
		}
		if r > 0 {
			b.WriteString("; ")
		}
		for c, v := range row {
			if c > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(formatFloat(v))
		}
	}
	b.WriteByte(']')
	return b.String(), nil
}

func encodeCell(items []string) (string, error) {
	parts := make([]string, len(items))
	for i, s := range items {
		q, err := quote(s)
		if err != nil {
			return "", err
		}
		parts[i] = q
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// encodeList handles untyped lists as they come out of YAML decoding.
func encodeList(items []any) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	numeric, text := 0, 0
	for _, it := range items {
		switch it.(type) {
		case nil, int, int64, float64, float32, int32, uint64:
			numeric++
		case string:
			text++
		}
	}
	switch {
	case numeric == len(items):
		vals := make([]float64, len(items))
		for i, it := range items {
			vals[i] = toFloat(it)
		}
		return encodeVector(len(vals), func(i int) float64 { return vals[i] }), nil
	case text == len(items):
		strs := make([]string, len(items))
		for i, it := range items {
			strs[i] = it.(string)
		}
		return encodeCell(strs)
	default:
		return "", fmt.Errorf("%w: list mixes numbers and other values", ErrUnsupported)
	}
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	}
	return math.NaN()
}

func encodeMap(m map[string]any) (string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := NewStruct()
	for _, k := range keys {
		if err := s.Set(k, m[k]); err != nil {
			return "", err
		}
	}
	return encodeStruct(s)
}

// encodeStruct uses the struct() constructor. Cell values are wrapped in an
// extra pair of braces so the constructor yields a scalar struct instead of
// a struct array.
func encodeStruct(s *Struct) (string, error) {
	if s == nil || s.Len() == 0 {
		return "struct()", nil
	}
	parts := make([]string, 0, 2*s.Len())
	for _, f := range s.fields {
		lit, err := Encode(f.Value)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", f.Name, err)
		}
		if strings.HasPrefix(lit, "{") {
			lit = "{" + lit + "}"
		}
		parts = append(parts, "'"+f.Name+"'", lit)
	}
	return "struct(" + strings.Join(parts, ", ") + ")", nil
}
