package matlab

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrBadArray indicates an exported array whose size and data disagree.
var ErrBadArray = errors.New("matlab: malformed array export")

// Array is a real two-dimensional MATLAB array. Data is stored column-major,
// as MATLAB stores it.
type Array struct {
	Rows int
	Cols int
	Data []float64
}

// NewArray builds an array from row-major rows, the way a matrix is written.
func NewArray(rows [][]float64) Array {
	if len(rows) == 0 {
		return Array{}
	}
	r, c := len(rows), len(rows[0])
	data := make([]float64, r*c)
	for i, row := range rows {
		for j := 0; j < c && j < len(row); j++ {
			data[j*r+i] = row[j]
		}
	}
	return Array{Rows: r, Cols: c, Data: data}
}

// RowVector builds a 1xN array.
func RowVector(vals ...float64) Array {
	data := make([]float64, len(vals))
	copy(data, vals)
	return Array{Rows: 1, Cols: len(vals), Data: data}
}

func (a Array) At(r, c int) float64 {
	return a.Data[c*a.Rows+r]
}

func (a Array) Len() int { return a.Rows * a.Cols }

func (a Array) IsEmpty() bool { return a.Len() == 0 }

// IsVector reports whether the array has a single row or a single column.
func (a Array) IsVector() bool {
	return a.Rows == 1 || a.Cols == 1
}

// Values returns a copy of the data in column-major order.
func (a Array) Values() []float64 {
	out := make([]float64, len(a.Data))
	copy(out, a.Data)
	return out
}

// Col returns a copy of column c.
func (a Array) Col(c int) []float64 {
	out := make([]float64, a.Rows)
	copy(out, a.Data[c*a.Rows:(c+1)*a.Rows])
	return out
}

func (a Array) String() string {
	return fmt.Sprintf("%dx%d double", a.Rows, a.Cols)
}

// wireArray is the JSON shape the engine script writes for every exported
// variable: struct('size', size(v), 'data', reshape(v, 1, [])).
type wireArray struct {
	Size []int          `json:"size"`
	Data json.RawMessage `json:"data"`
}

// DecodeArrays reads an export document mapping names to arrays. MATLAB
// writes NaN as null; it comes back as NaN.
func DecodeArrays(r io.Reader) (map[string]Array, error) {
	var doc map[string]wireArray
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArray, err)
	}
	out := make(map[string]Array, len(doc))
	for name, w := range doc {
		a, err := w.array()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = a
	}
	return out, nil
}

func (w wireArray) array() (Array, error) {
	rows, cols, err := shape(w.Size)
	if err != nil {
		return Array{}, err
	}
	data, err := decodeData(w.Data)
	if err != nil {
		return Array{}, err
	}
	if len(data) != rows*cols {
		return Array{}, fmt.Errorf("%w: size %dx%d but %d values", ErrBadArray, rows, cols, len(data))
	}
	return Array{Rows: rows, Cols: cols, Data: data}, nil
}

// shape folds trailing singleton dimensions; anything else beyond two
// dimensions is rejected.
func shape(size []int) (int, int, error) {
	if len(size) < 2 {
		return 0, 0, fmt.Errorf("%w: size %v", ErrBadArray, size)
	}
	for _, d := range size[2:] {
		if d != 1 {
			return 0, 0, fmt.Errorf("%w: %d-dimensional array", ErrBadArray, len(size))
		}
	}
	if size[0] < 0 || size[1] < 0 {
		return 0, 0, fmt.Errorf("%w: size %v", ErrBadArray, size)
	}
	return size[0], size[1], nil
}

// decodeData accepts a list, a bare number (jsonencode collapses 1x1
// arrays) or null.
func decodeData(raw json.RawMessage) ([]float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var vals []*float64
		if err := json.Unmarshal(raw, &vals); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadArray, err)
		}
		out := make([]float64, len(vals))
		for i, v := range vals {
			if v == nil {
				out[i] = math.NaN()
			} else {
				out[i] = *v
			}
		}
		return out, nil
	}
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArray, err)
	}
	if v == nil {
		return []float64{math.NaN()}, nil
	}
	return []float64{*v}, nil
}
