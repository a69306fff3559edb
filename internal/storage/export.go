package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/san-kum/shoresim/internal/result"
)

var fixedHeader = []string{"time", "step", "iteration", "point"}

// ErrBadTable indicates a stored table that cannot be read back.
var ErrBadTable = errors.New("storage: malformed table")

// ExportCSV writes one line per row: time, step, iteration, point, then the
// table's columns. Floats use the shortest exact representation so a table
// reads back unchanged.
func ExportCSV(w io.Writer, table *result.Table) error {
	cw := csv.NewWriter(w)

	header := append(append([]string(nil), fixedHeader...), table.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, r := range table.Rows {
		record[0] = r.Time.Format(time.RFC3339Nano)
		record[1] = strconv.Itoa(r.Step)
		record[2] = formatFloat(table.Iterations[r.Step])
		record[3] = strconv.Itoa(r.Point)
		for i, v := range r.Values {
			record[4+i] = formatFloat(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by ExportCSV.
func ReadCSV(r io.Reader) (*result.Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header", ErrBadTable)
	}

	header := records[0]
	if len(header) < len(fixedHeader) {
		return nil, fmt.Errorf("%w: short header %v", ErrBadTable, header)
	}
	for i, name := range fixedHeader {
		if header[i] != name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadTable, i, header[i], name)
		}
	}

	table := &result.Table{
		Columns:    append([]string(nil), header[len(fixedHeader):]...),
		Times:      []time.Time{},
		Iterations: []float64{},
		Rows:       make([]result.Row, 0, len(records)-1),
	}

	for n, rec := range records[1:] {
		line := n + 2
		t, err := time.Parse(time.RFC3339Nano, rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadTable, line, err)
		}
		step, err1 := strconv.Atoi(rec[1])
		iter, err2 := strconv.ParseFloat(rec[2], 64)
		point, err3 := strconv.Atoi(rec[3])
		if err := errors.Join(err1, err2, err3); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadTable, line, err)
		}

		if step == len(table.Times) {
			table.Times = append(table.Times, t)
			table.Iterations = append(table.Iterations, iter)
		} else if step != len(table.Times)-1 {
			return nil, fmt.Errorf("%w: line %d: step %d out of order", ErrBadTable, line, step)
		}
		if step == 0 {
			table.Points = point + 1
		}

		vals := make([]float64, len(table.Columns))
		for i := range vals {
			v, err := strconv.ParseFloat(rec[len(fixedHeader)+i], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrBadTable, line, err)
			}
			vals[i] = v
		}
		table.Rows = append(table.Rows, result.Row{Time: table.Times[step], Step: step, Point: point, Values: vals})
	}

	for i, row := range table.Rows {
		if row.Step != i/max(table.Points, 1) || row.Point != i%max(table.Points, 1) {
			return nil, fmt.Errorf("%w: row %d is (step %d, point %d)", ErrBadTable, i, row.Step, row.Point)
		}
	}
	if len(table.Rows) != table.Steps()*table.Points {
		return nil, fmt.Errorf("%w: %d rows for %d steps of %d points", ErrBadTable, len(table.Rows), table.Steps(), table.Points)
	}
	return table, nil
}

// ExportData is the JSON form of a run. NaN values become null.
type ExportData struct {
	Run        *RunMetadata `json:"run,omitempty"`
	Columns    []string     `json:"columns"`
	Points     int          `json:"points"`
	Times      []time.Time  `json:"times"`
	Iterations []float64    `json:"iterations"`
	Rows       []exportRow  `json:"rows"`
}

type exportRow struct {
	Time   time.Time  `json:"time"`
	Step   int        `json:"step"`
	Point  int        `json:"point"`
	Values []*float64 `json:"values"`
}

// ExportJSON writes table, and meta when non-nil, as indented JSON.
func ExportJSON(w io.Writer, meta *RunMetadata, table *result.Table) error {
	data := ExportData{
		Run:        meta,
		Columns:    table.Columns,
		Points:     table.Points,
		Times:      table.Times,
		Iterations: table.Iterations,
		Rows:       make([]exportRow, len(table.Rows)),
	}
	for i, r := range table.Rows {
		vals := make([]*float64, len(r.Values))
		for j, v := range r.Values {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals[j] = &v
			}
		}
		data.Rows[i] = exportRow{Time: r.Time, Step: r.Step, Point: r.Point, Values: vals}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
