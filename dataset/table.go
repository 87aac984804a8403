// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/zeebo/errs"
	"gonum.org/v1/gonum/stat"
)

// Error is the default dataset errs class.
var Error = errs.Class("dataset")

// ErrValidation is returned when a dataset breaks a structural invariant.
var ErrValidation = errs.Class("dataset validation")

const csvDateLayout = "2006-01-02"

// Table is a numeric table keyed by a monotonic, deduplicated time index.
// Missing observations are NaN. The zero value is an empty table.
type Table struct {
	index   []time.Time
	columns []string
	values  [][]float64 // values[row][col]
}

// NewTable builds a table from an index, ordered column ids and row-major
// values. Rows are sorted by timestamp; duplicate timestamps and ragged
// rows are rejected.
func NewTable(index []time.Time, columns []string, values [][]float64) (Table, error) {
	if len(values) != len(index) {
		return Table{}, ErrValidation.New("row count %d does not match index length %d", len(values), len(index))
	}
	for i, row := range values {
		if len(row) != len(columns) {
			return Table{}, ErrValidation.New("row %d has %d values, expected %d", i, len(row), len(columns))
		}
	}
	seen := make(map[string]bool, len(columns))
	for _, column := range columns {
		if column == "" {
			return Table{}, ErrValidation.New("empty column id")
		}
		if seen[column] {
			return Table{}, ErrValidation.New("duplicate column id %q", column)
		}
		seen[column] = true
	}

	table := Table{
		index:   append([]time.Time(nil), index...),
		columns: append([]string(nil), columns...),
		values:  make([][]float64, len(values)),
	}
	for i, row := range values {
		table.values[i] = append([]float64(nil), row...)
	}

	order := make([]int, len(table.index))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return table.index[order[i]].Before(table.index[order[j]])
	})
	sortedIndex := make([]time.Time, len(order))
	sortedValues := make([][]float64, len(order))
	for i, from := range order {
		sortedIndex[i] = table.index[from]
		sortedValues[i] = table.values[from]
	}
	for i := 1; i < len(sortedIndex); i++ {
		if sortedIndex[i].Equal(sortedIndex[i-1]) {
			return Table{}, ErrValidation.New("duplicate timestamp %s", sortedIndex[i].Format(csvDateLayout))
		}
	}
	table.index = sortedIndex
	table.values = sortedValues

	return table, nil
}

// Len returns the number of rows.
func (table Table) Len() int { return len(table.index) }

// NumColumns returns the number of columns.
func (table Table) NumColumns() int { return len(table.columns) }

// Index returns a copy of the time index.
func (table Table) Index() []time.Time {
	return append([]time.Time(nil), table.index...)
}

// Columns returns a copy of the ordered column ids.
func (table Table) Columns() []string {
	return append([]string(nil), table.columns...)
}

// At returns the value at row i, column j.
func (table Table) At(i, j int) float64 { return table.values[i][j] }

// Time returns the timestamp of row i.
func (table Table) Time(i int) time.Time { return table.index[i] }

// ColumnIndex returns the position of a column id, or -1 when absent.
func (table Table) ColumnIndex(id string) int {
	for j, column := range table.columns {
		if column == id {
			return j
		}
	}
	return -1
}

// Column returns a copy of one column's values.
func (table Table) Column(id string) ([]float64, error) {
	j := table.ColumnIndex(id)
	if j < 0 {
		return nil, Error.New("unknown column %q", id)
	}
	out := make([]float64, len(table.values))
	for i, row := range table.values {
		out[i] = row[j]
	}
	return out, nil
}

// Copy returns a deep copy sharing no mutable state with the original.
func (table Table) Copy() Table {
	clone := Table{
		index:   append([]time.Time(nil), table.index...),
		columns: append([]string(nil), table.columns...),
		values:  make([][]float64, len(table.values)),
	}
	for i, row := range table.values {
		clone.values[i] = append([]float64(nil), row...)
	}
	return clone
}

// Select returns a table restricted to the given columns, in the given
// order.
func (table Table) Select(ids []string) (Table, error) {
	positions := make([]int, len(ids))
	for k, id := range ids {
		j := table.ColumnIndex(id)
		if j < 0 {
			return Table{}, Error.New("unknown column %q", id)
		}
		positions[k] = j
	}
	values := make([][]float64, len(table.values))
	for i, row := range table.values {
		selected := make([]float64, len(positions))
		for k, j := range positions {
			selected[k] = row[j]
		}
		values[i] = selected
	}
	return Table{
		index:   append([]time.Time(nil), table.index...),
		columns: append([]string(nil), ids...),
		values:  values,
	}, nil
}

// Reindex aligns the table to a new index, filling rows absent from the
// original with NaN.
func (table Table) Reindex(index []time.Time) Table {
	lookup := make(map[int64]int, len(table.index))
	for i, t := range table.index {
		lookup[t.Unix()] = i
	}
	values := make([][]float64, len(index))
	for i, t := range index {
		row := make([]float64, len(table.columns))
		if from, ok := lookup[t.Unix()]; ok {
			copy(row, table.values[from])
		} else {
			for j := range row {
				row[j] = math.NaN()
			}
		}
		values[i] = row
	}
	return Table{
		index:   append([]time.Time(nil), index...),
		columns: append([]string(nil), table.columns...),
		values:  values,
	}
}

// Head returns the leading n rows.
func (table Table) Head(n int) Table {
	if n > len(table.index) {
		n = len(table.index)
	}
	out := Table{
		index:   append([]time.Time(nil), table.index[:n]...),
		columns: append([]string(nil), table.columns...),
		values:  make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		out.values[i] = append([]float64(nil), table.values[i]...)
	}
	return out
}

// NotNullCount returns the number of non-NaN cells across the whole table.
func (table Table) NotNullCount() int {
	count := 0
	for _, row := range table.values {
		for _, v := range row {
			if !math.IsNaN(v) {
				count++
			}
		}
	}
	return count
}

func (table Table) columnObservations(j int) []float64 {
	var observed []float64
	for _, row := range table.values {
		if !math.IsNaN(row[j]) {
			observed = append(observed, row[j])
		}
	}
	return observed
}

// ColumnMean returns the mean of a column's non-NaN values, NaN when the
// column is empty.
func (table Table) ColumnMean(j int) float64 {
	observed := table.columnObservations(j)
	if len(observed) == 0 {
		return math.NaN()
	}
	return stat.Mean(observed, nil)
}

// ColumnStdDev returns the sample standard deviation of a column's non-NaN
// values, NaN when fewer than two observations exist.
func (table Table) ColumnStdDev(j int) float64 {
	observed := table.columnObservations(j)
	if len(observed) < 2 {
		return math.NaN()
	}
	return stat.StdDev(observed, nil)
}

// WriteCSV writes the table with a date column and the column ids as
// header. NaN cells are written empty.
func (table Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	header := append([]string{"date"}, table.columns...)
	if err := writer.Write(header); err != nil {
		return Error.Wrap(err)
	}
	record := make([]string, len(table.columns)+1)
	for i, t := range table.index {
		record[0] = t.Format(csvDateLayout)
		for j, v := range table.values[i] {
			if math.IsNaN(v) {
				record[j+1] = ""
			} else {
				record[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := writer.Write(record); err != nil {
			return Error.Wrap(err)
		}
	}
	writer.Flush()
	return Error.Wrap(writer.Error())
}

// ReadCSV parses a table written by WriteCSV.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, Error.Wrap(err)
	}
	if len(records) == 0 {
		return Table{}, Error.New("empty csv")
	}
	header := records[0]
	if len(header) < 2 {
		return Table{}, Error.New("csv needs a date column and at least one indicator")
	}
	columns := header[1:]
	index := make([]time.Time, 0, len(records)-1)
	values := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != len(header) {
			return Table{}, Error.New("ragged csv row")
		}
		t, err := time.Parse(csvDateLayout, record[0])
		if err != nil {
			return Table{}, Error.Wrap(err)
		}
		row := make([]float64, len(columns))
		for j, cell := range record[1:] {
			if cell == "" {
				row[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return Table{}, Error.Wrap(err)
			}
			row[j] = v
		}
		index = append(index, t)
		values = append(values, row)
	}
	return NewTable(index, columns, values)
}
