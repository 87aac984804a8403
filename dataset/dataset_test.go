// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package dataset_test

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"econuy.io/econuy/dataset"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func monthEnds(start time.Time, n int) []time.Time {
	index := make([]time.Time, n)
	for i := range index {
		index[i] = time.Date(start.Year(), start.Month()+time.Month(i)+1, 0, 0, 0, 0, 0, time.UTC)
	}
	return index
}

func testDataset(t *testing.T, name string, ids []string, index []time.Time, values [][]float64) *dataset.Dataset {
	t.Helper()
	table, err := dataset.NewTable(index, ids, values)
	require.NoError(t, err)
	meta, err := dataset.Cast(name, baseIndicator(), ids, nil)
	require.NoError(t, err)
	d, err := dataset.New(name, table, meta)
	require.NoError(t, err)
	return d
}

func TestNewValidatesColumnCount(t *testing.T) {
	index := monthEnds(day(2020, time.January, 1), 3)
	table, err := dataset.NewTable(index, []string{"a", "b"}, [][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)

	meta, err := dataset.Cast("test", baseIndicator(), []string{"a"}, nil)
	require.NoError(t, err)

	_, err = dataset.New("test", table, meta)
	require.Error(t, err)
	require.True(t, dataset.ErrValidation.Has(err))
}

func TestNewValidatesIndicatorColumns(t *testing.T) {
	index := monthEnds(day(2020, time.January, 1), 3)
	table, err := dataset.NewTable(index, []string{"a", "b"}, [][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)

	meta, err := dataset.Cast("test", baseIndicator(), []string{"a", "c"}, nil)
	require.NoError(t, err)

	_, err = dataset.New("test", table, meta)
	require.Error(t, err)
	require.True(t, dataset.ErrValidation.Has(err))
}

func TestNewTableRejectsDuplicateTimestamps(t *testing.T) {
	at := day(2020, time.January, 31)
	_, err := dataset.NewTable([]time.Time{at, at}, []string{"a"}, [][]float64{{1}, {2}})
	require.Error(t, err)
	require.True(t, dataset.ErrValidation.Has(err))
}

func TestNewTableSortsIndex(t *testing.T) {
	index := []time.Time{day(2020, time.March, 31), day(2020, time.January, 31), day(2020, time.February, 29)}
	table, err := dataset.NewTable(index, []string{"a"}, [][]float64{{3}, {1}, {2}})
	require.NoError(t, err)

	sorted := table.Index()
	require.True(t, sorted[0].Before(sorted[1]) && sorted[1].Before(sorted[2]))
	require.Equal(t, 1.0, table.At(0, 0))
	require.Equal(t, 3.0, table.At(2, 0))
}

func TestIndicatorSlicing(t *testing.T) {
	index := monthEnds(day(2020, time.January, 1), 3)
	d := testDataset(t, "pair", []string{"a", "b"}, index,
		[][]float64{{1, 10}, {2, 20}, {3, 30}})

	sliced, err := d.Indicator("b")
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, sliced.Metadata().Indicators())
	require.Equal(t, []string{"b"}, sliced.Data().Columns())
	require.Equal(t, 20.0, sliced.Data().At(1, 0))

	_, err = d.Indicator("missing")
	require.Error(t, err)
}

func TestInferFrequency(t *testing.T) {
	tests := []struct {
		name  string
		index []time.Time
		want  dataset.Frequency
	}{
		{"monthly", monthEnds(day(2020, time.January, 1), 6), dataset.Monthly},
		{"quarterly", []time.Time{
			day(2020, time.March, 31), day(2020, time.June, 30),
			day(2020, time.September, 30), day(2020, time.December, 31),
		}, dataset.Quarterly},
		{"daily", []time.Time{
			day(2020, time.January, 1), day(2020, time.January, 2),
			day(2020, time.January, 3), day(2020, time.January, 4),
		}, dataset.Daily},
		{"annual", []time.Time{
			day(2018, time.December, 31), day(2019, time.December, 31), day(2020, time.December, 31),
		}, dataset.Annual},
		{"too short", monthEnds(day(2020, time.January, 1), 2), dataset.Unknown},
		{"irregular", []time.Time{
			day(2020, time.January, 31), day(2020, time.February, 29), day(2020, time.July, 15),
		}, dataset.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, dataset.InferFrequency(tt.index))
		})
	}
}

func TestTableCSVRoundTrip(t *testing.T) {
	index := monthEnds(day(2021, time.January, 1), 3)
	table, err := dataset.NewTable(index, []string{"a", "b"},
		[][]float64{{1.5, math.NaN()}, {2.25, 20}, {math.NaN(), 30}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	restored, err := dataset.ReadCSV(&buf)
	require.NoError(t, err)
	require.Equal(t, table.Columns(), restored.Columns())
	require.Equal(t, table.Index(), restored.Index())
	require.Equal(t, 1.5, restored.At(0, 0))
	require.True(t, math.IsNaN(restored.At(0, 1)))
	require.Equal(t, 30.0, restored.At(2, 1))
}
