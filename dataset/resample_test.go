// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package dataset_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"econuy.io/econuy/dataset"
)

func dailyJanuary(t *testing.T) *dataset.Dataset {
	t.Helper()
	index := make([]time.Time, 31)
	values := make([][]float64, 31)
	for i := 0; i < 31; i++ {
		index[i] = day(2020, time.January, i+1)
		values[i] = []float64{float64(i + 1)}
	}
	return testDataset(t, "daily", []string{"daily_0"}, index, values)
}

func TestResampleDailySumToMonthly(t *testing.T) {
	d := dailyJanuary(t)

	out, err := d.Resample(dataset.Monthly, dataset.ResampleSum, dataset.ResampleOptions{})
	require.NoError(t, err)

	data := out.Data()
	require.Equal(t, 1, data.Len())
	require.Equal(t, day(2020, time.January, 31), data.Time(0))
	// 1 + 2 + ... + 31
	require.Equal(t, 496.0, data.At(0, 0))
}

func TestResampleDailyLastToMonthly(t *testing.T) {
	d := dailyJanuary(t)

	out, err := d.Resample(dataset.Monthly, dataset.ResampleLast, dataset.ResampleOptions{})
	require.NoError(t, err)

	data := out.Data()
	require.Equal(t, 1, data.Len())
	require.Equal(t, 31.0, data.At(0, 0))
}

func TestResampleInvalidOperation(t *testing.T) {
	d := dailyJanuary(t)

	_, err := d.Resample(dataset.Monthly, "median", dataset.ResampleOptions{})
	require.Error(t, err)
	require.True(t, dataset.ErrInvalidArgument.Has(err))
}

func TestResampleMonthlyMeanToQuarterly(t *testing.T) {
	index := monthEnds(day(2020, time.January, 1), 6)
	d := testDataset(t, "monthly", []string{"m_0"}, index,
		[][]float64{{1}, {2}, {3}, {4}, {5}, {6}})

	out, err := d.Resample(dataset.Quarterly, dataset.ResampleMean, dataset.ResampleOptions{})
	require.NoError(t, err)

	data := out.Data()
	require.Equal(t, 2, data.Len())
	require.Equal(t, 2.0, data.At(0, 0))
	require.Equal(t, 5.0, data.At(1, 0))
	require.Equal(t, day(2020, time.March, 31), data.Time(0))
	require.Equal(t, day(2020, time.June, 30), data.Time(1))
}

func TestResampleTrimsIncompleteBins(t *testing.T) {
	// Only two months of the second quarter are present, so its mean
	// must be masked rather than computed from a partial bin.
	index := monthEnds(day(2020, time.January, 1), 5)
	d := testDataset(t, "monthly", []string{"m_0"}, index,
		[][]float64{{1}, {2}, {3}, {4}, {5}})

	out, err := d.Resample(dataset.Quarterly, dataset.ResampleSum, dataset.ResampleOptions{})
	require.NoError(t, err)

	data := out.Data()
	require.Equal(t, 1, data.Len())
	require.Equal(t, 6.0, data.At(0, 0))
}

func TestResampleTableUnrankedFrequencySkipsTrimming(t *testing.T) {
	index := monthEnds(day(2020, time.January, 1), 3)
	table, err := dataset.NewTable(index, []string{"a"}, [][]float64{{1}, {2}, {3}})
	require.NoError(t, err)

	out, err := dataset.ResampleTable(table, dataset.Unknown, dataset.Quarterly,
		dataset.ResampleSum, dataset.ResampleOptions{Warn: true, Log: zaptest.NewLogger(t)})
	require.NoError(t, err)

	// The base frequency cannot be ranked, so the partial bucket is kept.
	require.Equal(t, 1, out.Len())
	require.Equal(t, 6.0, out.At(0, 0))
}

func TestUpsampleQuarterlyToMonthly(t *testing.T) {
	index := []time.Time{
		day(2020, time.March, 31), day(2020, time.June, 30),
		day(2020, time.September, 30), day(2020, time.December, 31),
	}
	d := testDataset(t, "quarterly", []string{"q_0"}, index,
		[][]float64{{3}, {6}, {9}, {12}})

	out, err := d.Resample(dataset.Monthly, dataset.ResampleUpsample,
		dataset.ResampleOptions{Interpolation: dataset.InterpolationNone})
	require.NoError(t, err)

	data := out.Data()
	require.Equal(t, 10, data.Len())
	require.Equal(t, 3.0, data.At(0, 0))
	require.True(t, math.IsNaN(data.At(1, 0)))
	require.True(t, math.IsNaN(data.At(2, 0)))
	require.Equal(t, 6.0, data.At(3, 0))
}

func TestUpsampleLinearInterpolation(t *testing.T) {
	index := []time.Time{day(2020, time.March, 31), day(2020, time.June, 30)}
	d := testDataset(t, "quarterly", []string{"q_0"}, index,
		[][]float64{{3}, {6}})

	out, err := d.Resample(dataset.Monthly, dataset.ResampleUpsample,
		dataset.ResampleOptions{Interpolation: dataset.InterpolationLinear})
	require.NoError(t, err)

	data := out.Data()
	require.Equal(t, 4, data.Len())
	require.Equal(t, 3.0, data.At(0, 0))
	require.Equal(t, 6.0, data.At(3, 0))

	// April and May are linear in elapsed time between the two known
	// quarter ends.
	total := index[1].Sub(index[0]).Hours()
	april := data.Time(1).Sub(index[0]).Hours()
	require.InDelta(t, 3+3*april/total, data.At(1, 0), 1e-9)
	require.Greater(t, data.At(2, 0), data.At(1, 0))
}

func TestResampleRewritesFrequency(t *testing.T) {
	index := monthEnds(day(2020, time.January, 1), 12)
	values := make([][]float64, 12)
	for i := range values {
		values[i] = []float64{float64(i)}
	}
	d := testDataset(t, "monthly", []string{"m_0"}, index, values)

	out, err := d.Resample(dataset.Quarterly, dataset.ResampleMean, dataset.ResampleOptions{})
	require.NoError(t, err)

	entry, ok := out.Metadata().Get("m_0")
	require.True(t, ok)
	require.Equal(t, dataset.Quarterly, entry.Frequency)
	require.Len(t, entry.Transformations, 1)
	require.Equal(t, "resample", entry.Transformations[0].Name)
}

func TestResamplePerIndicatorWhenMetadataDiffers(t *testing.T) {
	// Three complete quarters, so the output index is long enough to
	// re-infer a quarterly frequency.
	index := monthEnds(day(2020, time.January, 1), 9)
	values := make([][]float64, 9)
	for i := range values {
		values[i] = []float64{float64(i + 1), float64(i+1) * 10}
	}
	d := testDataset(t, "mixed", []string{"flow_0", "stock_0"}, index, values)

	stock := dataset.Stock
	mixedMeta, err := d.Metadata().UpdateIndicator("stock_0", dataset.Patch{TimeSeriesType: &stock})
	require.NoError(t, err)
	mixed, err := dataset.New("mixed", d.Data(), mixedMeta)
	require.NoError(t, err)
	require.False(t, mixed.Metadata().HasCommonMetadata())

	out, err := mixed.Resample(dataset.Quarterly, dataset.ResampleSum, dataset.ResampleOptions{})
	require.NoError(t, err)

	data := out.Data()
	require.Equal(t, []string{"flow_0", "stock_0"}, data.Columns())
	require.Equal(t, 3, data.Len())
	require.Equal(t, 6.0, data.At(0, 0))
	require.Equal(t, 60.0, data.At(0, 1))

	for _, id := range out.Metadata().Indicators() {
		entry, ok := out.Metadata().Get(id)
		require.True(t, ok)
		require.Equal(t, dataset.Quarterly, entry.Frequency)
	}
}
