// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package transform

import (
	"math"
	"strconv"

	"go.uber.org/zap"

	"econuy.io/econuy/dataset"
)

// RollingOp selects the aggregation used for rolling windows.
type RollingOp string

// Supported rolling operations.
const (
	RollingSum  RollingOp = "sum"
	RollingMean RollingOp = "mean"
)

// yearWindows maps a frequency to the window covering one year.
var yearWindows = map[dataset.Frequency]int{
	dataset.Annual:    1,
	dataset.Quarterly: 4,
	dataset.Monthly:   12,
}

// Rolling computes rolling sums or means over every indicator. A zero
// window covers one year of periods at the dataset's inferred frequency.
// The result's cumulative periods are set to the window and a
// transformation step is recorded.
func Rolling(log *zap.Logger, d *dataset.Dataset, window int, op RollingOp) (*dataset.Dataset, error) {
	switch op {
	case RollingSum, RollingMean:
	default:
		return nil, dataset.ErrInvalidArgument.New("rolling operation %q: must be one of sum, mean", op)
	}

	if window <= 0 {
		freq := d.InferFrequency()
		inferred, ok := yearWindows[freq]
		if !ok {
			return nil, Error.New("cannot infer a one-year window for frequency %q", freq)
		}
		window = inferred
	}

	return convertEach(d, func(single *dataset.Dataset, entry dataset.IndicatorMetadata) (dataset.Table, dataset.Metadata, error) {
		if entry.TimeSeriesType == dataset.Stock {
			log.Warn("rolling aggregations are not recommended for stock series",
				zap.String("dataset", single.Name()))
		}
		data, err := rollingTable(single.Data(), window, op)
		if err != nil {
			return dataset.Table{}, dataset.Metadata{}, err
		}
		meta := single.Metadata().UpdateAll(dataset.Patch{CumulativePeriods: &window})
		meta = meta.AddStep(dataset.TransformationStep{
			Name: "rolling",
			Params: map[string]string{
				"window":    strconv.Itoa(window),
				"operation": string(op),
			},
		})
		return data, meta, nil
	})
}

func rollingTable(data dataset.Table, window int, op RollingOp) (dataset.Table, error) {
	index := data.Index()
	columns := data.Columns()
	values := make([][]float64, data.Len())
	for i := range values {
		values[i] = make([]float64, len(columns))
		for j := range values[i] {
			values[i][j] = math.NaN()
		}
	}
	for j, id := range columns {
		column, err := data.Column(id)
		if err != nil {
			return dataset.Table{}, err
		}
		rolled := rollingSlice(column, window, op)
		for i := range rolled {
			values[i][j] = rolled[i]
		}
	}
	return dataset.NewTable(index, columns, values)
}
