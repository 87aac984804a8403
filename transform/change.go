// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package transform

import (
	"math"

	"econuy.io/econuy/dataset"
)

// ChangeOp selects between percent changes and absolute differences.
type ChangeOp string

// Supported change operations.
const (
	ChangePct  ChangeOp = "chg"
	ChangeDiff ChangeOp = "diff"
)

// ChangePeriod selects the comparison lag. Last compares against the
// previous observation, Inter against the same period one year earlier,
// Annual against the trailing year.
type ChangePeriod string

// Supported comparison periods.
const (
	PeriodLast   ChangePeriod = "last"
	PeriodInter  ChangePeriod = "inter"
	PeriodAnnual ChangePeriod = "annual"
)

// ChgDiff computes period-over-period changes for every indicator. For
// annual comparisons Flow series are first accumulated over a trailing
// year, so the change reflects yearly totals rather than single periods.
// The result's unit reflects the operation and comparison period.
func ChgDiff(d *dataset.Dataset, op ChangeOp, period ChangePeriod) (*dataset.Dataset, error) {
	switch op {
	case ChangePct, ChangeDiff:
	default:
		return nil, dataset.ErrInvalidArgument.New("change operation %q: must be one of chg, diff", op)
	}
	switch period {
	case PeriodLast, PeriodInter, PeriodAnnual:
	default:
		return nil, dataset.ErrInvalidArgument.New("change period %q: must be one of last, inter, annual", period)
	}

	freq := d.InferFrequency()
	lagYear, ok := yearWindows[freq]
	if !ok {
		return nil, Error.New("cannot compute changes for frequency %q", freq)
	}
	lag := 1
	if period != PeriodLast {
		lag = lagYear
	}

	unit := changeUnit(op, period)
	return convertEach(d, func(single *dataset.Dataset, entry dataset.IndicatorMetadata) (dataset.Table, dataset.Metadata, error) {
		data := single.Data()
		if period == PeriodAnnual && entry.TimeSeriesType == dataset.Flow {
			rolled, err := rollingTable(data, lagYear, RollingSum)
			if err != nil {
				return dataset.Table{}, dataset.Metadata{}, err
			}
			data = rolled
		}

		changed, err := lagTable(data, lag, op)
		if err != nil {
			return dataset.Table{}, dataset.Metadata{}, err
		}

		meta := single.Metadata().UpdateAll(dataset.Patch{Unit: &unit})
		meta = meta.AddStep(dataset.TransformationStep{
			Name: "chg_diff",
			Params: map[string]string{
				"operation": string(op),
				"period":    string(period),
			},
		})
		return changed, meta, nil
	})
}

func changeUnit(op ChangeOp, period ChangePeriod) string {
	unit := "Change"
	if op == ChangePct {
		unit = "Pct. change"
	}
	switch period {
	case PeriodInter:
		unit += " YoY"
	case PeriodAnnual:
		unit += " annual"
	}
	return unit
}

// lagTable applies the change operation against the value lag rows back.
// Rows without a comparison value are NaN.
func lagTable(data dataset.Table, lag int, op ChangeOp) (dataset.Table, error) {
	index := data.Index()
	columns := data.Columns()
	values := make([][]float64, data.Len())
	for i := range values {
		row := make([]float64, len(columns))
		for j := range row {
			if i < lag {
				row[j] = math.NaN()
				continue
			}
			current, previous := data.At(i, j), data.At(i-lag, j)
			switch {
			case math.IsNaN(current) || math.IsNaN(previous):
				row[j] = math.NaN()
			case op == ChangePct:
				if previous == 0 {
					row[j] = math.NaN()
				} else {
					row[j] = (current/previous - 1) * 100
				}
			default:
				row[j] = current - previous
			}
		}
		values[i] = row
	}
	return dataset.NewTable(index, columns, values)
}
