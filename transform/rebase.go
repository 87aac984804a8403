// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package transform

import (
	"math"
	"strconv"
	"time"

	"econuy.io/econuy/dataset"
)

// Rebase scales every indicator so its value at the reference period
// equals base. With only a start date the reference is the observation
// nearest that date; with an end date it is the average over the window.
// Unlike conversions the scaling factor is computed per column, since
// each indicator rebases against its own level.
func Rebase(d *dataset.Dataset, start time.Time, end *time.Time, base float64) (*dataset.Dataset, error) {
	if base == 0 {
		return nil, dataset.ErrInvalidArgument.New("base value must be non-zero")
	}

	unit := rebaseUnit(start, end, base)
	params := map[string]string{
		"start_date": start.Format("2006-01-02"),
		"base":       strconv.FormatFloat(base, 'f', -1, 64),
	}
	if end != nil {
		params["end_date"] = end.Format("2006-01-02")
	}

	return convertEach(d, func(single *dataset.Dataset, entry dataset.IndicatorMetadata) (dataset.Table, dataset.Metadata, error) {
		data := single.Data()
		if data.Len() == 0 {
			return dataset.Table{}, dataset.Metadata{}, Error.New("cannot rebase an empty dataset")
		}

		index := data.Index()
		columns := data.Columns()
		values := make([][]float64, data.Len())
		for i := range values {
			values[i] = make([]float64, len(columns))
		}
		for j, id := range columns {
			column, err := data.Column(id)
			if err != nil {
				return dataset.Table{}, dataset.Metadata{}, err
			}
			factor := rebaseFactor(index, column, start, end)
			for i, v := range column {
				if math.IsNaN(v) || math.IsNaN(factor) || factor == 0 {
					values[i][j] = math.NaN()
					continue
				}
				values[i][j] = v / factor * base
			}
		}

		rebased, err := dataset.NewTable(index, columns, values)
		if err != nil {
			return dataset.Table{}, dataset.Metadata{}, err
		}
		meta := single.Metadata().UpdateAll(dataset.Patch{Unit: &unit})
		meta = meta.AddStep(dataset.TransformationStep{Name: "rebase", Params: params})
		return rebased, meta, nil
	})
}

func rebaseFactor(index []time.Time, column []float64, start time.Time, end *time.Time) float64 {
	if end == nil {
		return column[nearestIndex(index, start)]
	}
	return (series{index: index, values: column}).meanBetween(start, *end)
}

func rebaseUnit(start time.Time, end *time.Time, base float64) string {
	label := start.Format("2006-01")
	if end != nil {
		endLabel := end.Format("2006-01")
		if endLabel != label {
			label += "_" + endLabel
		}
	}
	return label + "=" + strconv.FormatFloat(base, 'f', -1, 64)
}
