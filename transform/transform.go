// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

// Package transform implements frequency, currency, inflation and GDP
// conversions over datasets, tracking provenance in their metadata.
package transform

import (
	"context"
	"math"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"econuy.io/econuy/dataset"
)

var (
	// Error is the default transform errs class.
	Error = errs.Class("transform")

	// ErrPrecondition is returned when a dataset's metadata does not
	// satisfy a conversion's requirements.
	ErrPrecondition = errs.Class("transform precondition")

	// ErrInvalidMode is returned for an unknown error handling mode.
	ErrInvalidMode = errs.Class("invalid error handling mode")

	mon = monkit.Package()
)

// ErrorMode selects how conversion precondition failures are handled.
type ErrorMode string

// Available error handling modes. Raise propagates a typed precondition
// error. Coerce logs a warning and returns the input unchanged. Ignore
// returns the input unchanged without signaling.
const (
	Raise  ErrorMode = "raise"
	Coerce ErrorMode = "coerce"
	Ignore ErrorMode = "ignore"
)

// Valid reports whether the mode is one of the available options.
func (mode ErrorMode) Valid() bool {
	switch mode {
	case Raise, Coerce, Ignore:
		return true
	}
	return false
}

// Provider supplies reference datasets to conversions. The loader
// satisfies this interface; conversions may recursively request exchange
// rates, price indexes or GDP through it.
type Provider interface {
	Load(ctx context.Context, name string) (*dataset.Dataset, error)
}

// Reference dataset names requested from the Provider.
const (
	ExchangeRateDataset = "nxr_monthly"
	PriceIndexDataset   = "cpi"
	GDPDataset          = "monthly_gdp"
)

// Converter applies cross-dataset conversions, pulling reference series
// from its Provider.
type Converter struct {
	log *zap.Logger
	src Provider
}

// NewConverter creates a Converter.
func NewConverter(log *zap.Logger, src Provider) *Converter {
	return &Converter{log: log, src: src}
}

// guarded resolves a precondition failure according to the error mode.
func (conv *Converter) guarded(d *dataset.Dataset, mode ErrorMode, err error) (*dataset.Dataset, error) {
	switch mode {
	case Raise:
		return nil, err
	case Coerce:
		conv.log.Warn("conversion precondition failed, returning data unchanged",
			zap.String("dataset", d.Name()), zap.Error(err))
		return d, nil
	default:
		return d, nil
	}
}

// convertEach slices the dataset per indicator, converts each slice and
// recombines the results by column union, merging the per-indicator
// metadata. Conversions work per indicator because series type and
// cumulative periods differ per column.
func convertEach(d *dataset.Dataset, convert func(single *dataset.Dataset, entry dataset.IndicatorMetadata) (dataset.Table, dataset.Metadata, error)) (*dataset.Dataset, error) {
	ids := d.Metadata().Indicators()
	parts := make([]dataset.Table, 0, len(ids))
	metas := make([]dataset.Metadata, 0, len(ids))
	for _, id := range ids {
		single, err := d.Indicator(id)
		if err != nil {
			return nil, err
		}
		entry, ok := single.Metadata().Get(id)
		if !ok {
			return nil, Error.New("missing metadata for indicator %q", id)
		}
		data, meta, err := convert(single, entry)
		if err != nil {
			return nil, err
		}
		parts = append(parts, data)
		metas = append(metas, meta)
	}

	data, err := dataset.JoinTables(parts)
	if err != nil {
		return nil, err
	}
	meta, err := dataset.Merge(d.Name(), metas...)
	if err != nil {
		return nil, err
	}
	return dataset.New(d.Name(), data, meta)
}

// divideAligned divides every cell of data by the divisor value aligned
// to the same row, scaling the result. A NaN divisor yields NaN.
func divideAligned(data dataset.Table, divisor []float64, scale float64) (dataset.Table, error) {
	index := data.Index()
	columns := data.Columns()
	values := make([][]float64, data.Len())
	for i := range values {
		row := make([]float64, len(columns))
		for j := range row {
			v := data.At(i, j)
			if math.IsNaN(v) || math.IsNaN(divisor[i]) || divisor[i] == 0 {
				row[j] = math.NaN()
				continue
			}
			row[j] = v / divisor[i] * scale
		}
		values[i] = row
	}
	return dataset.NewTable(index, columns, values)
}

// series is a single reference column on its own index. Conversions
// resample and roll reference data on the full reference index before
// aligning it to the target dataset, so leading windows are not lost.
type series struct {
	index  []time.Time
	values []float64
}

func tableColumn(table dataset.Table, column int) series {
	values := make([]float64, table.Len())
	for i := range values {
		values[i] = table.At(i, column)
	}
	return series{index: table.Index(), values: values}
}

// resampledColumn resamples the reference table and extracts one column.
func resampledColumn(reference dataset.Table, base, target dataset.Frequency, op dataset.ResampleOp, column int) (series, error) {
	out, err := dataset.ResampleTable(reference, base, target, op, dataset.ResampleOptions{})
	if err != nil {
		return series{}, err
	}
	return tableColumn(out, column), nil
}

func (s series) rolling(window int, op RollingOp) series {
	return series{index: s.index, values: rollingSlice(s.values, window, op)}
}

// alignTo matches the series to an index by exact timestamp, NaN where
// the series has no observation.
func (s series) alignTo(index []time.Time) []float64 {
	lookup := make(map[int64]float64, len(s.index))
	for i, t := range s.index {
		lookup[t.Unix()] = s.values[i]
	}
	out := make([]float64, len(index))
	for i, t := range index {
		if v, ok := lookup[t.Unix()]; ok {
			out[i] = v
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// meanBetween averages the series values falling inside [start, end].
func (s series) meanBetween(start, end time.Time) float64 {
	sum, count := 0.0, 0
	for i, t := range s.index {
		if t.Before(start) || t.After(end) || math.IsNaN(s.values[i]) {
			continue
		}
		sum += s.values[i]
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// rollingSlice computes a rolling aggregate with a full-window minimum:
// positions before the window fills are NaN.
func rollingSlice(values []float64, window int, op RollingOp) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		valid := true
		for k := i - window + 1; k <= i; k++ {
			if math.IsNaN(values[k]) {
				valid = false
				break
			}
			sum += values[k]
		}
		if !valid {
			out[i] = math.NaN()
		} else if op == RollingMean {
			out[i] = sum / float64(window)
		} else {
			out[i] = sum
		}
	}
	return out
}

// nearestIndex returns the position in index closest in time to at.
func nearestIndex(index []time.Time, at time.Time) int {
	best := 0
	bestDistance := absDuration(index[0].Sub(at))
	for i := 1; i < len(index); i++ {
		distance := absDuration(index[i].Sub(at))
		if distance < bestDistance {
			best = i
			bestDistance = distance
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
