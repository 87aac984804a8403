// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package dataset

import (
	"math"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/interp"
)

// ErrInvalidArgument is returned for invalid operation or option values.
var ErrInvalidArgument = errs.Class("invalid argument")

// ResampleOp selects the aggregation used when changing frequency.
type ResampleOp string

// Supported resample operations. Sum and Mean aggregate the observations
// falling in each output bucket, matching Flow and Stock semantics
// respectively. Last takes the final observation per bucket. Upsample
// moves to a finer frequency without aggregation, filling gaps according
// to the interpolation option.
const (
	ResampleSum      ResampleOp = "sum"
	ResampleMean     ResampleOp = "mean"
	ResampleLast     ResampleOp = "last"
	ResampleUpsample ResampleOp = "upsample"
)

// Interpolation selects the gap-filling strategy when upsampling creates
// empty buckets.
type Interpolation string

// Supported interpolation methods.
const (
	InterpolationLinear Interpolation = "linear"
	InterpolationNone   Interpolation = "none"
)

// ResampleOptions carries the optional resample parameters.
type ResampleOptions struct {
	// Interpolation defaults to linear.
	Interpolation Interpolation
	// Warn logs when incomplete-bin trimming had to be skipped because a
	// frequency could not be ranked.
	Warn bool
	// Log receives the trimming warnings. A nil logger disables them.
	Log *zap.Logger
}

// Resample changes the dataset's sampling frequency. When all indicators
// share common metadata the whole table is resampled at once; otherwise
// each indicator is resampled independently and the results recombined,
// since flow and stock semantics differ per column. Resampling is the
// only operation allowed to change frequency: the result's frequency is
// re-inferred from the output index and written into every indicator.
func (d *Dataset) Resample(rule Frequency, op ResampleOp, opts ResampleOptions) (*Dataset, error) {
	switch op {
	case ResampleSum, ResampleMean, ResampleLast, ResampleUpsample:
	default:
		return nil, ErrInvalidArgument.New("operation %q: must be one of sum, mean, last, upsample", op)
	}
	if !rule.Valid() {
		return nil, ErrInvalidArgument.New("invalid target frequency %q", rule)
	}
	if opts.Interpolation == "" {
		opts.Interpolation = InterpolationLinear
	}
	switch opts.Interpolation {
	case InterpolationLinear, InterpolationNone:
	default:
		return nil, ErrInvalidArgument.New("interpolation %q: must be one of linear, none", opts.Interpolation)
	}

	var (
		data Table
		meta Metadata
		err  error
	)
	if d.meta.HasCommonMetadata() {
		data, err = resampleTable(d.data, d.InferFrequency(), rule, op, opts)
		if err != nil {
			return nil, err
		}
		meta = d.meta
	} else {
		data, meta, err = d.resamplePerIndicator(rule, op, opts)
		if err != nil {
			return nil, err
		}
	}

	inferred := InferFrequency(data.index)
	meta = meta.UpdateAll(Patch{Frequency: &inferred})
	meta = meta.AddStep(TransformationStep{
		Name: "resample",
		Params: map[string]string{
			"rule":          string(rule),
			"operation":     string(op),
			"interpolation": string(opts.Interpolation),
		},
	})

	return New(d.name, data, meta)
}

func (d *Dataset) resamplePerIndicator(rule Frequency, op ResampleOp, opts ResampleOptions) (Table, Metadata, error) {
	ids := d.meta.Indicators()
	parts := make([]Table, 0, len(ids))
	metas := make([]Metadata, 0, len(ids))
	for _, id := range ids {
		single, err := d.Indicator(id)
		if err != nil {
			return Table{}, Metadata{}, err
		}
		resampled, err := resampleTable(single.data, single.InferFrequency(), rule, op, opts)
		if err != nil {
			return Table{}, Metadata{}, err
		}
		parts = append(parts, resampled)
		metas = append(metas, single.meta)
	}

	data, err := JoinTables(parts)
	if err != nil {
		return Table{}, Metadata{}, err
	}
	meta, err := Merge(d.name, metas...)
	if err != nil {
		return Table{}, Metadata{}, err
	}
	return data, meta, nil
}

// JoinTables recombines tables by column union over the sorted union of
// their indexes, filling missing cells with NaN.
func JoinTables(parts []Table) (Table, error) {
	var union []time.Time
	seen := make(map[int64]bool)
	for _, part := range parts {
		for _, t := range part.index {
			if !seen[t.Unix()] {
				seen[t.Unix()] = true
				union = append(union, t)
			}
		}
	}
	sortTimes(union)

	var columns []string
	values := make([][]float64, len(union))
	for i := range values {
		values[i] = []float64{}
	}
	for _, part := range parts {
		aligned := part.Reindex(union)
		columns = append(columns, part.columns...)
		for i := range values {
			values[i] = append(values[i], aligned.values[i]...)
		}
	}
	return NewTable(union, columns, values)
}

func sortTimes(ts []time.Time) {
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].Before(ts[j-1]); j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}

// ResampleTable resamples a bare table without any metadata bookkeeping.
// Conversions use it to align reference series to a target frequency.
func ResampleTable(table Table, base, rule Frequency, op ResampleOp, opts ResampleOptions) (Table, error) {
	switch op {
	case ResampleSum, ResampleMean, ResampleLast, ResampleUpsample:
	default:
		return Table{}, ErrInvalidArgument.New("operation %q: must be one of sum, mean, last, upsample", op)
	}
	if opts.Interpolation == "" {
		opts.Interpolation = InterpolationLinear
	}
	return resampleTable(table, base, rule, op, opts)
}

func resampleTable(table Table, base, rule Frequency, op ResampleOp, opts ResampleOptions) (Table, error) {
	if op == ResampleUpsample {
		return upsampleTable(table, rule, opts.Interpolation)
	}
	return downsampleTable(table, base, rule, op, opts)
}

func downsampleTable(table Table, base, rule Frequency, op ResampleOp, opts ResampleOptions) (Table, error) {
	type bucket struct {
		end    time.Time
		sums   []float64
		counts []int
		last   []float64
	}

	var buckets []*bucket
	byEnd := make(map[int64]*bucket)
	for i, t := range table.index {
		end := PeriodEnd(t, rule)
		b, ok := byEnd[end.Unix()]
		if !ok {
			b = &bucket{
				end:    end,
				sums:   make([]float64, table.NumColumns()),
				counts: make([]int, table.NumColumns()),
				last:   make([]float64, table.NumColumns()),
			}
			for j := range b.last {
				b.last[j] = math.NaN()
			}
			byEnd[end.Unix()] = b
			buckets = append(buckets, b)
		}
		for j, v := range table.values[i] {
			if math.IsNaN(v) {
				continue
			}
			b.sums[j] += v
			b.counts[j]++
			b.last[j] = v
		}
	}

	index := make([]time.Time, len(buckets))
	values := make([][]float64, len(buckets))
	counts := make([][]int, len(buckets))
	for i, b := range buckets {
		index[i] = b.end
		counts[i] = b.counts
		row := make([]float64, table.NumColumns())
		for j := range row {
			switch {
			case b.counts[j] == 0:
				row[j] = math.NaN()
			case op == ResampleSum:
				row[j] = b.sums[j]
			case op == ResampleMean:
				row[j] = b.sums[j] / float64(b.counts[j])
			default:
				row[j] = b.last[j]
			}
		}
		values[i] = row
	}

	trimIncompleteBins(base, rule, counts, values, opts)
	index, values = dropEmptyRows(index, values)

	return NewTable(index, table.columns, values)
}

// trimIncompleteBins masks output cells whose bucket holds fewer
// observations than a full target period requires, so partial bins never
// masquerade as aggregated values. Skipped when either frequency cannot
// be ranked.
func trimIncompleteBins(base, rule Frequency, counts [][]int, values [][]float64, opts ResampleOptions) {
	basePeriods, baseOK := base.PeriodsPerYear()
	targetPeriods, targetOK := rule.PeriodsPerYear()
	if !baseOK || !targetOK {
		if opts.Warn && opts.Log != nil {
			opts.Log.Warn("no bin trimming performed, frequency could not be ranked",
				zap.String("base", string(base)), zap.String("target", string(rule)))
		}
		return
	}
	if targetPeriods >= basePeriods {
		return
	}
	required := int(basePeriods / targetPeriods)
	for i := range values {
		for j := range values[i] {
			if counts[i][j] < required {
				values[i][j] = math.NaN()
			}
		}
	}
}

func dropEmptyRows(index []time.Time, values [][]float64) ([]time.Time, [][]float64) {
	outIndex := index[:0]
	outValues := values[:0]
	for i, row := range values {
		empty := true
		for _, v := range row {
			if !math.IsNaN(v) {
				empty = false
				break
			}
		}
		if !empty {
			outIndex = append(outIndex, index[i])
			outValues = append(outValues, row)
		}
	}
	return outIndex, outValues
}

// upsampleTable re-buckets the table at a finer frequency, keeping the
// last observation falling in each new period and leaving periods without
// observations empty, then fills the interior gaps according to the
// interpolation method. Values are never extrapolated beyond the known
// bounds.
func upsampleTable(table Table, rule Frequency, interpolation Interpolation) (Table, error) {
	if table.Len() == 0 {
		return table.Copy(), nil
	}

	first := PeriodEnd(table.index[0], rule)
	last := PeriodEnd(table.index[len(table.index)-1], rule)
	var index []time.Time
	for t := first; !t.After(last); t = NextPeriodEnd(t, rule) {
		index = append(index, t)
	}

	values := make([][]float64, len(index))
	for i := range values {
		row := make([]float64, table.NumColumns())
		for j := range row {
			row[j] = math.NaN()
		}
		values[i] = row
	}
	position := make(map[int64]int, len(index))
	for i, t := range index {
		position[t.Unix()] = i
	}
	for i, t := range table.index {
		at := position[PeriodEnd(t, rule).Unix()]
		for j, v := range table.values[i] {
			if !math.IsNaN(v) {
				values[at][j] = v
			}
		}
	}

	if interpolation == InterpolationLinear {
		interpolateColumns(index, values)
	}

	return NewTable(index, table.columns, values)
}

func interpolateColumns(index []time.Time, values [][]float64) {
	for j := 0; j < len(values[0]); j++ {
		var xs, ys []float64
		for i, row := range values {
			if !math.IsNaN(row[j]) {
				xs = append(xs, float64(index[i].Unix()))
				ys = append(ys, row[j])
			}
		}
		if len(xs) < 2 {
			continue
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, ys); err != nil {
			continue
		}
		for i, row := range values {
			x := float64(index[i].Unix())
			if math.IsNaN(row[j]) && x > xs[0] && x < xs[len(xs)-1] {
				row[j] = pl.Predict(x)
			}
		}
	}
}
