// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package transform

import (
	"context"
	"time"

	"econuy.io/econuy/dataset"
)

// Currency codes handled by conversions.
const (
	currencyUYU = "UYU"
	currencyUSD = "USD"
)

const gdpUnit = "% GDP"

// USD converts a dataset from Uruguayan pesos to US dollars using the
// monthly nominal exchange rate. Stock series divide by the period-end
// rate; Flow series divide by the average rate, smoothed over a rolling
// window equal to the indicator's cumulative periods so values that
// already aggregate several sub-periods deflate correctly. Sub-monthly
// series are first collapsed to monthly, since exchange-rate data is
// only available monthly.
func (conv *Converter) USD(ctx context.Context, d *dataset.Dataset, mode ErrorMode) (_ *dataset.Dataset, err error) {
	defer mon.Task()(&ctx)(&err)
	if !mode.Valid() {
		return nil, ErrInvalidMode.New("%q: must be one of raise, coerce, ignore", mode)
	}
	for _, id := range d.Metadata().Indicators() {
		entry, _ := d.Metadata().Get(id)
		if entry.Currency != currencyUYU {
			return conv.guarded(d, mode,
				ErrPrecondition.New("indicator %q is in %q, expected %q", id, entry.Currency, currencyUYU))
		}
	}

	nxr, err := conv.src.Load(ctx, ExchangeRateDataset)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	nxrData := nxr.Data()

	usd := currencyUSD
	return convertEach(d, func(single *dataset.Dataset, entry dataset.IndicatorMetadata) (dataset.Table, dataset.Metadata, error) {
		data, freq, err := collapseSubMonthly(single, entry, dataset.ResampleSum, dataset.ResampleLast)
		if err != nil {
			return dataset.Table{}, dataset.Metadata{}, err
		}

		var rate series
		if entry.TimeSeriesType == dataset.Stock {
			// Column 1 of the reference holds the end-of-period rate.
			rate, err = resampledColumn(nxrData, dataset.Monthly, freq, dataset.ResampleLast, 1)
		} else {
			rate, err = resampledColumn(nxrData, dataset.Monthly, freq, dataset.ResampleMean, 0)
			if err == nil && entry.CumulativePeriods > 1 {
				rate = rate.rolling(entry.CumulativePeriods, RollingMean)
			}
		}
		if err != nil {
			return dataset.Table{}, dataset.Metadata{}, err
		}

		converted, err := divideAligned(data, rate.alignTo(data.Index()), 1)
		if err != nil {
			return dataset.Table{}, dataset.Metadata{}, err
		}

		meta := single.Metadata().UpdateAll(dataset.Patch{Currency: &usd})
		meta = meta.AddStep(dataset.TransformationStep{
			Name:   "convert",
			Params: map[string]string{"flavor": "usd"},
		})
		return converted, meta, nil
	})
}

// Real deflates a dataset to constant prices using the consumer price
// index. With no dates the series is deflated to the index's own base;
// with only a start date it is rebased to the month nearest that date;
// with both dates it is rebased to the average index level over the
// window.
func (conv *Converter) Real(ctx context.Context, d *dataset.Dataset, start, end *time.Time, mode ErrorMode) (_ *dataset.Dataset, err error) {
	defer mon.Task()(&ctx)(&err)
	if !mode.Valid() {
		return nil, ErrInvalidMode.New("%q: must be one of raise, coerce, ignore", mode)
	}
	for _, id := range d.Metadata().Indicators() {
		entry, _ := d.Metadata().Get(id)
		if entry.Currency != currencyUYU {
			return conv.guarded(d, mode,
				ErrPrecondition.New("indicator %q is in %q, expected %q", id, entry.Currency, currencyUYU))
		}
		if entry.InflationAdjustment != "" {
			return conv.guarded(d, mode,
				ErrPrecondition.New("indicator %q is already inflation adjusted (%s)", id, entry.InflationAdjustment))
		}
	}

	cpi, err := conv.src.Load(ctx, PriceIndexDataset)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	cpiData := cpi.Data()

	return convertEach(d, func(single *dataset.Dataset, entry dataset.IndicatorMetadata) (dataset.Table, dataset.Metadata, error) {
		data, freq, err := collapseSubMonthly(single, entry, dataset.ResampleSum, dataset.ResampleMean)
		if err != nil {
			return dataset.Table{}, dataset.Metadata{}, err
		}

		index, err := resampledColumn(cpiData, dataset.Monthly, freq, dataset.ResampleMean, 0)
		if err != nil {
			return dataset.Table{}, dataset.Metadata{}, err
		}
		if entry.CumulativePeriods > 1 {
			index = index.rolling(entry.CumulativePeriods, RollingMean)
		}

		aligned := index.alignTo(data.Index())
		factor := 1.0
		label := "Const."
		params := map[string]string{"flavor": "real"}
		switch {
		case start == nil:
			// Pure deflation to the price index's own base.
		case end == nil:
			at := nearestIndex(data.Index(), *start)
			resolved := data.Time(at)
			factor = aligned[at]
			label = "Const. " + resolved.Format("2006-01")
			params["start_date"] = resolved.Format("2006-01-02")
		default:
			factor = index.meanBetween(*start, *end)
			startLabel := start.Format("2006-01")
			endLabel := end.Format("2006-01")
			if startLabel == endLabel {
				label = "Const. " + startLabel
			} else {
				label = "Const. " + startLabel + "_" + endLabel
			}
			params["start_date"] = start.Format("2006-01-02")
			params["end_date"] = end.Format("2006-01-02")
		}

		converted, err := divideAligned(data, aligned, factor)
		if err != nil {
			return dataset.Table{}, dataset.Metadata{}, err
		}

		meta := single.Metadata().UpdateAll(dataset.Patch{InflationAdjustment: &label})
		meta = meta.AddStep(dataset.TransformationStep{Name: "convert", Params: params})
		return converted, meta, nil
	})
}

// GDP expresses a dataset as a percentage of nominal GDP, choosing the
// reference's UYU or USD column to match each indicator's currency.
// Monthly and quarterly series whose cumulative periods do not already
// cover a full year are first rolled up so the annualization matches
// GDP's own periodicity; sub-monthly series are collapsed to monthly
// against the monthly-interpolated GDP reference.
func (conv *Converter) GDP(ctx context.Context, d *dataset.Dataset, mode ErrorMode) (_ *dataset.Dataset, err error) {
	defer mon.Task()(&ctx)(&err)
	if !mode.Valid() {
		return nil, ErrInvalidMode.New("%q: must be one of raise, coerce, ignore", mode)
	}
	for _, id := range d.Metadata().Indicators() {
		entry, _ := d.Metadata().Get(id)
		if entry.Currency != currencyUYU && entry.Currency != currencyUSD {
			return conv.guarded(d, mode,
				ErrPrecondition.New("indicator %q is in %q, expected %q or %q",
					id, entry.Currency, currencyUYU, currencyUSD))
		}
		if entry.InflationAdjustment != "" {
			return conv.guarded(d, mode,
				ErrPrecondition.New("indicator %q is inflation adjusted (%s)", id, entry.InflationAdjustment))
		}
		if entry.Unit == gdpUnit {
			return conv.guarded(d, mode,
				ErrPrecondition.New("indicator %q is already expressed as %s", id, gdpUnit))
		}
	}

	gdp, err := conv.src.Load(ctx, GDPDataset)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	gdpData := gdp.Data()

	unit := gdpUnit
	return convertEach(d, func(single *dataset.Dataset, entry dataset.IndicatorMetadata) (dataset.Table, dataset.Metadata, error) {
		data := single.Data()
		freq := single.InferFrequency()
		gdpColumn := 0
		if entry.Currency == currencyUSD {
			gdpColumn = 1
		}

		var reference series
		switch freq {
		case dataset.Monthly:
			reference = tableColumn(gdpData, gdpColumn)
			if entry.CumulativePeriods != 12 && entry.TimeSeriesType == dataset.Flow {
				rolled, err := rollingTable(data, 12/entry.CumulativePeriods, RollingSum)
				if err != nil {
					return dataset.Table{}, dataset.Metadata{}, err
				}
				data = rolled
			}
		case dataset.Quarterly:
			resampled, err := resampledColumn(gdpData, dataset.Monthly, dataset.Quarterly, dataset.ResampleLast, gdpColumn)
			if err != nil {
				return dataset.Table{}, dataset.Metadata{}, err
			}
			reference = resampled
			if entry.CumulativePeriods != 4 && entry.TimeSeriesType == dataset.Flow {
				rolled, err := rollingTable(data, 4/entry.CumulativePeriods, RollingSum)
				if err != nil {
					return dataset.Table{}, dataset.Metadata{}, err
				}
				data = rolled
			}
		case dataset.Annual:
			resampled, err := resampledColumn(gdpData, dataset.Monthly, dataset.Annual, dataset.ResampleLast, gdpColumn)
			if err != nil {
				return dataset.Table{}, dataset.Metadata{}, err
			}
			reference = resampled
		default:
			// Sub-monthly or unknown: collapse to monthly against the
			// monthly GDP reference.
			collapsed, _, err := collapseSubMonthly(single, entry, dataset.ResampleSum, dataset.ResampleMean)
			if err != nil {
				return dataset.Table{}, dataset.Metadata{}, err
			}
			data = collapsed
			reference = tableColumn(gdpData, gdpColumn)
		}

		converted, err := divideAligned(data, reference.alignTo(data.Index()), 100)
		if err != nil {
			return dataset.Table{}, dataset.Metadata{}, err
		}

		meta := single.Metadata().UpdateAll(dataset.Patch{Unit: &unit})
		meta = meta.AddStep(dataset.TransformationStep{
			Name:   "convert",
			Params: map[string]string{"flavor": "gdp"},
		})
		return converted, meta, nil
	})
}

// collapseSubMonthly aggregates sub-monthly data to monthly, choosing
// the flow or stock operation, and reports the working frequency.
func collapseSubMonthly(single *dataset.Dataset, entry dataset.IndicatorMetadata, flowOp, stockOp dataset.ResampleOp) (dataset.Table, dataset.Frequency, error) {
	data := single.Data()
	freq := single.InferFrequency()
	if !freq.SubMonthly() {
		return data, freq, nil
	}
	op := flowOp
	if entry.TimeSeriesType == dataset.Stock {
		op = stockOp
	}
	collapsed, err := dataset.ResampleTable(data, freq, dataset.Monthly, op, dataset.ResampleOptions{})
	if err != nil {
		return dataset.Table{}, dataset.Unknown, err
	}
	return collapsed, dataset.Monthly, nil
}
