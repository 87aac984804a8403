// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package retrieval

import (
	"context"

	"econuy.io/econuy/dataset"
	"econuy.io/econuy/loader"
	"econuy.io/econuy/transform"
)

// QuarterlyGDPDataset is the source series behind the monthly GDP
// reference.
const QuarterlyGDPDataset = "gdp_quarterly"

// DefaultBaseURL serves the published reference CSVs.
const DefaultBaseURL = "https://data.econuy.io/v1"

// Builtin returns the reference dataset descriptors backed by plain CSV
// endpoints under baseURL. These are the series conversions depend on;
// they are registered as auxiliary so listings show end-user indicators
// only.
func Builtin(client *Client, baseURL string) []loader.Descriptor {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return []loader.Descriptor{
		{
			Name:        transform.ExchangeRateDataset,
			Description: "Nominal UYU/USD exchange rate, monthly average and end of period",
			Area:        "Prices",
			Auxiliary:   true,
			Retrieve:    fetchCast(client, baseURL, transform.ExchangeRateDataset, dataset.IndicatorMetadata{
				Area:              "Prices",
				Currency:          "UYU/USD",
				Unit:              "UYU per USD",
				Frequency:         dataset.Monthly,
				TimeSeriesType:    dataset.Stock,
				CumulativePeriods: 1,
			}),
		},
		{
			Name:        transform.PriceIndexDataset,
			Description: "Consumer price index",
			Area:        "Prices",
			Auxiliary:   true,
			Retrieve:    fetchCast(client, baseURL, transform.PriceIndexDataset, dataset.IndicatorMetadata{
				Area:              "Prices",
				Currency:          "UYU",
				Unit:              "Index",
				Frequency:         dataset.Monthly,
				TimeSeriesType:    dataset.Stock,
				CumulativePeriods: 1,
			}),
		},
		{
			Name:        QuarterlyGDPDataset,
			Description: "Nominal quarterly GDP in UYU and USD",
			Area:        "Economic activity",
			Auxiliary:   true,
			Retrieve:    fetchGDP(client, baseURL),
		},
		{
			Name:        transform.GDPDataset,
			Description: "Nominal quarterly GDP interpolated to monthly",
			Area:        "Economic activity",
			Auxiliary:   true,
			Retrieve:    deriveMonthlyGDP,
		},
	}
}

// fetchCast fetches a CSV table and casts shared metadata over its
// columns.
func fetchCast(client *Client, baseURL, name string, base dataset.IndicatorMetadata) loader.RetrieveFunc {
	return func(ctx context.Context, _ *loader.Loader) (*dataset.Dataset, error) {
		table, err := client.FetchCSV(ctx, baseURL+"/"+name+".csv")
		if err != nil {
			return nil, err
		}
		meta, err := dataset.Cast(name, base, table.Columns(), nil)
		if err != nil {
			return nil, err
		}
		return dataset.New(name, table, meta)
	}
}

// fetchGDP fetches quarterly GDP, whose two columns carry different
// currencies and so cannot share cast metadata.
func fetchGDP(client *Client, baseURL string) loader.RetrieveFunc {
	return func(ctx context.Context, _ *loader.Loader) (*dataset.Dataset, error) {
		table, err := client.FetchCSV(ctx, baseURL+"/"+QuarterlyGDPDataset+".csv")
		if err != nil {
			return nil, err
		}
		ids := table.Columns()
		if len(ids) != 2 {
			return nil, Error.New("%s: expected UYU and USD columns, got %d", QuarterlyGDPDataset, len(ids))
		}
		base := dataset.IndicatorMetadata{
			Area:              "Economic activity",
			Unit:              "Millions",
			Frequency:         dataset.Quarterly,
			TimeSeriesType:    dataset.Flow,
			CumulativePeriods: 1,
		}
		uyu, usd := base.Clone(), base.Clone()
		uyu.Currency = "UYU"
		usd.Currency = "USD"
		meta, err := dataset.NewMetadata(QuarterlyGDPDataset, ids, map[string]dataset.IndicatorMetadata{
			ids[0]: uyu,
			ids[1]: usd,
		})
		if err != nil {
			return nil, err
		}
		return dataset.New(QuarterlyGDPDataset, table, meta)
	}
}

// deriveMonthlyGDP loads quarterly GDP through the loader and upsamples
// it to monthly with linear interpolation.
func deriveMonthlyGDP(ctx context.Context, ld *loader.Loader) (*dataset.Dataset, error) {
	quarterly, err := ld.Load(ctx, QuarterlyGDPDataset)
	if err != nil {
		return nil, err
	}
	monthly, err := quarterly.Resample(dataset.Monthly, dataset.ResampleUpsample, dataset.ResampleOptions{
		Interpolation: dataset.InterpolationLinear,
	})
	if err != nil {
		return nil, err
	}
	return dataset.New(transform.GDPDataset, monthly.Data(),
		monthly.Metadata().WithName(transform.GDPDataset))
}
