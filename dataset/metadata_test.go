// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package dataset_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"econuy.io/econuy/dataset"
)

func baseIndicator() dataset.IndicatorMetadata {
	return dataset.IndicatorMetadata{
		Area:              "Prices",
		Currency:          "UYU",
		Unit:              "Index",
		Frequency:         dataset.Monthly,
		TimeSeriesType:    dataset.Flow,
		CumulativePeriods: 1,
		Transformations:   []dataset.TransformationStep{},
	}
}

func TestHasCommonMetadata(t *testing.T) {
	single, err := dataset.Cast("cpi", baseIndicator(), []string{"cpi_0"}, nil)
	require.NoError(t, err)
	require.True(t, single.HasCommonMetadata())

	shared, err := dataset.Cast("cpi", baseIndicator(), []string{"cpi_0", "cpi_1"},
		[]map[string]string{{"es": "IPC general"}, {"es": "IPC subyacente"}})
	require.NoError(t, err)
	require.True(t, shared.HasCommonMetadata(),
		"localized names must not break common metadata")

	currency := "USD"
	mixed, err := shared.UpdateIndicator("cpi_1", dataset.Patch{Currency: &currency})
	require.NoError(t, err)
	require.False(t, mixed.HasCommonMetadata())

	// The original value is unaffected by the update.
	require.True(t, shared.HasCommonMetadata())
}

func TestCommonMetadata(t *testing.T) {
	shared, err := dataset.Cast("cpi", baseIndicator(), []string{"a", "b"}, nil)
	require.NoError(t, err)

	common, ok := shared.CommonMetadata()
	require.True(t, ok)
	require.Equal(t, "UYU", common.Currency)
	require.Nil(t, common.FullNames)

	unit := "USD"
	mixed, err := shared.UpdateIndicator("b", dataset.Patch{Currency: &unit})
	require.NoError(t, err)
	_, ok = mixed.CommonMetadata()
	require.False(t, ok)
}

func TestUpdateIndicatorUnknownID(t *testing.T) {
	meta, err := dataset.Cast("cpi", baseIndicator(), []string{"a"}, nil)
	require.NoError(t, err)

	unit := "2010=100"
	_, err = meta.UpdateIndicator("missing", dataset.Patch{Unit: &unit})
	require.Error(t, err)
}

func TestUpdateAll(t *testing.T) {
	meta, err := dataset.Cast("gdp", baseIndicator(), []string{"a", "b"}, nil)
	require.NoError(t, err)

	freq := dataset.Quarterly
	updated := meta.UpdateAll(dataset.Patch{Frequency: &freq})
	for _, id := range updated.Indicators() {
		entry, ok := updated.Get(id)
		require.True(t, ok)
		require.Equal(t, dataset.Quarterly, entry.Frequency)
	}

	// Immutability: the source keeps its original frequency.
	entry, _ := meta.Get("a")
	require.Equal(t, dataset.Monthly, entry.Frequency)
}

func TestCastFullNameCountMismatch(t *testing.T) {
	_, err := dataset.Cast("cpi", baseIndicator(), []string{"a", "b"},
		[]map[string]string{{"es": "solo uno"}})
	require.Error(t, err)
}

func TestMergeLastWriterWins(t *testing.T) {
	left, err := dataset.Cast("left", baseIndicator(), []string{"a", "b"}, nil)
	require.NoError(t, err)

	overridden := baseIndicator()
	overridden.Currency = "USD"
	right, err := dataset.Cast("right", overridden, []string{"b", "c"}, nil)
	require.NoError(t, err)

	merged, err := dataset.Merge("spliced", left, right)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, merged.Indicators())

	b, ok := merged.Get("b")
	require.True(t, ok)
	require.Equal(t, "USD", b.Currency)
}

func TestAddStepOrdering(t *testing.T) {
	meta, err := dataset.Cast("cpi", baseIndicator(), []string{"a"}, nil)
	require.NoError(t, err)

	meta = meta.AddStep(dataset.TransformationStep{Name: "convert", Params: map[string]string{"flavor": "usd"}})
	meta = meta.AddStep(dataset.TransformationStep{Name: "rolling", Params: map[string]string{"window": "12"}})

	entry, ok := meta.Get("a")
	require.True(t, ok)
	require.Len(t, entry.Transformations, 2)
	require.Equal(t, "convert", entry.Transformations[0].Name)
	require.Equal(t, "rolling", entry.Transformations[1].Name)
}

func TestMetadataJSONRoundTrip(t *testing.T) {
	meta, err := dataset.Cast("nxr", baseIndicator(), []string{"nxr_0", "nxr_1"},
		[]map[string]string{{"es": "Promedio"}, {"es": "Fin de período"}})
	require.NoError(t, err)
	meta = meta.AddStep(dataset.TransformationStep{Name: "resample", Params: map[string]string{"rule": "M"}})

	raw, err := json.Marshal(meta)
	require.NoError(t, err)

	var restored dataset.Metadata
	require.NoError(t, json.Unmarshal(raw, &restored))

	require.Equal(t, meta.Name(), restored.Name())
	require.Equal(t, meta.Indicators(), restored.Indicators())
	require.True(t, meta.EqualIndicators(restored))
	require.WithinDuration(t, meta.CreatedAt(), restored.CreatedAt(), 0)
}

func TestMetadataJSONRejectsInvalidEntries(t *testing.T) {
	decode := func(payload string) error {
		var meta dataset.Metadata
		return json.Unmarshal([]byte(payload), &meta)
	}

	err := decode(`{
		"name": "cpi",
		"created_at": "2025-03-01T12:00:00Z",
		"indicators": [{
			"id": "cpi_0",
			"area": "Prices",
			"currency": "UYU",
			"unit": "Index",
			"frequency": "M",
			"time_series_type": "Flow",
			"cumulative_periods": 0,
			"transformations": []
		}]
	}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cumulative periods")

	err = decode(`{
		"name": "cpi",
		"created_at": "2025-03-01T12:00:00Z",
		"indicators": [
			{"id": "cpi_0", "frequency": "M", "time_series_type": "Flow", "cumulative_periods": 1},
			{"id": "cpi_0", "frequency": "M", "time_series_type": "Flow", "cumulative_periods": 1}
		]
	}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate indicator")

	err = decode(`{
		"name": "cpi",
		"created_at": "2025-03-01T12:00:00Z",
		"indicators": [{"id": "", "frequency": "M", "time_series_type": "Flow", "cumulative_periods": 1}]
	}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty id")
}
