// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package loader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"econuy.io/econuy/dataset"
	"econuy.io/econuy/loader"
)

func noopRetrieve(ctx context.Context, ld *loader.Loader) (*dataset.Dataset, error) {
	return nil, loader.Error.New("not implemented")
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := loader.NewRegistry(
		loader.Descriptor{Name: "gdp", Retrieve: noopRetrieve},
		loader.Descriptor{Name: "gdp", Retrieve: noopRetrieve},
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestRegistryRejectsMissingRetrieve(t *testing.T) {
	_, err := loader.NewRegistry(loader.Descriptor{Name: "gdp"})
	require.Error(t, err)
}

func TestRegistryListFilters(t *testing.T) {
	registry, err := loader.NewRegistry(
		loader.Descriptor{Name: "gdp", Area: "Economic activity", Retrieve: noopRetrieve},
		loader.Descriptor{Name: "cpi", Area: "Prices", Retrieve: noopRetrieve},
		loader.Descriptor{Name: "nxr_monthly", Area: "Prices", Auxiliary: true, Retrieve: noopRetrieve},
		loader.Descriptor{Name: "legacy", Area: "Prices", Disabled: true, Retrieve: noopRetrieve},
	)
	require.NoError(t, err)

	names := func(descriptors []loader.Descriptor) []string {
		out := make([]string, len(descriptors))
		for i, descriptor := range descriptors {
			out[i] = descriptor.Name
		}
		return out
	}

	require.Equal(t, []string{"cpi", "gdp"}, names(registry.List(loader.ListOptions{})))
	require.Equal(t, []string{"cpi", "gdp", "nxr_monthly"},
		names(registry.List(loader.ListOptions{IncludeAuxiliary: true})))
	require.Equal(t, []string{"cpi", "legacy"},
		names(registry.List(loader.ListOptions{IncludeDisabled: true, Area: "Prices"})))

	_, ok := registry.Get("legacy")
	require.True(t, ok)
	_, ok = registry.Get("absent")
	require.False(t, ok)
}
