// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package loader

import (
	"context"
	"sort"

	"econuy.io/econuy/dataset"
)

// RetrieveFunc fetches a dataset from its source. Implementations may
// load other datasets through the loader; the loader detects cycles.
type RetrieveFunc func(ctx context.Context, ld *Loader) (*dataset.Dataset, error)

// Descriptor declares one loadable dataset. Disabled datasets are
// registered but excluded from listings and batch loads. Auxiliary marks
// reference series used by conversions rather than end-user indicators.
// Custom marks datasets registered by the embedding application.
type Descriptor struct {
	Name        string
	Description string
	Area        string
	Disabled    bool
	Auxiliary   bool
	Custom      bool
	Retrieve    RetrieveFunc
}

// Registry is an explicit, immutable set of dataset descriptors built at
// startup. There is no global registration side channel.
type Registry struct {
	order  []string
	byName map[string]Descriptor
}

// NewRegistry builds a registry, rejecting duplicate names and
// descriptors without a retrieval function.
func NewRegistry(descriptors ...Descriptor) (Registry, error) {
	registry := Registry{byName: make(map[string]Descriptor, len(descriptors))}
	for _, descriptor := range descriptors {
		if descriptor.Name == "" {
			return Registry{}, Error.New("descriptor with empty name")
		}
		if descriptor.Retrieve == nil {
			return Registry{}, Error.New("descriptor %q has no retrieve function", descriptor.Name)
		}
		if _, ok := registry.byName[descriptor.Name]; ok {
			return Registry{}, Error.New("duplicate descriptor %q", descriptor.Name)
		}
		registry.order = append(registry.order, descriptor.Name)
		registry.byName[descriptor.Name] = descriptor
	}
	return registry, nil
}

// Get returns the descriptor for a name.
func (registry Registry) Get(name string) (Descriptor, bool) {
	descriptor, ok := registry.byName[name]
	return descriptor, ok
}

// Len returns the number of registered descriptors.
func (registry Registry) Len() int { return len(registry.order) }

// ListOptions filters registry listings.
type ListOptions struct {
	// IncludeDisabled keeps disabled datasets in the listing.
	IncludeDisabled bool
	// IncludeAuxiliary keeps conversion reference series in the listing.
	IncludeAuxiliary bool
	// Area restricts the listing to one thematic area when non-empty.
	Area string
}

// List returns matching descriptors sorted by name.
func (registry Registry) List(opts ListOptions) []Descriptor {
	var out []Descriptor
	for _, name := range registry.order {
		descriptor := registry.byName[name]
		if descriptor.Disabled && !opts.IncludeDisabled {
			continue
		}
		if descriptor.Auxiliary && !opts.IncludeAuxiliary {
			continue
		}
		if opts.Area != "" && descriptor.Area != opts.Area {
			continue
		}
		out = append(out, descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
