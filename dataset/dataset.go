// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package dataset

// Dataset pairs a numeric time-indexed table with per-indicator metadata.
// Transforms are functional: they return a new Dataset and never mutate
// the input in place.
type Dataset struct {
	name string
	data Table
	meta Metadata
}

// New builds a validated Dataset. The table and metadata are deep-copied
// so the caller cannot alias the stored state.
func New(name string, data Table, meta Metadata) (*Dataset, error) {
	d := &Dataset{
		name: name,
		data: data.Copy(),
		meta: meta,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Data returns a deep copy of the underlying table.
func (d *Dataset) Data() Table { return d.data.Copy() }

// Metadata returns the dataset metadata.
func (d *Dataset) Metadata() Metadata { return d.meta }

// Validate enforces the structural invariants: the column count equals
// the indicator count, every indicator id appears as a column, the index
// is non-empty, and rows are rectangular. Violations indicate a bug in a
// retrieval collaborator and are never repaired silently.
func (d *Dataset) Validate() error {
	if d.data.NumColumns() != d.meta.Len() {
		return ErrValidation.New("dataset %q: %d columns but %d indicators",
			d.name, d.data.NumColumns(), d.meta.Len())
	}
	for _, id := range d.meta.Indicators() {
		if d.data.ColumnIndex(id) < 0 {
			return ErrValidation.New("dataset %q: indicator %q has no column", d.name, id)
		}
	}
	if d.data.Len() == 0 {
		return ErrValidation.New("dataset %q: empty index", d.name)
	}
	for i := 0; i < d.data.Len(); i++ {
		if len(d.data.values[i]) != d.data.NumColumns() {
			return ErrValidation.New("dataset %q: ragged row %d", d.name, i)
		}
	}
	return nil
}

// InferFrequency infers the sampling period from the index. It reports
// Unknown instead of failing on short or ambiguous indexes; downstream
// consumers treat Unknown as unset.
func (d *Dataset) InferFrequency() Frequency {
	return InferFrequency(d.data.index)
}

// Indicator returns a new single-indicator Dataset sharing no mutable
// state with the original.
func (d *Dataset) Indicator(id string) (*Dataset, error) {
	data, err := d.data.Select([]string{id})
	if err != nil {
		return nil, err
	}
	meta, err := d.meta.Select([]string{id})
	if err != nil {
		return nil, err
	}
	return New(d.name, data, meta)
}

// WithData returns a new Dataset carrying the given table and metadata
// under the same name.
func (d *Dataset) WithData(data Table, meta Metadata) (*Dataset, error) {
	return New(d.name, data, meta)
}
