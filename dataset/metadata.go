// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package dataset

import (
	"encoding/json"
	"io"
	"time"
)

// SeriesType distinguishes amounts accumulated over a period from
// point-in-time levels. It governs aggregation during resampling and
// conversions.
type SeriesType string

// Known series types.
const (
	Flow  SeriesType = "Flow"
	Stock SeriesType = "Stock"
)

// TransformationStep records one applied transformation, in order.
type TransformationStep struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// IndicatorMetadata describes a single indicator. InflationAdjustment is
// empty for series in current prices. FullNames maps a locale code to the
// indicator's localized descriptive name.
type IndicatorMetadata struct {
	Area                string               `json:"area"`
	Currency            string               `json:"currency"`
	InflationAdjustment string               `json:"inflation_adjustment,omitempty"`
	Unit                string               `json:"unit"`
	SeasonalAdjustment  string               `json:"seasonal_adjustment,omitempty"`
	Frequency           Frequency            `json:"frequency"`
	TimeSeriesType      SeriesType           `json:"time_series_type"`
	CumulativePeriods   int                  `json:"cumulative_periods"`
	Transformations     []TransformationStep `json:"transformations"`
	FullNames           map[string]string    `json:"full_names,omitempty"`
}

// Clone returns a deep copy.
func (im IndicatorMetadata) Clone() IndicatorMetadata {
	clone := im
	clone.Transformations = make([]TransformationStep, len(im.Transformations))
	for i, step := range im.Transformations {
		cloned := step
		if step.Params != nil {
			cloned.Params = make(map[string]string, len(step.Params))
			for k, v := range step.Params {
				cloned.Params[k] = v
			}
		}
		clone.Transformations[i] = cloned
	}
	if im.FullNames != nil {
		clone.FullNames = make(map[string]string, len(im.FullNames))
		for k, v := range im.FullNames {
			clone.FullNames[k] = v
		}
	}
	return clone
}

// Equal reports full structural equality, localized names included.
func (im IndicatorMetadata) Equal(other IndicatorMetadata) bool {
	if !im.EqualCommon(other) {
		return false
	}
	if len(im.FullNames) != len(other.FullNames) {
		return false
	}
	for k, v := range im.FullNames {
		if other.FullNames[k] != v {
			return false
		}
	}
	return true
}

// EqualCommon reports structural equality ignoring localized names. Two
// indicators share common metadata iff EqualCommon is true.
func (im IndicatorMetadata) EqualCommon(other IndicatorMetadata) bool {
	if im.Area != other.Area ||
		im.Currency != other.Currency ||
		im.InflationAdjustment != other.InflationAdjustment ||
		im.Unit != other.Unit ||
		im.SeasonalAdjustment != other.SeasonalAdjustment ||
		im.Frequency != other.Frequency ||
		im.TimeSeriesType != other.TimeSeriesType ||
		im.CumulativePeriods != other.CumulativePeriods {
		return false
	}
	if len(im.Transformations) != len(other.Transformations) {
		return false
	}
	for i, step := range im.Transformations {
		otherStep := other.Transformations[i]
		if step.Name != otherStep.Name || len(step.Params) != len(otherStep.Params) {
			return false
		}
		for k, v := range step.Params {
			if otherStep.Params[k] != v {
				return false
			}
		}
	}
	return true
}

// Patch carries optional updates to an indicator's metadata. Nil fields
// are left untouched.
type Patch struct {
	Area                *string
	Currency            *string
	InflationAdjustment *string
	Unit                *string
	SeasonalAdjustment  *string
	Frequency           *Frequency
	TimeSeriesType      *SeriesType
	CumulativePeriods   *int
}

func (im IndicatorMetadata) apply(patch Patch) IndicatorMetadata {
	out := im.Clone()
	if patch.Area != nil {
		out.Area = *patch.Area
	}
	if patch.Currency != nil {
		out.Currency = *patch.Currency
	}
	if patch.InflationAdjustment != nil {
		out.InflationAdjustment = *patch.InflationAdjustment
	}
	if patch.Unit != nil {
		out.Unit = *patch.Unit
	}
	if patch.SeasonalAdjustment != nil {
		out.SeasonalAdjustment = *patch.SeasonalAdjustment
	}
	if patch.Frequency != nil {
		out.Frequency = *patch.Frequency
	}
	if patch.TimeSeriesType != nil {
		out.TimeSeriesType = *patch.TimeSeriesType
	}
	if patch.CumulativePeriods != nil {
		out.CumulativePeriods = *patch.CumulativePeriods
	}
	return out
}

// Metadata is an immutable mapping from indicator id to its metadata.
// Updates return a new value, so cached and live instances never alias.
type Metadata struct {
	name      string
	createdAt time.Time
	order     []string
	byID      map[string]IndicatorMetadata
}

// NewMetadata builds a Metadata from ordered ids and their entries,
// stamped with the current time.
func NewMetadata(name string, ids []string, entries map[string]IndicatorMetadata) (Metadata, error) {
	meta := Metadata{
		name:      name,
		createdAt: time.Now().UTC(),
		order:     append([]string(nil), ids...),
		byID:      make(map[string]IndicatorMetadata, len(ids)),
	}
	for _, id := range ids {
		entry, ok := entries[id]
		if !ok {
			return Metadata{}, Error.New("missing metadata for indicator %q", id)
		}
		if entry.CumulativePeriods < 1 {
			return Metadata{}, Error.New("indicator %q: cumulative periods must be at least 1", id)
		}
		meta.byID[id] = entry.Clone()
	}
	return meta, nil
}

// Cast builds a Metadata by merging a shared base entry with a per-id
// localized name. fullNames may be nil or must have one entry per id.
func Cast(name string, base IndicatorMetadata, ids []string, fullNames []map[string]string) (Metadata, error) {
	if fullNames != nil && len(fullNames) != len(ids) {
		return Metadata{}, Error.New("got %d full names for %d indicators", len(fullNames), len(ids))
	}
	entries := make(map[string]IndicatorMetadata, len(ids))
	for i, id := range ids {
		entry := base.Clone()
		if fullNames != nil {
			entry.FullNames = make(map[string]string, len(fullNames[i]))
			for locale, full := range fullNames[i] {
				entry.FullNames[locale] = full
			}
		}
		entries[id] = entry
	}
	return NewMetadata(name, ids, entries)
}

// Merge unions several Metadata values into one, keeping first-seen
// indicator order and letting later values win on id collisions. The
// result takes the given name and a fresh timestamp.
func Merge(name string, metas ...Metadata) (Metadata, error) {
	var ids []string
	entries := make(map[string]IndicatorMetadata)
	for _, meta := range metas {
		for _, id := range meta.order {
			if _, ok := entries[id]; !ok {
				ids = append(ids, id)
			}
			entries[id] = meta.byID[id]
		}
	}
	return NewMetadata(name, ids, entries)
}

// Name returns the dataset name this metadata belongs to.
func (meta Metadata) Name() string { return meta.name }

// WithName returns a copy carrying a different dataset name. Derived
// datasets use it so their metadata matches the name they are cached
// under.
func (meta Metadata) WithName(name string) Metadata {
	out := meta.clone()
	out.name = name
	return out
}

// WithCreatedAt returns a copy carrying a different creation timestamp.
func (meta Metadata) WithCreatedAt(createdAt time.Time) Metadata {
	out := meta.clone()
	out.createdAt = createdAt
	return out
}

// CreatedAt returns the construction timestamp, used for cache staleness.
func (meta Metadata) CreatedAt() time.Time { return meta.createdAt }

// Len returns the number of indicators.
func (meta Metadata) Len() int { return len(meta.order) }

// Indicators returns the ordered indicator ids.
func (meta Metadata) Indicators() []string {
	return append([]string(nil), meta.order...)
}

// Get returns one indicator's metadata.
func (meta Metadata) Get(id string) (IndicatorMetadata, bool) {
	entry, ok := meta.byID[id]
	if !ok {
		return IndicatorMetadata{}, false
	}
	return entry.Clone(), true
}

// HasCommonMetadata reports whether all indicators share the same
// metadata, localized names excluded. Trivially true below 2 indicators.
func (meta Metadata) HasCommonMetadata() bool {
	if len(meta.order) < 2 {
		return true
	}
	first := meta.byID[meta.order[0]]
	for _, id := range meta.order[1:] {
		if !first.EqualCommon(meta.byID[id]) {
			return false
		}
	}
	return true
}

// CommonMetadata returns the single shared entry when all indicators have
// common metadata; ok is false otherwise or when there are no indicators.
func (meta Metadata) CommonMetadata() (shared IndicatorMetadata, ok bool) {
	if len(meta.order) == 0 || !meta.HasCommonMetadata() {
		return IndicatorMetadata{}, false
	}
	shared = meta.byID[meta.order[0]].Clone()
	shared.FullNames = nil
	return shared, true
}

// UpdateIndicator merges a patch into one indicator's entry and returns
// the updated Metadata. Unknown ids are an error.
func (meta Metadata) UpdateIndicator(id string, patch Patch) (Metadata, error) {
	entry, ok := meta.byID[id]
	if !ok {
		return Metadata{}, Error.New("unknown indicator %q", id)
	}
	out := meta.clone()
	out.byID[id] = entry.apply(patch)
	return out, nil
}

// UpdateAll broadcasts a patch to every indicator.
func (meta Metadata) UpdateAll(patch Patch) Metadata {
	out := meta.clone()
	for id, entry := range out.byID {
		out.byID[id] = entry.apply(patch)
	}
	return out
}

// AddStep appends a transformation record to every indicator's history.
func (meta Metadata) AddStep(step TransformationStep) Metadata {
	out := meta.clone()
	for id, entry := range out.byID {
		updated := entry.Clone()
		cloned := step
		if step.Params != nil {
			cloned.Params = make(map[string]string, len(step.Params))
			for k, v := range step.Params {
				cloned.Params[k] = v
			}
		}
		updated.Transformations = append(updated.Transformations, cloned)
		out.byID[id] = updated
	}
	return out
}

// Select returns a Metadata restricted to the given ids, keeping their
// given order.
func (meta Metadata) Select(ids []string) (Metadata, error) {
	out := Metadata{
		name:      meta.name,
		createdAt: meta.createdAt,
		order:     append([]string(nil), ids...),
		byID:      make(map[string]IndicatorMetadata, len(ids)),
	}
	for _, id := range ids {
		entry, ok := meta.byID[id]
		if !ok {
			return Metadata{}, Error.New("unknown indicator %q", id)
		}
		out.byID[id] = entry.Clone()
	}
	return out, nil
}

// EqualIndicators reports whether both values hold exactly the same
// indicator metadata maps. Name and timestamp are not compared.
func (meta Metadata) EqualIndicators(other Metadata) bool {
	if len(meta.order) != len(other.order) {
		return false
	}
	for _, id := range meta.order {
		otherEntry, ok := other.byID[id]
		if !ok || !meta.byID[id].Equal(otherEntry) {
			return false
		}
	}
	return true
}

func (meta Metadata) clone() Metadata {
	out := Metadata{
		name:      meta.name,
		createdAt: meta.createdAt,
		order:     append([]string(nil), meta.order...),
		byID:      make(map[string]IndicatorMetadata, len(meta.byID)),
	}
	for id, entry := range meta.byID {
		out.byID[id] = entry.Clone()
	}
	return out
}

type metadataJSON struct {
	Name       string          `json:"name"`
	CreatedAt  time.Time       `json:"created_at"`
	Indicators []indicatorJSON `json:"indicators"`
}

type indicatorJSON struct {
	ID string `json:"id"`
	IndicatorMetadata
}

// MarshalJSON serializes the metadata preserving indicator order.
func (meta Metadata) MarshalJSON() ([]byte, error) {
	out := metadataJSON{
		Name:      meta.name,
		CreatedAt: meta.createdAt,
	}
	for _, id := range meta.order {
		out.Indicators = append(out.Indicators, indicatorJSON{
			ID:                id,
			IndicatorMetadata: meta.byID[id],
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a value written by MarshalJSON, keeping the
// original timestamp.
func (meta *Metadata) UnmarshalJSON(data []byte) error {
	var in metadataJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return Error.Wrap(err)
	}
	restored := Metadata{
		name:      in.Name,
		createdAt: in.CreatedAt,
		byID:      make(map[string]IndicatorMetadata, len(in.Indicators)),
	}
	for _, entry := range in.Indicators {
		if entry.ID == "" {
			return Error.New("metadata %q: indicator with empty id", in.Name)
		}
		if _, ok := restored.byID[entry.ID]; ok {
			return Error.New("metadata %q: duplicate indicator %q", in.Name, entry.ID)
		}
		// Decoded entries must satisfy the same invariants NewMetadata
		// enforces, or corrupted cache files re-enter the system.
		if entry.CumulativePeriods < 1 {
			return Error.New("metadata %q: indicator %q: cumulative periods must be at least 1",
				in.Name, entry.ID)
		}
		restored.order = append(restored.order, entry.ID)
		im := entry.IndicatorMetadata
		if im.Transformations == nil {
			im.Transformations = []TransformationStep{}
		}
		restored.byID[entry.ID] = im
	}
	*meta = restored
	return nil
}

// WriteJSON writes the metadata as indented JSON.
func (meta Metadata) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return Error.Wrap(encoder.Encode(meta))
}

// ReadMetadataJSON parses metadata written by WriteJSON.
func ReadMetadataJSON(r io.Reader) (Metadata, error) {
	var meta Metadata
	if err := json.NewDecoder(r).Decode(&meta); err != nil {
		return Metadata{}, Error.Wrap(err)
	}
	return meta, nil
}
