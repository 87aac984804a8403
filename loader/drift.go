// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package loader

import (
	"math"

	"github.com/zeebo/errs"

	"econuy.io/econuy/dataset"
)

// ErrDrift is returned when a freshly retrieved dataset is structurally
// or statistically incompatible with its cached revision.
var ErrDrift = errs.Class("dataset drift")

// headFraction is the leading share of the cached dataset compared
// statistically. The trailing rows are excluded since legitimate updates
// append and revise recent observations.
const headFraction = 0.9

// driftTolerance is the relative tolerance for means and standard
// deviations over the compared head.
const driftTolerance = 0.05

// ValidateRevision checks that fresh is a plausible update of previous.
// Structural properties must match exactly; the statistics of the
// leading rows must agree within tolerance. A nil result means the fresh
// revision may replace the cached one.
func ValidateRevision(previous, fresh *dataset.Dataset) error {
	if previous.Name() != fresh.Name() {
		return ErrDrift.New("datasets have different names: %q and %q",
			previous.Name(), fresh.Name())
	}
	if !previous.Metadata().EqualIndicators(fresh.Metadata()) {
		return ErrDrift.New("dataset %q: revisions have different indicator metadata", previous.Name())
	}

	previousData, freshData := previous.Data(), fresh.Data()
	if previousData.NumColumns() != freshData.NumColumns() {
		return ErrDrift.New("dataset %q: revisions have different number of columns: %d and %d",
			previous.Name(), previousData.NumColumns(), freshData.NumColumns())
	}
	if !previousData.Time(0).Equal(freshData.Time(0)) {
		return ErrDrift.New("dataset %q: revisions have different start dates: %s and %s",
			previous.Name(),
			previousData.Time(0).Format("2006-01-02"),
			freshData.Time(0).Format("2006-01-02"))
	}

	rows := int(headFraction * float64(previousData.Len()))
	if rows > freshData.Len() {
		return ErrDrift.New("dataset %q: fresh revision has fewer rows (%d) than the compared head (%d)",
			previous.Name(), freshData.Len(), rows)
	}
	previousHead, freshHead := previousData.Head(rows), freshData.Head(rows)

	if previousHead.NotNullCount() != freshHead.NotNullCount() {
		return ErrDrift.New("dataset %q: revisions have different number of missing values over the compared head: %d and %d",
			previous.Name(),
			previousHead.Len()*previousHead.NumColumns()-previousHead.NotNullCount(),
			freshHead.Len()*freshHead.NumColumns()-freshHead.NotNullCount())
	}
	for j := 0; j < previousHead.NumColumns(); j++ {
		if !withinTolerance(previousHead.ColumnMean(j), freshHead.ColumnMean(j)) {
			return ErrDrift.New("dataset %q: revisions have different means over the compared head (column %d)",
				previous.Name(), j)
		}
		if !withinTolerance(previousHead.ColumnStdDev(j), freshHead.ColumnStdDev(j)) {
			return ErrDrift.New("dataset %q: revisions have different standard deviations over the compared head (column %d)",
				previous.Name(), j)
		}
	}
	return nil
}

// withinTolerance compares two statistics with relative tolerance.
// Two NaNs agree: a column with no observations in the head is stable.
func withinTolerance(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return math.Abs(a-b) <= driftTolerance*math.Abs(b)
}
