// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

package dataset

import (
	"time"
)

// Frequency is a sampling period code for a time series index.
type Frequency string

// Supported frequency codes, ordered from finest to coarsest.
const (
	Unknown   Frequency = ""
	Daily     Frequency = "D"
	Business  Frequency = "B"
	Weekly    Frequency = "W"
	Monthly   Frequency = "M"
	Quarterly Frequency = "Q"
	Annual    Frequency = "A"
)

// periodsPerYear assigns a numeric rank to each known frequency so that
// resampling can decide how many source observations make up a full
// target bucket.
var periodsPerYear = map[Frequency]float64{
	Daily:     365,
	Business:  260,
	Weekly:    52,
	Monthly:   12,
	Quarterly: 4,
	Annual:    1,
}

// PeriodsPerYear reports how many periods of this frequency fit in a year.
// ok is false for Unknown or unranked codes.
func (freq Frequency) PeriodsPerYear() (periods float64, ok bool) {
	periods, ok = periodsPerYear[freq]
	return periods, ok
}

// SubMonthly reports whether the frequency is finer than monthly.
// Unknown counts as sub-monthly, matching how conversions treat series
// whose frequency could not be inferred.
func (freq Frequency) SubMonthly() bool {
	switch freq {
	case Daily, Business, Weekly, Unknown:
		return true
	}
	return false
}

// Valid reports whether the code is one of the supported frequencies.
func (freq Frequency) Valid() bool {
	switch freq {
	case Daily, Business, Weekly, Monthly, Quarterly, Annual:
		return true
	}
	return false
}

// InferFrequency guesses the sampling period of a monotonic time index.
// It returns Unknown instead of failing when there are fewer than 3
// points or when the gaps do not consistently match a known frequency.
func InferFrequency(index []time.Time) Frequency {
	if len(index) < 3 {
		return Unknown
	}

	candidate := classifyGap(index[0], index[1])
	if candidate == Unknown {
		return Unknown
	}
	for i := 2; i < len(index); i++ {
		if classifyGap(index[i-1], index[i]) != candidate {
			return Unknown
		}
	}

	if candidate == Daily && allWeekdays(index) {
		return Business
	}
	return candidate
}

func classifyGap(prev, next time.Time) Frequency {
	days := next.Sub(prev).Hours() / 24
	switch {
	case days >= 1 && days <= 1.5:
		return Daily
	case days >= 2.5 && days <= 3.5 && isWeekday(prev) && isWeekday(next):
		// Friday to Monday gap in business-day data.
		return Daily
	case days >= 6.5 && days <= 7.5:
		return Weekly
	case days >= 28 && days <= 31.5:
		return Monthly
	case days >= 89 && days <= 92.5:
		return Quarterly
	case days >= 365 && days <= 366.5:
		return Annual
	}
	return Unknown
}

func isWeekday(t time.Time) bool {
	day := t.Weekday()
	return day != time.Saturday && day != time.Sunday
}

func allWeekdays(index []time.Time) bool {
	for _, t := range index {
		if !isWeekday(t) {
			return false
		}
	}
	return true
}

// PeriodEnd returns the last calendar day of the period of freq that
// contains t, normalized to midnight UTC. Daily and business frequencies
// return the day itself.
func PeriodEnd(t time.Time, freq Frequency) time.Time {
	year, month, day := t.Date()
	switch freq {
	case Daily, Business:
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	case Weekly:
		// Weeks close on Sunday.
		date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		offset := (7 - int(date.Weekday())) % 7
		return date.AddDate(0, 0, offset)
	case Monthly:
		return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	case Quarterly:
		quarterEnd := time.Month(((int(month)-1)/3)*3 + 3)
		return time.Date(year, quarterEnd+1, 0, 0, 0, 0, 0, time.UTC)
	case Annual:
		return time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NextPeriodEnd returns the end of the period immediately after the one
// containing t.
func NextPeriodEnd(t time.Time, freq Frequency) time.Time {
	end := PeriodEnd(t, freq)
	switch freq {
	case Daily:
		return end.AddDate(0, 0, 1)
	case Business:
		next := end.AddDate(0, 0, 1)
		for !isWeekday(next) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	case Weekly:
		return end.AddDate(0, 0, 7)
	case Monthly:
		return PeriodEnd(end.AddDate(0, 0, 1), Monthly)
	case Quarterly:
		return PeriodEnd(end.AddDate(0, 0, 1), Quarterly)
	case Annual:
		return time.Date(end.Year()+1, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return end
}
