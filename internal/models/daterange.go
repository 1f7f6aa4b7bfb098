package models

import (
	"fmt"
	"time"
)

// DateLayout is the layout of record dates and raw file names.
const DateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses two YYYY-MM-DD dates. An empty end means a single day.
func ParseDateRange(from, to string) (DateRange, error) {
	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q: %w", from, err)
	}
	if to == "" {
		return DateRange{Start: start, End: start}, nil
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q: %w", to, err)
	}
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s", to, from)
	}
	return DateRange{Start: start, End: end}, nil
}

// Days returns every day in the range in ascending order.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
