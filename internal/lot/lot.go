package lot

import (
	"fmt"
	"time"
)

// Truncate returns the UTC start of the interval containing t.
func (u IntervalUnit) Truncate(t time.Time) time.Time {
	t = t.UTC()
	if u.width == day {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	// Widths divide a day, and time.Truncate counts from a midnight-aligned
	// zero time, so intervals never straddle midnight.
	return t.Truncate(u.width)
}

// Lot returns the id of the interval containing t.
func (u IntervalUnit) Lot(t time.Time) string {
	return u.Truncate(t).Format(u.layout)
}

// Parse returns the interval start encoded by lot. Ids that are not aligned
// to the unit are rejected.
func (u IntervalUnit) Parse(lot string) (time.Time, error) {
	if !u.Valid() {
		return time.Time{}, fmt.Errorf("parse lot %q: invalid interval unit", lot)
	}
	t, err := time.ParseInLocation(u.layout, lot, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse lot %q: %w", lot, err)
	}
	if !u.Truncate(t).Equal(t) {
		return time.Time{}, fmt.Errorf("lot %q is not aligned to %s intervals", lot, u)
	}
	return t, nil
}

// Next returns the lot following lot.
func (u IntervalUnit) Next(lot string) (string, error) {
	return u.shift(lot, 1)
}

// Previous returns the lot preceding lot.
func (u IntervalUnit) Previous(lot string) (string, error) {
	return u.shift(lot, -1)
}

func (u IntervalUnit) shift(lot string, n int) (string, error) {
	t, err := u.Parse(lot)
	if err != nil {
		return "", err
	}
	return u.Lot(t.Add(time.Duration(n) * u.width)), nil
}

// Gap returns the number of whole intervals from one lot to another. It is
// negative when to precedes from.
func (u IntervalUnit) Gap(from, to string) (int, error) {
	start, err := u.Parse(from)
	if err != nil {
		return 0, err
	}
	end, err := u.Parse(to)
	if err != nil {
		return 0, err
	}
	return int(end.Sub(start) / u.width), nil
}

// Range returns every lot from from to to, both inclusive, in order. An empty
// slice is returned when to precedes from.
func (u IntervalUnit) Range(from, to string) ([]string, error) {
	n, err := u.Gap(from, to)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return []string{}, nil
	}
	start, _ := u.Parse(from)
	lots := make([]string, 0, n+1)
	for i := 0; i <= n; i++ {
		lots = append(lots, u.Lot(start.Add(time.Duration(i)*u.width)))
	}
	return lots, nil
}
