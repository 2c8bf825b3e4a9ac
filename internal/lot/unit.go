// Package lot maps instants to fixed-width, lexically sortable interval ids.
//
// A lot is the formatted start of the UTC interval containing an instant.
// Formatting is fixed width, so string order matches chronological order of
// the interval starts. Sub-daily units render as "20060102T1504", daily
// units as "20060102".
package lot

import (
	"fmt"
	"sort"
	"time"
)

// Layouts for lot ids.
const (
	LayoutMinutes = "20060102T1504"
	LayoutDays    = "20060102"
)

const day = 24 * time.Hour

// IntervalUnit is a fixed interval width that evenly divides an hour or a day.
// The zero value is invalid; use a built-in unit or Every.
type IntervalUnit struct {
	name   string
	width  time.Duration
	layout string
}

// Built-in units.
var (
	Twelfths = IntervalUnit{name: "twelfths", width: 5 * time.Minute, layout: LayoutMinutes}
	Sixths   = IntervalUnit{name: "sixths", width: 10 * time.Minute, layout: LayoutMinutes}
	Fourths  = IntervalUnit{name: "fourths", width: 15 * time.Minute, layout: LayoutMinutes}
	Thirds   = IntervalUnit{name: "thirds", width: 20 * time.Minute, layout: LayoutMinutes}
	Halves   = IntervalUnit{name: "halves", width: 30 * time.Minute, layout: LayoutMinutes}
	Hours    = IntervalUnit{name: "hours", width: time.Hour, layout: LayoutMinutes}
	Days     = IntervalUnit{name: "days", width: day, layout: LayoutDays}
)

var builtins = map[string]IntervalUnit{
	Twelfths.name: Twelfths,
	Sixths.name:   Sixths,
	Fourths.name:  Fourths,
	Thirds.name:   Thirds,
	Halves.name:   Halves,
	Hours.name:    Hours,
	Days.name:     Days,
}

// Units returns the built-in units ordered by width.
func Units() []IntervalUnit {
	units := make([]IntervalUnit, 0, len(builtins))
	for _, u := range builtins {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].width < units[j].width })
	return units
}

// Every returns the unit of width d. d must be a whole number of minutes and
// evenly divide an hour (sub-hour widths) or a day. Widths matching a
// built-in unit return that unit.
func Every(d time.Duration) (IntervalUnit, error) {
	switch {
	case d <= 0:
		return IntervalUnit{}, fmt.Errorf("interval %s must be positive", d)
	case d%time.Minute != 0:
		return IntervalUnit{}, fmt.Errorf("interval %s must be a whole number of minutes", d)
	case d < time.Hour && time.Hour%d != 0:
		return IntervalUnit{}, fmt.Errorf("interval %s does not evenly divide an hour", d)
	case d >= time.Hour && (d > day || day%d != 0):
		return IntervalUnit{}, fmt.Errorf("interval %s does not evenly divide a day", d)
	}

	for _, u := range builtins {
		if u.width == d {
			return u, nil
		}
	}
	layout := LayoutMinutes
	if d == day {
		layout = LayoutDays
	}
	return IntervalUnit{name: d.String(), width: d, layout: layout}, nil
}

// ParseUnit resolves a built-in unit name ("twelfths", "hours", ...) or a
// Go duration string ("5m", "2h").
func ParseUnit(s string) (IntervalUnit, error) {
	if u, ok := builtins[s]; ok {
		return u, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return IntervalUnit{}, fmt.Errorf("unknown interval unit %q", s)
	}
	return Every(d)
}

// ValidateBoundary rejects units wider than an hour. Boundary triggers fire on
// a schedule that cannot express longer periods; the partitioner itself
// accepts any valid unit.
func ValidateBoundary(u IntervalUnit) error {
	if !u.Valid() {
		return fmt.Errorf("invalid interval unit")
	}
	if u.width > time.Hour {
		return fmt.Errorf("interval unit %s exceeds 60 minutes and cannot drive a boundary trigger", u)
	}
	return nil
}

// Name returns the unit name.
func (u IntervalUnit) Name() string { return u.name }

// Width returns the interval width.
func (u IntervalUnit) Width() time.Duration { return u.width }

// Layout returns the time layout of lot ids in this unit.
func (u IntervalUnit) Layout() string { return u.layout }

// Valid reports whether u was built by Every or is a built-in.
func (u IntervalUnit) Valid() bool { return u.width > 0 && u.layout != "" }

func (u IntervalUnit) String() string { return u.name }
