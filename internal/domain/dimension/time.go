package dimension

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"landportal/internal/core/apperror"
	"landportal/internal/core/entity"
	"landportal/internal/core/id"
)

// InstantLayout is ISO-8601 at second precision without zone designator.
const InstantLayout = "2006-01-02T15:04:05"

// MinYear is the lowest year accepted by year and month intervals.
const MinYear = 1

// Instant is a single point in time.
type Instant struct {
	id        id.Surrogate
	timestamp time.Time
}

// NewInstant creates an Instant. The timestamp is kept in its own location.
func NewInstant(ts time.Time) (Instant, error) {
	if ts.IsZero() {
		return Instant{}, apperror.NewValidation("instant timestamp is required").
			WithDetail("field", "timestamp")
	}
	return Instant{timestamp: ts.Truncate(time.Second)}, nil
}

func (i Instant) ID() id.Surrogate        { return i.id }
func (i Instant) Variant() Variant        { return VariantInstant }
func (i Instant) EntityKind() entity.Kind { return entity.KindDimension }
func (i Instant) Key() string             { return dimensionKey(i.id) }
func (i Instant) Timestamp() time.Time    { return i.timestamp }
func (i Instant) TimeString() string      { return i.timestamp.Format(InstantLayout) }
func (i Instant) CanonicalString() string { return i.TimeString() }

// Interval is a half-open date range [start, end).
type Interval struct {
	id    id.Surrogate
	start time.Time
	end   time.Time
	value string
}

// NewInterval creates an Interval. Both bounds are required and end must be after start.
func NewInterval(start, end time.Time) (Interval, error) {
	if err := checkBounds(start, end); err != nil {
		return Interval{}, err
	}
	iv := Interval{start: start, end: end}
	iv.value = fmt.Sprintf("%d-%d", start.Year(), end.Year())
	return iv, nil
}

func (i Interval) ID() id.Surrogate        { return i.id }
func (i Interval) Variant() Variant        { return VariantInterval }
func (i Interval) EntityKind() entity.Kind { return entity.KindDimension }
func (i Interval) Key() string             { return dimensionKey(i.id) }
func (i Interval) Start() time.Time        { return i.start }
func (i Interval) End() time.Time          { return i.end }
func (i Interval) TimeString() string      { return i.value }
func (i Interval) CanonicalString() string { return i.value }

// Contains reports whether t falls in [start, end).
func (i Interval) Contains(t time.Time) bool {
	return containsHalfOpen(i.start, i.end, t)
}

// YearInterval covers one calendar year.
type YearInterval struct {
	id    id.Surrogate
	year  int
	start time.Time
	end   time.Time
}

// NewYearInterval creates the interval [Jan-1 year, Jan-1 year+1).
func NewYearInterval(year int) (YearInterval, error) {
	if year < MinYear {
		return YearInterval{}, apperror.NewValidation("year is out of range").
			WithDetail("field", "year").
			WithDetail("value", year).
			WithDetail("min", MinYear)
	}
	return YearInterval{
		year:  year,
		start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		end:   time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

// ParseYearInterval parses the year from text (e.g. a feed column) first.
func ParseYearInterval(s string) (YearInterval, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return YearInterval{}, apperror.NewValidation("year is not an integer").
			WithDetail("field", "year").
			WithDetail("value", s).
			WithCause(err)
	}
	return NewYearInterval(year)
}

func (y YearInterval) ID() id.Surrogate        { return y.id }
func (y YearInterval) Variant() Variant        { return VariantYearInterval }
func (y YearInterval) EntityKind() entity.Kind { return entity.KindDimension }
func (y YearInterval) Key() string             { return dimensionKey(y.id) }
func (y YearInterval) Year() int               { return y.year }
func (y YearInterval) Start() time.Time        { return y.start }
func (y YearInterval) End() time.Time          { return y.end }
func (y YearInterval) TimeString() string      { return strconv.Itoa(y.year) }
func (y YearInterval) CanonicalString() string { return y.TimeString() }

// Contains reports whether t falls in the year.
func (y YearInterval) Contains(t time.Time) bool {
	return containsHalfOpen(y.start, y.end, t)
}

// MonthInterval covers one calendar month.
type MonthInterval struct {
	id    id.Surrogate
	year  int
	month int
	start time.Time
	end   time.Time
}

// NewMonthInterval creates the interval [1st of month, 1st of next month).
// December rolls over to January of the following year.
func NewMonthInterval(month, year int) (MonthInterval, error) {
	if month < 1 || month > 12 {
		return MonthInterval{}, apperror.NewValidation("month must be between 1 and 12").
			WithDetail("field", "month").
			WithDetail("value", month)
	}
	if year < MinYear {
		return MonthInterval{}, apperror.NewValidation("year is out of range").
			WithDetail("field", "year").
			WithDetail("value", year).
			WithDetail("min", MinYear)
	}

	endYear, endMonth := year, month+1
	if month == 12 {
		endYear, endMonth = year+1, 1
	}

	return MonthInterval{
		year:  year,
		month: month,
		start: time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
		end:   time.Date(endYear, time.Month(endMonth), 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (m MonthInterval) ID() id.Surrogate        { return m.id }
func (m MonthInterval) Variant() Variant        { return VariantMonthInterval }
func (m MonthInterval) EntityKind() entity.Kind { return entity.KindDimension }
func (m MonthInterval) Key() string             { return dimensionKey(m.id) }
func (m MonthInterval) Year() int               { return m.year }
func (m MonthInterval) Month() int              { return m.month }
func (m MonthInterval) Start() time.Time        { return m.start }
func (m MonthInterval) End() time.Time          { return m.end }
func (m MonthInterval) TimeString() string      { return fmt.Sprintf("%d-%d", m.year, m.month) }
func (m MonthInterval) CanonicalString() string { return m.TimeString() }

// Contains reports whether t falls in the month.
func (m MonthInterval) Contains(t time.Time) bool {
	return containsHalfOpen(m.start, m.end, t)
}

// --- helpers ---

func checkBounds(start, end time.Time) error {
	if start.IsZero() {
		return apperror.NewValidation("interval start is required").
			WithDetail("field", "start")
	}
	if end.IsZero() {
		return apperror.NewValidation("interval end is required").
			WithDetail("field", "end")
	}
	if !end.After(start) {
		return apperror.NewValidation("interval end must be after start").
			WithDetail("start", start).
			WithDetail("end", end)
	}
	return nil
}

func containsHalfOpen(start, end, t time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
