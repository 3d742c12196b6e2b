// internal/page/datetime.go
package page

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	dateLayouts = []string{"2006-01-02", "2006/01/02"}

	datetimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05 -07:00",
		"2006-01-02 15:04",
		"2006-01-02T15:04",
	}

	clockLayouts = []string{"15:04:05.999999999", "15:04:05", "15:04"}
)

// DateTimes is the outcome of merging the date, time and datetime keys.
// Absent values stay nil; there is no zero-epoch default.
type DateTimes struct {
	Date     *time.Time
	Time     *Clock
	Datetime *time.Time
}

// MergeDateTime combines any subset of date, time and datetime.
//
// Explicit date and time win over the components implied by datetime;
// missing ones are taken from datetime. When a date is known, datetime is
// rebuilt from the date and the time (midnight without one). A time with no
// date leaves datetime unset. Integer times are seconds since midnight.
//
// Values that cannot be parsed are reported in errs and treated as absent.
func MergeDateTime(rawDate, rawTime, rawDatetime any) (DateTimes, []error) {
	var (
		out  DateTimes
		errs []error
	)

	if rawDate != nil {
		d, err := parseDate(rawDate)
		if err != nil {
			errs = append(errs, fmt.Errorf("date: %w", err))
		} else {
			out.Date = &d
		}
	}
	if rawTime != nil {
		c, err := parseClock(rawTime)
		if err != nil {
			errs = append(errs, fmt.Errorf("time: %w", err))
		} else {
			out.Time = &c
		}
	}
	if rawDatetime != nil {
		d, c, err := parseDatetime(rawDatetime)
		if err != nil {
			errs = append(errs, fmt.Errorf("datetime: %w", err))
		} else {
			if out.Date == nil {
				out.Date = &d
			}
			if out.Time == nil && c != nil {
				out.Time = c
			}
		}
	}

	if out.Date != nil {
		var c Clock
		if out.Time != nil {
			c = *out.Time
		}
		d := *out.Date
		dt := time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, c.Second, c.Nanosecond, d.Location())
		out.Datetime = &dt
	}
	return out, errs
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func clockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond()}
}

func parseDate(v any) (time.Time, error) {
	switch v := v.(type) {
	case time.Time:
		return midnight(v), nil
	case *time.Time:
		if v != nil {
			return midnight(*v), nil
		}
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return midnight(t), nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as a date", v)
	}
	return time.Time{}, fmt.Errorf("unsupported type %T", v)
}

func parseClock(v any) (Clock, error) {
	switch v := v.(type) {
	case Clock:
		return v, nil
	case *Clock:
		if v != nil {
			return *v, nil
		}
	case time.Time:
		return clockOf(v), nil
	case int, int64, uint64, float64:
		secs, ok := toInt(v)
		if !ok {
			return Clock{}, fmt.Errorf("%v is not a whole number of seconds", v)
		}
		return clockFromSeconds(secs)
	case string:
		s := strings.TrimSpace(v)
		if secs, err := strconv.Atoi(s); err == nil {
			return clockFromSeconds(secs)
		}
		for _, layout := range clockLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return clockOf(t), nil
			}
		}
		return Clock{}, fmt.Errorf("cannot parse %q as a time", v)
	}
	return Clock{}, fmt.Errorf("unsupported type %T", v)
}

func clockFromSeconds(secs int) (Clock, error) {
	if secs < 0 || secs >= 24*60*60 {
		return Clock{}, fmt.Errorf("%d seconds is outside of a day", secs)
	}
	return Clock{Hour: secs / 3600, Minute: secs % 3600 / 60, Second: secs % 60}, nil
}

// parseDatetime returns the date and, when the value carries one, the time
// of day. A bare date yields a nil clock.
func parseDatetime(v any) (time.Time, *Clock, error) {
	switch v := v.(type) {
	case time.Time:
		c := clockOf(v)
		return midnight(v), &c, nil
	case *time.Time:
		if v != nil {
			c := clockOf(*v)
			return midnight(*v), &c, nil
		}
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				c := clockOf(t)
				return midnight(t), &c, nil
			}
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil, nil
			}
		}
		return time.Time{}, nil, fmt.Errorf("cannot parse %q as a datetime", v)
	}
	return time.Time{}, nil, fmt.Errorf("unsupported type %T", v)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
