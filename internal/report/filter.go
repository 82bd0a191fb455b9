package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mercurio-pos/api/internal/domain"
	"github.com/mercurio-pos/api/internal/enum"
)

// ErrInvalidRange is returned when a filter names an unknown range or a
// custom range is missing its bounds.
var ErrInvalidRange = errors.New("invalid date range")

// Filter describes which sales an aggregation run should consider.
// Start/End are only consulted for RangeCustom; named ranges resolve
// against the clock and location passed to Aggregate.
type Filter struct {
	Range      string
	Start      time.Time
	End        time.Time
	Search     string
	Instrument string
	SaleType   string
}

// ToInstant normalizes the timestamp representations tolerated at the
// ingestion boundary: RFC3339 strings, plain dates, epoch seconds (string
// or number), and native time values. Every caller that reads a raw
// timestamp goes through here instead of repeating the type sniffing.
func ToInstant(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case int64:
		return time.Unix(v, 0), nil
	case float64:
		return time.Unix(int64(v), 0), nil
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, nil
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t, nil
		}
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(secs, 0), nil
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
	case map[string]any:
		// Document stores serialize timestamps as {"seconds": n, ...}.
		if secs, ok := v["seconds"]; ok {
			return ToInstant(secs)
		}
		return time.Time{}, fmt.Errorf("timestamp object without seconds field")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", raw)
	}
}

// resolveWindow turns a named range into a half-open [start, end) window
// anchored at now in loc. End is always tomorrow's midnight so today's
// sales are included.
func resolveWindow(f Filter, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	local := now.In(loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	switch f.Range {
	case enum.RangeToday, "":
		return end.AddDate(0, 0, -1), end, nil
	case enum.RangeWeek:
		return end.AddDate(0, 0, -7), end, nil
	case enum.RangeMonth:
		return end.AddDate(0, -1, 0), end, nil
	case enum.RangeThreeMonths:
		return end.AddDate(0, -3, 0), end, nil
	case enum.RangeSixMonths:
		return end.AddDate(0, -6, 0), end, nil
	case enum.RangeYear:
		return end.AddDate(-1, 0, 0), end, nil
	case enum.RangeCustom:
		if f.Start.IsZero() || f.End.IsZero() || f.End.Before(f.Start) {
			return time.Time{}, time.Time{}, ErrInvalidRange
		}
		return f.Start, f.End, nil
	default:
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
}

// matches applies the window plus the optional structural and free-text
// criteria. The text match is a case-insensitive substring test against
// the sale ID, any line item's product name, or the localized date string.
func matches(s domain.Sale, f Filter, start, end time.Time, loc *time.Location) bool {
	if s.CreatedAt.Before(start) || !s.CreatedAt.Before(end) {
		return false
	}

	if f.SaleType != "" && s.Type != f.SaleType {
		return false
	}

	if f.Instrument != "" {
		found := false
		for _, p := range s.Payments {
			if p.Instrument == f.Instrument {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Search == "" {
		return true
	}

	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(s.ID.String()), term) {
		return true
	}
	if strings.Contains(s.CreatedAt.In(loc).Format("02/01/2006"), term) {
		return true
	}
	for _, it := range s.Items {
		if strings.Contains(strings.ToLower(it.ProductName), term) {
			return true
		}
	}
	return false
}
