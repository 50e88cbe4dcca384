package cleaner

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing date fields. Spreadsheet
// exports in this domain mix ISO dates, datetimes, and day-first forms.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02.01.2006",
}

// parseNumber coerces a cell to the canonical float64 representation.
//
// Decimal commas are accepted when the value carries no decimal point
// ("2,50" -> 2.50); thousands separators are not. Empty cells fail.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// parseDate coerces a cell to a canonical UTC date.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if layout == time.RFC3339 {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), true
			}
			continue
		}
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
