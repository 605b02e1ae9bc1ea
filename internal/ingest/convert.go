package ingest

// convert.go holds the pure field coercers applied to raw export cells.
//
// Exports mix currency symbols, thousands separators, unit suffixes and two
// regional date conventions, so every coercer is tolerant: a value that
// cannot be parsed falls back to a caller default instead of failing a row.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// amountJunk matches every character that is not part of a plain decimal
// number. "$1,234.56 USD" coerces to 1234.56.
var amountJunk = regexp.MustCompile(`[^0-9.\-]`)

// ParseAmount coerces a raw cell to a float. Currency symbols, separators
// and trailing unit text are discarded; an empty or unparsable result
// returns def.
func ParseAmount(s string, def float64) float64 {
	cleaned := amountJunk.ReplaceAllString(s, "")
	if cleaned == "" {
		return def
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return def
	}
	return v
}

// dateLayouts is the ordered list of accepted timestamp formats: ISO first,
// then day-first dotted and slashed, then the US month-first convention,
// each with and without time of day.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseDate tries each accepted layout in order and returns the first full
// match. A value that matches no layout returns ok=false; date parsing never
// fails a row.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDatePtr is ParseDate for nullable timestamp fields.
func parseDatePtr(s string) *time.Time {
	if t, ok := ParseDate(s); ok {
		return &t
	}
	return nil
}

// SubunitMarker flags amounts denominated in a minor currency unit (cents).
// Raw values carrying the marker are divided by 100.
const SubunitMarker = "USC"

// IsSubunit reports whether a raw amount cell is expressed in the minor
// currency unit.
func IsSubunit(s string) bool {
	return strings.Contains(strings.ToUpper(s), SubunitMarker)
}

// SubunitAmount coerces a raw amount cell and applies the minor-unit
// conversion when the subunit marker is present.
func SubunitAmount(s string) float64 {
	amount := ParseAmount(s, 0)
	if IsSubunit(s) {
		amount /= 100
	}
	return amount
}
