// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/pdiddy/scholar-snapshot/pkg/types"
)

const isoDate = "2006-01-02"

// DateResult is the outcome of reading a date-parts value. Value is an
// ISO YYYY-MM-DD string when OK is true.
type DateResult struct {
	Value string
	OK    bool
}

// ParseDateParts reads a Crossref "date-parts" value of the form
// [[year, month?, day?]]. The year must render as exactly four digits;
// missing month and day default to 1. Any other shape, or a calendar date
// that does not exist, yields a result with OK false.
func ParseDateParts(v any) DateResult {
	outer, ok := v.([]any)
	if !ok || len(outer) == 0 {
		return DateResult{}
	}
	parts, ok := outer[0].([]any)
	if !ok || len(parts) == 0 || len(parts) > 3 {
		return DateResult{}
	}

	yearText, ok := partText(parts[0])
	if !ok || len(yearText) != 4 {
		return DateResult{}
	}
	ymd := [3]int{0, 1, 1}
	for i, p := range parts {
		text, ok := partText(p)
		if !ok {
			return DateResult{}
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return DateResult{}
		}
		ymd[i] = n
	}

	if ymd[0] < 1000 || ymd[1] < 1 || ymd[1] > 12 || ymd[2] < 1 {
		return DateResult{}
	}
	t := time.Date(ymd[0], time.Month(ymd[1]), ymd[2], 0, 0, 0, 0, time.UTC)
	if t.Day() != ymd[2] {
		// time.Date rolls Feb 30 into March.
		return DateResult{}
	}
	return DateResult{Value: t.Format(isoDate), OK: true}
}

// DateParts collapses a date object such as {"date-parts": [[2020, 5]]} to
// "2020-05-01", or to nil when the parts cannot be read. Values that are
// not mappings are returned unchanged.
func DateParts(v any) any {
	m, ok := types.Mapping(v)
	if !ok {
		return v
	}
	if r := ParseDateParts(m["date-parts"]); r.OK {
		return r.Value
	}
	return nil
}

// partText renders one date part the way it appears in the source JSON.
func partText(p any) (string, bool) {
	switch n := p.(type) {
	case json.Number:
		return n.String(), true
	case string:
		return n, true
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return "", false
		}
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	return "", false
}
