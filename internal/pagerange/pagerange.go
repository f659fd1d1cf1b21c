// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pagerange turns page-range strings such as "101-102" or
// "e1010.e87-e1019.e87" into page counts.
//
// Parsing is lenient: anything that cannot be read as a range counts as a
// single page. Parse reports whether the count came from a real range so
// callers can tell the two apart.
package pagerange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	electronicSuffix = regexp.MustCompile(`\.e\d*`)
	decimalSuffix    = regexp.MustCompile(`\.\d*`)
	articleID        = regexp.MustCompile(`(\d)e\d*`)
	nonRange         = regexp.MustCompile(`[^\d-]`)
	rangeForm        = regexp.MustCompile(`^(\d+)-(\d+)$`)
)

// Result is the outcome of parsing one page-range string.
type Result struct {
	// Pages is the inclusive page count, at least 1.
	Pages int

	// OK is false when Pages is the single-page fallback for input that
	// looked like a range but could not be read.
	OK bool
}

// Parse counts the pages described by s. A string without a hyphen is a
// single page. Otherwise article-id decoration is stripped and the
// remaining "start-end" is counted inclusively.
func Parse(s string) Result {
	if !strings.Contains(s, "-") {
		return Result{Pages: 1, OK: true}
	}

	stripped := electronicSuffix.ReplaceAllString(s, "")
	stripped = decimalSuffix.ReplaceAllString(stripped, "")
	// Each match consumes the digit it keeps, so chained ids ("1e2e3")
	// need repeated passes.
	for {
		next := articleID.ReplaceAllString(stripped, "${1}")
		if next == stripped {
			break
		}
		stripped = next
	}
	stripped = nonRange.ReplaceAllString(stripped, "")

	m := rangeForm.FindStringSubmatch(stripped)
	if m == nil {
		return Result{Pages: 1}
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return Result{Pages: 1}
	}
	end, err := strconv.Atoi(m[2])
	if err != nil {
		return Result{Pages: 1}
	}

	diff := end - start
	if diff < 0 {
		diff = -diff
	}
	return Result{Pages: diff + 1, OK: true}
}

// Count returns the page count for v, coercing non-strings to their string
// form. It never fails; unreadable input counts as one page.
func Count(v any) int {
	switch s := v.(type) {
	case nil:
		return 1
	case string:
		return Parse(s).Pages
	default:
		return Parse(fmt.Sprint(s)).Pages
	}
}

// Join builds a range string from separate first and last page fields.
func Join(first, last any) string {
	return fmt.Sprint(first) + "-" + fmt.Sprint(last)
}
