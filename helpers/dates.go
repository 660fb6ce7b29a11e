package helpers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gamescoreworker/logger"
)

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{
	"Jan 2, 2006",     // Mar 7, 2025
	"January 2, 2006", // March 7, 2025
	"1/2/2006",        // 3/7/2025 or 03/07/2025
	"1-2-2006",        // 3-7-2025 or 03-07-2025
	"2006-1-2",        // 2025-03-07
}

// CanonicalizeDate converts the date formats the site emits to zero-padded
// "MM/DD/YYYY". Empty input and "N/A" map to "N/A". An unrecognized format is
// returned unchanged with a warning; a malformed date must not abort a run.
func CanonicalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || s == "N/A" {
		return "N/A"
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("01/02/2006")
		}
	}

	logger.Warn("could not parse date %q", s)
	return s
}

// NormalizeDateForComparison reformats a "M/D/YYYY" shaped value to
// zero-padded "MM/DD/YYYY" and passes anything else through unchanged. Values
// read back from the store may predate zero-padding, so both sides of a
// lookup go through this before comparing.
func NormalizeDateForComparison(value string) string {
	if value == "" || value == "N/A" {
		return "N/A"
	}

	parts := strings.Split(value, "/")
	if len(parts) == 3 {
		month, errM := strconv.Atoi(parts[0])
		day, errD := strconv.Atoi(parts[1])
		if errM == nil && errD == nil {
			return fmt.Sprintf("%02d/%02d/%s", month, day, parts[2])
		}
	}

	return value
}
