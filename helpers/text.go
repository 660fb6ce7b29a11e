package helpers

import (
	"regexp"
	"strings"
)

var digitRun = regexp.MustCompile(`\d+`)

// ExtractCount pulls the first run of decimal digits out of a count phrase
// such as "Based on 1,014 Ratings", dropping thousands separators first.
// Returns "0" when the text carries no digits at all and "N/A" for empty or
// literal "N/A" input. The caller is responsible for passing a fragment
// scoped to the count phrase so unrelated digits cannot leak in.
func ExtractCount(text string) string {
	if text == "" || text == "N/A" {
		return "N/A"
	}

	text = strings.ReplaceAll(text, ",", "")
	if match := digitRun.FindString(text); match != "" {
		return match
	}
	return "0"
}
