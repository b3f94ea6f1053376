package resolve

import "regexp"

// phonePattern matches hyphenated numbers such as 03-1234-5678 or 0120-123-456.
var phonePattern = regexp.MustCompile(`\d{2,4}-\d{2,4}-\d{3,4}`)

// ExtractPhone returns the first phone-shaped match across snippets, in order.
func ExtractPhone(snippets []string) string {
	for _, s := range snippets {
		if m := phonePattern.FindString(s); m != "" {
			return m
		}
	}
	return ""
}
