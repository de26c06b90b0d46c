package pricing

import "strings"

// HasStressKeywords reports whether the listing title contains
// distress-sale language. Case-insensitive substring match; an empty
// title is never stressed.
func HasStressKeywords(title string) bool {
	if title == "" {
		return false
	}
	lower := strings.ToLower(title)
	for _, kw := range StressKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
