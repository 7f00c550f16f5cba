package classifier

import "strings"

// ParseVerdict turns a classifier reply into a PII verdict.
//
// "true" and "false" (exact, case-sensitive) map directly. Anything else is searched
// case-insensitively for "true", then "false". A reply containing neither counts as PII.
func ParseVerdict(response string) bool {
	switch response {
	case "true":
		return true
	case "false":
		return false
	}

	lower := strings.ToLower(response)
	if strings.Contains(lower, "true") {
		return true
	}
	if strings.Contains(lower, "false") {
		return false
	}
	return true
}
