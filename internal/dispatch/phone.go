package dispatch

import "strings"

// NormalizePhone converts a locally formatted phone number to international
// digits. All non-digits are stripped; a number already carrying the country
// prefix is used as-is, a leading trunk zero is replaced by the prefix, and
// anything else gets the prefix prepended.
func NormalizePhone(raw, countryPrefix string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	number := digits.String()
	switch {
	case number == "":
		return ""
	case strings.HasPrefix(number, countryPrefix):
		return number
	case strings.HasPrefix(number, "0"):
		return countryPrefix + number[1:]
	default:
		return countryPrefix + number
	}
}
