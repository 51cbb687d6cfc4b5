package bolagsverket

import (
	"fmt"
	"strings"
)

// NormalizeOrgNr strips every non-digit character from an organisation
// number, accepting user-facing forms like "556036-0793" or "16 556036-0793".
func NormalizeOrgNr(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatOrgNr renders a ten-digit organisation number in the customary
// NNNNNN-NNNN form. Other lengths are returned unchanged.
func FormatOrgNr(digits string) string {
	if len(digits) != 10 {
		return digits
	}
	return fmt.Sprintf("%s-%s", digits[:6], digits[6:])
}

// ValidOrgNr reports whether a normalized organisation number has a
// plausible length. The registry itself is the authority on existence.
func ValidOrgNr(digits string) bool {
	return len(digits) == 10 || len(digits) == 12
}
