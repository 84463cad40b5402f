// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number carries no country code.
const DefaultRegion = "US"

var extensionRegex = regexp.MustCompile(`(?i)\s*(?:ext\.?|extension|x|#)\s*\d+\s*$`)

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, regionOrDefault(region))
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// NationalDigits reduces a phone number to the digits of its national
// significant number, dropping formatting and the country calling code.
// "+1 (555) 123-4567", "15551234567" and "555.123.4567" all yield "5551234567".
// Letters are dropped, never keypad-mapped: "1-800-FLOWERS" yields "800".
// Returns "" for input without digits.
func NationalDigits(input string, region string) string {
	digits := DigitsOnly(input)
	if digits == "" {
		return ""
	}

	if hasLetters(input) {
		trimmed := extensionRegex.ReplaceAllString(input, "")
		return stripNANPPrefix(DigitsOnly(stripLeadingCountryGroup(trimmed)))
	}

	number, err := phonenumbers.Parse(strings.TrimSpace(input), regionOrDefault(region))
	if err == nil && phonenumbers.IsPossibleNumber(number) {
		if national := phonenumbers.GetNationalSignificantNumber(number); national != "" {
			if number.GetCountryCode() == 1 {
				return stripNANPPrefix(national)
			}
			return national
		}
	}

	return stripNANPPrefix(digits)
}

// stripNANPPrefix drops a leading trunk/country "1" from an 11-digit number.
func stripNANPPrefix(digits string) string {
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		return digits[1:]
	}
	return digits
}

func hasLetters(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

// stripLeadingCountryGroup drops a "+NN" or "1" group written before the
// first separator, as in "+1 800 FLOWERS" or "1-800-FLOWERS".
func stripLeadingCountryGroup(s string) string {
	s = strings.TrimSpace(s)
	end := strings.IndexAny(s, " -.(")
	if end <= 0 {
		return s
	}
	if group := s[:end]; group == "1" || (strings.HasPrefix(group, "+") && len(DigitsOnly(group)) == len(group)-1) {
		return s[end:]
	}
	return s
}

// DigitsOnly removes every non-digit rune.
func DigitsOnly(input string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, input)
}

func regionOrDefault(region string) string {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		return DefaultRegion
	}
	return region
}
