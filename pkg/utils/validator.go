package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	// textControlChars spares tab, newline and carriage return
	textControlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	tinPattern       = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z\-]{5,19}$`)
)

// ValidateAmount checks that s is a positive decimal with at most two
// fraction digits. s is not trimmed: what the user typed is what gets sent.
func ValidateAmount(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("amount is not a number: %q", s)
	}
	if !d.IsPositive() {
		return fmt.Errorf("amount must be positive: %s", s)
	}
	if -d.Exponent() > 2 && !d.Equal(d.Round(2)) {
		return fmt.Errorf("amount has more than two decimals: %s", s)
	}
	return nil
}

// ValidateTIN checks the shape of a taxpayer identification number
func ValidateTIN(tin string) error {
	if !tinPattern.MatchString(tin) {
		return fmt.Errorf("invalid TIN format: %s", tin)
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// SanitizeText is SanitizeString for free text: line breaks and tabs are kept
func SanitizeText(s string) string {
	return strings.TrimSpace(textControlChars.ReplaceAllString(s, ""))
}
