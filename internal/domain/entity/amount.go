package entity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal amount kept as the literal text the API or the user
// supplied. It decodes from either a JSON string or a JSON number and always
// encodes as a JSON string.
type Amount string

// UnmarshalJSON accepts "12.50", 12.50 and null
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*a = ""
		return nil
	}

	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("invalid amount %s: %w", s, err)
		}
		*a = Amount(str)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid amount %s: %w", s, err)
	}
	*a = Amount(n.String())
	return nil
}

// MarshalJSON always encodes the literal text as a string
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// String returns the literal text
func (a Amount) String() string {
	return string(a)
}

// Decimal parses the amount. An empty amount is zero.
func (a Amount) Decimal() (decimal.Decimal, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}
