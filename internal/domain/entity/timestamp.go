package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp decodes the timestamp formats the payment API emits. A zero
// Timestamp encodes as null.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON parses RFC3339, naive ISO datetimes and plain dates
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		if strings.TrimSpace(string(b)) == "null" {
			t.Time = time.Time{}
			return nil
		}
		return fmt.Errorf("invalid timestamp %s: %w", string(b), err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// MarshalJSON encodes as RFC3339 or null
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}
