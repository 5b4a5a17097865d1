package entity

import (
	"encoding/json"
	"fmt"
)

// Choice is one selectable option. The API emits choices as
// {"value":..,"label":..}, as ["value","label"] pairs or as plain strings.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// UnmarshalJSON accepts all three choice shapes
func (c *Choice) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		c.Value, c.Label = s, s
		return nil
	}

	var pair []string
	if err := json.Unmarshal(b, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("choice pair must have 2 elements, got %d", len(pair))
		}
		c.Value, c.Label = pair[0], pair[1]
		return nil
	}

	type plain Choice
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("invalid choice %s: %w", string(b), err)
	}
	*c = Choice(p)
	if c.Label == "" {
		c.Label = c.Value
	}
	return nil
}

// PaymentRequestChoices enumerates the valid values for the create form
type PaymentRequestChoices struct {
	PaymentModes []Choice `json:"payment_modes"`
	PaymentTypes []Choice `json:"payment_types"`
	VatStatuses  []Choice `json:"vat_statuses"`
	Currencies   []Choice `json:"currencies"`
	Entities     []Choice `json:"entities,omitempty"`
	Departments  []Choice `json:"departments,omitempty"`
	GLAccounts   []Choice `json:"gl_accounts,omitempty"`
}
