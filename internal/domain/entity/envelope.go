package entity

import "encoding/json"

// EnvelopeCodeOK is the envelope code of a successful call
const EnvelopeCodeOK = 200

// Envelope is the response wrapper every payment API endpoint uses
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

// OK returns true if the envelope reports success
func (e *Envelope) OK() bool {
	return e != nil && e.Code == EnvelopeCodeOK
}
