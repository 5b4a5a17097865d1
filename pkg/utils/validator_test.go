package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  a\nb\tc\x00 "))
	assert.Equal(t, "", SanitizeString("\r\n"))
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"keeps newlines", "Invoice 1\nInvoice 2", "Invoice 1\nInvoice 2"},
		{"keeps crlf and tabs", "a\r\n\tb", "a\r\n\tb"},
		{"drops other controls", "a\x00b\x1bc\x7f", "abc"},
		{"trims", "  note \n", "note"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeText(tt.input))
		})
	}
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount("12.50"))
	assert.Error(t, ValidateAmount("0"))
	assert.Error(t, ValidateAmount("1.234"))
	assert.Error(t, ValidateAmount("ten"))
}
