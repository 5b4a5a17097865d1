package gateway

import "github.com/tidwall/gjson"

// TokenNotValidCode is the error code the payment API uses for an expired or
// revoked access token
const TokenNotValidCode = "token_not_valid"

var tokenInvalidPaths = []string{
	"code",
	"errors.code",
	"data.code",
	"errors.detail.code",
}

// IsTokenInvalid reports whether an error payload has the token-invalid shape.
// The code may sit at the top level, under errors, or under data.
func IsTokenInvalid(body []byte) bool {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return false
	}
	for _, path := range tokenInvalidPaths {
		if gjson.GetBytes(body, path).String() == TokenNotValidCode {
			return true
		}
	}
	return false
}
