package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Problem codes produced by Rule.Check.
const (
	CodeRequired    = "required"
	CodeMinLength   = "min_length"
	CodeMaxLength   = "max_length"
	CodeNotANumber  = "not_a_number"
	CodeMinValue    = "min_value"
	CodeMaxValue    = "max_value"
	CodePattern     = "pattern"
	CodeInvalidCode = "invalid_code"
	CodeRejected    = "rejected"
	CodeUnavailable = "unavailable"
)

// Problem is a field-scoped validation failure. Params feed message templates
// such as "at least {min} characters".
type Problem struct {
	Code   string         `json:"code"`
	Params map[string]any `json:"params,omitempty"`
}

var englishMessages = map[string]string{
	CodeRequired:    "This field is required",
	CodeMinLength:   "Must be at least {min} characters",
	CodeMaxLength:   "Must be at most {max} characters",
	CodeNotANumber:  "Must be a number",
	CodeMinValue:    "Must be at least {min}",
	CodeMaxValue:    "Must be at most {max}",
	CodePattern:     "Invalid format",
	CodeInvalidCode: "The verification code is invalid or has expired",
	CodeRejected:    "{message}",
	CodeUnavailable: "Verification is temporarily unavailable, please try again",
	"phone":         "Enter a valid 10 digit mobile number",
	"email":         "Enter a valid email address",
	"pincode":       "Enter a valid 6 digit PIN code",
	"otp":           "Enter the 6 digit code",
}

// Message renders the problem in English.
func (p Problem) Message() string {
	tmpl, ok := englishMessages[p.Code]
	if !ok {
		tmpl = englishMessages[CodePattern]
	}
	return Interpolate(tmpl, p.Params)
}

// Interpolate replaces {name} placeholders with params, in key order.
func Interpolate(tmpl string, params map[string]any) string {
	if len(params) == 0 {
		return tmpl
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(params[k]))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Rejected wraps a message returned by a remote collaborator as a Problem.
func Rejected(message string) Problem {
	return Problem{Code: CodeRejected, Params: map[string]any{"message": message}}
}
