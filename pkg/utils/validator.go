package utils

import (
	"regexp"
	"strings"
)

// Patterns shared by the field rules of the wizard flows.
var (
	EmailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	MobilePattern  = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	PincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	OTPPattern     = regexp.MustCompile(`^[0-9]{6}$`)
)

// NormalizeMobile strips spaces, dashes and the country/trunk prefix.
func NormalizeMobile(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	p = strings.TrimPrefix(p, "+91")
	if len(p) == 11 && strings.HasPrefix(p, "0") {
		p = p[1:]
	}
	return p
}
