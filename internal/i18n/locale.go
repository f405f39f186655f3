// Package i18n provides the request locale and the message catalogs.
//
// The locale is set once per request by the HTTP provider middleware and read
// everywhere else through FromContext; nothing mutates it after that.
package i18n

import (
	"context"
	"strings"

	"golang.org/x/text/language"
)

// Locale is a supported UI language.
type Locale string

const (
	English Locale = "en"
	Hindi   Locale = "hi"
)

// Default is used when nothing else matches.
const Default = English

// Supported lists the locales in matcher preference order.
var Supported = []Locale{English, Hindi}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Hindi})

func (l Locale) String() string {
	return string(l)
}

// Parse accepts a supported locale code such as "hi" or "en-IN".
func Parse(s string) (Locale, bool) {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	for _, l := range Supported {
		if base.String() == string(l) {
			return l, true
		}
	}
	return "", false
}

// Negotiate picks the best supported locale for an Accept-Language header.
func Negotiate(acceptLanguage string) Locale {
	if strings.TrimSpace(acceptLanguage) == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return Supported[idx]
}

type ctxKey struct{}

// WithLocale returns a context carrying l.
func WithLocale(ctx context.Context, l Locale) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request locale, or Default.
func FromContext(ctx context.Context) Locale {
	if l, ok := ctx.Value(ctxKey{}).(Locale); ok {
		return l
	}
	return Default
}
