package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Text strips all markup from free-text input and trims surrounding space.
func Text(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}

// Code normalises a short identifier such as a state or country code.
func Code(s string) string {
	return strings.ToUpper(Text(s))
}
