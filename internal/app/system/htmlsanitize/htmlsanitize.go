// Package htmlsanitize strips markup from free-text form input (client
// names, project names, status and team labels) before it is stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every tag (and the content of script/style elements)
// and returns unescaped text; templates escape it again on output.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
