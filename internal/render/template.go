package render

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// DefaultDateFormat is used for {{Date}} when no layout is configured.
const DefaultDateFormat = "2006-01-02"

// Fields holds the values substituted into text elements on export.
type Fields struct {
	Name       string
	Date       time.Time
	DateFormat string
}

// Expand replaces {{Name}}, {{Initials}} and {{Date}} in text. Unknown
// placeholders are left untouched.
func Expand(text string, f Fields) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		switch m[2 : len(m)-2] {
		case "Name":
			return f.Name
		case "Initials":
			return Initials(f.Name)
		case "Date":
			layout := f.DateFormat
			if layout == "" {
				layout = DefaultDateFormat
			}
			d := f.Date
			if d.IsZero() {
				d = time.Now()
			}
			return d.Format(layout)
		}
		return m
	})
}

// Initials returns the upper-cased first letter of every word of name:
// "Jane van Dijk" becomes "JVD".
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	return b.String()
}
