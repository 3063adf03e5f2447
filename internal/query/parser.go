// Package query parses the search box mini-language into a structured UserQuery.
//
// Tokens of the form key:value or key:"quoted value" are lifted out of the
// input anywhere they appear. from: and to: take dates; every other key
// becomes a filter. What remains is the free text.
package query

import (
	"regexp"
	"strings"
	"time"

	"github.com/starford/sowilo/internal/models"
)

var tokenRe = regexp.MustCompile(`(\w+):("[^"]+"|\S+)`)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02.01.2006",
}

// Parse splits input into a UserQuery. Tokens whose from:/to: value is not a
// valid date are consumed and returned in rejected.
func Parse(input string) (q models.UserQuery, rejected []string) {
	q = models.NewUserQuery("")

	var filters models.Filters
	remainder := tokenRe.ReplaceAllStringFunc(input, func(tok string) string {
		m := tokenRe.FindStringSubmatch(tok)
		key := strings.ToLower(m[1])
		value := m[2]
		if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			value = value[1 : len(value)-1]
		}

		switch key {
		case "from":
			if t, ok := parseDate(value, false); ok {
				q.FromUTC = &t
			} else {
				rejected = append(rejected, tok)
			}
		case "to":
			if t, ok := parseDate(value, true); ok {
				q.ToUTC = &t
			} else {
				rejected = append(rejected, tok)
			}
		default:
			filters = filters.With(key, value)
		}
		return ""
	})

	q.Filters = filters
	q.FreeText = strings.TrimSpace(remainder)
	return q, rejected
}

// parseDate accepts the supported layouts as UTC. A date-only upper bound
// covers the whole day.
func parseDate(s string, endOfDay bool) (time.Time, bool) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		t = t.UTC()
		if endOfDay && !strings.Contains(layout, "15") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, true
	}
	return time.Time{}, false
}
