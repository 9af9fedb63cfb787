package analytics

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// matcher reports whether any field contains a search term, ignoring case.
// Terms and fields are NFC normalized and case folded before comparison, so
// "Café" matches "CAFÉ".
type matcher struct {
	term string
	fold cases.Caser
}

func newMatcher(term string) *matcher {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	m := &matcher{fold: cases.Fold()}
	m.term = m.normalize(term)
	return m
}

func (m *matcher) normalize(s string) string {
	return m.fold.String(norm.NFC.String(s))
}

// match reports whether one of fields contains the term. A nil matcher
// matches everything.
func (m *matcher) match(fields ...string) bool {
	if m == nil {
		return true
	}
	for _, f := range fields {
		if strings.Contains(m.normalize(f), m.term) {
			return true
		}
	}
	return false
}
