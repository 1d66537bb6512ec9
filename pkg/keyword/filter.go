// Package keyword decides which register and field names are placeholders
// that must never receive generated statements.
package keyword

import "strings"

// DefaultKeywords are the substrings that disqualify a name.
var DefaultKeywords = []string{"reserved", "rsvd", "spare", "dbug"}

// Filter matches names against a set of disqualifying substrings.
// The zero value disqualifies nothing.
type Filter struct {
	keywords []string // lower-cased
}

// NewFilter builds a filter from the given keywords. Empty entries are dropped.
func NewFilter(keywords ...string) *Filter {
	f := &Filter{}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			f.keywords = append(f.keywords, kw)
		}
	}
	return f
}

// DefaultFilter returns a filter over DefaultKeywords.
func DefaultFilter() *Filter {
	return NewFilter(DefaultKeywords...)
}

// IsDisqualified reports whether name contains any keyword, ignoring case.
func (f *Filter) IsDisqualified(name string) bool {
	if f == nil {
		return false
	}
	lower := strings.ToLower(name)
	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Keywords returns a copy of the configured keywords.
func (f *Filter) Keywords() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.keywords...)
}
