package format

import (
	"strings"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
)

// classify walks the rules top to bottom and returns the first match.
func (t table) classify(attrs model.Attributes) model.Severity {
	for _, r := range t.rules {
		if r.matches(attrs) {
			return r.severity
		}
	}
	return t.def
}

func (r rule) matches(attrs model.Attributes) bool {
	for _, c := range r.when {
		if !c.matches(attrs) {
			return false
		}
	}
	return true
}

func (c Condition) matches(attrs model.Attributes) bool {
	v, ok := attrs.Get(c.Attribute)
	if !ok {
		return false
	}
	items := present(v.Strings())
	if len(items) == 0 {
		return false
	}
	text := strings.Join(items, ", ")

	if c.Equals != "" && !strings.EqualFold(text, c.Equals) {
		return false
	}
	if len(c.ContainsAny) > 0 && !containsAny(strings.ToLower(text), c.ContainsAny) {
		return false
	}
	if c.Min != nil || c.Max != nil {
		f, ok := v.Float()
		if !ok {
			return false
		}
		if c.Min != nil && f < *c.Min {
			return false
		}
		if c.Max != nil && f > *c.Max {
			return false
		}
	}
	return true
}

func containsAny(lower string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
