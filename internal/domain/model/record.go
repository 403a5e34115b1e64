package model

import (
	"strconv"
	"strings"
	"time"
)

// SourceType identifies which kind of watchlist produced a record.
type SourceType string

const (
	SourceVulnerability    SourceType = "vulnerability"
	SourceWantedPerson     SourceType = "wanted-person"
	SourceRansomwareVictim SourceType = "ransomware-victim"
)

// ValueKind tags the payload held by a Value.
type ValueKind int

const (
	KindText ValueKind = iota + 1
	KindNumber
	KindList
)

// Value is a single attribute payload: text, number or list of text.
type Value struct {
	kind ValueKind
	text string
	num  float64
	list []string
}

// Text builds a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number builds a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// List builds a list value. The slice is copied.
func List(items ...string) Value {
	return Value{kind: KindList, list: append([]string(nil), items...)}
}

func (v Value) Kind() ValueKind { return v.kind }

// Float returns the numeric form of the value. Text that parses as a number is accepted.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Strings returns the value as a list of text items.
func (v Value) Strings() []string {
	switch v.kind {
	case KindText:
		return []string{v.text}
	case KindNumber:
		return []string{strconv.FormatFloat(v.num, 'f', -1, 64)}
	case KindList:
		return append([]string(nil), v.list...)
	default:
		return nil
	}
}

// String renders the value, joining lists with ", ".
func (v Value) String() string {
	return strings.Join(v.Strings(), ", ")
}

// Attributes is an insertion-ordered attribute map.
// A missing key means the attribute is absent upstream.
type Attributes struct {
	keys []string
	vals map[string]Value
}

// Set stores v under name, keeping the original position when name already exists.
func (a *Attributes) Set(name string, v Value) {
	if a.vals == nil {
		a.vals = make(map[string]Value)
	}
	if _, ok := a.vals[name]; !ok {
		a.keys = append(a.keys, name)
	}
	a.vals[name] = v
}

// SetText stores trimmed text; blank text leaves the attribute absent.
func (a *Attributes) SetText(name, s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	a.Set(name, Text(s))
}

// SetNumber stores a number.
func (a *Attributes) SetNumber(name string, f float64) {
	a.Set(name, Number(f))
}

// SetList stores the non-blank items; an empty result leaves the attribute absent.
func (a *Attributes) SetList(name string, items ...string) {
	clean := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 {
		return
	}
	a.Set(name, List(clean...))
}

// Get returns the value stored under name.
func (a Attributes) Get(name string) (Value, bool) {
	v, ok := a.vals[name]
	return v, ok
}

// Text returns the rendered value under name, or "" when absent.
func (a Attributes) Text(name string) string {
	v, ok := a.vals[name]
	if !ok {
		return ""
	}
	return v.String()
}

// Keys returns attribute names in insertion order.
func (a Attributes) Keys() []string { return append([]string(nil), a.keys...) }

func (a Attributes) Len() int { return len(a.keys) }

// Record is the normalized unit fetched from a source.
type Record struct {
	// ID is stable across fetches and restarts.
	ID         string
	Source     SourceType
	Feed       string
	Attributes Attributes
	// RawTimestamp is for display only; zero means unknown.
	RawTimestamp time.Time
}
