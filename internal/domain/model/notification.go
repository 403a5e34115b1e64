package model

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

// NotificationField represents a titled section within a notification payload.
type NotificationField struct {
	Name   string
	Value  string
	Inline bool
}

// Severity is an ordinal priority that drives the display color.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "low"
	}
}

// ParseSeverity maps "low", "medium" or "high" to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	default:
		return SeverityLow, errors.Newf("unknown severity %q", s)
	}
}

// Notification is a transport-agnostic message for downstream notifiers.
// It is rebuilt from a Record on every dispatch attempt and never persisted.
type Notification struct {
	Title        string
	Description  string
	URL          string
	Fields       []NotificationField
	Severity     Severity
	Color        int
	ThumbnailURL string
	Footer       string
	Timestamp    time.Time
}

// Limits are the transport's per-field length limits, in runes.
type Limits struct {
	Title       int
	Description int
	FieldName   int
	FieldValue  int
	Footer      int
	MaxFields   int
	// Total caps title, description, footer and every field name and value combined.
	Total int
}

// DiscordLimits are the embed limits enforced by Discord webhooks.
var DiscordLimits = Limits{
	Title:       256,
	Description: 4096,
	FieldName:   256,
	FieldValue:  1024,
	Footer:      2048,
	MaxFields:   25,
	Total:       6000,
}

// minFieldValue is the shortest value kept when fields are shortened to fit Total.
const minFieldValue = 16

const ellipsis = "..."

// Truncate shortens s to at most limit runes, marking the cut with "...".
// A non-positive limit leaves s untouched.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return string([]rune(s)[:limit])
	}
	runes := []rune(s)[:limit-len(ellipsis)]
	return strings.TrimRightFunc(string(runes), unicode.IsSpace) + ellipsis
}

// Apply returns n with every text truncated to the limits and the field list capped.
func (l Limits) Apply(n Notification) Notification {
	n.Title = Truncate(n.Title, l.Title)
	n.Description = Truncate(n.Description, l.Description)
	n.Footer = Truncate(n.Footer, l.Footer)
	if l.MaxFields > 0 && len(n.Fields) > l.MaxFields {
		n.Fields = n.Fields[:l.MaxFields]
	}
	fields := make([]NotificationField, len(n.Fields))
	for i, f := range n.Fields {
		fields[i] = NotificationField{
			Name:   Truncate(f.Name, l.FieldName),
			Value:  Truncate(f.Value, l.FieldValue),
			Inline: f.Inline,
		}
	}
	n.Fields = fields
	if l.Total > 0 {
		n = l.fitTotal(n)
	}
	if len(n.Fields) == 0 {
		n.Fields = nil
	}
	return n
}

// fitTotal shortens or drops fields from the end, then the description, until
// the combined length is within Total.
func (l Limits) fitTotal(n Notification) Notification {
	excess := embedLength(n) - l.Total
	for i := len(n.Fields) - 1; i >= 0 && excess > 0; i-- {
		f := n.Fields[i]
		valueLen := utf8.RuneCountInString(f.Value)
		if keep := valueLen - excess; keep >= minFieldValue {
			n.Fields[i].Value = Truncate(f.Value, keep)
			excess -= valueLen - utf8.RuneCountInString(n.Fields[i].Value)
			break
		}
		n.Fields = n.Fields[:i]
		excess -= utf8.RuneCountInString(f.Name) + valueLen
	}
	if excess > 0 {
		if keep := utf8.RuneCountInString(n.Description) - excess; keep > 0 {
			n.Description = Truncate(n.Description, keep)
		} else {
			n.Description = ""
		}
	}
	return n
}

func embedLength(n Notification) int {
	total := utf8.RuneCountInString(n.Title) +
		utf8.RuneCountInString(n.Description) +
		utf8.RuneCountInString(n.Footer)
	for _, f := range n.Fields {
		total += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}
	return total
}
