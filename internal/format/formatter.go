// Package format turns records into notifications using declarative per-feed profiles.
package format

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
)

// Formatter builds notifications from records. It holds no mutable state.
type Formatter struct {
	byFeed   map[string]compiled
	bySource map[model.SourceType]compiled
	generic  compiled
	limits   model.Limits
}

var _ ports.Formatter = (*Formatter)(nil)

type compiled struct {
	profile Profile
	table   table
}

// New compiles profiles. A later profile for the same feed replaces an earlier one;
// the first profile seen for a source type becomes that type's fallback.
func New(profiles []Profile, limits model.Limits) (*Formatter, error) {
	f := &Formatter{
		byFeed:   make(map[string]compiled, len(profiles)),
		bySource: make(map[model.SourceType]compiled),
		limits:   limits,
	}
	for _, p := range profiles {
		t, err := p.compile()
		if err != nil {
			return nil, err
		}
		c := compiled{profile: p, table: t}
		f.byFeed[p.Feed] = c
		if _, ok := f.bySource[p.Source]; !ok && p.Source != "" {
			f.bySource[p.Source] = c
		}
	}

	generic, err := Profile{Feed: "generic"}.compile()
	if err != nil {
		return nil, err
	}
	f.generic = compiled{table: generic}
	return f, nil
}

// NewDefault builds a Formatter from the embedded profiles with Discord limits.
func NewDefault() (*Formatter, error) {
	profiles, err := LoadProfiles()
	if err != nil {
		return nil, err
	}
	return New(profiles, model.DiscordLimits)
}

// Feeds lists the feeds that have a dedicated profile.
func (f *Formatter) Feeds() []string {
	feeds := make([]string, 0, len(f.byFeed))
	for feed := range f.byFeed {
		feeds = append(feeds, feed)
	}
	sort.Strings(feeds)
	return feeds
}

// Build renders r. It never fails: missing data degrades to omitted fields.
func (f *Formatter) Build(r model.Record) model.Notification {
	c, ok := f.byFeed[r.Feed]
	if !ok {
		c, ok = f.bySource[r.Source]
	}
	if !ok {
		return f.limits.Apply(f.buildGeneric(r))
	}

	p := c.profile
	n := model.Notification{
		Title:        p.Title.resolve(r.Attributes, ", "),
		Description:  p.Description.resolve(r.Attributes, ", "),
		URL:          p.URL.first(r.Attributes),
		ThumbnailURL: p.Thumbnail.first(r.Attributes),
		Footer:       p.Footer,
		Timestamp:    r.RawTimestamp,
	}
	if n.Title == "" {
		n.Title = r.ID
	}

	for _, fieldSpec := range p.Fields {
		value, ok := fieldSpec.render(r.Attributes)
		if !ok {
			continue
		}
		n.Fields = append(n.Fields, model.NotificationField{
			Name:   fieldSpec.Name,
			Value:  value,
			Inline: fieldSpec.Inline,
		})
	}

	n.Severity = c.table.classify(r.Attributes)
	n.Color = c.table.palette[n.Severity]
	return f.limits.Apply(n)
}

func (f *Formatter) buildGeneric(r model.Record) model.Notification {
	n := model.Notification{
		Title:     r.ID,
		Footer:    string(r.Source),
		Timestamp: r.RawTimestamp,
		Severity:  f.generic.table.def,
		Color:     f.generic.table.palette[f.generic.table.def],
	}
	for _, key := range r.Attributes.Keys() {
		value, ok := FieldSpec{Attribute: key}.render(r.Attributes)
		if !ok {
			continue
		}
		n.Fields = append(n.Fields, model.NotificationField{Name: key, Value: value})
	}
	return n
}

func (s Selector) resolve(attrs model.Attributes, sep string) string {
	for _, name := range s.Attributes {
		v, ok := attrs.Get(name)
		if !ok {
			continue
		}
		items := present(v.Strings())
		if len(items) == 0 {
			continue
		}
		return model.Truncate(strings.Join(items, sep), s.Limit)
	}
	return s.Fallback
}

// first resolves to a single item, for URLs.
func (s Selector) first(attrs model.Attributes) string {
	for _, name := range s.Attributes {
		v, ok := attrs.Get(name)
		if !ok {
			continue
		}
		if items := present(v.Strings()); len(items) > 0 {
			return items[0]
		}
	}
	return s.Fallback
}

func (fd FieldSpec) render(attrs model.Attributes) (string, bool) {
	v, ok := attrs.Get(fd.Attribute)
	if !ok {
		return "", false
	}

	var items []string
	if num, isNum := v.Float(); isNum && (v.Kind() == model.KindNumber || fd.Precision != nil) {
		items = []string{formatNumber(num, fd.Precision)}
	} else {
		items = present(v.Strings())
	}
	if len(items) == 0 {
		return "", false
	}

	sep := fd.Separator
	if sep == "" {
		sep = ", "
	}
	out := strings.Join(items, sep)
	switch strings.ToLower(fd.Transform) {
	case "upper":
		out = strings.ToUpper(out)
	case "lower":
		out = strings.ToLower(out)
	}
	return out, true
}

func formatNumber(f float64, precision *int) string {
	if precision == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', *precision, 64)
}

// present drops blank and placeholder items.
func present(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || isPlaceholder(item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func isPlaceholder(s string) bool {
	return strings.EqualFold(s, "N/A") || strings.EqualFold(s, "NA")
}
