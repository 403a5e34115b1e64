package format

import (
	"embed"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

//go:embed profiles/*.yaml
var profilesFS embed.FS

// Profile is the declarative rendering table for one feed.
type Profile struct {
	Feed        string           `yaml:"feed"`
	Source      model.SourceType `yaml:"source"`
	Title       Selector         `yaml:"title"`
	Description Selector         `yaml:"description"`
	URL         Selector         `yaml:"url"`
	Thumbnail   Selector         `yaml:"thumbnail"`
	Footer      string           `yaml:"footer"`
	Fields      []FieldSpec      `yaml:"fields"`
	Severity    SeverityTable    `yaml:"severity"`
}

// Selector picks the first present attribute among Attributes.
type Selector struct {
	Attributes []string `yaml:"attributes"`
	Fallback   string   `yaml:"fallback"`
	// Limit shortens the value further than the transport limit when set.
	Limit int `yaml:"limit"`
}

// FieldSpec projects one attribute into a body field.
type FieldSpec struct {
	Name      string `yaml:"name"`
	Attribute string `yaml:"attribute"`
	Inline    bool   `yaml:"inline"`
	Separator string `yaml:"separator"`
	Transform string `yaml:"transform"`
	// Precision applies to numeric values; nil keeps the shortest form.
	Precision *int `yaml:"precision"`
}

// SeverityTable is evaluated top to bottom; the first matching rule wins.
type SeverityTable struct {
	Default string         `yaml:"default"`
	Rules   []SeverityRule `yaml:"rules"`
	Palette map[string]int `yaml:"palette"`
}

// SeverityRule matches when every condition matches.
type SeverityRule struct {
	Severity string      `yaml:"severity"`
	When     []Condition `yaml:"when"`
}

// Condition tests one attribute. An absent attribute never matches.
type Condition struct {
	Attribute   string   `yaml:"attribute"`
	Equals      string   `yaml:"equals"`
	ContainsAny []string `yaml:"contains_any"`
	Min         *float64 `yaml:"min"`
	Max         *float64 `yaml:"max"`
}

// compiled severity table
type table struct {
	def     model.Severity
	rules   []rule
	palette map[model.Severity]int
}

type rule struct {
	severity model.Severity
	when     []Condition
}

var defaultPalette = map[model.Severity]int{
	model.SeverityLow:    0x3498DB,
	model.SeverityMedium: 0xF1C40F,
	model.SeverityHigh:   0xE74C3C,
}

func (p Profile) compile() (table, error) {
	t := table{palette: make(map[model.Severity]int, len(defaultPalette))}
	for sev, color := range defaultPalette {
		t.palette[sev] = color
	}

	def := p.Severity.Default
	if def == "" {
		def = "low"
	}
	sev, err := model.ParseSeverity(def)
	if err != nil {
		return table{}, errors.Wrapf(err, "profile %s: default", p.Feed)
	}
	t.def = sev

	for i, r := range p.Severity.Rules {
		sev, err := model.ParseSeverity(r.Severity)
		if err != nil {
			return table{}, errors.Wrapf(err, "profile %s: rule %d", p.Feed, i)
		}
		if len(r.When) == 0 {
			return table{}, errors.Newf("profile %s: rule %d has no conditions", p.Feed, i)
		}
		for j, c := range r.When {
			if c.Attribute == "" {
				return table{}, errors.Newf("profile %s: rule %d condition %d: attribute is required", p.Feed, i, j)
			}
		}
		t.rules = append(t.rules, rule{severity: sev, when: r.When})
	}

	for name, color := range p.Severity.Palette {
		sev, err := model.ParseSeverity(name)
		if err != nil {
			return table{}, errors.Wrapf(err, "profile %s: palette", p.Feed)
		}
		t.palette[sev] = color
	}
	return t, nil
}

// LoadProfiles parses every embedded profile.
func LoadProfiles() ([]Profile, error) {
	return loadProfilesFrom(profilesFS, "profiles")
}

func loadProfilesFrom(fsys fs.FS, dir string) ([]Profile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, "read profiles")
	}

	profiles := make([]Profile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read profile %s", entry.Name())
		}
		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, errors.Wrapf(err, "parse profile %s", entry.Name())
		}
		if p.Feed == "" {
			p.Feed = strings.TrimSuffix(entry.Name(), ".yaml")
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
