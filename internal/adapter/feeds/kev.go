package feeds

import (
	"context"
	"encoding/json"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

const nvdDetailURL = "https://nvd.nist.gov/vuln/detail/"

// KEV reads a known-exploited-vulnerabilities catalog enriched with NVD metrics.
type KEV struct {
	name string
	url  string
	http getter
}

func NewKEV(opts Options) *KEV {
	return &KEV{name: opts.Name, url: opts.URL, http: newGetter(opts)}
}

func (s *KEV) Name() string { return s.name }

type kevVulnerability struct {
	CveID                      flexString   `json:"cveID"`
	VendorProject              flexString   `json:"vendorProject"`
	Product                    flexString   `json:"product"`
	VulnerabilityName          flexString   `json:"vulnerabilityName"`
	DateAdded                  flexString   `json:"dateAdded"`
	ShortDescription           flexString   `json:"shortDescription"`
	RequiredAction             flexString   `json:"requiredAction"`
	DueDate                    flexString   `json:"dueDate"`
	KnownRansomwareCampaignUse flexString   `json:"knownRansomwareCampaignUse"`
	Notes                      flexString   `json:"notes"`
	GithubPocs                 []flexString `json:"githubPocs"`
	NvdData                    []struct {
		AttackComplexity    flexString `json:"attackComplexity"`
		AttackVector        flexString `json:"attackVector"`
		BaseScore           flexString `json:"baseScore"`
		BaseSeverity        flexString `json:"baseSeverity"`
		ExploitabilityScore flexString `json:"exploitabilityScore"`
	} `json:"nvdData"`
}

func (s *KEV) Fetch(ctx context.Context) ([]model.Record, error) {
	body, err := s.http.get(ctx, s.url)
	if err != nil {
		return nil, errors.Fetch(s.name, err)
	}

	var payload struct {
		Vulnerabilities *[]kevVulnerability `json:"vulnerabilities"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Fetch(s.name, errors.Wrap(err, "decode response"))
	}
	if payload.Vulnerabilities == nil {
		return nil, errors.Fetch(s.name, errors.New("missing vulnerabilities key"))
	}

	records := make([]model.Record, 0, len(*payload.Vulnerabilities))
	for _, v := range *payload.Vulnerabilities {
		id := v.CveID.String()
		if id == "" {
			continue
		}
		r := model.Record{ID: id, Source: model.SourceVulnerability, Feed: KindKEV}
		a := &r.Attributes
		a.SetText("cveID", id)
		a.SetText("vulnerabilityName", v.VulnerabilityName.String())
		a.SetText("shortDescription", v.ShortDescription.String())
		a.SetText("dateAdded", v.DateAdded.String())
		a.SetText("dueDate", v.DueDate.String())
		a.SetText("vendorProject", v.VendorProject.String())
		a.SetText("product", v.Product.String())
		a.SetText("requiredAction", v.RequiredAction.String())
		a.SetText("knownRansomwareCampaignUse", v.KnownRansomwareCampaignUse.String())
		a.SetText("notes", v.Notes.String())
		a.SetList("githubPocs", flexStrings(v.GithubPocs)...)
		a.SetText("nvdUrl", nvdDetailURL+id)

		if len(v.NvdData) > 0 {
			nvd := v.NvdData[0]
			a.SetText("attackComplexity", nvd.AttackComplexity.String())
			a.SetText("attackVector", nvd.AttackVector.String())
			setScore(a, "baseScore", nvd.BaseScore)
			a.SetText("baseSeverity", nvd.BaseSeverity.String())
			setScore(a, "exploitabilityScore", nvd.ExploitabilityScore)
		}

		if ts, ok := parseTimeFlexible(v.DateAdded.String()); ok {
			r.RawTimestamp = ts
		}
		records = append(records, r)
	}
	return records, nil
}

func setScore(a *model.Attributes, name string, v flexString) {
	if f, ok := v.Float(); ok {
		a.SetNumber(name, f)
		return
	}
	a.SetText(name, v.String())
}
