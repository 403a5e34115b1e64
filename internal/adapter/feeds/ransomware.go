package feeds

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

// Ransomware reads recent victims published by a leak-site tracker.
type Ransomware struct {
	name      string
	url       string
	cachePath string
	http      getter
}

func NewRansomware(opts Options) *Ransomware {
	return &Ransomware{
		name:      opts.Name,
		url:       opts.URL,
		cachePath: cachePath(opts, ".json"),
		http:      newGetter(opts),
	}
}

func (s *Ransomware) Name() string { return s.name }

type victim struct {
	PostTitle   flexString      `json:"post_title"`
	Website     flexString      `json:"website"`
	GroupName   flexString      `json:"group_name"`
	Country     flexString      `json:"country"`
	Activity    flexString      `json:"activity"`
	Discovered  flexString      `json:"discovered"`
	Published   flexString      `json:"published"`
	Description flexString      `json:"description"`
	PostURL     flexString      `json:"post_url"`
	Screenshot  flexString      `json:"screenshot"`
	Infostealer json.RawMessage `json:"infostealer"`
}

func (s *Ransomware) Fetch(ctx context.Context) ([]model.Record, error) {
	body, err := s.http.snapshot(ctx, s.url, s.cachePath)
	if err != nil {
		return nil, errors.Fetch(s.name, err)
	}

	var victims []victim
	if err := json.Unmarshal(body, &victims); err != nil {
		return nil, errors.Fetch(s.name, errors.Wrap(err, "decode response"))
	}
	if victims == nil {
		return nil, errors.Fetch(s.name, errors.New("missing victims array"))
	}

	records := make([]model.Record, 0, len(victims))
	for _, v := range victims {
		title, published := string(v.PostTitle), string(v.Published)
		if title == "" && published == "" {
			continue
		}

		r := model.Record{ID: VictimID(title, published), Source: model.SourceRansomwareVictim, Feed: KindRansomware}
		a := &r.Attributes
		a.SetText("post_title", title)
		a.SetText("website", v.Website.String())
		a.SetText("group_name", v.GroupName.String())
		a.SetText("country", v.Country.String())
		a.SetText("activity", v.Activity.String())
		a.SetText("discovered", v.Discovered.String())
		a.SetText("published", published)
		a.SetText("description", v.Description.String())
		a.SetText("post_url", v.PostURL.String())
		a.SetText("screenshot", v.Screenshot.String())
		a.SetText("infostealer", infostealerText(v.Infostealer))

		if ts, ok := parseTimeFlexible(v.Discovered.String()); ok {
			r.RawTimestamp = ts
		} else if ts, ok := parseTimeFlexible(published); ok {
			r.RawTimestamp = ts
		}
		records = append(records, r)
	}
	return records, nil
}

// VictimID is the hex MD5 of the untrimmed post title followed by the publication date.
// Existing ledger files store ids in this form.
func VictimID(postTitle, published string) string {
	sum := md5.Sum([]byte(postTitle + published))
	return hex.EncodeToString(sum[:])
}

func infostealerText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Employees    flexString `json:"employees"`
		ThirdParties flexString `json:"thirdparties"`
		Users        flexString `json:"users"`
		Update       flexString `json:"update"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	var lines []string
	for _, part := range []struct {
		label string
		value flexString
	}{
		{"Employees", obj.Employees},
		{"Third Parties", obj.ThirdParties},
		{"Users", obj.Users},
		{"Last Update", obj.Update},
	} {
		if v := part.value.String(); v != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", part.label, v))
		}
	}
	return strings.Join(lines, "\n")
}
