package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

const fbiSiteURL = "https://www.fbi.gov"

// FBI reads the FBI most-wanted listing.
type FBI struct {
	name  string
	url   string
	http  getter
	clock ports.Clock
}

func NewFBI(opts Options) *FBI {
	return &FBI{name: opts.Name, url: opts.URL, http: newGetter(opts), clock: clockOrSystem(opts.Clock)}
}

func (s *FBI) Name() string { return s.name }

type fbiItem struct {
	UID                  flexString   `json:"uid"`
	Title                flexString   `json:"title"`
	Description          flexString   `json:"description"`
	URL                  flexString   `json:"url"`
	Path                 flexString   `json:"path"`
	Publication          flexString   `json:"publication"`
	Status               flexString   `json:"status"`
	Sex                  flexString   `json:"sex"`
	RaceRaw              flexString   `json:"race_raw"`
	Nationality          flexString   `json:"nationality"`
	PlaceOfBirth         flexString   `json:"place_of_birth"`
	DatesOfBirthUsed     []flexString `json:"dates_of_birth_used"`
	AgeRange             flexString   `json:"age_range"`
	HeightMin            flexString   `json:"height_min"`
	HeightMax            flexString   `json:"height_max"`
	WeightMin            flexString   `json:"weight_min"`
	WeightMax            flexString   `json:"weight_max"`
	HairRaw              flexString   `json:"hair_raw"`
	Eyes                 flexString   `json:"eyes"`
	ScarsAndMarks        flexString   `json:"scars_and_marks"`
	NCIC                 flexString   `json:"ncic"`
	Occupations          []flexString `json:"occupations"`
	PossibleCountries    []flexString `json:"possible_countries"`
	PossibleStates       []flexString `json:"possible_states"`
	Locations            []flexString `json:"locations"`
	FieldOffices         []flexString `json:"field_offices"`
	PersonClassification flexString   `json:"person_classification"`
	PosterClassification flexString   `json:"poster_classification"`
	Subjects             []flexString `json:"subjects"`
	Aliases              []flexString `json:"aliases"`
	RewardText           flexString   `json:"reward_text"`
	RewardMin            flexString   `json:"reward_min"`
	Caution              flexString   `json:"caution"`
	Remarks              flexString   `json:"remarks"`
	Details              flexString   `json:"details"`
	WarningMessage       flexString   `json:"warning_message"`
	PublicationRemarks   flexString   `json:"publication_remarks"`
	Files                []struct {
		URL flexString `json:"url"`
	} `json:"files"`
	Images []struct {
		Thumb flexString `json:"thumb"`
	} `json:"images"`
}

func (s *FBI) Fetch(ctx context.Context) ([]model.Record, error) {
	body, err := s.http.get(ctx, s.url)
	if err != nil {
		return nil, errors.Fetch(s.name, err)
	}

	var payload struct {
		Items *[]fbiItem `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Fetch(s.name, errors.Wrap(err, "decode response"))
	}
	if payload.Items == nil {
		return nil, errors.Fetch(s.name, errors.New("missing items key"))
	}

	now := s.clock.Now()
	records := make([]model.Record, 0, len(*payload.Items))
	for _, item := range *payload.Items {
		id := item.UID.String()
		if id == "" {
			continue
		}
		records = append(records, s.record(id, item, now))
	}
	return records, nil
}

func (s *FBI) record(id string, item fbiItem, now time.Time) model.Record {
	r := model.Record{ID: id, Source: model.SourceWantedPerson, Feed: KindFBI}
	a := &r.Attributes

	a.SetText("title", item.Title.String())
	a.SetText("description", htmlToText(item.Description.String()))
	a.SetText("url", item.URL.String())
	a.SetText("publication", item.Publication.String())
	a.SetText("status", item.Status.String())
	a.SetText("sex", item.Sex.String())
	a.SetText("race_raw", item.RaceRaw.String())
	a.SetText("nationality", item.Nationality.String())
	a.SetText("place_of_birth", item.PlaceOfBirth.String())

	dobs := flexStrings(item.DatesOfBirthUsed)
	a.SetList("dates_of_birth_used", dobs...)
	if age, ok := ageFrom(dobs, now); ok {
		a.SetNumber("age", float64(age))
	}
	a.SetText("age_range", item.AgeRange.String())
	a.SetText("height", span(item.HeightMin, item.HeightMax, "inches"))
	a.SetText("weight", span(item.WeightMin, item.WeightMax, "pounds"))
	a.SetText("hair_raw", item.HairRaw.String())
	a.SetText("eyes", item.Eyes.String())
	a.SetText("scars_and_marks", item.ScarsAndMarks.String())
	a.SetText("ncic", item.NCIC.String())
	a.SetList("occupations", flexStrings(item.Occupations)...)
	a.SetList("possible_countries", flexStrings(item.PossibleCountries)...)
	a.SetList("possible_states", flexStrings(item.PossibleStates)...)
	a.SetList("locations", flexStrings(item.Locations)...)
	a.SetList("field_offices", flexStrings(item.FieldOffices)...)
	a.SetText("person_classification", item.PersonClassification.String())
	a.SetText("poster_classification", item.PosterClassification.String())
	a.SetList("subjects", flexStrings(item.Subjects)...)
	a.SetList("aliases", flexStrings(item.Aliases)...)
	a.SetText("reward", reward(item.RewardText, item.RewardMin))
	a.SetText("caution", htmlToText(item.Caution.String()))
	a.SetText("remarks", htmlToText(item.Remarks.String()))
	a.SetText("details", htmlToText(item.Details.String()))
	a.SetText("warning_message", item.WarningMessage.String())
	a.SetText("publication_remarks", item.PublicationRemarks.String())

	files := make([]string, 0, len(item.Files))
	for _, f := range item.Files {
		files = append(files, f.URL.String())
	}
	a.SetList("files", files...)

	if path := item.Path.String(); path != "" {
		a.SetText("detailsUrl", fbiSiteURL+path)
	}
	if len(item.Images) > 0 {
		a.SetText("thumbnail", item.Images[0].Thumb.String())
	}

	if ts, ok := parseTimeFlexible(item.Publication.String()); ok {
		r.RawTimestamp = ts
	}
	return r
}

var birthLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"01/02/2006",
}

// ageFrom returns the age in whole years for the first parseable date of birth.
func ageFrom(dobs []string, now time.Time) (int, bool) {
	for _, dob := range dobs {
		for _, layout := range birthLayouts {
			born, err := time.Parse(layout, strings.TrimSpace(dob))
			if err != nil {
				continue
			}
			if born.After(now) {
				return 0, false
			}
			age := now.Year() - born.Year()
			if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
				age--
			}
			return age, true
		}
	}
	return 0, false
}

func span(lo, hi flexString, unit string) string {
	if lo.String() == "" || hi.String() == "" {
		return ""
	}
	return fmt.Sprintf("%s - %s %s", lo.String(), hi.String(), unit)
}

func reward(text, minimum flexString) string {
	if t := text.String(); t != "" {
		return t
	}
	if f, ok := minimum.Float(); ok && f > 0 {
		return "$" + humanize.FormatFloat("#,###.##", f)
	}
	return ""
}
