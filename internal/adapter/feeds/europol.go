package feeds

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

// DatePlaceholder in a europol feed URL is replaced with the current UTC date as YYYYMMDD.
const DatePlaceholder = "{date}"

const maxEntityLine = 16 << 20

// Europol reads the Europol most-wanted dataset published as newline-delimited
// FollowTheMoney entities.
type Europol struct {
	name      string
	url       string
	cachePath string
	http      getter
	clock     ports.Clock
}

func NewEuropol(opts Options) *Europol {
	return &Europol{
		name:      opts.Name,
		url:       opts.URL,
		cachePath: cachePath(opts, ".ndjson"),
		http:      newGetter(opts),
		clock:     clockOrSystem(opts.Clock),
	}
}

func (s *Europol) Name() string { return s.name }

type ftmEntity struct {
	ID         string              `json:"id"`
	Schema     string              `json:"schema"`
	Properties map[string][]string `json:"properties"`
	FirstSeen  string              `json:"first_seen"`
}

var europolProperties = []string{
	"name", "birthDate", "nationality", "ethnicity", "height",
	"eyeColor", "appearance", "notes", "sourceUrl",
}

// FeedURL resolves the date placeholder.
func (s *Europol) FeedURL() string {
	date := s.clock.Now().UTC().Format("20060102")
	return strings.ReplaceAll(s.url, DatePlaceholder, date)
}

func (s *Europol) Fetch(ctx context.Context) ([]model.Record, error) {
	body, err := s.http.snapshot(ctx, s.FeedURL(), s.cachePath)
	if err != nil {
		return nil, errors.Fetch(s.name, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), maxEntityLine)

	var records []model.Record
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e ftmEntity
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, errors.Fetch(s.name, errors.Wrapf(err, "decode line %d", line))
		}
		if e.Schema != "Person" || e.ID == "" {
			continue
		}

		r := model.Record{ID: e.ID, Source: model.SourceWantedPerson, Feed: KindEuropol}
		for _, prop := range europolProperties {
			r.Attributes.SetList(prop, e.Properties[prop]...)
		}
		if ts, ok := parseTimeFlexible(e.FirstSeen); ok {
			r.RawTimestamp = ts
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Fetch(s.name, errors.Wrap(err, "scan snapshot"))
	}
	return records, nil
}
