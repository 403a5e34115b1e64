package model

import (
	"strings"
	"time"

	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

// LedgerEntry records that a record id was delivered.
type LedgerEntry struct {
	ID     string
	SeenAt time.Time
}

// IDSet is a membership set of record ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return set
}

func (s IDSet) Add(id string) { s[id] = struct{}{} }

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// ValidateID reports whether id can be stored in a ledger: non-empty and free of
// line and field separators.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("empty id")
	}
	if strings.ContainsAny(id, "\n\r\t") {
		return errors.Newf("id %q contains a line or field separator", id)
	}
	return nil
}

// FilterUnseen returns the records whose id is not in known, in input order.
// An id repeated inside the same snapshot is kept only at its first occurrence.
func FilterUnseen(records []Record, known IDSet) []Record {
	out := make([]Record, 0, len(records))
	batch := make(IDSet)
	for _, r := range records {
		if known.Has(r.ID) || batch.Has(r.ID) {
			continue
		}
		batch.Add(r.ID)
		out = append(out, r)
	}
	return out
}

// RunReport summarizes one monitor invocation.
type RunReport struct {
	Monitor   string
	RunID     string
	Fetched   int
	Unseen    int
	Delivered int
	Failed    int
	// Skipped counts records whose id cannot be stored in a ledger.
	Skipped   int
	Started   time.Time
	Finished  time.Time
}

func (r RunReport) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
