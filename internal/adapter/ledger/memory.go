package ledger

import (
	"context"
	"sync"

	"github.com/gl0bal01/discord-watchlists/internal/domain/model"
	"github.com/gl0bal01/discord-watchlists/internal/domain/ports"
	"github.com/gl0bal01/discord-watchlists/internal/errors"
)

// Memory keeps the ledger in process. Used for dry runs and tests.
type Memory struct {
	clock ports.Clock

	mu      sync.Mutex
	entries []model.LedgerEntry
	seen    model.IDSet
}

var _ ports.Ledger = (*Memory)(nil)

func NewMemory(clk ports.Clock, ids ...string) *Memory {
	m := &Memory{clock: clk, seen: model.NewIDSet()}
	for _, id := range ids {
		m.entries = append(m.entries, model.LedgerEntry{ID: id, SeenAt: clk.Now()})
		m.seen.Add(id)
	}
	return m
}

func (m *Memory) Load(context.Context) (model.IDSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(model.IDSet, len(m.seen))
	for id := range m.seen {
		out.Add(id)
	}
	return out, nil
}

func (m *Memory) MarkSeen(_ context.Context, id string) error {
	if err := model.ValidateID(id); err != nil {
		return errors.Ledger("memory", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen.Has(id) {
		return nil
	}
	m.seen.Add(id)
	m.entries = append(m.entries, model.LedgerEntry{ID: id, SeenAt: m.clock.Now()})
	return nil
}

// Entries returns the marked ids in the order they were marked.
func (m *Memory) Entries() []model.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.LedgerEntry(nil), m.entries...)
}

func (m *Memory) Close() error { return nil }
