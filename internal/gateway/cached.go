package gateway

import (
	"context"
	"sync"
	"time"

	"apledger/internal/core"
)

// snapshot is a TTL-bound copy of the last value read from or written to
// the wrapped gateway.
type snapshot[T any] struct {
	data      T
	expiresAt time.Time
	valid     bool
}

func (s *snapshot[T]) get(now time.Time) (T, bool) {
	var zero T
	if !s.valid || now.After(s.expiresAt) {
		return zero, false
	}
	return s.data, true
}

func (s *snapshot[T]) set(data T, now time.Time, ttl time.Duration) {
	s.data = data
	s.expiresAt = now.Add(ttl)
	s.valid = true
}

func (s *snapshot[T]) invalidate() {
	var zero T
	s.data = zero
	s.valid = false
}

// Cached serves loads from the last snapshot while it is fresh. Every save
// goes straight to the wrapped gateway and, when it succeeds, refreshes the
// snapshot. A failed save drops the snapshot so the next load re-reads.
type Cached struct {
	next Gateway
	ttl  time.Duration
	now  func() time.Time

	mu     sync.Mutex
	ledger snapshot[LedgerLoad]
	notes  snapshot[NotesLoad]
}

var _ Gateway = (*Cached)(nil)

// NewCached wraps next. A ttl <= 0 disables caching.
func NewCached(next Gateway, ttl time.Duration) *Cached {
	return &Cached{next: next, ttl: ttl, now: time.Now}
}

func (c *Cached) LoadLedger(ctx context.Context) (LedgerLoad, error) {
	if c.ttl <= 0 {
		return c.next.LoadLedger(ctx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if load, ok := c.ledger.get(c.now()); ok {
		return LedgerLoad{Records: cloneRecords(load.Records)}, nil
	}
	load, err := c.next.LoadLedger(ctx)
	if err != nil {
		return LedgerLoad{}, err
	}
	// a load with freshly assigned ids is not cached: the caller stores
	// those ids and the save fills the snapshot
	if load.Assigned == 0 {
		c.ledger.set(LedgerLoad{Records: cloneRecords(load.Records)}, c.now(), c.ttl)
	}
	return load, nil
}

func (c *Cached) SaveLedger(ctx context.Context, records []core.Obligation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.next.SaveLedger(ctx, records); err != nil {
		c.ledger.invalidate()
		return err
	}
	if c.ttl > 0 {
		c.ledger.set(LedgerLoad{Records: cloneRecords(records)}, c.now(), c.ttl)
	}
	return nil
}

func (c *Cached) LoadNotes(ctx context.Context) (NotesLoad, error) {
	if c.ttl <= 0 {
		return c.next.LoadNotes(ctx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if load, ok := c.notes.get(c.now()); ok {
		return NotesLoad{Notes: cloneNotes(load.Notes)}, nil
	}
	load, err := c.next.LoadNotes(ctx)
	if err != nil {
		return NotesLoad{}, err
	}
	if load.Assigned == 0 {
		c.notes.set(NotesLoad{Notes: cloneNotes(load.Notes)}, c.now(), c.ttl)
	}
	return load, nil
}

func (c *Cached) SaveNotes(ctx context.Context, notes []core.Note) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.next.SaveNotes(ctx, notes); err != nil {
		c.notes.invalidate()
		return err
	}
	if c.ttl > 0 {
		c.notes.set(NotesLoad{Notes: cloneNotes(notes)}, c.now(), c.ttl)
	}
	return nil
}

// Invalidate forgets both snapshots.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledger.invalidate()
	c.notes.invalidate()
}

func cloneRecords(in []core.Obligation) []core.Obligation {
	out := make([]core.Obligation, len(in))
	copy(out, in)
	return out
}

func cloneNotes(in []core.Note) []core.Note {
	out := make([]core.Note, len(in))
	copy(out, in)
	return out
}
