package core

import (
	"fmt"
	"sort"
	"strings"
)

// Ledger is the in-memory collection of obligations, keyed by id.
// It is not safe for concurrent use; callers run one load-apply-save cycle
// at a time.
type Ledger struct {
	records []Obligation
	index   map[string]int
}

// NewLedger builds a ledger from existing records. It fails like Add does.
func NewLedger(records ...Obligation) (*Ledger, error) {
	l := &Ledger{index: make(map[string]int, len(records))}
	if err := l.Add(records...); err != nil {
		return nil, err
	}
	return l, nil
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Add appends every record or none: the batch is validated and checked for
// id collisions before anything is stored.
func (l *Ledger) Add(records ...Obligation) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("add %s: %w", r.ID, err)
		}
		if _, ok := l.index[r.ID]; ok {
			return fmt.Errorf("add %s: %w", r.ID, ErrDuplicateID)
		}
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("add %s: %w", r.ID, ErrDuplicateID)
		}
		seen[r.ID] = struct{}{}
	}
	for _, r := range records {
		r.Vendor = strings.TrimSpace(r.Vendor)
		l.index[r.ID] = len(l.records)
		l.records = append(l.records, r)
	}
	return nil
}

// Get returns the record with the given id.
func (l *Ledger) Get(id string) (Obligation, error) {
	i, ok := l.index[id]
	if !ok {
		return Obligation{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return l.records[i], nil
}

// Remove deletes the record with the given id.
func (l *Ledger) Remove(id string) error {
	i, ok := l.index[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	l.records = append(l.records[:i], l.records[i+1:]...)
	delete(l.index, id)
	for j := i; j < len(l.records); j++ {
		l.index[l.records[j].ID] = j
	}
	return nil
}

// MarkPaid moves a pending record to paid. Paying an already paid record is
// an ErrInvalidTransition.
func (l *Ledger) MarkPaid(id string) error {
	i, ok := l.index[id]
	if !ok {
		return fmt.Errorf("mark paid %s: %w", id, ErrNotFound)
	}
	if l.records[i].Status != StatusPending {
		return fmt.Errorf("mark paid %s: %w: already %s", id, ErrInvalidTransition, l.records[i].Status)
	}
	l.records[i].Status = StatusPaid
	return nil
}

// Records returns a copy of every record, ascending by due date. Records
// sharing a due date keep insertion order.
func (l *Ledger) Records() []Obligation {
	out := make([]Obligation, len(l.records))
	copy(out, l.records)
	sortByDueDate(out)
	return out
}

// Query returns the records matching q, ascending by due date.
func (l *Ledger) Query(q WindowQuery) ([]Obligation, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	out := make([]Obligation, 0)
	for _, r := range l.records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	sortByDueDate(out)
	return out, nil
}

// Reconcile merges externally edited records back by id. Each edit
// overwrites the due date, vendor, money inputs, status and recurring flag
// of the record it names; the base amount is always re-derived. The batch
// is applied atomically. Unknown ids fail with ErrNotFound since
// reconciliation never creates records. Moving a paid record back to
// pending is allowed.
func (l *Ledger) Reconcile(edits []Obligation) error {
	staged := make(map[int]Obligation, len(edits))
	seen := make(map[string]struct{}, len(edits))
	for _, e := range edits {
		if _, ok := seen[e.ID]; ok {
			return fmt.Errorf("reconcile %s: %w", e.ID, ErrDuplicateID)
		}
		seen[e.ID] = struct{}{}

		i, ok := l.index[e.ID]
		if !ok {
			return fmt.Errorf("reconcile %s: %w", e.ID, ErrNotFound)
		}

		money, err := e.Money.Recompute()
		if err != nil {
			return fmt.Errorf("reconcile %s: %w", e.ID, err)
		}
		next := Obligation{
			ID:        e.ID,
			DueDate:   e.DueDate,
			Vendor:    strings.TrimSpace(e.Vendor),
			Money:     money,
			Status:    e.Status,
			Recurring: e.Recurring,
		}
		if err := next.Validate(); err != nil {
			return fmt.Errorf("reconcile %s: %w", e.ID, err)
		}
		staged[i] = next
	}
	for i, r := range staged {
		l.records[i] = r
	}
	return nil
}

// Total sums the base amounts of records.
func Total(records []Obligation) int64 {
	var sum int64
	for _, r := range records {
		sum += r.Money.Base()
	}
	return sum
}

func sortByDueDate(records []Obligation) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].DueDate.Before(records[j].DueDate.Time)
	})
}
