package core

import (
	"fmt"
	"strings"
)

// Installments is how many monthly records a recurring obligation expands into.
const Installments = 12

// Template describes an obligation as the operator enters it, before it is
// expanded into ledger records.
type Template struct {
	DueDate   Date
	Vendor    string
	Money     Money
	Recurring bool
}

func (t Template) Validate() error {
	if err := t.DueDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Vendor) == "" {
		return ErrInvalidVendor
	}
	return t.Money.Validate()
}

// Expand turns a template into pending ledger records: one for a one-off
// obligation, Installments for a recurring one. The i-th installment falls
// i months after the template date, clamped to the end of shorter months.
// Every installment is computed from the template date, so a clamp in
// February does not drag March back to the 29th.
func Expand(t Template, newID IDFunc) ([]Obligation, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("expand %q: %w", t.Vendor, err)
	}
	if newID == nil {
		newID = NewID
	}

	n := 1
	if t.Recurring {
		n = Installments
	}

	vendor := strings.TrimSpace(t.Vendor)
	out := make([]Obligation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Obligation{
			ID:        newID(),
			DueDate:   t.DueDate.AddMonths(i),
			Vendor:    vendor,
			Money:     t.Money,
			Status:    StatusPending,
			Recurring: t.Recurring,
		})
	}
	return out, nil
}
