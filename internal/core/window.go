package core

import (
	"fmt"
	"strings"
)

const (
	AnyStatus   StatusFilter = "ANY"
	OnlyPending StatusFilter = StatusFilter(StatusPending)
	OnlyPaid    StatusFilter = StatusFilter(StatusPaid)
)

// StatusFilter selects records by status in a window query.
type StatusFilter string

// ParseStatusFilter accepts ANY, PENDING or PAID in any case. Blank means ANY.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToUpper(strings.TrimSpace(s))); f {
	case "", AnyStatus:
		return AnyStatus, nil
	case OnlyPending, OnlyPaid:
		return f, nil
	default:
		return "", fmt.Errorf("%w: filter %q", ErrInvalidStatus, s)
	}
}

// WindowQuery selects ledger records whose due date falls in [Start, End].
// A zero Start or End leaves that side of the window open.
type WindowQuery struct {
	Start  Date
	End    Date
	Status StatusFilter
	Vendor string
}

func (q WindowQuery) Validate() error {
	if !q.Start.IsZero() && !q.End.IsZero() && q.Start.After(q.End.Time) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidWindow, q.Start, q.End)
	}
	switch q.Status {
	case "", AnyStatus, OnlyPending, OnlyPaid:
		return nil
	default:
		return fmt.Errorf("%w: filter %q", ErrInvalidStatus, string(q.Status))
	}
}

// Matches reports whether o falls inside the window.
func (q WindowQuery) Matches(o Obligation) bool {
	if !q.Start.IsZero() && o.DueDate.Before(q.Start.Time) {
		return false
	}
	if !q.End.IsZero() && o.DueDate.After(q.End.Time) {
		return false
	}
	if q.Status != "" && q.Status != AnyStatus && Status(q.Status) != o.Status {
		return false
	}
	if v := strings.TrimSpace(q.Vendor); v != "" {
		if !strings.Contains(strings.ToLower(o.Vendor), strings.ToLower(v)) {
			return false
		}
	}
	return true
}
