package core

const (
	Upcoming Dueness = iota
	DueToday
	Overdue
)

// Dueness classifies a due date relative to today.
type Dueness int

func (d Dueness) String() string {
	switch d {
	case Overdue:
		return "overdue"
	case DueToday:
		return "due today"
	default:
		return "upcoming"
	}
}

// DuenessOf compares calendar days only; the clock part of today is ignored.
func DuenessOf(due, today Date) Dueness {
	today = DateOf(today.Time)
	switch {
	case due.Before(today.Time):
		return Overdue
	case due.Equal(today.Time):
		return DueToday
	default:
		return Upcoming
	}
}
