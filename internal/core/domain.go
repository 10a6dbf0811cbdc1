package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
)

// ISODate is the text layout used for due dates everywhere a date leaves the core.
const ISODate = "2006-01-02"

type (
	Status string

	// IDFunc returns a fresh opaque identifier.
	IDFunc func() string

	Date struct {
		time.Time
	}

	// Obligation is one payable line of the ledger.
	Obligation struct {
		ID        string
		DueDate   Date
		Vendor    string
		Money     Money
		Status    Status
		Recurring bool
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidRate        = errors.New("invalid exchange rate")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrInvalidVendor      = errors.New("empty vendor")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidWindow      = errors.New("invalid window")
	ErrEmptyContent       = errors.New("empty note content")
	ErrDuplicateID        = errors.New("duplicate id")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMalformedRecord    = errors.New("malformed record")
)

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping its calendar day.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

var dateLayouts = []string{
	ISODate,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"2006.01.02",
	"2006. 1. 2",
}

// ParseDate accepts ISO dates plus the timestamp and slash/dot forms
// spreadsheets tend to produce.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// AddMonths moves the date n calendar months, clamping the day to the last
// day of the target month (Jan 31 + 1 month is Feb 28/29).
func (d Date) AddMonths(n int) Date {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return NewDate(first.Year(), first.Month(), day)
}

// String renders the date as YYYY-MM-DD; the zero date renders empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(ISODate)
}

func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusPaid:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
	}
}

// Validate checks every field of the record, including that the base amount
// still matches the foreign amount and rate.
func (o Obligation) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	if err := o.DueDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(o.Vendor) == "" {
		return ErrInvalidVendor
	}
	if err := o.Money.Validate(); err != nil {
		return err
	}
	return o.Status.Validate()
}

// IsPaid reports whether the obligation has been settled.
func (o Obligation) IsPaid() bool {
	return o.Status == StatusPaid
}
