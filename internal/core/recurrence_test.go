package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandOneOff(t *testing.T) {
	m := usd(t, "100")
	got, err := Expand(Template{DueDate: NewDate(2024, 6, 10), Vendor: " ACME ", Money: m}, seqIDs("x"))
	require.NoError(t, err)
	require.Len(t, got, 1)

	o := got[0]
	assert.Equal(t, "x-1", o.ID)
	assert.Equal(t, "2024-06-10", o.DueDate.String())
	assert.Equal(t, "ACME", o.Vendor)
	assert.Equal(t, StatusPending, o.Status)
	assert.False(t, o.Recurring)
	assert.Equal(t, int64(135000), o.Money.Base())
}

func TestExpandRecurringMonthEnd(t *testing.T) {
	m := usd(t, "100")
	got, err := Expand(Template{DueDate: NewDate(2024, 1, 31), Vendor: "Rent", Money: m, Recurring: true}, nil)
	require.NoError(t, err)
	require.Len(t, got, Installments)

	want := []string{
		"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30",
		"2024-05-31", "2024-06-30", "2024-07-31", "2024-08-31",
		"2024-09-30", "2024-10-31", "2024-11-30", "2024-12-31",
	}
	ids := make(map[string]struct{}, len(got))
	for i, o := range got {
		assert.Equal(t, want[i], o.DueDate.String(), "installment %d", i)
		assert.Equal(t, "Rent", o.Vendor)
		assert.Equal(t, StatusPending, o.Status)
		assert.True(t, o.Recurring)
		assert.True(t, o.Money.Foreign.Equal(m.Foreign))
		assert.Equal(t, m.Currency, o.Money.Currency)
		assert.True(t, o.Money.Rate.Equal(m.Rate))
		assert.Equal(t, m.Base(), o.Money.Base())
		ids[o.ID] = struct{}{}
	}
	assert.Len(t, ids, Installments, "ids must be distinct")
}

func TestExpandRejectsInvalidTemplate(t *testing.T) {
	_, err := Expand(Template{DueDate: NewDate(2024, 1, 1), Vendor: "  ", Money: BaseMoney(1)}, nil)
	assert.ErrorIs(t, err, ErrInvalidVendor)

	_, err = Expand(Template{Vendor: "ACME", Money: BaseMoney(1), Recurring: true}, nil)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestExpandedRecordsEnterLedger(t *testing.T) {
	got, err := Expand(Template{DueDate: NewDate(2024, 3, 15), Vendor: "Lease", Money: BaseMoney(500000), Recurring: true}, nil)
	require.NoError(t, err)

	l, err := NewLedger()
	require.NoError(t, err)
	require.NoError(t, l.Add(got...))
	assert.Equal(t, Installments, l.Len())
	assert.Equal(t, int64(Installments*500000), Total(l.Records()))
}
