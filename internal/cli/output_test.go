package cli

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apledger/internal/core"
)

func TestRenderObligations(t *testing.T) {
	usd, err := core.NewMoney(decimal.NewFromInt(100), "USD", decimal.NewFromInt(1350))
	require.NoError(t, err)
	today := core.NewDate(2024, 6, 10)
	records := []core.Obligation{
		{ID: "id-1", DueDate: core.NewDate(2024, 6, 1), Vendor: "Late Vendor", Money: core.BaseMoney(1500000), Status: core.StatusPending, Recurring: true},
		{ID: "id-2", DueDate: today, Vendor: "AWS", Money: usd, Status: core.StatusPending},
		{ID: "id-3", DueDate: core.NewDate(2024, 6, 20), Vendor: "Paid Co", Money: core.BaseMoney(1), Status: core.StatusPaid},
	}

	out := RenderObligations(records, today)
	for _, want := range []string{"Late Vendor", "1,500,000", "135,000", "1,635,001", "합계", "overdue", "due today", "paid", "yes", "id-2"} {
		assert.Contains(t, out, want)
	}

	empty := RenderObligations(nil, today)
	assert.Contains(t, empty, "합계")
	assert.Contains(t, empty, "Amount_KRW")
}

func TestRenderNotes(t *testing.T) {
	assert.Contains(t, RenderNotes(nil), "no notes")
	out := RenderNotes([]core.Note{{ID: "n1", Content: "call the bank"}})
	assert.Contains(t, out, "call the bank")
	assert.Contains(t, out, "n1")
}

func TestConfirm(t *testing.T) {
	ok, err := Confirm("Delete?", true)
	require.NoError(t, err)
	assert.True(t, ok)

	if IsTerminal() {
		t.Skip("stdin is a terminal")
	}
	ok, err = Confirm("Delete?", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrinters(t *testing.T) {
	var buf bytes.Buffer
	PrintSuccess(&buf, "saved")
	PrintInfof(&buf, "%d records", 3)
	PrintError(&buf, "failed")
	PrintDropped(&buf, "ledger", 2)
	out := buf.String()
	assert.Contains(t, out, "saved")
	assert.Contains(t, out, "3 records")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "2 unreadable ledger row(s) were skipped")
}
