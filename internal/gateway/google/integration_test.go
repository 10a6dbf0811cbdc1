//go:build integration

package google

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/gateway/google

func TestIntegration_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("APLEDGER_SHEETS_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("APLEDGER_SHEETS_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, Config{
		SpreadsheetID: spreadsheetID,
		LedgerSheet:   os.Getenv("APLEDGER_SHEETS_LEDGER_SHEET"),
		NotesSheet:    os.Getenv("APLEDGER_SHEETS_NOTES_SHEET"),
	})
	require.NoError(t, err)

	before, err := client.LoadLedger(ctx)
	require.NoError(t, err)
	t.Logf("Loaded %d records, dropped %d", len(before.Records), before.Dropped)

	// Writing back what was read must be lossless for the kept rows.
	require.NoError(t, client.SaveLedger(ctx, before.Records))
	after, err := client.LoadLedger(ctx)
	require.NoError(t, err)
	require.Len(t, after.Records, len(before.Records))
	require.Zero(t, after.Dropped)

	notes, err := client.LoadNotes(ctx)
	require.NoError(t, err)
	require.NoError(t, client.SaveNotes(ctx, notes.Notes))
}
