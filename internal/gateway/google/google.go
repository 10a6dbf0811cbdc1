// Package google stores the ledger and notes in a Google Sheets spreadsheet:
// one worksheet for the ledger, one for the notes board.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"apledger/internal/core"
	"apledger/internal/gateway"
)

const (
	DefaultLedgerSheet = "Sheet1"
	DefaultNotesSheet  = "special_notes"
)

// Config selects the spreadsheet and how to authenticate against it.
type Config struct {
	SpreadsheetID   string
	LedgerSheet     string
	NotesSheet      string
	CredentialsFile string
	CredentialsJSON string
	// Rates fills blank Ex_Rate cells on legacy rows.
	Rates core.RateTable
}

type Client struct {
	// writeMu keeps a read-extent, write pair from interleaving with another.
	writeMu sync.Mutex

	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string
	notesSheet    string
	rates         core.RateTable
}

// Ensure interface conformance
var _ gateway.Gateway = (*Client)(nil)

// New creates a Sheets client using service account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService builds a client over an existing service.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	ledger := strings.TrimSpace(cfg.LedgerSheet)
	if ledger == "" {
		ledger = DefaultLedgerSheet
	}
	notes := strings.TrimSpace(cfg.NotesSheet)
	if notes == "" {
		notes = DefaultNotesSheet
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		ledgerSheet:   ledger,
		notesSheet:    notes,
		rates:         cfg.Rates,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over a file; GOOGLE_APPLICATION_CREDENTIALS is the fallback.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := strings.TrimSpace(cfg.CredentialsJSON)
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var raw []byte
	switch {
	case credentialsJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		raw = []byte(credentialsJSON)
	case credentialsFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", credentialsFile)
		var err error
		raw, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set sheets.credentials_json, sheets.credentials_file, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(raw),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) LoadLedger(ctx context.Context) (gateway.LedgerLoad, error) {
	rows, err := c.readSheet(ctx, c.ledgerSheet)
	if err != nil {
		return gateway.LedgerLoad{}, err
	}
	load, err := gateway.DecodeLedger(rows, gateway.DecodeOptions{Rates: c.rates})
	if err != nil {
		return gateway.LedgerLoad{}, fmt.Errorf("decode %s: %w", c.ledgerSheet, err)
	}
	slog.DebugContext(ctx, "Loaded ledger from sheet", "sheet", c.ledgerSheet, "records", len(load.Records), "dropped", load.Dropped)
	return load, nil
}

func (c *Client) SaveLedger(ctx context.Context, records []core.Obligation) error {
	return c.writeSheet(ctx, c.ledgerSheet, gateway.EncodeLedger(records))
}

func (c *Client) LoadNotes(ctx context.Context) (gateway.NotesLoad, error) {
	rows, err := c.readSheet(ctx, c.notesSheet)
	if err != nil {
		return gateway.NotesLoad{}, err
	}
	load, err := gateway.DecodeNotes(rows, gateway.DecodeOptions{})
	if err != nil {
		return gateway.NotesLoad{}, fmt.Errorf("decode %s: %w", c.notesSheet, err)
	}
	return load, nil
}

func (c *Client) SaveNotes(ctx context.Context, notes []core.Note) error {
	return c.writeSheet(ctx, c.notesSheet, gateway.EncodeNotes(notes))
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([][]string, error) {
	if c.svc == nil {
		return nil, fmt.Errorf("%w: sheets service not initialized", core.ErrStorageUnavailable)
	}
	rng := fmt.Sprintf("%s!A:Z", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", core.ErrStorageUnavailable, rng, err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		rows = append(rows, toStrings(row))
	}
	return rows, nil
}

// writeSheet replaces the worksheet contents with one Update from A1. The
// write is padded with blank cells over whatever the sheet held before, so
// nothing is cleared first and a failed write leaves the old rows intact.
// Values are written RAW so dates and ids stay text.
func (c *Client) writeSheet(ctx context.Context, sheet string, rows [][]string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	old, err := c.readSheet(ctx, sheet)
	if err != nil {
		return err
	}

	height, width := len(rows), 0
	if len(old) > height {
		height = len(old)
	}
	for _, grid := range [][][]string{old, rows} {
		for _, row := range grid {
			if len(row) > width {
				width = len(row)
			}
		}
	}

	values := make([][]any, height)
	for i := range values {
		cells := make([]any, width)
		for j := range cells {
			cells[j] = ""
			if i < len(rows) && j < len(rows[i]) {
				cells[j] = rows[i][j]
			}
		}
		values[i] = cells
	}

	target := fmt.Sprintf("%s!A1", sheet)
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: write %s: %v", core.ErrStorageUnavailable, target, err)
	}
	slog.DebugContext(ctx, "Wrote sheet", "sheet", sheet, "rows", len(rows)-1, "blanked", height-len(rows))
	return nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
