package gateway

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"apledger/internal/core"
)

// Column names of the ledger sheet. Amount_KRW is written for humans reading
// the sheet and ignored on load.
const (
	ColDate      = "Date"
	ColVendor    = "Vendor"
	ColCurrency  = "Currency"
	ColAmount    = "Amount_F"
	ColRate      = "Ex_Rate"
	ColBase      = "Amount_KRW"
	ColStatus    = "Status"
	ColRecurring = "Is_Fixed"
	ColID        = "ID"
	ColContent   = "Content"
)

// Status values as the sheet stores them.
const (
	SheetPending = "Wait"
	SheetPaid    = "Done"
)

var (
	LedgerColumns = []string{ColDate, ColVendor, ColCurrency, ColAmount, ColRate, ColBase, ColStatus, ColRecurring, ColID}
	NoteColumns   = []string{ColContent, ColID}

	requiredLedgerColumns = []string{ColDate, ColVendor, ColAmount}
	// An edit file must carry every input column: a missing one would
	// silently reset that field on every edited record.
	strictLedgerColumns = []string{ColDate, ColVendor, ColCurrency, ColAmount, ColRate, ColStatus, ColRecurring, ColID}
)

// DecodeOptions tunes how stored rows are turned back into records.
type DecodeOptions struct {
	// Strict rejects the whole batch on the first bad row instead of
	// dropping it. Used for bulk-edit files.
	Strict bool
	// NewID assigns ids to rows stored without one. Defaults to core.NewID.
	NewID core.IDFunc
	// Rates fills a blank Ex_Rate cell for foreign-currency rows.
	Rates core.RateTable
}

func (o DecodeOptions) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return core.NewID()
}

// EncodeLedger returns the header row followed by one row per record.
func EncodeLedger(records []core.Obligation) [][]string {
	out := make([][]string, 0, len(records)+1)
	out = append(out, append([]string(nil), LedgerColumns...))
	for _, r := range records {
		out = append(out, []string{
			r.DueDate.String(),
			r.Vendor,
			string(r.Money.Currency),
			r.Money.Foreign.String(),
			r.Money.Rate.String(),
			strconv.FormatInt(r.Money.Base(), 10),
			FormatStatus(r.Status),
			strconv.FormatBool(r.Recurring),
			r.ID,
		})
	}
	return out
}

// EncodeNotes returns the header row followed by one row per note.
func EncodeNotes(notes []core.Note) [][]string {
	out := make([][]string, 0, len(notes)+1)
	out = append(out, append([]string(nil), NoteColumns...))
	for _, n := range notes {
		out = append(out, []string{n.Content, n.ID})
	}
	return out
}

// DecodeLedger parses rows whose first row is the header. Columns are found
// by name in any order and case. Blank rows are skipped silently; rows that
// do not decode, and repeats of an id already seen, are dropped and counted
// unless opts.Strict is set.
func DecodeLedger(rows [][]string, opts DecodeOptions) (LedgerLoad, error) {
	if len(rows) == 0 {
		return LedgerLoad{Records: []core.Obligation{}}, nil
	}
	cols := headerIndex(rows[0])
	required := requiredLedgerColumns
	if opts.Strict {
		required = strictLedgerColumns
	}
	for _, name := range required {
		if _, ok := cols[strings.ToLower(name)]; !ok {
			return LedgerLoad{}, fmt.Errorf("%w: missing %s column", core.ErrMalformedRecord, name)
		}
	}

	load := LedgerLoad{Records: make([]core.Obligation, 0, len(rows)-1)}
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rec, assigned, err := decodeObligation(row, cols, opts)
		if err == nil {
			if _, dup := seen[rec.ID]; dup {
				err = fmt.Errorf("%w: %s", core.ErrDuplicateID, rec.ID)
			}
		}
		if err != nil {
			if opts.Strict {
				return LedgerLoad{}, fmt.Errorf("row %d: %w", i+2, err)
			}
			load.Dropped++
			continue
		}
		seen[rec.ID] = struct{}{}
		if assigned {
			load.Assigned++
		}
		load.Records = append(load.Records, rec)
	}
	return load, nil
}

// DecodeNotes parses note rows whose first row is the header.
func DecodeNotes(rows [][]string, opts DecodeOptions) (NotesLoad, error) {
	if len(rows) == 0 {
		return NotesLoad{Notes: []core.Note{}}, nil
	}
	cols := headerIndex(rows[0])
	if _, ok := cols[strings.ToLower(ColContent)]; !ok {
		return NotesLoad{}, fmt.Errorf("%w: missing %s column", core.ErrMalformedRecord, ColContent)
	}

	load := NotesLoad{Notes: make([]core.Note, 0, len(rows)-1)}
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		n := core.Note{
			ID:      cell(row, cols, ColID),
			Content: cell(row, cols, ColContent),
		}
		assigned := n.ID == ""
		if assigned {
			n.ID = opts.newID()
		}
		err := n.Validate()
		if err == nil {
			if _, dup := seen[n.ID]; dup {
				err = fmt.Errorf("%w: %s", core.ErrDuplicateID, n.ID)
			}
		}
		if err != nil {
			if opts.Strict {
				return NotesLoad{}, fmt.Errorf("row %d: %w", i+2, err)
			}
			load.Dropped++
			continue
		}
		seen[n.ID] = struct{}{}
		if assigned {
			load.Assigned++
		}
		load.Notes = append(load.Notes, n)
	}
	return load, nil
}

// decodeObligation also reports whether the row had no id and got a fresh one.
func decodeObligation(row []string, cols map[string]int, opts DecodeOptions) (core.Obligation, bool, error) {
	due, err := core.ParseDate(cell(row, cols, ColDate))
	if err != nil {
		return core.Obligation{}, false, err
	}
	vendor := cell(row, cols, ColVendor)
	if vendor == "" {
		return core.Obligation{}, false, core.ErrInvalidVendor
	}
	currency, err := core.ParseCurrency(cell(row, cols, ColCurrency))
	if err != nil {
		return core.Obligation{}, false, err
	}
	amount, err := core.ParseAmount(cell(row, cols, ColAmount))
	if err != nil {
		return core.Obligation{}, false, err
	}

	var rate decimal.Decimal
	if raw := cell(row, cols, ColRate); raw != "" {
		if rate, err = core.ParseRate(raw); err != nil {
			return core.Obligation{}, false, err
		}
	} else if rate, err = opts.Rates.DefaultRate(currency); err != nil {
		return core.Obligation{}, false, err
	}

	money, err := core.NewMoney(amount, currency, rate)
	if err != nil {
		return core.Obligation{}, false, err
	}
	status, err := ParseStatus(cell(row, cols, ColStatus))
	if err != nil {
		return core.Obligation{}, false, err
	}
	recurring, err := parseFlag(cell(row, cols, ColRecurring))
	if err != nil {
		return core.Obligation{}, false, err
	}

	id := cell(row, cols, ColID)
	assigned := id == ""
	if assigned {
		id = opts.newID()
	}
	return core.Obligation{
		ID:        id,
		DueDate:   due,
		Vendor:    vendor,
		Money:     money,
		Status:    status,
		Recurring: recurring,
	}, assigned, nil
}

// FormatStatus maps a status to its stored form.
func FormatStatus(s core.Status) string {
	if s == core.StatusPaid {
		return SheetPaid
	}
	return SheetPending
}

// ParseStatus accepts the stored forms Wait/Done as well as PENDING/PAID.
// A blank cell means pending.
func ParseStatus(s string) (core.Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wait", "pending":
		return core.StatusPending, nil
	case "done", "paid":
		return core.StatusPaid, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrInvalidStatus, s)
	}
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "f", "n", "no":
		return false, nil
	case "1", "true", "t", "y", "yes":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s value %q", core.ErrMalformedRecord, ColRecurring, s)
	}
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := idx[key]; !ok && key != "" {
			idx[key] = i
		}
	}
	return idx
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
