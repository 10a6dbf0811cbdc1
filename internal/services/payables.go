// Package services runs the operator's operations against the core: each one
// loads the ledger and notes through a gateway, applies a single change and
// saves the result back.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"apledger/internal/core"
	"apledger/internal/export"
	"apledger/internal/gateway"
	"apledger/internal/importer"
	applog "apledger/internal/log"
)

// DropReporter is told how many stored rows a load had to skip. The ledger
// and notes loads may call it concurrently.
type DropReporter func(kind string, dropped int)

type Payables struct {
	store     gateway.Gateway
	retry     RetryPolicy
	rates     core.RateTable
	newID     core.IDFunc
	now       func() time.Time
	onDropped DropReporter
}

type Option func(*Payables)

func WithRetry(p RetryPolicy) Option {
	return func(s *Payables) { s.retry = p }
}

// WithRates sets the default exchange rates used when no rate is given.
func WithRates(rates core.RateTable) Option {
	return func(s *Payables) { s.rates = rates }
}

func WithIDs(newID core.IDFunc) Option {
	return func(s *Payables) { s.newID = newID }
}

func WithClock(now func() time.Time) Option {
	return func(s *Payables) { s.now = now }
}

func WithDropReporter(r DropReporter) Option {
	return func(s *Payables) { s.onDropped = r }
}

func NewPayables(store gateway.Gateway, opts ...Option) *Payables {
	s := &Payables{
		store: store,
		retry: DefaultRetryPolicy(),
		rates: core.RateTable{},
		newID: core.NewID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current local calendar date.
func (s *Payables) Today() core.Date {
	return core.DateOf(s.now())
}

// DefaultWindow is the review window: pending items due from today through
// today + days.
func (s *Payables) DefaultWindow(days int) core.WindowQuery {
	today := s.Today()
	return core.WindowQuery{
		Start:  today,
		End:    core.DateOf(today.AddDate(0, 0, days)),
		Status: core.OnlyPending,
	}
}

// AddInput is one operator entry. A missing rate falls back to the
// configured default for the currency.
type AddInput struct {
	DueDate   core.Date
	Vendor    string
	Currency  string
	Amount    decimal.Decimal
	Rate      decimal.NullDecimal
	Recurring bool
}

// Add records an entry, expanding a recurring one into its monthly
// installments, and returns the created records.
func (s *Payables) Add(ctx context.Context, in AddInput) ([]core.Obligation, error) {
	currency, err := core.ParseCurrency(in.Currency)
	if err != nil {
		return nil, err
	}
	rate := in.Rate.Decimal
	if !in.Rate.Valid {
		if rate, err = s.rates.DefaultRate(currency); err != nil {
			return nil, err
		}
	}
	money, err := core.NewMoney(in.Amount, currency, rate)
	if err != nil {
		return nil, err
	}
	created, err := core.Expand(core.Template{
		DueDate:   in.DueDate,
		Vendor:    in.Vendor,
		Money:     money,
		Recurring: in.Recurring,
	}, s.newID)
	if err != nil {
		return nil, err
	}

	err = s.updateLedger(ctx, "add", func(l *core.Ledger) error {
		return l.Add(created...)
	})
	if err != nil {
		return nil, err
	}
	fields := applog.NewFields().
		WithOperation(applog.OpAdd).
		WithObligation(created[0].ID, created[0].Vendor, created[0].DueDate.String(), money.Base())
	fields[applog.FieldCount] = len(created)
	slog.InfoContext(ctx, "Added obligations", fields.ToSlice()...)
	return created, nil
}

// List returns the records inside the window, ordered by due date.
func (s *Payables) List(ctx context.Context, q core.WindowQuery) ([]core.Obligation, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ledger, err := s.loadLedger(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Query(q)
}

// Overview is the review screen: the windowed records plus the notes board.
type Overview struct {
	Records []core.Obligation
	Total   int64
	Notes   []core.Note
}

func (s *Payables) Overview(ctx context.Context, q core.WindowQuery) (Overview, error) {
	if err := q.Validate(); err != nil {
		return Overview{}, err
	}
	ledger, notes, err := s.load(ctx)
	if err != nil {
		return Overview{}, err
	}
	records, err := ledger.Query(q)
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		Records: records,
		Total:   core.Total(records),
		Notes:   notes.List(),
	}, nil
}

// Pay marks one pending record paid.
func (s *Payables) Pay(ctx context.Context, id string) (core.Obligation, error) {
	var paid core.Obligation
	err := s.updateLedger(ctx, "pay", func(l *core.Ledger) error {
		if err := l.MarkPaid(id); err != nil {
			return err
		}
		paid, _ = l.Get(id)
		return nil
	})
	if err != nil {
		return core.Obligation{}, err
	}
	slog.InfoContext(ctx, "Marked obligation paid", applog.NewFields().
		WithOperation(applog.OpPay).
		WithObligation(paid.ID, paid.Vendor, paid.DueDate.String(), paid.Money.Base()).
		ToSlice()...)
	return paid, nil
}

// Get returns one record by id.
func (s *Payables) Get(ctx context.Context, id string) (core.Obligation, error) {
	ledger, err := s.loadLedger(ctx)
	if err != nil {
		return core.Obligation{}, err
	}
	return ledger.Get(id)
}

func (s *Payables) Remove(ctx context.Context, id string) error {
	err := s.updateLedger(ctx, "remove", func(l *core.Ledger) error {
		return l.Remove(id)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Removed obligation", applog.FieldOperation, applog.OpRemove, applog.FieldID, id)
	return nil
}

// Export formats the records inside the window as the payables document.
func (s *Payables) Export(ctx context.Context, q core.WindowQuery) (export.Document, error) {
	records, err := s.List(ctx, q)
	if err != nil {
		return export.Document{}, err
	}
	return export.Format(records), nil
}

// EditRows renders the records inside the window in the row layout, ids
// included, for editing outside the tool and feeding back to Reconcile.
func (s *Payables) EditRows(ctx context.Context, q core.WindowQuery) ([][]string, error) {
	records, err := s.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return gateway.EncodeLedger(records), nil
}

// Reconcile applies edited rows by id. Any malformed row, unknown id or
// repeated id rejects the whole batch.
func (s *Payables) Reconcile(ctx context.Context, rows [][]string) (int, error) {
	load, err := gateway.DecodeLedger(rows, gateway.DecodeOptions{
		Strict: true,
		NewID:  func() string { return "" },
		Rates:  s.rates,
	})
	if err != nil {
		return 0, err
	}
	for i, edit := range load.Records {
		if strings.TrimSpace(edit.ID) == "" {
			return 0, fmt.Errorf("%w: edit %d has no %s", core.ErrMalformedRecord, i+1, gateway.ColID)
		}
	}

	err = s.updateLedger(ctx, "reconcile", func(l *core.Ledger) error {
		return l.Reconcile(load.Records)
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Reconciled edits", applog.FieldOperation, applog.OpReconcile, applog.FieldCount, len(load.Records))
	return len(load.Records), nil
}

// ImportResult reports what an import added and what it skipped.
type ImportResult struct {
	Added   []core.Obligation
	Dropped int
}

// Import adds every readable row of a CSV, XLSX or XLS file. Rows are
// stored as given; unreadable rows are skipped and counted.
func (s *Payables) Import(ctx context.Context, path string) (ImportResult, error) {
	load, err := importer.File(path, gateway.DecodeOptions{NewID: s.newID, Rates: s.rates})
	if err != nil {
		return ImportResult{}, err
	}
	if load.Dropped > 0 {
		s.reportDropped(ctx, "import", load.Dropped)
	}

	err = s.updateLedger(ctx, "import", func(l *core.Ledger) error {
		return l.Add(load.Records...)
	})
	if err != nil {
		return ImportResult{}, err
	}
	slog.InfoContext(ctx, "Imported obligations", applog.NewFields().
		WithOperation(applog.OpImport).
		WithLoad(len(load.Records), load.Dropped).
		ToSlice()...)
	return ImportResult{Added: load.Records, Dropped: load.Dropped}, nil
}

func (s *Payables) Notes(ctx context.Context) ([]core.Note, error) {
	board, err := s.loadNotes(ctx)
	if err != nil {
		return nil, err
	}
	return board.List(), nil
}

func (s *Payables) AddNote(ctx context.Context, content string) (core.Note, error) {
	var note core.Note
	err := s.updateNotes(ctx, "note add", func(b *core.NotesBoard) error {
		var err error
		note, err = b.Add(content)
		return err
	})
	if err != nil {
		return core.Note{}, err
	}
	slog.InfoContext(ctx, "Added note", applog.FieldOperation, applog.OpNote, applog.FieldID, note.ID)
	return note, nil
}

func (s *Payables) RemoveNote(ctx context.Context, id string) error {
	err := s.updateNotes(ctx, "note rm", func(b *core.NotesBoard) error {
		return b.Remove(id)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Removed note", applog.FieldOperation, applog.OpNote, applog.FieldID, id)
	return nil
}

// load reads the ledger and the notes concurrently.
func (s *Payables) load(ctx context.Context) (*core.Ledger, *core.NotesBoard, error) {
	var (
		ledger *core.Ledger
		notes  *core.NotesBoard
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ledger, err = s.loadLedger(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		notes, err = s.loadNotes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ledger, notes, nil
}

func (s *Payables) loadLedger(ctx context.Context) (*core.Ledger, error) {
	var load gateway.LedgerLoad
	err := s.retry.Do(ctx, "load ledger", func(ctx context.Context) error {
		var err error
		load, err = s.store.LoadLedger(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if load.Dropped > 0 {
		s.reportDropped(ctx, "ledger", load.Dropped)
	}
	ledger, err := core.NewLedger(load.Records...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedRecord, err)
	}
	if load.Assigned > 0 {
		// ids handed out by the decoder must be stored before anyone sees
		// them, or the next load would hand out different ones
		records := ledger.Records()
		err := s.retry.Do(ctx, "store assigned ledger ids", func(ctx context.Context) error {
			return s.store.SaveLedger(ctx, records)
		})
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Stored ids for ledger rows saved without one", "kind", "ledger", applog.FieldCount, load.Assigned)
	}
	return ledger, nil
}

func (s *Payables) loadNotes(ctx context.Context) (*core.NotesBoard, error) {
	var load gateway.NotesLoad
	err := s.retry.Do(ctx, "load notes", func(ctx context.Context) error {
		var err error
		load, err = s.store.LoadNotes(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if load.Dropped > 0 {
		s.reportDropped(ctx, "notes", load.Dropped)
	}
	board, err := core.NewNotesBoard(s.newID, load.Notes...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedRecord, err)
	}
	if load.Assigned > 0 {
		notes := board.List()
		err := s.retry.Do(ctx, "store assigned note ids", func(ctx context.Context) error {
			return s.store.SaveNotes(ctx, notes)
		})
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Stored ids for notes saved without one", "kind", "notes", applog.FieldCount, load.Assigned)
	}
	return board, nil
}

// updateLedger is one load, apply, save cycle. Nothing is saved when apply
// fails.
func (s *Payables) updateLedger(ctx context.Context, op string, apply func(*core.Ledger) error) error {
	ledger, err := s.loadLedger(ctx)
	if err != nil {
		return err
	}
	if err := apply(ledger); err != nil {
		return err
	}
	records := ledger.Records()
	return s.retry.Do(ctx, op, func(ctx context.Context) error {
		return s.store.SaveLedger(ctx, records)
	})
}

func (s *Payables) updateNotes(ctx context.Context, op string, apply func(*core.NotesBoard) error) error {
	board, err := s.loadNotes(ctx)
	if err != nil {
		return err
	}
	if err := apply(board); err != nil {
		return err
	}
	notes := board.List()
	return s.retry.Do(ctx, op, func(ctx context.Context) error {
		return s.store.SaveNotes(ctx, notes)
	})
}

func (s *Payables) reportDropped(ctx context.Context, kind string, dropped int) {
	slog.WarnContext(ctx, "Skipped unreadable rows", "kind", kind, applog.FieldDropped, dropped)
	if s.onDropped != nil {
		s.onDropped(kind, dropped)
	}
}
