// Package yamlfile stores the ledger and the notes board in a single YAML
// document on local disk.
package yamlfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"apledger/internal/core"
	"apledger/internal/gateway"
)

type (
	// Document is the on-disk layout.
	Document struct {
		Ledger []Entry `yaml:"ledger"`
		Notes  []Note  `yaml:"notes"`
	}

	Entry struct {
		ID        string `yaml:"id"`
		Date      string `yaml:"date"`
		Vendor    string `yaml:"vendor"`
		Currency  string `yaml:"currency"`
		Amount    string `yaml:"amount"`
		Rate      string `yaml:"rate"`
		AmountKRW int64  `yaml:"amount_krw"`
		Status    string `yaml:"status"`
		Recurring bool   `yaml:"recurring"`
	}

	Note struct {
		ID      string `yaml:"id"`
		Content string `yaml:"content"`
	}
)

// Store is a file-backed gateway. Writes go to a temp file that is renamed
// over the document, so a crash never leaves a half-written ledger.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ gateway.Gateway = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

func (s *Store) LoadLedger(ctx context.Context) (gateway.LedgerLoad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := ReadDocument(s.path)
	if err != nil {
		return gateway.LedgerLoad{}, err
	}
	load, err := doc.LedgerLoad(gateway.DecodeOptions{})
	if err != nil {
		return gateway.LedgerLoad{}, err
	}
	if load.Dropped > 0 {
		slog.WarnContext(ctx, "Dropped malformed ledger entries", "path", s.path, "dropped", load.Dropped)
	}
	return load, nil
}

func (s *Store) SaveLedger(_ context.Context, records []core.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := ReadDocument(s.path)
	if err != nil {
		return err
	}
	doc.Ledger = Entries(records)
	return WriteDocument(s.path, doc)
}

func (s *Store) LoadNotes(ctx context.Context) (gateway.NotesLoad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := ReadDocument(s.path)
	if err != nil {
		return gateway.NotesLoad{}, err
	}
	load, err := doc.NotesLoad(gateway.DecodeOptions{})
	if err != nil {
		return gateway.NotesLoad{}, err
	}
	if load.Dropped > 0 {
		slog.WarnContext(ctx, "Dropped malformed notes", "path", s.path, "dropped", load.Dropped)
	}
	return load, nil
}

func (s *Store) SaveNotes(_ context.Context, notes []core.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := ReadDocument(s.path)
	if err != nil {
		return err
	}
	doc.Notes = make([]Note, 0, len(notes))
	for _, n := range notes {
		doc.Notes = append(doc.Notes, Note{ID: n.ID, Content: n.Content})
	}
	return WriteDocument(s.path, doc)
}

// ReadDocument parses the file at path. A missing file is an empty document.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: read %s: %v", core.ErrStorageUnavailable, path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: parse %s: %v", core.ErrMalformedRecord, path, err)
	}
	return doc, nil
}

// WriteDocument atomically replaces the file at path with doc.
func WriteDocument(path string, doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", core.ErrStorageUnavailable, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", core.ErrStorageUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", core.ErrStorageUnavailable, tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", core.ErrStorageUnavailable, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", core.ErrStorageUnavailable, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", core.ErrStorageUnavailable, path, err)
	}
	return nil
}

// Entries converts records into their YAML form.
func Entries(records []core.Obligation) []Entry {
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		out = append(out, Entry{
			ID:        r.ID,
			Date:      r.DueDate.String(),
			Vendor:    r.Vendor,
			Currency:  string(r.Money.Currency),
			Amount:    r.Money.Foreign.String(),
			Rate:      r.Money.Rate.String(),
			AmountKRW: r.Money.Base(),
			Status:    string(r.Status),
			Recurring: r.Recurring,
		})
	}
	return out
}

// LedgerLoad decodes the ledger entries with the shared row rules, so a
// hand-edited file is held to the same drop policy as a sheet.
func (d Document) LedgerLoad(opts gateway.DecodeOptions) (gateway.LedgerLoad, error) {
	rows := make([][]string, 0, len(d.Ledger)+1)
	rows = append(rows, gateway.LedgerColumns)
	for _, e := range d.Ledger {
		rows = append(rows, []string{
			e.Date, e.Vendor, e.Currency, e.Amount, e.Rate,
			strconv.FormatInt(e.AmountKRW, 10), e.Status, strconv.FormatBool(e.Recurring), e.ID,
		})
	}
	return gateway.DecodeLedger(rows, opts)
}

func (d Document) NotesLoad(opts gateway.DecodeOptions) (gateway.NotesLoad, error) {
	rows := make([][]string, 0, len(d.Notes)+1)
	rows = append(rows, gateway.NoteColumns)
	for _, n := range d.Notes {
		rows = append(rows, []string{n.Content, n.ID})
	}
	return gateway.DecodeNotes(rows, opts)
}
