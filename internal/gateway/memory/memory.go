// Package memory is an in-process gateway, used for demos, tests and as the
// default backend when nothing durable is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"apledger/internal/core"
	"apledger/internal/gateway"
	"apledger/internal/gateway/yamlfile"
)

type Store struct {
	mu     sync.Mutex
	ledger []core.Obligation
	notes  []core.Note
}

var _ gateway.Gateway = (*Store)(nil)

func New() *Store {
	return &Store{ledger: []core.Obligation{}, notes: []core.Note{}}
}

// NewFromFile seeds the store from a YAML document in the yamlfile layout.
// The file is only read once; later saves stay in memory.
func NewFromFile(path string) (*Store, error) {
	doc, err := yamlfile.ReadDocument(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	ledger, err := doc.LedgerLoad(gateway.DecodeOptions{})
	if err != nil {
		return nil, fmt.Errorf("decode seed ledger: %w", err)
	}
	notes, err := doc.NotesLoad(gateway.DecodeOptions{})
	if err != nil {
		return nil, fmt.Errorf("decode seed notes: %w", err)
	}
	return &Store{ledger: ledger.Records, notes: notes.Notes}, nil
}

func (s *Store) LoadLedger(_ context.Context) (gateway.LedgerLoad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gateway.LedgerLoad{Records: append([]core.Obligation{}, s.ledger...)}, nil
}

func (s *Store) SaveLedger(_ context.Context, records []core.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = append([]core.Obligation{}, records...)
	return nil
}

func (s *Store) LoadNotes(_ context.Context) (gateway.NotesLoad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gateway.NotesLoad{Notes: append([]core.Note{}, s.notes...)}, nil
}

func (s *Store) SaveNotes(_ context.Context, notes []core.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append([]core.Note{}, notes...)
	return nil
}
