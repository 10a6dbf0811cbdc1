// Package gateway defines how the ledger and the notes board reach durable
// storage, plus the row codec shared by every tabular backend.
package gateway

import (
	"context"

	"apledger/internal/core"
)

type (
	// LedgerLoad is the result of reading the ledger. Dropped counts stored
	// rows that could not be decoded and were skipped. Assigned counts rows
	// stored without an id that were given a fresh one; those ids only
	// exist in memory until the records are saved.
	LedgerLoad struct {
		Records  []core.Obligation
		Dropped  int
		Assigned int
	}

	NotesLoad struct {
		Notes    []core.Note
		Dropped  int
		Assigned int
	}
)

// Ports for outbound adapters.
type (
	LedgerStore interface {
		// LoadLedger returns every stored record. Fails with
		// core.ErrStorageUnavailable or core.ErrMalformedRecord.
		LoadLedger(ctx context.Context) (LedgerLoad, error)
		// SaveLedger replaces the stored ledger with records.
		SaveLedger(ctx context.Context, records []core.Obligation) error
	}

	NotesStore interface {
		LoadNotes(ctx context.Context) (NotesLoad, error)
		SaveNotes(ctx context.Context, notes []core.Note) error
	}

	// Gateway is the full persistence surface used by the caller layer.
	Gateway interface {
		LedgerStore
		NotesStore
	}
)
