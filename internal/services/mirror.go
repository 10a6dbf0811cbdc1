package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"apledger/internal/amqp"
	"apledger/internal/gateway"
	applog "apledger/internal/log"
)

// Mirror copies the primary store to a secondary one, normally the shared
// Google Sheet, whenever a sync message arrives. The message carries no
// rows; the current snapshot is always re-read from the source.
type Mirror struct {
	source gateway.Gateway
	target gateway.Gateway
	retry  RetryPolicy
}

func NewMirror(source, target gateway.Gateway, retry RetryPolicy) *Mirror {
	return &Mirror{source: source, target: target, retry: retry}
}

// Handle implements amqp.Handler.
func (m *Mirror) Handle(ctx context.Context, msg *amqp.SyncMessage) error {
	switch msg.Kind {
	case amqp.SyncLedger:
		return m.SyncLedger(ctx)
	case amqp.SyncNotes:
		return m.SyncNotes(ctx)
	default:
		return fmt.Errorf("unknown sync kind %q", msg.Kind)
	}
}

// SyncAll copies both the ledger and the notes.
func (m *Mirror) SyncAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.SyncLedger(gctx) })
	g.Go(func() error { return m.SyncNotes(gctx) })
	return g.Wait()
}

func (m *Mirror) SyncLedger(ctx context.Context) error {
	var load gateway.LedgerLoad
	err := m.retry.Do(ctx, "mirror load ledger", func(ctx context.Context) error {
		var err error
		load, err = m.source.LoadLedger(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("read source ledger: %w", err)
	}
	if load.Assigned > 0 {
		// the source must own the ids before the mirror repeats them
		err = m.retry.Do(ctx, "mirror store assigned ledger ids", func(ctx context.Context) error {
			return m.source.SaveLedger(ctx, load.Records)
		})
		if err != nil {
			return fmt.Errorf("store assigned ledger ids: %w", err)
		}
	}
	err = m.retry.Do(ctx, "mirror save ledger", func(ctx context.Context) error {
		return m.target.SaveLedger(ctx, load.Records)
	})
	if err != nil {
		return fmt.Errorf("write mirror ledger: %w", err)
	}
	slog.InfoContext(ctx, "Mirrored ledger", applog.NewFields().
		WithOperation(applog.OpSync).
		WithLoad(len(load.Records), load.Dropped).
		ToSlice()...)
	return nil
}

func (m *Mirror) SyncNotes(ctx context.Context) error {
	var load gateway.NotesLoad
	err := m.retry.Do(ctx, "mirror load notes", func(ctx context.Context) error {
		var err error
		load, err = m.source.LoadNotes(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("read source notes: %w", err)
	}
	if load.Assigned > 0 {
		err = m.retry.Do(ctx, "mirror store assigned note ids", func(ctx context.Context) error {
			return m.source.SaveNotes(ctx, load.Notes)
		})
		if err != nil {
			return fmt.Errorf("store assigned note ids: %w", err)
		}
	}
	err = m.retry.Do(ctx, "mirror save notes", func(ctx context.Context) error {
		return m.target.SaveNotes(ctx, load.Notes)
	})
	if err != nil {
		return fmt.Errorf("write mirror notes: %w", err)
	}
	slog.InfoContext(ctx, "Mirrored notes", applog.NewFields().
		WithOperation(applog.OpSync).
		WithLoad(len(load.Notes), load.Dropped).
		ToSlice()...)
	return nil
}
