// Package adapters holds gateway decorators that tie persistence to the
// messaging side of the system.
package adapters

import (
	"context"
	"log/slog"

	"apledger/internal/amqp"
	"apledger/internal/core"
	"apledger/internal/gateway"
	applog "apledger/internal/log"
)

// Publisher is the subset of *amqp.Client used after a save.
type Publisher interface {
	PublishSync(ctx context.Context, kind amqp.SyncKind, count int) error
}

// Publishing announces every successful save on the message bus so the
// mirror worker can copy the new snapshot. Publish failures are logged and
// never fail the save.
type Publishing struct {
	next      gateway.Gateway
	publisher Publisher
}

var _ gateway.Gateway = (*Publishing)(nil)

func NewPublishing(next gateway.Gateway, publisher Publisher) *Publishing {
	return &Publishing{next: next, publisher: publisher}
}

func (p *Publishing) LoadLedger(ctx context.Context) (gateway.LedgerLoad, error) {
	return p.next.LoadLedger(ctx)
}

func (p *Publishing) SaveLedger(ctx context.Context, records []core.Obligation) error {
	if err := p.next.SaveLedger(ctx, records); err != nil {
		return err
	}
	p.publish(ctx, amqp.SyncLedger, len(records))
	return nil
}

func (p *Publishing) LoadNotes(ctx context.Context) (gateway.NotesLoad, error) {
	return p.next.LoadNotes(ctx)
}

func (p *Publishing) SaveNotes(ctx context.Context, notes []core.Note) error {
	if err := p.next.SaveNotes(ctx, notes); err != nil {
		return err
	}
	p.publish(ctx, amqp.SyncNotes, len(notes))
	return nil
}

func (p *Publishing) publish(ctx context.Context, kind amqp.SyncKind, count int) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishSync(ctx, kind, count); err != nil {
		slog.WarnContext(ctx, "Failed to publish sync message, mirror will lag",
			applog.FieldComponent, applog.ComponentAMQP,
			"kind", kind,
			applog.FieldCount, count,
			applog.FieldError, err)
	}
}
