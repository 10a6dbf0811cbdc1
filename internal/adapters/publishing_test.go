package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apledger/internal/amqp"
	"apledger/internal/core"
	"apledger/internal/gateway"
	"apledger/internal/gateway/memory"
)

type published struct {
	kind  amqp.SyncKind
	count int
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) PublishSync(_ context.Context, kind amqp.SyncKind, count int) error {
	f.sent = append(f.sent, published{kind, count})
	return f.err
}

type failingGateway struct {
	gateway.Gateway
}

func (failingGateway) SaveLedger(context.Context, []core.Obligation) error {
	return core.ErrStorageUnavailable
}

func (failingGateway) SaveNotes(context.Context, []core.Note) error {
	return core.ErrStorageUnavailable
}

func TestPublishingAnnouncesSaves(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	p := NewPublishing(memory.New(), pub)

	records := []core.Obligation{
		{ID: "a", DueDate: core.NewDate(2024, 6, 1), Vendor: "A", Money: core.BaseMoney(1), Status: core.StatusPending},
		{ID: "b", DueDate: core.NewDate(2024, 6, 2), Vendor: "B", Money: core.BaseMoney(2), Status: core.StatusPending},
	}
	require.NoError(t, p.SaveLedger(ctx, records))
	require.NoError(t, p.SaveNotes(ctx, []core.Note{{ID: "n", Content: "hello"}}))

	assert.Equal(t, []published{{amqp.SyncLedger, 2}, {amqp.SyncNotes, 1}}, pub.sent)

	load, err := p.LoadLedger(ctx)
	require.NoError(t, err)
	assert.Len(t, load.Records, 2)
}

func TestPublishingIgnoresPublishFailure(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{err: errors.New("broker down")}
	store := memory.New()
	p := NewPublishing(store, pub)

	require.NoError(t, p.SaveNotes(ctx, []core.Note{{ID: "n", Content: "kept"}}))

	load, err := store.LoadNotes(ctx)
	require.NoError(t, err)
	assert.Len(t, load.Notes, 1)
}

func TestPublishingSkipsFailedSaves(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	p := NewPublishing(failingGateway{memory.New()}, pub)

	assert.ErrorIs(t, p.SaveLedger(ctx, nil), core.ErrStorageUnavailable)
	assert.ErrorIs(t, p.SaveNotes(ctx, nil), core.ErrStorageUnavailable)
	assert.Empty(t, pub.sent)
}

func TestPublishingWithoutPublisher(t *testing.T) {
	p := NewPublishing(memory.New(), nil)
	assert.NoError(t, p.SaveNotes(context.Background(), nil))
}
