package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apledger/internal/amqp"
)

type fakeSyncer struct {
	mu      sync.Mutex
	full    int
	handled []amqp.SyncKind
	fullErr error
}

func (s *fakeSyncer) Handle(_ context.Context, msg *amqp.SyncMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handled = append(s.handled, msg.Kind)
	return nil
}

func (s *fakeSyncer) SyncAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.full++
	return s.fullErr
}

func (s *fakeSyncer) counts() (int, []amqp.SyncKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full, append([]amqp.SyncKind(nil), s.handled...)
}

// fakeConsumer delivers msgs, then blocks until ctx is done.
type fakeConsumer struct {
	msgs []*amqp.SyncMessage
	err  error
}

func (c *fakeConsumer) ConsumeSync(ctx context.Context, h amqp.Handler) error {
	for _, m := range c.msgs {
		if err := h(ctx, m); err != nil {
			return err
		}
	}
	if c.err != nil {
		return c.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestSyncWorkerRun(t *testing.T) {
	syncer := &fakeSyncer{fullErr: errors.New("sheet offline")}
	consumer := &fakeConsumer{msgs: []*amqp.SyncMessage{
		amqp.NewSyncMessage(amqp.SyncLedger, 3),
		amqp.NewSyncMessage(amqp.SyncNotes, 1),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewSyncWorker(consumer, syncer, 5*time.Millisecond).Run(ctx) }()

	require.Eventually(t, func() bool {
		full, handled := syncer.counts()
		return full >= 2 && len(handled) == 2
	}, time.Second, time.Millisecond, "startup copy, periodic copy and both messages")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a clean stop")
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	_, handled := syncer.counts()
	assert.Equal(t, []amqp.SyncKind{amqp.SyncLedger, amqp.SyncNotes}, handled)
}

func TestSyncWorkerConsumeFailure(t *testing.T) {
	syncer := &fakeSyncer{}
	consumer := &fakeConsumer{err: errors.New("message channel closed")}

	err := NewSyncWorker(consumer, syncer, 0).Run(context.Background())
	assert.EqualError(t, err, "message channel closed")
	full, _ := syncer.counts()
	assert.Equal(t, 1, full)
}

// overlapSyncer records the most copies it ever saw running at once.
type overlapSyncer struct {
	active  atomic.Int32
	maxSeen atomic.Int32
	calls   atomic.Int32
}

func (s *overlapSyncer) enter() {
	n := s.active.Add(1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	s.active.Add(-1)
	s.calls.Add(1)
}

func (s *overlapSyncer) Handle(context.Context, *amqp.SyncMessage) error {
	s.enter()
	return nil
}

func (s *overlapSyncer) SyncAll(context.Context) error {
	s.enter()
	return nil
}

// burstConsumer hands every message to the handler from its own goroutine.
type burstConsumer struct{ n int }

func (c burstConsumer) ConsumeSync(ctx context.Context, h amqp.Handler) error {
	var wg sync.WaitGroup
	for i := 0; i < c.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h(ctx, amqp.NewSyncMessage(amqp.SyncLedger, 1))
		}()
	}
	wg.Wait()
	<-ctx.Done()
	return ctx.Err()
}

func TestSyncWorkerNeverOverlapsCopies(t *testing.T) {
	syncer := &overlapSyncer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewSyncWorker(burstConsumer{n: 8}, syncer, time.Millisecond).Run(ctx) }()

	require.Eventually(t, func() bool { return syncer.calls.Load() >= 12 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), syncer.maxSeen.Load())
}
