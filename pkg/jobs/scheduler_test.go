package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerTriggerIsIdempotentWhilePending(t *testing.T) {
	ctx := context.Background()
	store := NewJobStore(setupTestDB(t))
	s := NewScheduler(store, nil)

	first := s.Trigger(ctx, "sweep")
	require.NotNil(t, first)
	assert.Equal(t, "scheduler", first.RequestedBy)
	assert.Equal(t, "sweep", first.IdempotencyKey)

	second := s.Trigger(ctx, "sweep")
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, store.Complete(ctx, first.ID, 0, 1, "done"))
	third := s.Trigger(ctx, "sweep")
	require.NotNil(t, third)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestSchedulerRunEnqueuesImmediately(t *testing.T) {
	store := NewJobStore(setupTestDB(t))
	s := NewScheduler(store, nil,
		Schedule{Kind: "sweep", Interval: time.Hour},
		Schedule{Kind: "ignored", Interval: 0},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, _, total, err := store.List(context.Background(), JobListFilter{Kind: "sweep"}, 10, "")
		return err == nil && total == 1
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	_, _, total, err := store.List(context.Background(), JobListFilter{Kind: "ignored"}, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}
