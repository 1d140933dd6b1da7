package events_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ledgercore/internal/domain/events"
)

type scriptedRelay struct {
	mu      sync.Mutex
	batches []int
	calls   int
	cancel  context.CancelFunc
}

func (r *scriptedRelay) ProcessBatch(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.batches) == 0 {
		r.cancel()
		return 0, errors.New("broker down")
	}
	n := r.batches[0]
	r.batches = r.batches[1:]
	return n, nil
}

func TestPoll_DrainsThenStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	relay := &scriptedRelay{batches: []int{10, 10, 3, 0}, cancel: cancel}

	err := events.Poll(ctx, relay, time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, relay.calls)
}

func TestRetryDelayGrows(t *testing.T) {
	assert.Equal(t, time.Minute, events.RetryDelay(0))
	assert.Equal(t, 3*time.Minute, events.RetryDelay(2))
}

func TestRecorder(t *testing.T) {
	var r events.Recorder
	_ = r.Publish(context.Background(), events.Event{Type: events.TransactionCreated}, events.Event{Type: events.StockAdjusted})
	assert.Equal(t, []string{events.TransactionCreated, events.StockAdjusted}, r.Types())
}
