// Package delivery serializes outbound work per destination and paces it so a
// burst of links never floods one channel.
package delivery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/declutterbot/declutter/internal/telemetry"
)

// ErrCancelled is reported by tasks removed from the queue before they ran.
var ErrCancelled = errors.New("delivery task cancelled")

// DefaultPacing is the minimum gap between one task finishing and the next
// one starting against the same destination.
const DefaultPacing = 3 * time.Second

// Action is one unit of outbound work.
type Action func(ctx context.Context) error

// Task is a handle to enqueued work. Callers may Wait on it or drop it.
type Task struct {
	ID     string
	destID string
	action Action

	done chan struct{}
	err  error
}

// Wait blocks until the task finishes, is cancelled, or ctx expires.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// destination holds the serialized lane for one channel. lastDone survives
// worker restarts so pacing holds even across idle gaps.
type destination struct {
	pending  []*Task
	running  bool
	lastDone time.Time
}

// Queue runs at most one task per destination at a time. Different
// destinations proceed independently.
type Queue struct {
	pacing time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	dests map[string]*destination

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewQueue constructs a Queue. A pacing of zero or less falls back to
// DefaultPacing.
func NewQueue(pacing time.Duration, logger *zap.Logger) *Queue {
	if pacing <= 0 {
		pacing = DefaultPacing
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		pacing:  pacing,
		logger:  logger,
		dests:   make(map[string]*destination),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Enqueue appends work to the destination's lane and returns immediately.
// The lane's worker is started on demand and exits when the lane drains.
func (q *Queue) Enqueue(destID string, action Action) *Task {
	t := &Task{
		ID:     uuid.NewString(),
		destID: destID,
		action: action,
		done:   make(chan struct{}),
	}

	q.mu.Lock()
	d := q.dests[destID]
	if d == nil {
		d = &destination{}
		q.dests[destID] = d
	}
	d.pending = append(d.pending, t)
	telemetry.QueueDepthAdd(1)
	start := !d.running
	if start {
		d.running = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	if start {
		go q.drain(destID, d)
	}
	return t
}

// Clear removes every not-yet-started task for the destination. The task
// currently running, if any, is left alone. Returns how many were dropped.
func (q *Queue) Clear(destID string) int {
	q.mu.Lock()
	d := q.dests[destID]
	var dropped []*Task
	if d != nil {
		dropped = d.pending
		d.pending = nil
	}
	q.mu.Unlock()

	for _, t := range dropped {
		t.finish(ErrCancelled)
		telemetry.QueueDepthAdd(-1)
		telemetry.ObserveDeliveryTask("cancelled")
	}
	if len(dropped) > 0 {
		q.logger.Info("cleared pending deliveries",
			zap.String("destination", destID),
			zap.Int("dropped", len(dropped)),
		)
	}
	return len(dropped)
}

// Close stops accepting progress: running tasks get a cancelled context and
// Close blocks until every lane worker exits.
func (q *Queue) Close() {
	q.cancel()
	q.wg.Wait()
}

// drain runs the destination's lane until it is empty.
func (q *Queue) drain(destID string, d *destination) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(d.pending) == 0 {
			d.running = false
			q.mu.Unlock()
			return
		}
		t := d.pending[0]
		d.pending = d.pending[1:]
		lastDone := d.lastDone
		q.mu.Unlock()

		q.pace(lastDone)
		err := q.run(t)

		q.mu.Lock()
		d.lastDone = time.Now()
		q.mu.Unlock()

		t.finish(err)
		telemetry.QueueDepthAdd(-1)
		if err != nil {
			telemetry.ObserveDeliveryTask("failed")
			q.logger.Warn("delivery task failed",
				zap.String("destination", destID),
				zap.String("task_id", t.ID),
				zap.Error(err),
			)
		} else {
			telemetry.ObserveDeliveryTask("delivered")
		}
	}
}

// pace sleeps out the remainder of the pacing window after the previous task.
func (q *Queue) pace(lastDone time.Time) {
	if lastDone.IsZero() {
		return
	}
	wait := q.pacing - time.Since(lastDone)
	if wait <= 0 {
		return
	}
	telemetry.ObservePacingDelay(wait)
	select {
	case <-time.After(wait):
	case <-q.baseCtx.Done():
	}
}

// run executes one task, converting a panic into an error so one bad action
// cannot take the lane down.
func (q *Queue) run(t *Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New("delivery task panicked")
			q.logger.Error("delivery task panicked",
				zap.String("task_id", t.ID),
				zap.Any("panic", rec),
			)
		}
	}()
	return t.action(q.baseCtx)
}
