package gojob

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

// MemoryQueue is an in-process go-job queue. Dequeue blocks until a message
// is ready or the context ends, and never hands out a message once ctx is
// done. Messages nacked for retry are requeued after
// their delay; every other disposition moves them to the dead letter list.
type MemoryQueue struct {
	mu         sync.Mutex
	ready      []queuedMessage
	deadLetter []DeadLetter
	signal     chan struct{}
	closed     bool
	timers     map[*time.Timer]struct{}
}

type queuedMessage struct {
	dispatchID string
	message    *job.ExecutionMessage
	attempt    int
}

// DeadLetter is a message the worker gave up on. Disposition tells a dead
// lettered message apart from one that simply failed or was cancelled.
type DeadLetter struct {
	DispatchID  string
	Message     *job.ExecutionMessage
	Attempt     int
	Disposition queue.NackDisposition
	Reason      string
	FailedAt    time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		signal: make(chan struct{}, 1),
		timers: map[*time.Timer]struct{}{},
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, msg *job.ExecutionMessage) (queue.EnqueueReceipt, error) {
	if msg == nil {
		return queue.EnqueueReceipt{}, fmt.Errorf("gojob: execution message is required")
	}
	receipt := queue.EnqueueReceipt{
		DispatchID: uuid.NewString(),
		EnqueuedAt: time.Now().UTC(),
	}
	if err := q.push(queuedMessage{dispatchID: receipt.DispatchID, message: msg, attempt: 1}); err != nil {
		return queue.EnqueueReceipt{}, err
	}
	return receipt, nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (queue.Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		if len(q.ready) > 0 {
			next := q.ready[0]
			q.ready = q.ready[1:]
			if len(q.ready) > 0 {
				q.notify()
			}
			q.mu.Unlock()
			return &memoryDelivery{queue: q, item: next}, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.signal:
		}
	}
}

// Len reports how many messages are ready for delivery.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

func (q *MemoryQueue) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DeadLetter(nil), q.deadLetter...)
}

// Close stops pending requeue timers and wakes blocked consumers.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for timer := range q.timers {
		timer.Stop()
	}
	q.timers = map[*time.Timer]struct{}{}
	close(q.signal)
}

func (q *MemoryQueue) push(item queuedMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.ready = append(q.ready, item)
	q.notify()
	return nil
}

// notify must be called with mu held.
func (q *MemoryQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *MemoryQueue) requeue(item queuedMessage, delay time.Duration) {
	if delay <= 0 {
		_ = q.push(item)
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()
		_ = q.push(item)
	})
	q.timers[timer] = struct{}{}
}

func (q *MemoryQueue) bury(item queuedMessage, opts queue.NackOptions) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deadLetter = append(q.deadLetter, DeadLetter{
		DispatchID:  item.dispatchID,
		Message:     item.message,
		Attempt:     item.attempt,
		Disposition: opts.Disposition,
		Reason:      opts.Reason,
		FailedAt:    time.Now().UTC(),
	})
}

type memoryDelivery struct {
	queue *MemoryQueue
	item  queuedMessage

	mu      sync.Mutex
	settled bool
}

func (d *memoryDelivery) Message() *job.ExecutionMessage { return d.item.message }

// Attempts is the 1-based number of times this message has been handed out.
// go-job's worker reads it to feed the retry policy.
func (d *memoryDelivery) Attempts() int { return d.item.attempt }

func (d *memoryDelivery) Ack(context.Context) error {
	return d.settle()
}

// Nack settles the delivery even when ctx is already cancelled, so a worker
// stopping mid-run can still hand the message back.
func (d *memoryDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	if err := queue.ValidateNackOptions(opts); err != nil {
		return err
	}
	if err := d.settle(); err != nil {
		return err
	}
	if opts.Disposition == queue.NackDispositionRetry {
		next := d.item
		next.attempt++
		d.queue.requeue(next, opts.Delay)
		return nil
	}
	d.queue.bury(d.item, opts)
	return nil
}

func (d *memoryDelivery) settle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settled {
		return ErrDeliverySettled
	}
	d.settled = true
	return nil
}

var (
	ErrQueueClosed     = fmt.Errorf("gojob: queue is closed")
	ErrDeliverySettled = fmt.Errorf("gojob: delivery already acknowledged")
)

var (
	_ queue.Enqueuer = (*MemoryQueue)(nil)
	_ queue.Dequeuer = (*MemoryQueue)(nil)
	_ queue.Delivery = (*memoryDelivery)(nil)
)
