package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-hooks/core"
	"github.com/goliatone/go-job/queue"
)

const DefaultQueueName = "hooks"

// EnqueuerAdapter submits delivery requests to a go-job queue.
type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
	name     string
	now      func() time.Time
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer, name string) *EnqueuerAdapter {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultQueueName
	}
	return &EnqueuerAdapter{enqueuer: enqueuer, name: name, now: time.Now}
}

func (a *EnqueuerAdapter) Submit(ctx context.Context, req core.DeliveryRequest) (core.DeliveryHandle, error) {
	if a == nil || a.enqueuer == nil {
		return core.DeliveryHandle{}, fmt.Errorf("gojob: enqueuer is not configured")
	}
	msg, err := ToExecutionMessage(req)
	if err != nil {
		return core.DeliveryHandle{}, err
	}
	receipt, err := a.enqueuer.Enqueue(ctx, msg)
	if err != nil {
		return core.DeliveryHandle{}, err
	}
	submittedAt := receipt.EnqueuedAt
	if submittedAt.IsZero() {
		submittedAt = a.now()
	}
	return core.DeliveryHandle{
		RequestID:   req.ID,
		Queue:       a.name,
		DispatchID:  receipt.DispatchID,
		SubmittedAt: submittedAt.UTC(),
	}, nil
}

var _ core.DeliveryQueue = (*EnqueuerAdapter)(nil)
