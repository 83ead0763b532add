package gojob

import (
	"context"
	"errors"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

// RetryPolicy decides how the go-job worker settles a delivery message that
// did not complete. Delivery retries happen inside the delivery task, so the
// queue only sees a retry for runs interrupted before reaching a terminal
// state. Everything else is final.
type RetryPolicy struct {
	MaxAttempts     int
	RequeueDelay    time.Duration
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Decide implements worker.RetryPolicy.
func (p RetryPolicy) Decide(attempt int, err error) queue.NackOptions {
	reason := ""
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	final := queue.NackOptions{Disposition: queue.NackDispositionFailed, Reason: reason}
	if p.DeadLetterOnMax {
		final.Disposition = queue.NackDispositionDeadLetter
	}

	var terminal job.NonRetryableError
	if errors.As(err, &terminal) && terminal.NonRetryable() {
		if terminalReason := strings.TrimSpace(terminal.NonRetryableReason()); terminalReason != "" {
			final.Reason = terminalReason
		}
		return final
	}
	if !interrupted(err) {
		return final
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return final
	}

	delay := max(p.RequeueDelay, 0)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return queue.NackOptions{
		Disposition: queue.NackDispositionRetry,
		Delay:       delay,
		Reason:      reason,
	}
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

var _ worker.RetryPolicy = RetryPolicy{}
