package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-hooks/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

const defaultDeliveryPageSize = 50

// DeliveryStore keeps the last known outcome of every delivery request.
// Recording the same request again overwrites the earlier row.
type DeliveryStore struct {
	db   *bun.DB
	repo repository.Repository[*deliveryRecord]
}

func NewDeliveryStore(db *bun.DB) (*DeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*deliveryRecord](db, deliveryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid delivery repository wiring: %w", err)
		}
	}
	return &DeliveryStore{db: db, repo: repo}, nil
}

func (s *DeliveryStore) RecordDelivery(ctx context.Context, result core.DeliveryResult) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: delivery store is not configured")
	}
	if strings.TrimSpace(result.RequestID) == "" {
		return fmt.Errorf("sqlstore: delivery request id is required")
	}
	record := newDeliveryRecord(result, time.Now().UTC())
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("state = EXCLUDED.state").
		Set("attempts = EXCLUDED.attempts").
		Set("status_code = EXCLUDED.status_code").
		Set("last_error = EXCLUDED.last_error").
		Set("history = EXCLUDED.history").
		Set("started_at = EXCLUDED.started_at").
		Set("finished_at = EXCLUDED.finished_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *DeliveryStore) Get(ctx context.Context, requestID string) (core.DeliveryResult, error) {
	if s == nil || s.repo == nil {
		return core.DeliveryResult{}, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(requestID))
	if err != nil {
		return core.DeliveryResult{}, err
	}
	return record.toDomain(), nil
}

// ListByListener returns the most recent deliveries for a listener, newest
// first.
func (s *DeliveryStore) ListByListener(ctx context.Context, listenerID string, limit int) ([]core.DeliveryResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	if limit <= 0 {
		limit = defaultDeliveryPageSize
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("listener_id", "=", strings.TrimSpace(listenerID)),
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.DeliveryResult, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
