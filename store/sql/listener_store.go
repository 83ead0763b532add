package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-hooks/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ListenerStore persists hook listeners. Match mappings are stored with the
// match codec so predicates survive a round trip.
type ListenerStore struct {
	db   *bun.DB
	repo repository.Repository[*listenerRecord]
}

func NewListenerStore(db *bun.DB) (*ListenerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*listenerRecord](db, listenerHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid listener repository wiring: %w", err)
		}
	}
	return &ListenerStore{db: db, repo: repo}, nil
}

func (s *ListenerStore) Create(ctx context.Context, in core.CreateListenerInput) (core.Listener, error) {
	if s == nil || s.repo == nil {
		return core.Listener{}, fmt.Errorf("sqlstore: listener store is not configured")
	}
	in.Hook = strings.TrimSpace(in.Hook)
	in.URL = strings.TrimSpace(in.URL)
	if in.Hook == "" {
		return core.Listener{}, fmt.Errorf("sqlstore: listener hook is required")
	}
	if in.URL == "" {
		return core.Listener{}, fmt.Errorf("sqlstore: listener url is required")
	}

	record, err := newListenerRecord(in, time.Now().UTC())
	if err != nil {
		return core.Listener{}, err
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Listener{}, err
	}
	return created.toDomain()
}

func (s *ListenerStore) Get(ctx context.Context, id string) (core.Listener, error) {
	if s == nil || s.db == nil {
		return core.Listener{}, fmt.Errorf("sqlstore: listener store is not configured")
	}
	id = strings.TrimSpace(id)
	record := &listenerRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Listener{}, core.ListenerNotFoundError(id)
		}
		return core.Listener{}, err
	}
	return record.toDomain()
}

// FindByHook returns the live listeners of hook in creation order.
func (s *ListenerStore) FindByHook(ctx context.Context, hook string) ([]core.Listener, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: listener store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("hook", "=", strings.TrimSpace(hook)),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.deleted_at IS NULL")
		}),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}

	out := make([]core.Listener, 0, len(records))
	for _, record := range records {
		listener, convErr := record.toDomain()
		if convErr != nil {
			return nil, fmt.Errorf("sqlstore: decode listener %s: %w", record.ID, convErr)
		}
		out = append(out, listener)
	}
	return out, nil
}

// Delete soft deletes a listener.
func (s *ListenerStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: listener store is not configured")
	}
	id = strings.TrimSpace(id)
	res, err := s.db.NewDelete().
		Model((*listenerRecord)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected == 0 {
		return core.ListenerNotFoundError(id)
	}
	return nil
}
