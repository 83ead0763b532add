package sqlstore

import (
	"errors"
	"time"

	"github.com/goliatone/go-hooks/core"
	"github.com/goliatone/go-hooks/match"
	"github.com/google/uuid"
)

func newListenerRecord(in core.CreateListenerInput, now time.Time) (*listenerRecord, error) {
	encoded, err := match.EncodeMapping(in.Match)
	if err != nil {
		return nil, err
	}
	config := in.Config
	if config == nil {
		config = map[string]any{}
	}
	return &listenerRecord{
		ID:        uuid.NewString(),
		Hook:      in.Hook,
		URL:       in.URL,
		Match:     string(encoded),
		Config:    config,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *listenerRecord) toDomain() (core.Listener, error) {
	if r == nil {
		return core.Listener{}, nil
	}
	mapping, err := match.DecodeMapping([]byte(r.Match))
	if err != nil {
		return core.Listener{}, err
	}
	config := r.Config
	if config == nil {
		config = map[string]any{}
	}
	return core.Listener{
		ID:        r.ID,
		Hook:      r.Hook,
		URL:       r.URL,
		Match:     mapping,
		Config:    config,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func newDeliveryRecord(result core.DeliveryResult, now time.Time) *deliveryRecord {
	history := make([]string, 0, len(result.History))
	for _, state := range result.History {
		history = append(history, string(state))
	}
	record := &deliveryRecord{
		ID:         result.RequestID,
		Hook:       result.Hook,
		ListenerID: result.ListenerID,
		URL:        result.URL,
		State:      string(result.State),
		Attempts:   result.Attempts,
		StatusCode: result.StatusCode,
		History:    history,
		StartedAt:  timePtr(result.StartedAt),
		FinishedAt: timePtr(result.FinishedAt),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if result.Err != nil {
		record.LastError = result.Err.Error()
	}
	return record
}

func (r *deliveryRecord) toDomain() core.DeliveryResult {
	if r == nil {
		return core.DeliveryResult{}
	}
	history := make([]core.DeliveryState, 0, len(r.History))
	for _, state := range r.History {
		history = append(history, core.DeliveryState(state))
	}
	result := core.DeliveryResult{
		RequestID:  r.ID,
		Hook:       r.Hook,
		ListenerID: r.ListenerID,
		URL:        r.URL,
		State:      core.DeliveryState(r.State),
		Attempts:   r.Attempts,
		StatusCode: r.StatusCode,
		History:    history,
	}
	if r.LastError != "" {
		result.Err = errors.New(r.LastError)
	}
	if r.StartedAt != nil {
		result.StartedAt = *r.StartedAt
	}
	if r.FinishedAt != nil {
		result.FinishedAt = *r.FinishedAt
	}
	return result
}

func timePtr(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}
