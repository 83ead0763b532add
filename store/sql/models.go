package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type listenerRecord struct {
	bun.BaseModel `bun:"table:hook_listeners,alias:hl"`

	ID        string         `bun:"id,pk"`
	Hook      string         `bun:"hook,notnull"`
	URL       string         `bun:"url,notnull"`
	Match     string         `bun:"match,notnull"`
	Config    map[string]any `bun:"config,type:jsonb,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt *time.Time     `bun:"deleted_at,soft_delete"`
}

type deliveryRecord struct {
	bun.BaseModel `bun:"table:hook_deliveries,alias:hd"`

	ID         string     `bun:"id,pk"`
	Hook       string     `bun:"hook,notnull"`
	ListenerID string     `bun:"listener_id,notnull"`
	URL        string     `bun:"url,notnull"`
	State      string     `bun:"state,notnull"`
	Attempts   int        `bun:"attempts,notnull"`
	StatusCode int        `bun:"status_code,notnull"`
	LastError  string     `bun:"last_error"`
	History    []string   `bun:"history,type:jsonb,notnull"`
	StartedAt  *time.Time `bun:"started_at,nullzero"`
	FinishedAt *time.Time `bun:"finished_at,nullzero"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
