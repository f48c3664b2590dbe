// internal/model/event.go
package model

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

type EventType string

const (
	EventScheduled      EventType = "scheduled"
	EventSent           EventType = "sent"
	EventOpen           EventType = "open"
	EventManualReply    EventType = "manual_reply"
	EventBounce         EventType = "bounce"
	EventPipelineHot    EventType = "pipeline_hot"
	EventInvoiceOverdue EventType = "invoice_overdue"
)

// Event is an immutable fact. Rows are only ever inserted.
type Event struct {
	ID         string         `db:"id" json:"id"`
	AccountID  string         `db:"account_id" json:"account_id"`
	CampaignID *string        `db:"campaign_id" json:"campaign_id,omitempty"`
	ProspectID *string        `db:"prospect_id" json:"prospect_id,omitempty"`
	Type       EventType      `db:"type" json:"type"`
	Meta       types.JSONText `db:"meta" json:"meta,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
