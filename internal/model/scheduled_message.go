// internal/model/scheduled_message.go
package model

import "time"

type MessageStatus string

const (
	MessageScheduled MessageStatus = "scheduled"
	// MessageSending is the provisional claim held by one dispatch invocation.
	MessageSending MessageStatus = "sending"
	MessageSent    MessageStatus = "sent"
	MessageFailed  MessageStatus = "failed"
)

type ScheduledMessage struct {
	ID            string        `db:"id" json:"id"`
	CampaignID    string        `db:"campaign_id" json:"campaign_id"`
	ProspectID    string        `db:"prospect_id" json:"prospect_id"`
	SequenceStep  int           `db:"sequence_step" json:"sequence_step"`
	ScheduledAt   time.Time     `db:"scheduled_at" json:"scheduled_at"`
	Status        MessageStatus `db:"status" json:"status"`
	Subject       *string       `db:"subject" json:"subject,omitempty"`
	BodyHTML      *string       `db:"body_html" json:"body_html,omitempty"`
	TrackingToken *string       `db:"tracking_token" json:"tracking_token,omitempty"`
	Error         *string       `db:"error" json:"error,omitempty"`
	ClaimedAt     *time.Time    `db:"claimed_at" json:"-"`
	SentAt        *time.Time    `db:"sent_at" json:"sent_at,omitempty"`
	OpenedAt      *time.Time    `db:"opened_at" json:"opened_at,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// HasContent reports whether subject and body were already resolved.
func (m *ScheduledMessage) HasContent() bool {
	return m.Subject != nil && *m.Subject != "" && m.BodyHTML != nil && *m.BodyHTML != ""
}
