// internal/model/linked_action.go
package model

import "time"

type ActionType string

const (
	ActionVisitProfile   ActionType = "visit_profile"
	ActionSendConnection ActionType = "send_connection"
	ActionFollowUpMsg    ActionType = "follow_up_msg"
	ActionLikeRecentPost ActionType = "like_recent_post"
)

type ActionStatus string

const (
	ActionPending ActionStatus = "pending"
	ActionDone    ActionStatus = "done"
	ActionSkipped ActionStatus = "skipped"
)

// LinkedAction is one manually executed touch on the professional network.
type LinkedAction struct {
	ID         string       `db:"id" json:"id"`
	AccountID  string       `db:"account_id" json:"account_id"`
	CampaignID string       `db:"campaign_id" json:"campaign_id"`
	ProspectID string       `db:"prospect_id" json:"prospect_id"`
	ActionType ActionType   `db:"action_type" json:"action_type"`
	DueAt      time.Time    `db:"due_at" json:"due_at"`
	Status     ActionStatus `db:"status" json:"status"`
	AIMessage  *string      `db:"ai_message" json:"ai_message,omitempty"`
	DoneAt     *time.Time   `db:"done_at" json:"done_at,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}
