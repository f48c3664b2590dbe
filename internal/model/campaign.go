// internal/model/campaign.go
package model

import "time"

type Campaign struct {
	ID        string    `db:"id" json:"id"`
	AccountID string    `db:"account_id" json:"account_id"`
	Name      string    `db:"name" json:"name"`
	Objective string    `db:"objective" json:"objective"`
	Language  string    `db:"language" json:"language"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SequenceStep is the intent for one step of a campaign's email sequence.
// It carries no schedule; the sequencer and the dispatch worker consume it.
type SequenceStep struct {
	CampaignID     string  `db:"campaign_id" json:"campaign_id"`
	StepNumber     int     `db:"step_number" json:"step_number"`
	DelayHours     int     `db:"delay_hours" json:"delay_hours"`
	Purpose        *string `db:"purpose" json:"purpose,omitempty"`
	PromptTemplate *string `db:"ai_prompt_template" json:"ai_prompt_template,omitempty"`
}

type LinkStatus string

const (
	LinkQueued  LinkStatus = "queued"
	LinkSent    LinkStatus = "sent"
	LinkOpened  LinkStatus = "opened"
	LinkReplied LinkStatus = "replied"
)

func (s LinkStatus) Valid() bool {
	switch s {
	case LinkQueued, LinkSent, LinkOpened, LinkReplied:
		return true
	}
	return false
}

type ConnectionStatus string

const (
	ConnectionNone     ConnectionStatus = "none"
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionDeclined ConnectionStatus = "declined"
)

func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionNone, ConnectionPending, ConnectionAccepted, ConnectionDeclined:
		return true
	}
	return false
}

// CampaignProspect links a prospect into a campaign.
type CampaignProspect struct {
	CampaignID       string           `db:"campaign_id" json:"campaign_id"`
	ProspectID       string           `db:"prospect_id" json:"prospect_id"`
	Status           LinkStatus       `db:"status" json:"status"`
	ConnectionStatus ConnectionStatus `db:"connection_status" json:"connection_status"`
	LastEventAt      *time.Time       `db:"last_event_at" json:"last_event_at,omitempty"`
}
