// internal/model/prospect.go
package model

import "time"

type PipelineStatus string

const (
	PipelineCold PipelineStatus = "cold"
	PipelineWarm PipelineStatus = "warm"
	PipelineHot  PipelineStatus = "hot"
)

func (s PipelineStatus) Valid() bool {
	return s == PipelineCold || s == PipelineWarm || s == PipelineHot
}

type Prospect struct {
	ID             string         `db:"id" json:"id"`
	AccountID      string         `db:"account_id" json:"account_id"`
	FirstName      string         `db:"first_name" json:"first_name"`
	LastName       string         `db:"last_name" json:"last_name"`
	Company        string         `db:"company" json:"company"`
	Title          string         `db:"title" json:"title"`
	Email          string         `db:"email" json:"email"`
	LinkedInURL    *string        `db:"linkedin_url" json:"linkedin_url,omitempty"`
	Notes          *string        `db:"notes" json:"notes,omitempty"`
	PipelineStatus PipelineStatus `db:"pipeline_status" json:"pipeline_status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// HasProfile reports whether the prospect can receive secondary-channel actions.
func (p *Prospect) HasProfile() bool {
	return p.LinkedInURL != nil && *p.LinkedInURL != ""
}
